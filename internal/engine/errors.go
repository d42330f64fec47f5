package engine

import "errors"

var (
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrNotInitialized     = errors.New("pool not initialized")
	ErrZeroAmount         = errors.New("amount must be greater than zero")
	ErrRatioMismatch      = errors.New("deposit amounts do not match pool ratio")
	ErrZeroShares         = errors.New("share issuance rounds to zero")
	ErrZeroOutput         = errors.New("swap output rounds to zero")
	ErrInsufficientOutput = errors.New("swap output below minimum")
	ErrAmountOverflow     = errors.New("amount overflows 256 bits")
	ErrStateMismatch      = errors.New("restored pool state is inconsistent")
	ErrInvalidDirection   = errors.New("invalid swap direction")
)

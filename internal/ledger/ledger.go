package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInsufficientAllowance    = errors.New("insufficient allowance")
	ErrInsufficientPoolBalance  = errors.New("insufficient pool balance")
	ErrInsufficientShareBalance = errors.New("insufficient share balance")
	ErrBalanceOverflow          = errors.New("balance overflows 256 bits")
	ErrZeroAmount               = errors.New("amount must be greater than zero")
)

// AssetLedger moves units of one asset between external accounts and the pool.
type AssetLedger interface {
	// TransferIn moves amount from the account into the pool. It consumes a
	// previously granted allowance and fails with ErrInsufficientAllowance or
	// ErrInsufficientBalance if the account cannot cover it.
	TransferIn(from common.Address, amount *uint256.Int) error

	// TransferOut moves amount from the pool to the account. It fails with
	// ErrInsufficientPoolBalance if the pool does not hold the funds.
	TransferOut(to common.Address, amount *uint256.Int) error

	// PoolBalance returns the units currently held by the pool.
	PoolBalance() *uint256.Int
}

// ShareLedger tracks the pool's accounting-token supply.
type ShareLedger interface {
	// Issue credits newly created shares to the holder.
	Issue(to common.Address, amount *uint256.Int) error

	// Redeem destroys shares held by the holder. It fails with
	// ErrInsufficientShareBalance if the holder owns fewer than amount.
	Redeem(from common.Address, amount *uint256.Int) error

	// TotalIssued returns the outstanding share supply.
	TotalIssued() *uint256.Int
}

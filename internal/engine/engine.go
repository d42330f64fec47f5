package engine

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolEngine/internal/ledger"
)

// Engine is a two-asset constant-product pool. It owns the pool state and
// drives the external asset and share ledgers; every operation runs under a
// single non-reentrant lock so its snapshot-compute-transfer-commit sequence
// is indivisible, and state is committed only after every external call has
// succeeded. A ledger callback that re-enters the engine deadlocks instead of
// observing pre-commit reserves.
type Engine struct {
	mu     sync.Mutex
	assetX ledger.AssetLedger
	assetY ledger.AssetLedger
	shares ledger.ShareLedger
	state  State
}

// New creates an empty, uninitialized pool over the given ledgers.
func New(assetX, assetY ledger.AssetLedger, shares ledger.ShareLedger) *Engine {
	return &Engine{
		assetX: assetX,
		assetY: assetY,
		shares: shares,
		state:  NewState(),
	}
}

// Restore rebuilds an engine from a persisted state. The state must satisfy
// the pool invariants and agree with the ledgers: the share supply matches
// the share ledger and each reserve is backed by the pool's asset balance.
func Restore(st State, assetX, assetY ledger.AssetLedger, shares ledger.ShareLedger) (*Engine, error) {
	st = st.Clone()

	if !st.Initialized {
		if !st.ReserveX.IsZero() || !st.ReserveY.IsZero() || !st.TotalShares.IsZero() {
			return nil, fmt.Errorf("%w: uninitialized pool with non-zero balances", ErrStateMismatch)
		}
	}
	if !st.TotalShares.IsZero() && (st.ReserveX.IsZero() || st.ReserveY.IsZero()) {
		return nil, fmt.Errorf("%w: outstanding shares without backing reserves", ErrStateMismatch)
	}
	if st.TotalShares.Cmp(shares.TotalIssued()) != 0 {
		return nil, fmt.Errorf("%w: total shares %s != ledger supply %s",
			ErrStateMismatch, st.TotalShares.Dec(), shares.TotalIssued().Dec())
	}
	if assetX.PoolBalance().Lt(st.ReserveX) {
		return nil, fmt.Errorf("%w: reserve X %s exceeds pool balance", ErrStateMismatch, st.ReserveX.Dec())
	}
	if assetY.PoolBalance().Lt(st.ReserveY) {
		return nil, fmt.Errorf("%w: reserve Y %s exceeds pool balance", ErrStateMismatch, st.ReserveY.Dec())
	}

	return &Engine{
		assetX: assetX,
		assetY: assetY,
		shares: shares,
		state:  st,
	}, nil
}

// Init bootstraps the pool with the caller's deposit and issues
// amountX*amountY shares, fixing the unit scale of the accounting token. The
// engine enforces no external price check: the caller bears responsibility
// for the initial ratio.
func (e *Engine) Init(caller common.Address, amountX, amountY *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Initialized {
		return nil, ErrAlreadyInitialized
	}
	if isZero(amountX) || isZero(amountY) {
		return nil, ErrZeroAmount
	}

	minted, overflow := initialShares(amountX, amountY)
	if overflow {
		return nil, ErrAmountOverflow
	}

	if err := e.assetX.TransferIn(caller, amountX); err != nil {
		return nil, err
	}
	if err := e.assetY.TransferIn(caller, amountY); err != nil {
		// The pool just received amountX; handing it back cannot fail.
		_ = e.assetX.TransferOut(caller, amountX)
		return nil, err
	}
	if err := e.shares.Issue(caller, minted); err != nil {
		_ = e.assetY.TransferOut(caller, amountY)
		_ = e.assetX.TransferOut(caller, amountX)
		return nil, err
	}

	e.state.ReserveX = new(uint256.Int).Set(amountX)
	e.state.ReserveY = new(uint256.Int).Set(amountY)
	e.state.TotalShares = minted
	e.state.Initialized = true
	return new(uint256.Int).Set(minted), nil
}

// AddLiquidity deposits both assets in exactly the pool's current ratio and
// issues floor-proportional shares.
func (e *Engine) AddLiquidity(caller common.Address, amountX, amountY *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isZero(amountX) || isZero(amountY) {
		return nil, ErrZeroAmount
	}
	if err := e.requireActive(); err != nil {
		return nil, err
	}
	if !depositMatchesRatio(amountX, amountY, e.state.ReserveX, e.state.ReserveY) {
		return nil, ErrRatioMismatch
	}

	minted, overflow := sharesForDeposit(amountX, e.state.TotalShares, e.state.ReserveX)
	if overflow {
		return nil, ErrAmountOverflow
	}
	if minted.IsZero() {
		return nil, ErrZeroShares
	}

	newReserveX, overflowX := new(uint256.Int).AddOverflow(e.state.ReserveX, amountX)
	newReserveY, overflowY := new(uint256.Int).AddOverflow(e.state.ReserveY, amountY)
	newShares, overflowS := new(uint256.Int).AddOverflow(e.state.TotalShares, minted)
	if overflowX || overflowY || overflowS {
		return nil, ErrAmountOverflow
	}

	if err := e.assetX.TransferIn(caller, amountX); err != nil {
		return nil, err
	}
	if err := e.assetY.TransferIn(caller, amountY); err != nil {
		_ = e.assetX.TransferOut(caller, amountX)
		return nil, err
	}
	if err := e.shares.Issue(caller, minted); err != nil {
		_ = e.assetY.TransferOut(caller, amountY)
		_ = e.assetX.TransferOut(caller, amountX)
		return nil, err
	}

	e.state.ReserveX = newReserveX
	e.state.ReserveY = newReserveY
	e.state.TotalShares = newShares
	return new(uint256.Int).Set(minted), nil
}

// RemoveLiquidity burns the caller's shares and pays out both assets in
// floor proportion to the pre-operation snapshot. Burning the entire supply
// drains both reserves to exactly zero.
func (e *Engine) RemoveLiquidity(caller common.Address, shareAmount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isZero(shareAmount) {
		return nil, nil, ErrZeroAmount
	}
	if err := e.requireActive(); err != nil {
		return nil, nil, err
	}
	if shareAmount.Gt(e.state.TotalShares) {
		// No holder can own more than the supply; fail the way the burn would.
		return nil, nil, ledger.ErrInsufficientShareBalance
	}

	outX, outY := amountsForShares(shareAmount, e.state.ReserveX, e.state.ReserveY, e.state.TotalShares)
	if e.assetX.PoolBalance().Lt(outX) || e.assetY.PoolBalance().Lt(outY) {
		return nil, nil, ledger.ErrInsufficientPoolBalance
	}

	if err := e.shares.Redeem(caller, shareAmount); err != nil {
		return nil, nil, err
	}
	if err := e.assetX.TransferOut(caller, outX); err != nil {
		_ = e.shares.Issue(caller, shareAmount)
		return nil, nil, err
	}
	if err := e.assetY.TransferOut(caller, outY); err != nil {
		// Pre-checked pool balances make this unreachable for a conforming
		// ledger; unwind best-effort regardless.
		_ = e.assetX.TransferIn(caller, outX)
		_ = e.shares.Issue(caller, shareAmount)
		return nil, nil, err
	}

	e.state.ReserveX = new(uint256.Int).Sub(e.state.ReserveX, outX)
	e.state.ReserveY = new(uint256.Int).Sub(e.state.ReserveY, outY)
	e.state.TotalShares = new(uint256.Int).Sub(e.state.TotalShares, shareAmount)
	return outX, outY, nil
}

// Swap exchanges amountIn of the direction's input asset for the constant
// product output. A non-zero minOut rejects the trade before any transfer if
// the output falls short.
func (e *Engine) Swap(caller common.Address, dir Direction, amountIn, minOut *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isZero(amountIn) {
		return nil, ErrZeroAmount
	}
	if err := e.requireActive(); err != nil {
		return nil, err
	}

	var in, out ledger.AssetLedger
	var reserveIn, reserveOut *uint256.Int
	switch dir {
	case SellX:
		in, out = e.assetX, e.assetY
		reserveIn, reserveOut = e.state.ReserveX, e.state.ReserveY
	case SellY:
		in, out = e.assetY, e.assetX
		reserveIn, reserveOut = e.state.ReserveY, e.state.ReserveX
	default:
		return nil, ErrInvalidDirection
	}

	newIn, newOut, amountOut, err := swapTarget(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		// Accepting the input with no output would silently donate it.
		return nil, ErrZeroOutput
	}
	if minOut != nil && !minOut.IsZero() && amountOut.Lt(minOut) {
		return nil, ErrInsufficientOutput
	}
	if out.PoolBalance().Lt(amountOut) {
		return nil, ledger.ErrInsufficientPoolBalance
	}

	if err := in.TransferIn(caller, amountIn); err != nil {
		return nil, err
	}
	if err := out.TransferOut(caller, amountOut); err != nil {
		_ = in.TransferOut(caller, amountIn)
		return nil, err
	}

	switch dir {
	case SellX:
		e.state.ReserveX = newIn
		e.state.ReserveY = newOut
	case SellY:
		e.state.ReserveY = newIn
		e.state.ReserveX = newOut
	}
	return amountOut, nil
}

// Donate pulls assets into the reserves without minting shares. The value
// accrues to existing share holders. Either side may be zero, but not both.
func (e *Engine) Donate(caller common.Address, amountX, amountY *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireActive(); err != nil {
		return err
	}
	if isZero(amountX) && isZero(amountY) {
		return ErrZeroAmount
	}

	newReserveX := e.state.ReserveX
	newReserveY := e.state.ReserveY
	var overflow bool
	if !isZero(amountX) {
		if newReserveX, overflow = new(uint256.Int).AddOverflow(e.state.ReserveX, amountX); overflow {
			return ErrAmountOverflow
		}
	}
	if !isZero(amountY) {
		if newReserveY, overflow = new(uint256.Int).AddOverflow(e.state.ReserveY, amountY); overflow {
			return ErrAmountOverflow
		}
	}

	if !isZero(amountX) {
		if err := e.assetX.TransferIn(caller, amountX); err != nil {
			return err
		}
	}
	if !isZero(amountY) {
		if err := e.assetY.TransferIn(caller, amountY); err != nil {
			if !isZero(amountX) {
				_ = e.assetX.TransferOut(caller, amountX)
			}
			return err
		}
	}

	e.state.ReserveX = newReserveX
	e.state.ReserveY = newReserveY
	return nil
}

// QuoteSwap computes the output a swap would pay right now, without touching
// state or ledgers.
func (e *Engine) QuoteSwap(dir Direction, amountIn *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isZero(amountIn) {
		return nil, ErrZeroAmount
	}
	if err := e.requireActive(); err != nil {
		return nil, err
	}

	var reserveIn, reserveOut *uint256.Int
	switch dir {
	case SellX:
		reserveIn, reserveOut = e.state.ReserveX, e.state.ReserveY
	case SellY:
		reserveIn, reserveOut = e.state.ReserveY, e.state.ReserveX
	default:
		return nil, ErrInvalidDirection
	}

	_, _, amountOut, err := swapTarget(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, ErrZeroOutput
	}
	return amountOut, nil
}

// QuoteRemove computes the payout a withdrawal would make right now.
func (e *Engine) QuoteRemove(shareAmount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isZero(shareAmount) {
		return nil, nil, ErrZeroAmount
	}
	if err := e.requireActive(); err != nil {
		return nil, nil, err
	}
	if shareAmount.Gt(e.state.TotalShares) {
		return nil, nil, ledger.ErrInsufficientShareBalance
	}

	outX, outY := amountsForShares(shareAmount, e.state.ReserveX, e.state.ReserveY, e.state.TotalShares)
	return outX, outY, nil
}

// ReserveX returns the committed reserve of asset X.
func (e *Engine) ReserveX() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(uint256.Int).Set(e.state.ReserveX)
}

// ReserveY returns the committed reserve of asset Y.
func (e *Engine) ReserveY() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(uint256.Int).Set(e.state.ReserveY)
}

// TotalShares returns the outstanding share supply.
func (e *Engine) TotalShares() *uint256.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(uint256.Int).Set(e.state.TotalShares)
}

// Initialized reports whether the pool has been bootstrapped.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Initialized
}

// Snapshot returns a consistent copy of the committed state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// requireActive rejects operations on a pool that was never initialized or
// whose supply has been fully withdrawn; a drained pool defines no ratio and
// no price, so it cannot be operated on again.
func (e *Engine) requireActive() error {
	if !e.state.Initialized || e.state.TotalShares.IsZero() {
		return ErrNotInitialized
	}
	return nil
}

func isZero(v *uint256.Int) bool {
	return v == nil || v.IsZero()
}

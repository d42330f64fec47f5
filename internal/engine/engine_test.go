package engine

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolEngine/internal/ledger"
)

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type fixture struct {
	assetX *ledger.MemoryAssetLedger
	assetY *ledger.MemoryAssetLedger
	shares *ledger.MemoryShareLedger
	eng    *Engine
}

func newFixture() *fixture {
	assetX := ledger.NewMemoryAssetLedger("X")
	assetY := ledger.NewMemoryAssetLedger("Y")
	shares := ledger.NewMemoryShareLedger()
	return &fixture{
		assetX: assetX,
		assetY: assetY,
		shares: shares,
		eng:    New(assetX, assetY, shares),
	}
}

func (f *fixture) fundX(t *testing.T, to common.Address, amount uint64) {
	t.Helper()
	if err := f.assetX.Mint(to, u(amount)); err != nil {
		t.Fatalf("mint X: %v", err)
	}
	f.assetX.Approve(to, u(amount))
}

func (f *fixture) fundY(t *testing.T, to common.Address, amount uint64) {
	t.Helper()
	if err := f.assetY.Mint(to, u(amount)); err != nil {
		t.Fatalf("mint Y: %v", err)
	}
	f.assetY.Approve(to, u(amount))
}

func (f *fixture) mustInit(t *testing.T, amountX, amountY uint64) {
	t.Helper()
	f.fundX(t, alice, amountX)
	f.fundY(t, alice, amountY)
	if _, err := f.eng.Init(alice, u(amountX), u(amountY)); err != nil {
		t.Fatalf("init: %v", err)
	}
}

func (f *fixture) requireState(t *testing.T, reserveX, reserveY, totalShares uint64) {
	t.Helper()
	if got := f.eng.ReserveX(); got.Uint64() != reserveX {
		t.Fatalf("reserve X = %s, want %d", got.Dec(), reserveX)
	}
	if got := f.eng.ReserveY(); got.Uint64() != reserveY {
		t.Fatalf("reserve Y = %s, want %d", got.Dec(), reserveY)
	}
	if got := f.eng.TotalShares(); got.Uint64() != totalShares {
		t.Fatalf("total shares = %s, want %d", got.Dec(), totalShares)
	}
}

func TestInit(t *testing.T) {
	f := newFixture()
	f.fundX(t, alice, 1000)
	f.fundY(t, alice, 4000)

	minted, err := f.eng.Init(alice, u(1000), u(4000))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if minted.Uint64() != 4000000 {
		t.Fatalf("minted = %s, want 4000000", minted.Dec())
	}

	f.requireState(t, 1000, 4000, 4000000)
	if !f.eng.Initialized() {
		t.Fatalf("pool not marked initialized")
	}
	if got := f.assetX.PoolBalance(); got.Uint64() != 1000 {
		t.Fatalf("pool X balance = %s, want 1000", got.Dec())
	}
	if got := f.assetY.PoolBalance(); got.Uint64() != 4000 {
		t.Fatalf("pool Y balance = %s, want 4000", got.Dec())
	}
	if got := f.shares.BalanceOf(alice); got.Uint64() != 4000000 {
		t.Fatalf("alice shares = %s, want 4000000", got.Dec())
	}
	if got := f.assetX.BalanceOf(alice); !got.IsZero() {
		t.Fatalf("alice X balance = %s, want 0", got.Dec())
	}
}

func TestInitTwice(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 10)
	f.fundY(t, bob, 40)
	if _, err := f.eng.Init(bob, u(10), u(40)); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestInitZeroAmount(t *testing.T) {
	f := newFixture()
	if _, err := f.eng.Init(alice, u(0), u(4000)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if _, err := f.eng.Init(alice, u(1000), u(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if f.eng.Initialized() {
		t.Fatalf("failed init must not mark the pool initialized")
	}
}

func TestInitRollbackOnSecondTransfer(t *testing.T) {
	f := newFixture()
	f.fundX(t, alice, 1000)
	// No Y allowance, so the second pull fails and the first must unwind.
	if err := f.assetY.Mint(alice, u(4000)); err != nil {
		t.Fatalf("mint Y: %v", err)
	}

	if _, err := f.eng.Init(alice, u(1000), u(4000)); !errors.Is(err, ledger.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if f.eng.Initialized() {
		t.Fatalf("failed init must leave the pool uninitialized")
	}
	if got := f.assetX.BalanceOf(alice); got.Uint64() != 1000 {
		t.Fatalf("alice X balance after rollback = %s, want 1000", got.Dec())
	}
	if got := f.assetX.PoolBalance(); !got.IsZero() {
		t.Fatalf("pool X balance after rollback = %s, want 0", got.Dec())
	}
}

func TestSwapSellX(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 100)
	out, err := f.eng.Swap(bob, SellX, u(100), nil)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Uint64() != 364 {
		t.Fatalf("out = %s, want 364", out.Dec())
	}

	f.requireState(t, 1100, 3636, 4000000)
	if got := f.assetY.BalanceOf(bob); got.Uint64() != 364 {
		t.Fatalf("bob Y balance = %s, want 364", got.Dec())
	}
	if got := f.assetX.BalanceOf(bob); !got.IsZero() {
		t.Fatalf("bob X balance = %s, want 0", got.Dec())
	}
}

func TestSwapSellY(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundY(t, bob, 400)
	out, err := f.eng.Swap(bob, SellY, u(400), nil)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// newReserveX = floor(4000*1000/4400) = 909, out = 91.
	if out.Uint64() != 91 {
		t.Fatalf("out = %s, want 91", out.Dec())
	}
	f.requireState(t, 909, 4400, 4000000)
}

func TestSwapMinOut(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 100)
	if _, err := f.eng.Swap(bob, SellX, u(100), u(365)); !errors.Is(err, ErrInsufficientOutput) {
		t.Fatalf("expected ErrInsufficientOutput, got %v", err)
	}
	// The rejected trade must not move anything.
	f.requireState(t, 1000, 4000, 4000000)
	if got := f.assetX.BalanceOf(bob); got.Uint64() != 100 {
		t.Fatalf("bob X balance = %s, want 100", got.Dec())
	}

	out, err := f.eng.Swap(bob, SellX, u(100), u(364))
	if err != nil {
		t.Fatalf("swap at exact min-out: %v", err)
	}
	if out.Uint64() != 364 {
		t.Fatalf("out = %s, want 364", out.Dec())
	}
}

func TestSwapZeroAmount(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)
	if _, err := f.eng.Swap(bob, SellX, u(0), nil); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestSwapInvalidDirection(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)
	if _, err := f.eng.Swap(bob, Direction(7), u(10), nil); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestSwapUninitialized(t *testing.T) {
	f := newFixture()
	if _, err := f.eng.Swap(bob, SellX, u(10), nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestSwapRollbackOnFailedPull(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	// Bob has the balance but never granted an allowance.
	if err := f.assetX.Mint(bob, u(100)); err != nil {
		t.Fatalf("mint X: %v", err)
	}
	if _, err := f.eng.Swap(bob, SellX, u(100), nil); !errors.Is(err, ledger.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	f.requireState(t, 1000, 4000, 4000000)
}

// Repeated swaps keep newReserveOut*newReserveIn within one newReserveIn of
// the pre-trade product: the committed product never exceeds it and never
// falls a full divisor below it.
func TestSwapProductBound(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	trades := []struct {
		dir    Direction
		amount uint64
	}{
		{SellX, 100}, {SellY, 250}, {SellX, 1}, {SellX, 999}, {SellY, 4000},
		{SellX, 37}, {SellY, 1}, {SellX, 500},
	}
	for i, tr := range trades {
		kBefore := new(big.Int).Mul(f.eng.ReserveX().ToBig(), f.eng.ReserveY().ToBig())
		if tr.dir == SellX {
			f.fundX(t, bob, tr.amount)
		} else {
			f.fundY(t, bob, tr.amount)
		}
		if _, err := f.eng.Swap(bob, tr.dir, u(tr.amount), nil); err != nil {
			t.Fatalf("trade %d: %v", i, err)
		}

		rX := f.eng.ReserveX().ToBig()
		rY := f.eng.ReserveY().ToBig()
		kAfter := new(big.Int).Mul(rX, rY)
		if kAfter.Cmp(kBefore) > 0 {
			t.Fatalf("trade %d: product grew from %s to %s", i, kBefore, kAfter)
		}
		newIn := rX
		if tr.dir == SellY {
			newIn = rY
		}
		slack := new(big.Int).Sub(kBefore, kAfter)
		if slack.Cmp(newIn) >= 0 {
			t.Fatalf("trade %d: product slack %s >= divisor %s", i, slack, newIn)
		}
	}
}

func TestAddLiquidity(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 500)
	f.fundY(t, bob, 2000)
	minted, err := f.eng.AddLiquidity(bob, u(500), u(2000))
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if minted.Uint64() != 2000000 {
		t.Fatalf("minted = %s, want 2000000", minted.Dec())
	}
	f.requireState(t, 1500, 6000, 6000000)
	if got := f.shares.BalanceOf(bob); got.Uint64() != 2000000 {
		t.Fatalf("bob shares = %s, want 2000000", got.Dec())
	}
}

func TestAddLiquidityRatioMismatch(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 500)
	f.fundY(t, bob, 2001)
	if _, err := f.eng.AddLiquidity(bob, u(500), u(2001)); !errors.Is(err, ErrRatioMismatch) {
		t.Fatalf("expected ErrRatioMismatch, got %v", err)
	}
	f.requireState(t, 1000, 4000, 4000000)
}

func TestAddLiquidityZeroShares(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1, 1)

	// Donations grow the reserves without growing the supply, so a matching
	// deposit can floor to zero shares.
	f.fundX(t, alice, 9)
	f.fundY(t, alice, 9)
	if err := f.eng.Donate(alice, u(9), u(9)); err != nil {
		t.Fatalf("donate: %v", err)
	}

	f.fundX(t, bob, 5)
	f.fundY(t, bob, 5)
	if _, err := f.eng.AddLiquidity(bob, u(5), u(5)); !errors.Is(err, ErrZeroShares) {
		t.Fatalf("expected ErrZeroShares, got %v", err)
	}
	f.requireState(t, 10, 10, 1)
}

func TestAddLiquidityUninitialized(t *testing.T) {
	f := newFixture()
	f.fundX(t, bob, 500)
	f.fundY(t, bob, 2000)
	if _, err := f.eng.AddLiquidity(bob, u(500), u(2000)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestAddLiquidityRollback(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 500)
	if err := f.assetY.Mint(bob, u(2000)); err != nil {
		t.Fatalf("mint Y: %v", err)
	}
	if _, err := f.eng.AddLiquidity(bob, u(500), u(2000)); !errors.Is(err, ledger.ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	f.requireState(t, 1000, 4000, 4000000)
	if got := f.assetX.BalanceOf(bob); got.Uint64() != 500 {
		t.Fatalf("bob X balance after rollback = %s, want 500", got.Dec())
	}
}

func TestRemoveLiquidity(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	outX, outY, err := f.eng.RemoveLiquidity(alice, u(1000000))
	if err != nil {
		t.Fatalf("remove liquidity: %v", err)
	}
	if outX.Uint64() != 250 {
		t.Fatalf("outX = %s, want 250", outX.Dec())
	}
	if outY.Uint64() != 1000 {
		t.Fatalf("outY = %s, want 1000", outY.Dec())
	}
	f.requireState(t, 750, 3000, 3000000)
	if got := f.assetX.BalanceOf(alice); got.Uint64() != 250 {
		t.Fatalf("alice X balance = %s, want 250", got.Dec())
	}
	if got := f.shares.BalanceOf(alice); got.Uint64() != 3000000 {
		t.Fatalf("alice shares = %s, want 3000000", got.Dec())
	}
}

func TestRemoveLiquidityAll(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	outX, outY, err := f.eng.RemoveLiquidity(alice, u(4000000))
	if err != nil {
		t.Fatalf("full withdrawal: %v", err)
	}
	if outX.Uint64() != 1000 || outY.Uint64() != 4000 {
		t.Fatalf("full withdrawal = (%s, %s), want (1000, 4000)", outX.Dec(), outY.Dec())
	}
	f.requireState(t, 0, 0, 0)
	if got := f.assetX.PoolBalance(); !got.IsZero() {
		t.Fatalf("pool X balance = %s, want 0", got.Dec())
	}

	// A drained pool has no ratio and no price; it cannot be operated on.
	f.fundX(t, alice, 10)
	f.fundY(t, alice, 40)
	if _, err := f.eng.AddLiquidity(alice, u(10), u(40)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized on drained pool, got %v", err)
	}
	if _, err := f.eng.Swap(alice, SellX, u(10), nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized on drained pool, got %v", err)
	}
}

func TestRemoveLiquidityExceedsSupply(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	if _, _, err := f.eng.RemoveLiquidity(alice, u(4000001)); !errors.Is(err, ledger.ErrInsufficientShareBalance) {
		t.Fatalf("expected ErrInsufficientShareBalance, got %v", err)
	}
}

func TestRemoveLiquidityNotHolder(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	if _, _, err := f.eng.RemoveLiquidity(bob, u(1)); !errors.Is(err, ledger.ErrInsufficientShareBalance) {
		t.Fatalf("expected ErrInsufficientShareBalance, got %v", err)
	}
	f.requireState(t, 1000, 4000, 4000000)
}

func TestRemoveLiquidityZeroAmount(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)
	if _, _, err := f.eng.RemoveLiquidity(alice, u(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestDonate(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	f.fundX(t, bob, 100)
	if err := f.eng.Donate(bob, u(100), u(0)); err != nil {
		t.Fatalf("donate: %v", err)
	}
	f.requireState(t, 1100, 4000, 4000000)

	if err := f.eng.Donate(bob, u(0), u(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount for empty donation, got %v", err)
	}
}

func TestDonateUninitialized(t *testing.T) {
	f := newFixture()
	f.fundX(t, bob, 100)
	if err := f.eng.Donate(bob, u(100), u(0)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestQuoteSwap(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	out, err := f.eng.QuoteSwap(SellX, u(100))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if out.Uint64() != 364 {
		t.Fatalf("quote out = %s, want 364", out.Dec())
	}
	// Quoting must not move state.
	f.requireState(t, 1000, 4000, 4000000)
}

func TestQuoteRemove(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	outX, outY, err := f.eng.QuoteRemove(u(1000000))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if outX.Uint64() != 250 || outY.Uint64() != 1000 {
		t.Fatalf("quote = (%s, %s), want (250, 1000)", outX.Dec(), outY.Dec())
	}
	f.requireState(t, 1000, 4000, 4000000)
}

// Asset units are conserved across every operation: the pool balance plus all
// account balances never changes except through minting.
func TestConservation(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)
	f.fundX(t, bob, 600)
	f.fundY(t, bob, 2000)

	totalX := f.totalX()
	totalY := f.totalY()

	if _, err := f.eng.Swap(bob, SellX, u(100), nil); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if _, _, err := f.eng.RemoveLiquidity(alice, u(500000)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.eng.Donate(bob, u(50), u(50)); err != nil {
		t.Fatalf("donate: %v", err)
	}

	if got := f.totalX(); got.Cmp(totalX) != 0 {
		t.Fatalf("total X changed: %s != %s", got.Dec(), totalX.Dec())
	}
	if got := f.totalY(); got.Cmp(totalY) != 0 {
		t.Fatalf("total Y changed: %s != %s", got.Dec(), totalY.Dec())
	}
	// Reserves stay backed by the pool's actual holdings.
	if f.assetX.PoolBalance().Lt(f.eng.ReserveX()) {
		t.Fatalf("reserve X exceeds pool balance")
	}
	if f.assetY.PoolBalance().Lt(f.eng.ReserveY()) {
		t.Fatalf("reserve Y exceeds pool balance")
	}
}

func (f *fixture) totalX() *uint256.Int {
	sum := f.assetX.PoolBalance()
	for _, balance := range f.assetX.Balances() {
		sum.Add(sum, balance)
	}
	return sum
}

func (f *fixture) totalY() *uint256.Int {
	sum := f.assetY.PoolBalance()
	for _, balance := range f.assetY.Balances() {
		sum.Add(sum, balance)
	}
	return sum
}

func TestRestore(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)
	snap := f.eng.Snapshot()

	restored, err := Restore(snap, f.assetX, f.assetY, f.shares)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.ReserveX(); got.Uint64() != 1000 {
		t.Fatalf("restored reserve X = %s, want 1000", got.Dec())
	}

	f.fundX(t, bob, 100)
	if _, err := restored.Swap(bob, SellX, u(100), nil); err != nil {
		t.Fatalf("swap on restored engine: %v", err)
	}
}

func TestRestoreRejectsMismatch(t *testing.T) {
	f := newFixture()
	f.mustInit(t, 1000, 4000)

	bad := f.eng.Snapshot()
	bad.TotalShares = u(999)
	if _, err := Restore(bad, f.assetX, f.assetY, f.shares); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch for supply drift, got %v", err)
	}

	bad = f.eng.Snapshot()
	bad.ReserveX = u(1001)
	if _, err := Restore(bad, f.assetX, f.assetY, f.shares); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch for unbacked reserve, got %v", err)
	}

	bad = NewState()
	bad.ReserveX = u(5)
	if _, err := Restore(bad, f.assetX, f.assetY, f.shares); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch for uninitialized balances, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("x2y")
	if err != nil || dir != SellX {
		t.Fatalf("ParseDirection(x2y) = %v, %v", dir, err)
	}
	dir, err = ParseDirection("y2x")
	if err != nil || dir != SellY {
		t.Fatalf("ParseDirection(y2x) = %v, %v", dir, err)
	}
	if _, err := ParseDirection("xy"); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

package engine

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func TestSwapTarget(t *testing.T) {
	newIn, newOut, out, err := swapTarget(u(100), u(1000), u(4000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newIn.Uint64() != 1100 {
		t.Fatalf("newIn = %s, want 1100", newIn.Dec())
	}
	if newOut.Uint64() != 3636 {
		t.Fatalf("newOut = %s, want 3636", newOut.Dec())
	}
	if out.Uint64() != 364 {
		t.Fatalf("out = %s, want 364", out.Dec())
	}
}

func TestSwapTargetOverflowingInput(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	if _, _, _, err := swapTarget(max, u(1), u(1)); err == nil {
		t.Fatalf("expected overflow error")
	}
}

// The truncated quotient newOut must satisfy
// newOut*newIn <= reserveIn*reserveOut < (newOut+1)*newIn.
func TestSwapTargetFloorBound(t *testing.T) {
	cases := []struct {
		amountIn, reserveIn, reserveOut uint64
	}{
		{100, 1000, 4000},
		{1, 1000, 4000},
		{999999, 1000, 4000},
		{7, 13, 31},
		{1, 1, 1},
		{3, 2, 1000000007},
	}
	for _, tc := range cases {
		newIn, newOut, out, err := swapTarget(u(tc.amountIn), u(tc.reserveIn), u(tc.reserveOut))
		if err != nil {
			t.Fatalf("swapTarget(%d,%d,%d): %v", tc.amountIn, tc.reserveIn, tc.reserveOut, err)
		}

		k := new(big.Int).Mul(big.NewInt(int64(tc.reserveIn)), big.NewInt(int64(tc.reserveOut)))
		lower := new(big.Int).Mul(newOut.ToBig(), newIn.ToBig())
		upper := new(big.Int).Mul(new(big.Int).Add(newOut.ToBig(), big.NewInt(1)), newIn.ToBig())

		if lower.Cmp(k) > 0 {
			t.Fatalf("swapTarget(%d,%d,%d): newOut*newIn %s exceeds k %s", tc.amountIn, tc.reserveIn, tc.reserveOut, lower, k)
		}
		if upper.Cmp(k) <= 0 {
			t.Fatalf("swapTarget(%d,%d,%d): quotient not tight, (newOut+1)*newIn %s <= k %s", tc.amountIn, tc.reserveIn, tc.reserveOut, upper, k)
		}
		if sum := new(uint256.Int).Add(newOut, out); sum.Cmp(u(tc.reserveOut)) != 0 {
			t.Fatalf("swapTarget(%d,%d,%d): newOut+out != reserveOut", tc.amountIn, tc.reserveIn, tc.reserveOut)
		}
	}
}

func TestInitialShares(t *testing.T) {
	got, overflow := initialShares(u(1000), u(4000))
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if got.Uint64() != 4000000 {
		t.Fatalf("initial shares = %s, want 4000000", got.Dec())
	}

	max := new(uint256.Int).SetAllOne()
	if _, overflow := initialShares(max, u(2)); !overflow {
		t.Fatalf("expected overflow for max*2")
	}
}

func TestDepositMatchesRatio(t *testing.T) {
	cases := []struct {
		amountX, amountY, reserveX, reserveY uint64
		want                                 bool
	}{
		{500, 2000, 1000, 4000, true},
		{1, 4, 1000, 4000, true},
		{500, 1999, 1000, 4000, false},
		{500, 2001, 1000, 4000, false},
		{3, 1, 1000000007, 333333336, false},
	}
	for _, tc := range cases {
		got := depositMatchesRatio(u(tc.amountX), u(tc.amountY), u(tc.reserveX), u(tc.reserveY))
		if got != tc.want {
			t.Fatalf("depositMatchesRatio(%d,%d,%d,%d) = %v, want %v",
				tc.amountX, tc.amountY, tc.reserveX, tc.reserveY, got, tc.want)
		}
	}
}

func TestDepositMatchesRatioFullWidth(t *testing.T) {
	// Both cross products exceed 256 bits; the check must still be exact.
	big1 := new(uint256.Int).Lsh(u(1), 200)
	big2 := new(uint256.Int).Lsh(u(3), 200)
	if !depositMatchesRatio(big1, big2, big1, big2) {
		t.Fatalf("expected exact ratio match at full width")
	}
	off := new(uint256.Int).Add(big2, u(1))
	if depositMatchesRatio(big1, off, big1, big2) {
		t.Fatalf("expected mismatch for off-by-one at full width")
	}
}

func TestSharesForDeposit(t *testing.T) {
	got, overflow := sharesForDeposit(u(500), u(4000000), u(1000))
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if got.Uint64() != 2000000 {
		t.Fatalf("shares = %s, want 2000000", got.Dec())
	}

	// floor(5*1/10) = 0
	got, _ = sharesForDeposit(u(5), u(1), u(10))
	if !got.IsZero() {
		t.Fatalf("shares = %s, want 0", got.Dec())
	}
}

func TestAmountsForShares(t *testing.T) {
	outX, outY := amountsForShares(u(1000000), u(1000), u(4000), u(4000000))
	if outX.Uint64() != 250 {
		t.Fatalf("outX = %s, want 250", outX.Dec())
	}
	if outY.Uint64() != 1000 {
		t.Fatalf("outY = %s, want 1000", outY.Dec())
	}

	// Burning the whole supply pays out both reserves exactly.
	outX, outY = amountsForShares(u(4000000), u(1000), u(4000), u(4000000))
	if outX.Uint64() != 1000 || outY.Uint64() != 4000 {
		t.Fatalf("full burn = (%s, %s), want (1000, 4000)", outX.Dec(), outY.Dec())
	}

	// Floors round down independently per side.
	outX, outY = amountsForShares(u(1), u(10), u(7), u(3))
	if outX.Uint64() != 3 || outY.Uint64() != 2 {
		t.Fatalf("floor payout = (%s, %s), want (3, 2)", outX.Dec(), outY.Dec())
	}
}

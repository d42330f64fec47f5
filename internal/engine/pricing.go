package engine

import (
	"math/big"

	"github.com/holiman/uint256"
)

// All pricing math is unsigned 256-bit with truncating division as the only
// rounding mechanism. Intermediate products are taken at full width so the
// floor is exact for any in-range operands.

// initialShares returns the bootstrap share supply amountX*amountY. The
// product fixes the unit scale of the accounting token.
func initialShares(amountX, amountY *uint256.Int) (*uint256.Int, bool) {
	return new(uint256.Int).MulOverflow(amountX, amountY)
}

// depositMatchesRatio reports whether amountX*reserveY == amountY*reserveX
// exactly. Cross-multiplication at full width keeps the check free of any
// fractional or truncated arithmetic.
func depositMatchesRatio(amountX, amountY, reserveX, reserveY *uint256.Int) bool {
	left := new(big.Int).Mul(amountX.ToBig(), reserveY.ToBig())
	right := new(big.Int).Mul(amountY.ToBig(), reserveX.ToBig())
	return left.Cmp(right) == 0
}

// sharesForDeposit returns floor(amountX*totalShares/reserveX). The floor is
// the sole rounding point of a deposit and always favors the pool.
func sharesForDeposit(amountX, totalShares, reserveX *uint256.Int) (*uint256.Int, bool) {
	return new(uint256.Int).MulDivOverflow(amountX, totalShares, reserveX)
}

// amountsForShares returns the floor-proportional withdrawal amounts for
// shareAmount, both computed from the same pre-operation snapshot. The caller
// must ensure shareAmount <= totalShares so neither result can exceed its
// reserve.
func amountsForShares(shareAmount, reserveX, reserveY, totalShares *uint256.Int) (*uint256.Int, *uint256.Int) {
	outX, _ := new(uint256.Int).MulDivOverflow(shareAmount, reserveX, totalShares)
	outY, _ := new(uint256.Int).MulDivOverflow(shareAmount, reserveY, totalShares)
	return outX, outY
}

// swapTarget computes the post-trade reserves and output for a constant
// product swap: newOut = floor(reserveIn*reserveOut/(reserveIn+amountIn)),
// out = reserveOut - newOut. The product is taken from the pre-trade
// reserves.
func swapTarget(amountIn, reserveIn, reserveOut *uint256.Int) (newIn, newOut, out *uint256.Int, err error) {
	newIn, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
	if overflow {
		return nil, nil, nil, ErrAmountOverflow
	}
	// newOut <= reserveOut, so the 512-bit intermediate cannot overflow the
	// result width.
	newOut, _ = new(uint256.Int).MulDivOverflow(reserveIn, reserveOut, newIn)
	out = new(uint256.Int).Sub(reserveOut, newOut)
	return newIn, newOut, out, nil
}

package engine

import "github.com/holiman/uint256"

// State is the pool ledger: reserves of both assets, the outstanding share
// supply, and the one-way initialization flag. It is owned exclusively by the
// engine; readers get copies taken between committed operations.
type State struct {
	ReserveX    *uint256.Int
	ReserveY    *uint256.Int
	TotalShares *uint256.Int
	Initialized bool
}

// NewState returns an empty, uninitialized pool state.
func NewState() State {
	return State{
		ReserveX:    new(uint256.Int),
		ReserveY:    new(uint256.Int),
		TotalShares: new(uint256.Int),
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{Initialized: s.Initialized}
	out.ReserveX = cloneOrZero(s.ReserveX)
	out.ReserveY = cloneOrZero(s.ReserveY)
	out.TotalShares = cloneOrZero(s.TotalShares)
	return out
}

func cloneOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

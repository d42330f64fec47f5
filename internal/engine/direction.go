package engine

import "fmt"

// Direction selects the input side of a swap.
type Direction uint8

const (
	// SellX deposits asset X and receives asset Y.
	SellX Direction = iota
	// SellY deposits asset Y and receives asset X.
	SellY
)

func (d Direction) String() string {
	switch d {
	case SellX:
		return "x2y"
	case SellY:
		return "y2x"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection converts the wire form ("x2y" or "y2x") into a Direction.
func ParseDirection(input string) (Direction, error) {
	switch input {
	case "x2y":
		return SellX, nil
	case "y2x":
		return SellY, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, input)
	}
}

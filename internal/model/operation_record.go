package model

// Operation kinds recorded in the journal.
const (
	OpInit   = "init"
	OpAdd    = "add_liquidity"
	OpRemove = "remove_liquidity"
	OpSwap   = "swap"
	OpDonate = "donate"
)

// OperationRecord is one committed pool operation: its inputs, its results,
// and the pool state after the commit. The journal is an append-only sequence
// of these, dense in seq starting at 1.
type OperationRecord struct {
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	Caller string `json:"caller"`

	AmountX     string `json:"amount_x,omitempty"`
	AmountY     string `json:"amount_y,omitempty"`
	ShareAmount string `json:"share_amount,omitempty"`
	Direction   string `json:"direction,omitempty"`
	AmountIn    string `json:"amount_in,omitempty"`
	MinOut      string `json:"min_out,omitempty"`

	SharesIssued string `json:"shares_issued,omitempty"`
	AmountXOut   string `json:"amount_x_out,omitempty"`
	AmountYOut   string `json:"amount_y_out,omitempty"`
	AmountOut    string `json:"amount_out,omitempty"`

	Pool      PoolSnapshot `json:"pool"`
	AppliedAt string       `json:"applied_at"`
}

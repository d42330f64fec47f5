package model

// PoolSnapshot is the committed pool state in storable form. Amounts are
// decimal strings so 256-bit values survive JSON and SQL intact.
type PoolSnapshot struct {
	ReserveX    string `json:"reserve_x"`
	ReserveY    string `json:"reserve_y"`
	TotalShares string `json:"total_shares"`
	Initialized bool   `json:"initialized"`
}

// EmptyPoolSnapshot returns the snapshot of a pool that was never initialized.
func EmptyPoolSnapshot() PoolSnapshot {
	return PoolSnapshot{
		ReserveX:    "0",
		ReserveY:    "0",
		TotalShares: "0",
	}
}

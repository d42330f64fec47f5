package model

// BalanceTable holds one asset ledger's balances: the pool's own holding and
// every non-zero external account, keyed by hex address.
type BalanceTable struct {
	Pool     string            `json:"pool"`
	Accounts map[string]string `json:"accounts,omitempty"`
}

// ShareTable holds the share ledger: outstanding supply and holder balances.
type ShareTable struct {
	Total    string            `json:"total"`
	Accounts map[string]string `json:"accounts,omitempty"`
}

// StateFile is the whole durable world of one pool: committed pool state,
// both asset ledgers, the share ledger, and the journal sequence cursor.
type StateFile struct {
	Seq       uint64       `json:"seq"`
	Pool      PoolSnapshot `json:"pool"`
	AssetX    BalanceTable `json:"asset_x"`
	AssetY    BalanceTable `json:"asset_y"`
	Shares    ShareTable   `json:"shares"`
	UpdatedAt string       `json:"updated_at"`
}

// EmptyStateFile returns the world of a freshly created pool.
func EmptyStateFile() StateFile {
	return StateFile{
		Pool:   EmptyPoolSnapshot(),
		AssetX: BalanceTable{Pool: "0"},
		AssetY: BalanceTable{Pool: "0"},
		Shares: ShareTable{Total: "0"},
	}
}

package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MemoryAssetLedger keeps asset balances in memory. Accounts pull funds into
// the pool through an ERC20-style allowance granted to the pool beforehand.
type MemoryAssetLedger struct {
	mu         sync.Mutex
	symbol     string
	pool       uint256.Int
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]*uint256.Int
}

func NewMemoryAssetLedger(symbol string) *MemoryAssetLedger {
	return &MemoryAssetLedger{
		symbol:     symbol,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]*uint256.Int),
	}
}

// Symbol returns the asset label the ledger was created with.
func (l *MemoryAssetLedger) Symbol() string {
	return l.symbol
}

// Mint credits new units to an account.
func (l *MemoryAssetLedger) Mint(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return creditLocked(l.balances, to, amount)
}

// Approve grants the pool permission to pull up to amount from the owner.
// A second call replaces the previous allowance.
func (l *MemoryAssetLedger) Approve(owner common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == nil || amount.IsZero() {
		delete(l.allowances, owner)
		return
	}
	l.allowances[owner] = new(uint256.Int).Set(amount)
}

// CreditPool adds units directly to the pool balance. Used when restoring a
// persisted ledger, not during normal operation.
func (l *MemoryAssetLedger) CreditPool(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, overflow := l.pool.AddOverflow(&l.pool, amount); overflow {
		return ErrBalanceOverflow
	}
	return nil
}

// TransferIn implements AssetLedger.
func (l *MemoryAssetLedger) TransferIn(from common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowances[from]
	if allowance == nil || allowance.Lt(amount) {
		return ErrInsufficientAllowance
	}
	balance := l.balances[from]
	if balance == nil || balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	if _, overflow := new(uint256.Int).AddOverflow(&l.pool, amount); overflow {
		return ErrBalanceOverflow
	}

	allowance.Sub(allowance, amount)
	if allowance.IsZero() {
		delete(l.allowances, from)
	}
	balance.Sub(balance, amount)
	if balance.IsZero() {
		delete(l.balances, from)
	}
	l.pool.Add(&l.pool, amount)
	return nil
}

// TransferOut implements AssetLedger.
func (l *MemoryAssetLedger) TransferOut(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool.Lt(amount) {
		return ErrInsufficientPoolBalance
	}
	if err := creditLocked(l.balances, to, amount); err != nil {
		return err
	}
	l.pool.Sub(&l.pool, amount)
	return nil
}

// PoolBalance implements AssetLedger.
func (l *MemoryAssetLedger) PoolBalance() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(uint256.Int).Set(&l.pool)
}

// BalanceOf returns the account balance.
func (l *MemoryAssetLedger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if balance, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(balance)
	}
	return new(uint256.Int)
}

// Balances returns a copy of all non-zero account balances.
func (l *MemoryAssetLedger) Balances() map[common.Address]*uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[common.Address]*uint256.Int, len(l.balances))
	for addr, balance := range l.balances {
		out[addr] = new(uint256.Int).Set(balance)
	}
	return out
}

// MemoryShareLedger keeps share balances and the outstanding supply in memory.
type MemoryShareLedger struct {
	mu       sync.Mutex
	total    uint256.Int
	balances map[common.Address]*uint256.Int
}

func NewMemoryShareLedger() *MemoryShareLedger {
	return &MemoryShareLedger{
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Issue implements ShareLedger.
func (l *MemoryShareLedger) Issue(to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, overflow := new(uint256.Int).AddOverflow(&l.total, amount); overflow {
		return ErrBalanceOverflow
	}
	if err := creditLocked(l.balances, to, amount); err != nil {
		return err
	}
	l.total.Add(&l.total, amount)
	return nil
}

// Redeem implements ShareLedger.
func (l *MemoryShareLedger) Redeem(from common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[from]
	if balance == nil || balance.Lt(amount) {
		return ErrInsufficientShareBalance
	}
	balance.Sub(balance, amount)
	if balance.IsZero() {
		delete(l.balances, from)
	}
	l.total.Sub(&l.total, amount)
	return nil
}

// Transfer moves shares between holders without changing the supply.
func (l *MemoryShareLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balances[from]
	if balance == nil || balance.Lt(amount) {
		return ErrInsufficientShareBalance
	}
	if from == to {
		return nil
	}
	if err := creditLocked(l.balances, to, amount); err != nil {
		return err
	}
	balance.Sub(balance, amount)
	if balance.IsZero() {
		delete(l.balances, from)
	}
	return nil
}

// TotalIssued implements ShareLedger.
func (l *MemoryShareLedger) TotalIssued() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(uint256.Int).Set(&l.total)
}

// BalanceOf returns the holder's share balance.
func (l *MemoryShareLedger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if balance, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(balance)
	}
	return new(uint256.Int)
}

// Balances returns a copy of all non-zero share balances.
func (l *MemoryShareLedger) Balances() map[common.Address]*uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[common.Address]*uint256.Int, len(l.balances))
	for addr, balance := range l.balances {
		out[addr] = new(uint256.Int).Set(balance)
	}
	return out
}

func creditLocked(balances map[common.Address]*uint256.Int, to common.Address, amount *uint256.Int) error {
	balance := balances[to]
	if balance == nil {
		balances[to] = new(uint256.Int).Set(amount)
		return nil
	}
	if _, overflow := new(uint256.Int).AddOverflow(balance, amount); overflow {
		return ErrBalanceOverflow
	}
	balance.Add(balance, amount)
	return nil
}

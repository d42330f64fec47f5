package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolEngine/internal/config"
	"poolEngine/internal/engine"
	"poolEngine/internal/ledger"
	"poolEngine/internal/model"
	"poolEngine/internal/statefile"
	"poolEngine/internal/storage"
	"poolEngine/internal/storage/postgres"
)

const (
	mirrorRetries = 5
	mirrorBackoff = 500 * time.Millisecond
)

// world is one CLI invocation's view of the pool: the engine and ledgers
// rebuilt from the state file, plus the sinks an operation commits into.
type world struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *statefile.Store
	journal storage.Journal
	st      model.StateFile

	assetX *ledger.MemoryAssetLedger
	assetY *ledger.MemoryAssetLedger
	shares *ledger.MemoryShareLedger
	eng    *engine.Engine
}

func openWorld(cmd *cobra.Command) (*world, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store := statefile.NewStore(cfg.StatePath)
	st, _, err := store.Load()
	if err != nil {
		return nil, err
	}

	assetX, err := restoreAssetLedger("X", st.AssetX)
	if err != nil {
		return nil, fmt.Errorf("restore asset X ledger: %w", err)
	}
	assetY, err := restoreAssetLedger("Y", st.AssetY)
	if err != nil {
		return nil, fmt.Errorf("restore asset Y ledger: %w", err)
	}
	shares, err := restoreShareLedger(st.Shares)
	if err != nil {
		return nil, fmt.Errorf("restore share ledger: %w", err)
	}

	state, err := stateFromSnapshot(st.Pool)
	if err != nil {
		return nil, fmt.Errorf("parse pool state: %w", err)
	}
	eng, err := engine.Restore(state, assetX, assetY, shares)
	if err != nil {
		return nil, err
	}

	return &world{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		journal: storage.NewJsonlJournal(cfg.JournalPath),
		st:      st,
		assetX: assetX,
		assetY: assetY,
		shares: shares,
		eng:    eng,
	}, nil
}

func (w *world) close() {
	if w.logger != nil {
		w.logger.Sync()
	}
}

// caller returns the configured caller address.
func (w *world) caller() (common.Address, error) {
	if w.cfg.Caller == "" {
		return common.Address{}, fmt.Errorf("caller address is required (--caller or POOL_CALLER)")
	}
	return parseAddress(w.cfg.Caller)
}

// commit journals a completed engine operation and saves the world.
func (w *world) commit(ctx context.Context, rec model.OperationRecord) error {
	w.st.Seq++
	rec.Seq = w.st.Seq
	rec.Pool = snapshotToModel(w.eng.Snapshot())
	rec.AppliedAt = time.Now().UTC().Format(time.RFC3339Nano)

	if err := w.save(); err != nil {
		return err
	}

	if err := w.journal.AppendOperations([]model.OperationRecord{rec}); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}

	if w.cfg.PGDSN != "" {
		if err := w.mirror(ctx, rec); err != nil {
			// The local state file and journal are the source of truth; a
			// mirror failure is reported but does not undo the commit.
			w.logger.Warn("postgres mirror failed", zap.Error(err), zap.Uint64("seq", rec.Seq))
		}
	}

	w.logger.Info("operation committed",
		zap.Uint64("seq", rec.Seq),
		zap.String("op", rec.Op),
		zap.String("caller", rec.Caller),
		zap.String("reserve_x", rec.Pool.ReserveX),
		zap.String("reserve_y", rec.Pool.ReserveY),
		zap.String("total_shares", rec.Pool.TotalShares),
	)
	return nil
}

// save writes the world back to the state file without journaling. Used by
// ledger-only commands (fund, transfer).
func (w *world) save() error {
	w.st.Pool = snapshotToModel(w.eng.Snapshot())
	w.st.AssetX = assetTable(w.assetX)
	w.st.AssetY = assetTable(w.assetY)
	w.st.Shares = shareTable(w.shares)
	if err := w.store.Save(w.st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (w *world) mirror(ctx context.Context, rec model.OperationRecord) error {
	store, err := postgres.NewStore(ctx, w.cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	err = withRetry(ctx, mirrorRetries, mirrorBackoff, func(ctx context.Context) error {
		if err := store.AppendOperations(ctx, w.cfg.PoolID, []model.OperationRecord{rec}); err != nil {
			w.logger.Warn("mirror operations failed", zap.Error(err))
			return err
		}
		return store.UpsertSnapshot(ctx, w.cfg.PoolID, rec.Seq, rec.Pool)
	})
	return err
}

func restoreAssetLedger(symbol string, table model.BalanceTable) (*ledger.MemoryAssetLedger, error) {
	l := ledger.NewMemoryAssetLedger(symbol)

	poolBalance, err := parseStoredAmount(table.Pool)
	if err != nil {
		return nil, err
	}
	if err := l.CreditPool(poolBalance); err != nil {
		return nil, err
	}

	for account, value := range table.Accounts {
		addr, err := parseAddress(account)
		if err != nil {
			return nil, err
		}
		amount, err := parseStoredAmount(value)
		if err != nil {
			return nil, err
		}
		if amount.IsZero() {
			continue
		}
		if err := l.Mint(addr, amount); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func restoreShareLedger(table model.ShareTable) (*ledger.MemoryShareLedger, error) {
	l := ledger.NewMemoryShareLedger()

	for account, value := range table.Accounts {
		addr, err := parseAddress(account)
		if err != nil {
			return nil, err
		}
		amount, err := parseStoredAmount(value)
		if err != nil {
			return nil, err
		}
		if amount.IsZero() {
			continue
		}
		if err := l.Issue(addr, amount); err != nil {
			return nil, err
		}
	}

	total, err := parseStoredAmount(table.Total)
	if err != nil {
		return nil, err
	}
	if total.Cmp(l.TotalIssued()) != 0 {
		return nil, fmt.Errorf("share total %s does not match holder balances %s", total.Dec(), l.TotalIssued().Dec())
	}
	return l, nil
}

func stateFromSnapshot(snap model.PoolSnapshot) (engine.State, error) {
	reserveX, err := parseStoredAmount(snap.ReserveX)
	if err != nil {
		return engine.State{}, err
	}
	reserveY, err := parseStoredAmount(snap.ReserveY)
	if err != nil {
		return engine.State{}, err
	}
	totalShares, err := parseStoredAmount(snap.TotalShares)
	if err != nil {
		return engine.State{}, err
	}
	return engine.State{
		ReserveX:    reserveX,
		ReserveY:    reserveY,
		TotalShares: totalShares,
		Initialized: snap.Initialized,
	}, nil
}

func snapshotToModel(st engine.State) model.PoolSnapshot {
	return model.PoolSnapshot{
		ReserveX:    st.ReserveX.Dec(),
		ReserveY:    st.ReserveY.Dec(),
		TotalShares: st.TotalShares.Dec(),
		Initialized: st.Initialized,
	}
}

func assetTable(l *ledger.MemoryAssetLedger) model.BalanceTable {
	table := model.BalanceTable{Pool: l.PoolBalance().Dec()}
	balances := l.Balances()
	if len(balances) > 0 {
		table.Accounts = make(map[string]string, len(balances))
		for addr, amount := range balances {
			table.Accounts[addr.Hex()] = amount.Dec()
		}
	}
	return table
}

func shareTable(l *ledger.MemoryShareLedger) model.ShareTable {
	table := model.ShareTable{Total: l.TotalIssued().Dec()}
	balances := l.Balances()
	if len(balances) > 0 {
		table.Accounts = make(map[string]string, len(balances))
		for addr, amount := range balances {
			table.Accounts[addr.Hex()] = amount.Dec()
		}
	}
	return table
}

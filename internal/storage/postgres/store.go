package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolEngine/internal/model"
)

// Store mirrors pool snapshots and the operation journal into Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshot inserts or updates the committed pool state.
func (s *Store) UpsertSnapshot(ctx context.Context, poolID string, seq uint64, snap model.PoolSnapshot) error {
	if poolID == "" {
		return fmt.Errorf("pool id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_state (
			pool_id, seq, reserve_x, reserve_y, total_shares, initialized, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (pool_id)
		DO UPDATE SET
			seq = EXCLUDED.seq,
			reserve_x = EXCLUDED.reserve_x,
			reserve_y = EXCLUDED.reserve_y,
			total_shares = EXCLUDED.total_shares,
			initialized = EXCLUDED.initialized,
			updated_at = now()
	`,
		poolID,
		int64(seq),
		snap.ReserveX,
		snap.ReserveY,
		snap.TotalShares,
		snap.Initialized,
	)
	return err
}

// AppendOperations inserts operation records. Re-inserting an already
// mirrored seq is a no-op, so retries are safe.
func (s *Store) AppendOperations(ctx context.Context, poolID string, ops []model.OperationRecord) error {
	if poolID == "" {
		return fmt.Errorf("pool id required")
	}
	if len(ops) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(`
			INSERT INTO pool_operations (
				pool_id, seq, op, caller, amount_x, amount_y, share_amount,
				direction, amount_in, min_out, shares_issued, amount_x_out,
				amount_y_out, amount_out, reserve_x, reserve_y, total_shares,
				applied_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now())
			ON CONFLICT (pool_id, seq) DO NOTHING
		`,
			poolID,
			int64(op.Seq),
			op.Op,
			op.Caller,
			nullable(op.AmountX),
			nullable(op.AmountY),
			nullable(op.ShareAmount),
			nullable(op.Direction),
			nullable(op.AmountIn),
			nullable(op.MinOut),
			nullable(op.SharesIssued),
			nullable(op.AmountXOut),
			nullable(op.AmountYOut),
			nullable(op.AmountOut),
			op.Pool.ReserveX,
			op.Pool.ReserveY,
			op.Pool.TotalShares,
			op.AppliedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ops {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot returns the mirrored pool state, if any.
func (s *Store) LoadSnapshot(ctx context.Context, poolID string) (model.PoolSnapshot, uint64, bool, error) {
	if poolID == "" {
		return model.PoolSnapshot{}, 0, false, fmt.Errorf("pool id required")
	}
	var snap model.PoolSnapshot
	var seq int64
	row := s.pool.QueryRow(ctx, `
		SELECT seq, reserve_x, reserve_y, total_shares, initialized
		FROM pool_state WHERE pool_id=$1
	`, poolID)
	if err := row.Scan(&seq, &snap.ReserveX, &snap.ReserveY, &snap.TotalShares, &snap.Initialized); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolSnapshot{}, 0, false, nil
		}
		return model.PoolSnapshot{}, 0, false, err
	}
	return snap, uint64(seq), true, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

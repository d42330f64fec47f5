package replay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolEngine/internal/engine"
	"poolEngine/internal/ledger"
	"poolEngine/internal/model"
	"poolEngine/internal/storage"
)

// Result summarizes a journal replay.
type Result struct {
	Records  int
	Snapshot model.PoolSnapshot
}

// Runner re-applies a journal to a fresh engine and checks that every
// recorded post-state matches what the engine computes. Caller funding is
// synthesized on demand: the replay audits the pool's state machine, not the
// provenance of the deposits.
type Runner struct {
	logger *zap.Logger

	assetX *ledger.MemoryAssetLedger
	assetY *ledger.MemoryAssetLedger
	shares *ledger.MemoryShareLedger
	eng    *engine.Engine
}

func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	assetX := ledger.NewMemoryAssetLedger("X")
	assetY := ledger.NewMemoryAssetLedger("Y")
	shares := ledger.NewMemoryShareLedger()
	return &Runner{
		logger: logger,
		assetX: assetX,
		assetY: assetY,
		shares: shares,
		eng:    engine.New(assetX, assetY, shares),
	}
}

// Run replays the journal at path from the beginning.
func (r *Runner) Run(path string) (Result, error) {
	ops, err := storage.ReadOperations(path)
	if err != nil {
		return Result{}, err
	}

	expectedSeq := uint64(1)
	for _, op := range ops {
		if op.Seq != expectedSeq {
			return Result{}, fmt.Errorf("journal gap: expected seq %d, got %d", expectedSeq, op.Seq)
		}
		if err := r.apply(op); err != nil {
			return Result{}, fmt.Errorf("replay seq %d (%s): %w", op.Seq, op.Op, err)
		}
		if err := r.verify(op); err != nil {
			return Result{}, fmt.Errorf("replay seq %d (%s): %w", op.Seq, op.Op, err)
		}
		expectedSeq++
	}

	snap := r.eng.Snapshot()
	result := Result{
		Records: len(ops),
		Snapshot: model.PoolSnapshot{
			ReserveX:    snap.ReserveX.Dec(),
			ReserveY:    snap.ReserveY.Dec(),
			TotalShares: snap.TotalShares.Dec(),
			Initialized: snap.Initialized,
		},
	}
	r.logger.Info("replay complete",
		zap.Int("records", result.Records),
		zap.String("reserve_x", result.Snapshot.ReserveX),
		zap.String("reserve_y", result.Snapshot.ReserveY),
		zap.String("total_shares", result.Snapshot.TotalShares),
	)
	return result, nil
}

func (r *Runner) apply(op model.OperationRecord) error {
	if !common.IsHexAddress(op.Caller) {
		return fmt.Errorf("invalid caller address %q", op.Caller)
	}
	caller := common.HexToAddress(op.Caller)

	switch op.Op {
	case model.OpInit:
		amountX, amountY, err := parsePair(op.AmountX, op.AmountY)
		if err != nil {
			return err
		}
		r.fund(r.assetX, caller, amountX)
		r.fund(r.assetY, caller, amountY)
		_, err = r.eng.Init(caller, amountX, amountY)
		return err

	case model.OpAdd:
		amountX, amountY, err := parsePair(op.AmountX, op.AmountY)
		if err != nil {
			return err
		}
		r.fund(r.assetX, caller, amountX)
		r.fund(r.assetY, caller, amountY)
		_, err = r.eng.AddLiquidity(caller, amountX, amountY)
		return err

	case model.OpRemove:
		shareAmount, err := parseAmount(op.ShareAmount)
		if err != nil {
			return err
		}
		_, _, err = r.eng.RemoveLiquidity(caller, shareAmount)
		return err

	case model.OpSwap:
		dir, err := engine.ParseDirection(op.Direction)
		if err != nil {
			return err
		}
		amountIn, err := parseAmount(op.AmountIn)
		if err != nil {
			return err
		}
		if dir == engine.SellX {
			r.fund(r.assetX, caller, amountIn)
		} else {
			r.fund(r.assetY, caller, amountIn)
		}
		_, err = r.eng.Swap(caller, dir, amountIn, nil)
		return err

	case model.OpDonate:
		amountX, err := parseOptional(op.AmountX)
		if err != nil {
			return err
		}
		amountY, err := parseOptional(op.AmountY)
		if err != nil {
			return err
		}
		r.fund(r.assetX, caller, amountX)
		r.fund(r.assetY, caller, amountY)
		return r.eng.Donate(caller, amountX, amountY)

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// verify compares the engine's committed state with the recorded post-state.
func (r *Runner) verify(op model.OperationRecord) error {
	snap := r.eng.Snapshot()
	if got, want := snap.ReserveX.Dec(), op.Pool.ReserveX; got != want {
		return fmt.Errorf("reserve X mismatch: replayed %s, recorded %s", got, want)
	}
	if got, want := snap.ReserveY.Dec(), op.Pool.ReserveY; got != want {
		return fmt.Errorf("reserve Y mismatch: replayed %s, recorded %s", got, want)
	}
	if got, want := snap.TotalShares.Dec(), op.Pool.TotalShares; got != want {
		return fmt.Errorf("total shares mismatch: replayed %s, recorded %s", got, want)
	}
	if snap.Initialized != op.Pool.Initialized {
		return fmt.Errorf("initialized flag mismatch: replayed %v, recorded %v", snap.Initialized, op.Pool.Initialized)
	}
	return nil
}

// fund mints amount to the caller and grants the pool a matching allowance.
func (r *Runner) fund(l *ledger.MemoryAssetLedger, caller common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	_ = l.Mint(caller, amount)
	l.Approve(caller, amount)
}

func parseAmount(v string) (*uint256.Int, error) {
	if v == "" {
		return nil, fmt.Errorf("missing amount")
	}
	amount, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", v, err)
	}
	return amount, nil
}

func parseOptional(v string) (*uint256.Int, error) {
	if v == "" {
		return new(uint256.Int), nil
	}
	return parseAmount(v)
}

func parsePair(x, y string) (*uint256.Int, *uint256.Int, error) {
	amountX, err := parseAmount(x)
	if err != nil {
		return nil, nil, err
	}
	amountY, err := parseAmount(y)
	if err != nil {
		return nil, nil, err
	}
	return amountX, amountY, nil
}

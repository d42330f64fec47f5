package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolEngine/internal/engine"
	"poolEngine/internal/model"
	"poolEngine/internal/replay"
)

func runInit(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	caller, err := w.caller()
	if err != nil {
		return err
	}
	amountX, err := amountFlag(cmd, "amount-x")
	if err != nil {
		return err
	}
	amountY, err := amountFlag(cmd, "amount-y")
	if err != nil {
		return err
	}

	w.assetX.Approve(caller, amountX)
	w.assetY.Approve(caller, amountY)

	minted, err := w.eng.Init(caller, amountX, amountY)
	if err != nil {
		return err
	}
	w.logger.Info("pool initialized",
		zap.String("caller", caller.Hex()),
		zap.String("amount_x", amountX.Dec()),
		zap.String("amount_y", amountY.Dec()),
		zap.String("shares_issued", minted.Dec()),
	)

	return w.commit(context.Background(), model.OperationRecord{
		Op:           model.OpInit,
		Caller:       caller.Hex(),
		AmountX:      amountX.Dec(),
		AmountY:      amountY.Dec(),
		SharesIssued: minted.Dec(),
	})
}

func runAdd(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	caller, err := w.caller()
	if err != nil {
		return err
	}
	amountX, err := amountFlag(cmd, "amount-x")
	if err != nil {
		return err
	}
	amountY, err := amountFlag(cmd, "amount-y")
	if err != nil {
		return err
	}

	w.assetX.Approve(caller, amountX)
	w.assetY.Approve(caller, amountY)

	minted, err := w.eng.AddLiquidity(caller, amountX, amountY)
	if err != nil {
		return err
	}
	w.logger.Info("liquidity added",
		zap.String("caller", caller.Hex()),
		zap.String("amount_x", amountX.Dec()),
		zap.String("amount_y", amountY.Dec()),
		zap.String("shares_issued", minted.Dec()),
	)

	return w.commit(context.Background(), model.OperationRecord{
		Op:           model.OpAdd,
		Caller:       caller.Hex(),
		AmountX:      amountX.Dec(),
		AmountY:      amountY.Dec(),
		SharesIssued: minted.Dec(),
	})
}

func runRemove(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	caller, err := w.caller()
	if err != nil {
		return err
	}
	shareAmount, err := amountFlag(cmd, "shares")
	if err != nil {
		return err
	}

	outX, outY, err := w.eng.RemoveLiquidity(caller, shareAmount)
	if err != nil {
		return err
	}
	w.logger.Info("liquidity removed",
		zap.String("caller", caller.Hex()),
		zap.String("shares_burned", shareAmount.Dec()),
		zap.String("amount_x_out", outX.Dec()),
		zap.String("amount_y_out", outY.Dec()),
	)

	return w.commit(context.Background(), model.OperationRecord{
		Op:          model.OpRemove,
		Caller:      caller.Hex(),
		ShareAmount: shareAmount.Dec(),
		AmountXOut:  outX.Dec(),
		AmountYOut:  outY.Dec(),
	})
}

func runSwap(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	caller, err := w.caller()
	if err != nil {
		return err
	}
	dirFlag, err := cmd.Flags().GetString("direction")
	if err != nil {
		return err
	}
	dir, err := engine.ParseDirection(strings.TrimSpace(dirFlag))
	if err != nil {
		return err
	}
	amountIn, err := amountFlag(cmd, "amount-in")
	if err != nil {
		return err
	}
	minOut, err := optionalAmountFlag(cmd, "min-out")
	if err != nil {
		return err
	}

	if quote, _ := cmd.Flags().GetBool("quote"); quote {
		out, err := w.eng.QuoteSwap(dir, amountIn)
		if err != nil {
			return err
		}
		fmt.Printf("swap %s %s would pay out %s\n", dir, amountIn.Dec(), out.Dec())
		return nil
	}

	if dir == engine.SellX {
		w.assetX.Approve(caller, amountIn)
	} else {
		w.assetY.Approve(caller, amountIn)
	}

	out, err := w.eng.Swap(caller, dir, amountIn, minOut)
	if err != nil {
		return err
	}
	w.logger.Info("swap executed",
		zap.String("caller", caller.Hex()),
		zap.String("direction", dir.String()),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", out.Dec()),
	)

	rec := model.OperationRecord{
		Op:        model.OpSwap,
		Caller:    caller.Hex(),
		Direction: dir.String(),
		AmountIn:  amountIn.Dec(),
		AmountOut: out.Dec(),
	}
	if !minOut.IsZero() {
		rec.MinOut = minOut.Dec()
	}
	return w.commit(context.Background(), rec)
}

func runDonate(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	caller, err := w.caller()
	if err != nil {
		return err
	}
	amountX, err := optionalAmountFlag(cmd, "amount-x")
	if err != nil {
		return err
	}
	amountY, err := optionalAmountFlag(cmd, "amount-y")
	if err != nil {
		return err
	}

	if !amountX.IsZero() {
		w.assetX.Approve(caller, amountX)
	}
	if !amountY.IsZero() {
		w.assetY.Approve(caller, amountY)
	}

	if err := w.eng.Donate(caller, amountX, amountY); err != nil {
		return err
	}
	w.logger.Info("donation applied",
		zap.String("caller", caller.Hex()),
		zap.String("amount_x", amountX.Dec()),
		zap.String("amount_y", amountY.Dec()),
	)

	rec := model.OperationRecord{
		Op:     model.OpDonate,
		Caller: caller.Hex(),
	}
	if !amountX.IsZero() {
		rec.AmountX = amountX.Dec()
	}
	if !amountY.IsZero() {
		rec.AmountY = amountY.Dec()
	}
	return w.commit(context.Background(), rec)
}

func runTransfer(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	caller, err := w.caller()
	if err != nil {
		return err
	}
	to, err := addressFlag(cmd, "to")
	if err != nil {
		return err
	}
	shareAmount, err := amountFlag(cmd, "shares")
	if err != nil {
		return err
	}

	if err := w.shares.Transfer(caller, to, shareAmount); err != nil {
		return err
	}
	w.logger.Info("shares transferred",
		zap.String("from", caller.Hex()),
		zap.String("to", to.Hex()),
		zap.String("shares", shareAmount.Dec()),
	)
	return w.save()
}

func runFund(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	asset, err := cmd.Flags().GetString("asset")
	if err != nil {
		return err
	}
	to, err := addressFlag(cmd, "to")
	if err != nil {
		return err
	}
	amount, err := amountFlag(cmd, "amount")
	if err != nil {
		return err
	}

	var target = w.assetX
	switch strings.ToLower(strings.TrimSpace(asset)) {
	case "x":
	case "y":
		target = w.assetY
	default:
		return fmt.Errorf("invalid --asset %q: want x or y", asset)
	}

	if err := target.Mint(to, amount); err != nil {
		return err
	}
	w.logger.Info("account funded",
		zap.String("asset", target.Symbol()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.Dec()),
	)
	return w.save()
}

func runShow(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	w.st.Pool = snapshotToModel(w.eng.Snapshot())
	out, err := json.MarshalIndent(w.st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func runReplay(cmd *cobra.Command, _ []string) error {
	w, err := openWorld(cmd)
	if err != nil {
		return err
	}
	defer w.close()

	path, err := cmd.Flags().GetString("in")
	if err != nil {
		return err
	}
	auditLive := path == ""
	if path == "" {
		path = w.cfg.JournalPath
	}

	result, err := replay.NewRunner(w.logger).Run(path)
	if err != nil {
		return err
	}
	if auditLive {
		if live := snapshotToModel(w.eng.Snapshot()); result.Snapshot != live {
			return fmt.Errorf("replayed state %+v does not match state file %+v", result.Snapshot, live)
		}
	}
	fmt.Printf("replayed %d operations: reserves (%s, %s), shares %s\n",
		result.Records,
		result.Snapshot.ReserveX,
		result.Snapshot.ReserveY,
		result.Snapshot.TotalShares,
	)
	return nil
}

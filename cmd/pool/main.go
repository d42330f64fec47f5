package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pool",
		Short:        "Constant-product liquidity pool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap the pool with the first deposit",
		RunE:  runInit,
	}
	addCommonFlags(initCmd)
	initCmd.Flags().String("amount-x", "", "asset X deposit")
	initCmd.Flags().String("amount-y", "", "asset Y deposit")
	root.AddCommand(initCmd)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit both assets at the pool ratio for shares",
		RunE:  runAdd,
	}
	addCommonFlags(addCmd)
	addCmd.Flags().String("amount-x", "", "asset X deposit")
	addCmd.Flags().String("amount-y", "", "asset Y deposit")
	root.AddCommand(addCmd)

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn shares for a proportional withdrawal",
		RunE:  runRemove,
	}
	addCommonFlags(removeCmd)
	removeCmd.Flags().String("shares", "", "share amount to burn")
	root.AddCommand(removeCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one asset for the other",
		RunE:  runSwap,
	}
	addCommonFlags(swapCmd)
	swapCmd.Flags().String("direction", "", "swap direction (x2y or y2x)")
	swapCmd.Flags().String("amount-in", "", "input amount")
	swapCmd.Flags().String("min-out", "", "minimum acceptable output (optional)")
	swapCmd.Flags().Bool("quote", false, "quote the output without executing")
	root.AddCommand(swapCmd)

	donateCmd := &cobra.Command{
		Use:   "donate",
		Short: "Add assets to the reserves without minting shares",
		RunE:  runDonate,
	}
	addCommonFlags(donateCmd)
	donateCmd.Flags().String("amount-x", "", "asset X donation")
	donateCmd.Flags().String("amount-y", "", "asset Y donation")
	root.AddCommand(donateCmd)

	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer shares to another holder",
		RunE:  runTransfer,
	}
	addCommonFlags(transferCmd)
	transferCmd.Flags().String("to", "", "recipient address")
	transferCmd.Flags().String("shares", "", "share amount to transfer")
	root.AddCommand(transferCmd)

	fundCmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint asset units to an account",
		RunE:  runFund,
	}
	addCommonFlags(fundCmd)
	fundCmd.Flags().String("asset", "", "asset side (x or y)")
	fundCmd.Flags().String("to", "", "recipient address")
	fundCmd.Flags().String("amount", "", "amount to mint")
	root.AddCommand(fundCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the committed pool state",
		RunE:  runShow,
	}
	addCommonFlags(showCmd)
	root.AddCommand(showCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply the journal and verify the recorded states",
		RunE:  runReplay,
	}
	addCommonFlags(replayCmd)
	replayCmd.Flags().String("in", "", "journal path (defaults to the configured journal)")
	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool-id", "default", "pool identifier")
	cmd.Flags().String("state", "./data/pool_state.json", "state file path")
	cmd.Flags().String("journal", "./data/journal.jsonl", "journal JSONL path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for mirroring (optional)")
	cmd.Flags().String("caller", "", "caller address")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

func parseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// parseStoredAmount parses a decimal amount from the state file, treating the
// empty string as zero.
func parseStoredAmount(v string) (*uint256.Int, error) {
	if v == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", v, err)
	}
	return amount, nil
}

// amountFlag parses a required decimal amount flag.
func amountFlag(cmd *cobra.Command, name string) (*uint256.Int, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	amount, err := uint256.FromDecimal(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", name, v, err)
	}
	return amount, nil
}

// optionalAmountFlag parses a decimal amount flag, returning zero when unset.
func optionalAmountFlag(cmd *cobra.Command, name string) (*uint256.Int, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(v) == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", name, v, err)
	}
	return amount, nil
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return common.Address{}, err
	}
	if strings.TrimSpace(v) == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := parseAddress(v)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return addr, nil
}

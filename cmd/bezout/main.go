// Package main is the entry point for the bezout binary.
// It provides a CLI for computing Bézout coefficients with the
// extended Euclidean algorithm.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ewd00010/bezout/pkg/euclid"
	"github.com/ewd00010/bezout/pkg/logging"
)

const (
	defaultStrategy = "both"
	defaultLogLevel = "info"
)

// CLIConfig holds the parsed CLI configuration
type CLIConfig struct {
	Strategy string
	LogLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for bezout
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bezout [a b]",
		Short: "Extended Euclidean algorithm calculator",
		Long: `Computes gcd(a, b) together with Bézout coefficients x and y
satisfying x*a + y*b = gcd(a, b).

Operands are unsigned 64-bit integers, taken from the command line or
read from stdin when no arguments are given. Each selected variant
prints one "gcd x y" line; by default both the recursive and the
iterative variant run, recursive first, so the triples can be compared
directly.

Example:
  bezout 240 46
  echo "240 46" | bezout --strategy iterative`,
		Args: cobra.MaximumNArgs(2),
		RunE: runCompute,
	}

	// Add flags
	rootCmd.Flags().StringP("strategy", "s", defaultStrategy, "Variant to run (iterative, recursive, or both)")
	rootCmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")

	return rootCmd
}

// parseCLIConfig parses command line flags and returns a CLIConfig
func parseCLIConfig(cmd *cobra.Command) (*CLIConfig, error) {
	strategy, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy flag: %w", err)
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}

	return &CLIConfig{
		Strategy: strategy,
		LogLevel: logLevel,
	}, nil
}

// resolveOperands returns the pair to compute, from positional args or,
// when none are given, from stdin.
func resolveOperands(args []string, in io.Reader) (a, b uint64, err error) {
	raw := args
	if len(raw) == 0 {
		var first, second string
		if _, err := fmt.Fscan(in, &first, &second); err != nil {
			return 0, 0, fmt.Errorf("failed to read operands from stdin: %w", err)
		}
		raw = []string{first, second}
	}
	if len(raw) != 2 {
		return 0, 0, fmt.Errorf("expected two operands, got %d", len(raw))
	}

	a, err = parseOperand("a", raw[0])
	if err != nil {
		return 0, 0, err
	}
	b, err = parseOperand("b", raw[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func parseOperand(name, raw string) (uint64, error) {
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("operand %s must be an unsigned 64-bit integer, got %q", name, raw)
	}
	return value, nil
}

// writeResults prints one "gcd x y" line per requested variant.
func writeResults(out io.Writer, strategy string, a, b uint64) error {
	switch strategy {
	case "", defaultStrategy:
		gcd, x, y := euclid.ExtGCDRecursive(a, b)
		fmt.Fprintf(out, "%d %d %d\n", gcd, x, y)
		gcd, x, y = euclid.ExtGCD(a, b)
		fmt.Fprintf(out, "%d %d %d\n", gcd, x, y)
		return nil
	default:
		parsed, err := euclid.ParseStrategy(strategy)
		if err != nil {
			return err
		}
		gcd, x, y := parsed.Compute(a, b)
		fmt.Fprintf(out, "%d %d %d\n", gcd, x, y)
		return nil
	}
}

// runCompute is the main entry point for the bezout command
func runCompute(cmd *cobra.Command, args []string) error {
	cliConfig, err := parseCLIConfig(cmd)
	if err != nil {
		return err
	}

	// Set up logging
	logger := logging.NewLogger(logging.Config{
		Level:  cliConfig.LogLevel,
		Pretty: true, // Use pretty logging for CLI
	})
	slog.SetDefault(logger)

	a, b, err := resolveOperands(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	logger.Debug("Computing Bézout coefficients",
		"a", a,
		"b", b,
		"strategy", cliConfig.Strategy,
	)

	return writeResults(cmd.OutOrStdout(), cliConfig.Strategy, a, b)
}

package euclid

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy names one of the two algorithm variants. The zero value is
// not valid; use ParseStrategy or the constants.
type Strategy string

const (
	// StrategyIterative selects the loop-based variant.
	StrategyIterative Strategy = "iterative"
	// StrategyRecursive selects the back-substitution variant.
	StrategyRecursive Strategy = "recursive"
)

// ErrUnknownStrategy is wrapped by ParseStrategy for unrecognised names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ParseStrategy converts a textual representation into a Strategy
// constant. Matching is case-insensitive and ignores surrounding
// whitespace.
func ParseStrategy(value string) (Strategy, error) {
	s := Strategy(strings.TrimSpace(strings.ToLower(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w %q", ErrUnknownStrategy, value)
	}
	return s, nil
}

// IsValid reports whether the strategy is recognised.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyIterative, StrategyRecursive:
		return true
	default:
		return false
	}
}

// Compute runs the selected variant. Both variants produce identical
// triples, so the choice only matters for callers comparing the two.
func (s Strategy) Compute(a, b uint64) (gcd uint64, x, y int64) {
	if s == StrategyRecursive {
		return ExtGCDRecursive(a, b)
	}
	return ExtGCD(a, b)
}

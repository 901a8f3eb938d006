// Package euclid implements the extended Euclidean algorithm over
// unsigned 64-bit operands.
//
// This package contains pure domain logic with no dependencies outside
// the Go standard library and golang.org/x/exp/constraints. It holds no
// state, performs no I/O, and every operation is a total function:
// callers in the CLI and service layers depend on these routines, never
// the other way around.
//
// Two variants are provided, an iterative loop and a recursive
// back-substitution, and they return identical triples for every input
// pair. Coefficients are fixed-width int64 with wraparound semantics;
// the Bézout identity a*x + b*y == gcd holds bit-for-bit under 64-bit
// arithmetic even when the mathematical coefficients exceed the int64
// range.
package euclid

package euclid

import "golang.org/x/exp/constraints"

// ExtGCD returns the greatest common divisor of a and b along with the
// Bézout coefficients x and y such that:
//
//	a*x + b*y == gcd
//
// under 64-bit wraparound arithmetic. x always multiplies the first
// argument and y the second, regardless of which operand is larger.
// ExtGCD(0, 0) returns (0, 1, 0).
//
// The coefficients follow directly from the remainder sequence: each of
// the three pairs steps as (v, v0) <- (v0 - q*v, v) with q the unsigned
// quotient of the current remainders. The remainders themselves never
// wrap, so the triple matches ExtGCDRecursive for every input pair.
func ExtGCD(a, b uint64) (gcd uint64, x, y int64) {
	hi, lo, swapped := order(a, b)
	r0, r := hi, lo
	s0, s := int64(1), int64(0)
	t0, t := int64(0), int64(1)
	for r != 0 {
		q := r0 / r
		r0, r = r, r0-q*r
		s0, s = s, s0-int64(q)*s
		t0, t = t, t0-int64(q)*t
	}
	if swapped {
		return r0, t0, s0
	}
	return r0, s0, t0
}

// ExtGCDRecursive computes the same triple as ExtGCD by recursive
// back-substitution: gcd(a, b) = gcd(b, a mod b) with
// x, y = y', x' - (a/b)*y'. The recursion depth is bounded by the
// Fibonacci growth of the remainder sequence, at most a few dozen
// levels for 64-bit operands.
func ExtGCDRecursive(a, b uint64) (gcd uint64, x, y int64) {
	hi, lo, swapped := order(a, b)
	gcd, x, y = extGCDRec(hi, lo)
	if swapped {
		x, y = y, x
	}
	return gcd, x, y
}

func extGCDRec(a, b uint64) (gcd uint64, x, y int64) {
	if b == 0 {
		return a, 1, 0
	}
	gcd, x1, y1 := extGCDRec(b, a%b)
	return gcd, y1, x1 - int64(a/b)*y1
}

// order arranges the operands so the algorithm always runs on hi >= lo.
// When the caller's order was reversed the coefficient roles must be
// swapped back on return.
func order(a, b uint64) (hi, lo uint64, swapped bool) {
	if b > a {
		return b, a, true
	}
	return a, b, false
}

// GCD returns the greatest common divisor of a and b for any integer
// type, without coefficients. Negative operands are handled by negating
// the result; GCD(0, 0) is 0.
func GCD[T constraints.Integer](a, b T) T {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

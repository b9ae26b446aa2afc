// Package overflow provides overflow-checked arithmetic for size and count
// calculations derived from untrusted input. Every length, capacity, or
// allocation size computed from wire data must go through these helpers so a
// corrupt or hostile stream can never wrap an integer into a small allocation.
package overflow

import "math/bits"

// Add returns a + b. The second result is false if the addition wrapped.
func Add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// Mul returns a * b. The second result is false if the multiplication wrapped.
func Mul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

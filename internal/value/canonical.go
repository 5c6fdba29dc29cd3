package value

import (
	"math"

	"golang.org/x/text/unicode/norm"
)

// canonicalString NFC-normalizes a string before it is hashed, the same
// rationale as any canonical-form marshaler: two byte-distinct but
// visually/semantically identical strings (combining-mark sequences vs.
// precomposed characters) must hash identically.
func canonicalString(s string) []byte {
	return norm.NFC.Bytes([]byte(s))
}

// float64Bits returns the IEEE-754 bit pattern of f, normalizing -0 to +0
// and all NaNs to a single representation so that Canonical() is a pure
// function of numeric value, not of bit-pattern noise.
func float64Bits(f float64) uint64 {
	if f == 0 {
		f = 0 // normalize -0 to +0
	}
	if math.IsNaN(f) {
		return math.Float64bits(math.NaN())
	}
	return math.Float64bits(f)
}

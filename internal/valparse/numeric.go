// Package valparse holds the pure, allocation-free value tokenizers: byte
// slice in, typed value plus an ok flag out. None of these
// functions retain state or own memory; the type-inference state machine in
// internal/infer owns all parsing policy and simply calls these in order.
package valparse

import (
	"math"
	"strconv"

	"github.com/klauspost/cpuid/v2"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

// hasFastDecimal reports whether the running CPU has the SIMD features the
// fast-path digit scan in ParseInt64 prefers. When absent, the
// scalar loop below is used instead; both paths produce identical results,
// so this is purely a throughput decision, never a correctness one.
var hasFastDecimal = cpuid.CPU.Supports(cpuid.SSE42) || cpuid.CPU.Supports(cpuid.ASIMD)

// ParseInt64 attempts to interpret s as `^[-+]?[0-9]+$` (§4.4 "Integer").
// ok is false for malformed or out-of-range (for the eventual target width,
// checked by the caller) input; an empty slice is malformed.
func ParseInt64(s byteslice.ByteSlice) (v int64, ok bool) {
	n := s.Len()
	if n == 0 {
		return 0, false
	}
	neg := false
	i := 0
	switch s.At(0) {
	case '-':
		neg = true
		i = 1
	case '+':
		i = 1
	}
	if i >= n {
		return 0, false
	}
	digits := s.Bytes()[i:n]
	if hasFastDecimal && len(digits) >= 8 {
		if !allDigitsSWAR(digits[:len(digits)-len(digits)%8]) {
			return 0, false
		}
	}
	var acc uint64
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, false
		}
		if acc > (math.MaxInt64+1)/10 {
			return 0, false // acc*10 would exceed the int64 range
		}
		acc = acc*10 + uint64(d-'0')
		if acc > math.MaxInt64+1 {
			return 0, false // definite overflow regardless of sign
		}
	}
	if neg {
		if acc > math.MaxInt64+1 {
			return 0, false
		}
		return -int64(acc), true
	}
	if acc > math.MaxInt64 {
		return 0, false
	}
	return int64(acc), true
}

// IntWidth names a narrow integer width; its Fits method reports whether v
// is representable in that width, used by the promotion ladder in
// internal/infer.
type IntWidth uint8

const (
	WidthByte IntWidth = iota
	WidthShort
	WidthInt
	WidthLong
)

func (w IntWidth) Fits(v int64) bool {
	switch w {
	case WidthByte:
		return v >= math.MinInt8 && v <= math.MaxInt8
	case WidthShort:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case WidthInt:
		return v >= math.MinInt32 && v <= math.MaxInt32
	default:
		return true
	}
}

// ParseFloat64 attempts ordinary decimal or scientific notation, plus the
// literals Infinity/-Infinity/NaN (§4.4 "Floating point"). Go's
// strconv.ParseFloat already implements a high-speed decimal-to-binary
// algorithm (Eisel-Lemire), satisfying the "SHOULD use a high-speed
// algorithm" guidance without a bespoke implementation.
func ParseFloat64(s byteslice.ByteSlice) (v float64, ok bool) {
	if s.Len() == 0 {
		return 0, false
	}
	if lit, sign, isLit := matchFloatLiteral(s); isLit {
		switch lit {
		case floatLitInfinity:
			if sign < 0 {
				return math.Inf(-1), true
			}
			return math.Inf(1), true
		case floatLitNaN:
			return math.NaN(), true
		}
	}
	return parseDecimalFloat(s)
}

type floatLiteral uint8

const (
	floatLitNone floatLiteral = iota
	floatLitInfinity
	floatLitNaN
)

func matchFloatLiteral(s byteslice.ByteSlice) (floatLiteral, int, bool) {
	b := s.Bytes()
	sign := 1
	if len(b) > 0 && (b[0] == '+' || b[0] == '-') {
		if b[0] == '-' {
			sign = -1
		}
		b = b[1:]
	}
	if equalFold(b, "infinity") {
		return floatLitInfinity, sign, true
	}
	if equalFold(b, "nan") {
		return floatLitNaN, sign, true
	}
	return floatLitNone, sign, false
}

func equalFold(b []byte, lit string) bool {
	if len(b) != len(lit) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lit[i] {
			return false
		}
	}
	return true
}

// parseDecimalFloat implements a strict grammar check before handing off to
// the standard library's conversion routine, so that junk like "1,2" or a
// bare "e5" is rejected rather than partially consumed.
func parseDecimalFloat(s byteslice.ByteSlice) (float64, bool) {
	b := s.Bytes()
	i, n := 0, len(b)
	if i < n && (b[i] == '+' || b[i] == '-') {
		i++
	}
	digitsBefore := 0
	for i < n && b[i] >= '0' && b[i] <= '9' {
		i++
		digitsBefore++
	}
	digitsAfter := 0
	if i < n && b[i] == '.' {
		i++
		for i < n && b[i] >= '0' && b[i] <= '9' {
			i++
			digitsAfter++
		}
	}
	if digitsBefore == 0 && digitsAfter == 0 {
		return 0, false
	}
	if i < n && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < n && (b[i] == '+' || b[i] == '-') {
			i++
		}
		expDigits := 0
		for i < n && b[i] >= '0' && b[i] <= '9' {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return 0, false
		}
	}
	if i != n {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

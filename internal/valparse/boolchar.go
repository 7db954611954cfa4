package valparse

import (
	"unicode/utf8"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

// ParseBool accepts case-insensitive true/false (§4.4 "Boolean").
func ParseBool(s byteslice.ByteSlice) (v bool, ok bool) {
	b := s.Bytes()
	if equalFold(b, "true") {
		return true, true
	}
	if equalFold(b, "false") {
		return false, true
	}
	return false, false
}

// ParseChar accepts exactly one Unicode scalar value in the Basic
// Multilingual Plane; anything outside it, or any cell that isn't a single
// scalar value, disqualifies the cell from the char parser (§4.4 "Char").
func ParseChar(s byteslice.ByteSlice) (v rune, ok bool) {
	b := s.Bytes()
	if len(b) == 0 {
		return 0, false
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		return 0, false
	}
	if size != len(b) {
		return 0, false // more than one scalar value present
	}
	if r > 0xFFFF {
		return 0, false // outside the BMP
	}
	return r, true
}

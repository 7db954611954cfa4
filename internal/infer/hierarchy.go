// Package infer drives the per-column parser hierarchy and type-inference
// state machine described in §4.5: it tries parsers in priority order,
// promotes on failure, and hands the finished column to its Sink.
package infer

import (
	"github.com/csvcolumns/ingest/internal/byteslice"
	"github.com/csvcolumns/ingest/internal/valparse"
	"github.com/csvcolumns/ingest/sink"
)

// ParserKind names one entry in the built-in parser hierarchy (§3
// "ParserHierarchy").
type ParserKind uint8

const (
	KindByte ParserKind = iota
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindDateTime
	KindTimestampSec
	KindTimestampMs
	KindTimestampUs
	KindTimestampNs
	KindBoolean
	KindChar
	KindString
	KindCustom
)

func (k ParserKind) sinkType() sink.Type {
	switch k {
	case KindByte:
		return sink.TypeByte
	case KindShort:
		return sink.TypeShort
	case KindInt:
		return sink.TypeInt
	case KindLong:
		return sink.TypeLong
	case KindFloat:
		return sink.TypeFloat
	case KindDouble:
		return sink.TypeDouble
	case KindDateTime:
		return sink.TypeDateTimeAsLong
	case KindTimestampSec, KindTimestampMs, KindTimestampUs, KindTimestampNs:
		return sink.TypeTimestampAsLong
	case KindBoolean:
		return sink.TypeBooleanAsByte
	case KindChar:
		return sink.TypeChar
	case KindCustom:
		return sink.TypeCustom
	default:
		return sink.TypeString
	}
}

func (k ParserKind) String() string {
	switch k {
	case KindByte:
		return "BYTE"
	case KindShort:
		return "SHORT"
	case KindInt:
		return "INT"
	case KindLong:
		return "LONG"
	case KindFloat:
		return "FLOAT"
	case KindDouble:
		return "DOUBLE"
	case KindDateTime:
		return "DATETIME"
	case KindTimestampSec:
		return "TIMESTAMP_SEC"
	case KindTimestampMs:
		return "TIMESTAMP_MS"
	case KindTimestampUs:
		return "TIMESTAMP_US"
	case KindTimestampNs:
		return "TIMESTAMP_NS"
	case KindBoolean:
		return "BOOLEAN"
	case KindChar:
		return "CHAR"
	case KindString:
		return "STRING"
	default:
		return "CUSTOM"
	}
}

func (k ParserKind) isNumeric() bool {
	return k >= KindByte && k <= KindDouble
}

// isInteger reports whether k is one of the byte/short/int/long widening
// chain: the only kinds whose Sink/Source pair exchanges values as int64
// (sink.Source.ReadBack), so only these may use the read-back promotion
// path (§4.5 rule 2) rather than a full re-read from dense storage.
func (k ParserKind) isInteger() bool {
	return k >= KindByte && k <= KindLong
}

func (k ParserKind) intWidth() (valparse.IntWidth, bool) {
	switch k {
	case KindByte:
		return valparse.WidthByte, true
	case KindShort:
		return valparse.WidthShort, true
	case KindInt:
		return valparse.WidthInt, true
	case KindLong:
		return valparse.WidthLong, true
	default:
		return 0, false
	}
}

// DefaultHierarchy is Parsers.DEFAULT from §3: narrowest-to-widest numeric,
// then the non-numeric fallbacks, in the exact order promotion must follow.
//
// KindFloat is deliberately absent here: it parses with the exact same
// ParseFloat64 tokenizer as KindDouble (§4.4 "Floating point"), so if both
// sat in the default list the first one tried — Float — would always win,
// electing a narrower type than §8 scenario 1 calls for. Float stays
// available as an explicit per-column pin for callers that want it.
var DefaultHierarchy = []ParserKind{
	KindByte, KindShort, KindInt, KindLong,
	KindDouble,
	KindDateTime,
	KindTimestampSec, KindTimestampMs, KindTimestampUs, KindTimestampNs,
	KindBoolean, KindChar, KindString,
}

// CustomParser lets a caller insert a parser into the default hierarchy
// immediately after the kind named by After (§3 "ParserHierarchy"). After's
// zero value is KindByte, so a CustomParser with After unset runs right
// after Byte, ahead of the wider numeric kinds.
type CustomParser struct {
	Name  string
	Try   func(cell byteslice.ByteSlice) (value any, ok bool)
	After ParserKind // insertion point; the custom parser runs immediately after this kind
}

// BuildHierarchy resolves the ordered parser list for one column: either
// the single explicit parser the user pinned to this column, or the
// default list with any custom parsers spliced in and any globally
// disabled kinds removed. customAt maps a returned index holding
// KindCustom back to the CustomParser that occupies it, since multiple
// custom parsers may appear in one hierarchy.
func BuildHierarchy(pinned []ParserKind, customs []CustomParser, disabled map[ParserKind]bool) (kinds []ParserKind, customAt map[int]CustomParser) {
	customAt = make(map[int]CustomParser)
	if len(pinned) > 0 {
		return pinned, customAt
	}
	out := make([]ParserKind, 0, len(DefaultHierarchy)+len(customs))
	for _, k := range DefaultHierarchy {
		if !disabled[k] {
			out = append(out, k)
		}
		for _, c := range customs {
			if c.After == k {
				customAt[len(out)] = c
				out = append(out, KindCustom)
			}
		}
	}
	return out, customAt
}

// Package sink defines the external boundary the core ingestion engine
// writes through: one Sink per (column, elected type), with an optional
// Source for read-back during numeric promotion (§4.7, §6).
package sink

// Type enumerates the elected column types the engine can hand back to a
// caller (§6 "Output").
type Type uint8

const (
	TypeByte Type = iota
	TypeShort
	TypeInt
	TypeLong
	TypeFloat
	TypeDouble
	TypeChar
	TypeString
	TypeBooleanAsByte
	TypeDateTimeAsLong
	TypeTimestampAsLong
	TypeCustom
)

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "BYTE"
	case TypeShort:
		return "SHORT"
	case TypeInt:
		return "INT"
	case TypeLong:
		return "LONG"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeChar:
		return "CHAR"
	case TypeString:
		return "STRING"
	case TypeBooleanAsByte:
		return "BOOLEAN_AS_BYTE"
	case TypeDateTimeAsLong:
		return "DATETIME_AS_LONG"
	case TypeTimestampAsLong:
		return "TIMESTAMP_AS_LONG"
	default:
		return "CUSTOM"
	}
}

// Chunk is the fixed-size staging buffer handed to a Sink on each flush
// (§3 "Chunk"). Values are stored pre-converted to the Go type matching
// the Sink's elected Type; IsNull runs parallel to whichever value slice
// the elected Type fills.
type Chunk struct {
	Int64s   []int64
	Float64s []float64
	Strings  []string
	Bools    []bool
	IsNull   []bool
}

// Reset truncates every field to zero length without releasing capacity,
// so a Chunk can be reused across flushes for the lifetime of one column
// (§3 "Lifecycle").
func (c *Chunk) Reset() {
	c.Int64s = c.Int64s[:0]
	c.Float64s = c.Float64s[:0]
	c.Strings = c.Strings[:0]
	c.Bools = c.Bools[:0]
	c.IsNull = c.IsNull[:0]
}

// Len reports how many rows are currently staged in the chunk.
func (c *Chunk) Len() int { return len(c.IsNull) }

// Factory builds the Sink (and, where supported, Source) for one column
// once its elected type is known. Implementations may return a nil Source
// when read-back isn't supported for that type; the inferencer then
// promotes by replaying the cells it has logged for the column (§4.5
// rule 3).
type Factory interface {
	// NewSink allocates column storage for the given elected type. name is
	// the column's original (pre-legalizer) name, used in Sink-originated
	// error messages (§7 "User-visible messages").
	NewSink(name string, typ Type) (Sink, Source, error)

	// ReservedSentinel reports the type's reserved value, if the caller
	// configured one (§4.4 "Sentinel rejection"). ok is false when the
	// type has no reserved value, meaning every value in range is valid
	// data; a null literal is then stored as the type's zero value with
	// its IsNull flag set, and the column is not promoted (§4.5 rule 8).
	ReservedSentinel(typ Type) (value any, ok bool)
}

// Sink accepts parsed chunks for one column and, on success, produces the
// caller's columnar array object. Implementations must be safe to call
// from the single goroutine that owns this column (§5 "Sinks are
// exclusively owned by their column's parser thread"); the core never
// calls a Sink concurrently with itself.
type Sink interface {
	// Append flushes chunk (rows [chunk's own bookkeeping]) into the
	// column's backing storage. Rows 0..n-1 of chunk must be contiguous
	// with whatever was appended previously (§3 "Chunk" invariant).
	Append(chunk *Chunk) error

	// Finish finalizes the column and returns the caller-facing array
	// object plus the total row count. Called exactly once, after the
	// inferencer reaches Done for this column.
	Finish() (data any, numRows int64, err error)
}

// Source supports reading back already-appended values without
// re-tokenizing, powering numeric promotion (§4.5 rule 2).
type Source interface {
	// ReadBack returns the int64 values for rows [0, n) previously
	// appended to the paired Sink, converted to the wider type's
	// representation. Only called when promoting along the numeric
	// widening chain (byte/short/int/long).
	ReadBack(n int) ([]int64, []bool, error)
}

// Package arrow implements the external Sink/Source/Factory boundary
// (sink.Factory, sink.Sink, sink.Source) on top of Apache Arrow's
// array.Builder family, giving every elected column type a concrete
// columnar array object to hand back to the caller (§4.7, §6 "Output").
package arrow

import (
	"github.com/apache/arrow/go/v18/arrow"

	"github.com/csvcolumns/ingest/sink"
)

// dataTypeFor maps an elected sink.Type to the arrow.DataType its builder
// produces.
func dataTypeFor(t sink.Type) arrow.DataType {
	switch t {
	case sink.TypeByte:
		return arrow.PrimitiveTypes.Int8
	case sink.TypeShort:
		return arrow.PrimitiveTypes.Int16
	case sink.TypeInt:
		return arrow.PrimitiveTypes.Int32
	case sink.TypeLong:
		return arrow.PrimitiveTypes.Int64
	case sink.TypeFloat:
		return arrow.PrimitiveTypes.Float32
	case sink.TypeDouble:
		return arrow.PrimitiveTypes.Float64
	case sink.TypeChar:
		return arrow.PrimitiveTypes.Int32 // one Unicode scalar value per cell
	case sink.TypeString, sink.TypeCustom:
		return arrow.BinaryTypes.String
	case sink.TypeBooleanAsByte:
		return arrow.FixedWidthTypes.Boolean
	case sink.TypeDateTimeAsLong, sink.TypeTimestampAsLong:
		return arrow.FixedWidthTypes.Timestamp_ns
	default:
		return arrow.BinaryTypes.String
	}
}

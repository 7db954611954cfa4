package arrow

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/csvcolumns/ingest/sink"
)

// ReservedSentinels lets the caller configure one reserved value per
// elected type (§4.4 "Sentinel rejection"); a reserved value, if
// encountered in a cell's parsed form, is treated as a parse failure and
// promotes the column (§4.5 rule 9) rather than being stored as data.
type ReservedSentinels map[sink.Type]any

// Factory builds one Arrow-backed Sink per column, sharing a single
// memory.Allocator across the whole ingest run.
type Factory struct {
	Allocator memory.Allocator
	Reserved  ReservedSentinels
}

// NewFactory constructs a Factory with the default Go allocator.
func NewFactory(reserved ReservedSentinels) *Factory {
	return &Factory{Allocator: memory.NewGoAllocator(), Reserved: reserved}
}

func (f *Factory) alloc() memory.Allocator {
	if f.Allocator == nil {
		f.Allocator = memory.NewGoAllocator()
	}
	return f.Allocator
}

// ReservedSentinel implements sink.Factory.
func (f *Factory) ReservedSentinel(typ sink.Type) (any, bool) {
	if f.Reserved == nil {
		return nil, false
	}
	v, ok := f.Reserved[typ]
	return v, ok
}

// NewSink implements sink.Factory. typ == sink.TypeCustom defers its
// concrete Arrow builder until the first Append call, since a CUSTOM
// parser's return type isn't known until values actually arrive (§9
// "Polymorphism instead of inheritance" — CUSTOM is the one elected type
// without a fixed backing representation).
func (f *Factory) NewSink(name string, typ sink.Type) (sink.Sink, sink.Source, error) {
	mem := f.alloc()
	s := &columnSink{name: name, typ: typ, mem: mem}
	if typ == sink.TypeCustom {
		return s, nil, nil
	}
	if err := s.ensureBuilder(); err != nil {
		return nil, nil, err
	}
	var src sink.Source
	if s.numeric {
		src = s
	}
	return s, src, nil
}

// columnSink accumulates one column's values into an Arrow array.Builder
// and finalizes it into an arrow.Array at Finish. Numeric builders also
// keep a plain Go mirror of every appended int64 so ReadBack (§4.5 rule 2)
// doesn't have to introspect builder internals mid-stream.
type columnSink struct {
	name string
	typ  sink.Type
	mem  memory.Allocator

	numeric bool
	builder array.Builder

	mirror     []int64
	mirrorNull []bool
}

func (s *columnSink) ensureBuilder() error {
	if s.builder != nil {
		return nil
	}
	dt := dataTypeFor(s.typ)
	switch s.typ {
	case sink.TypeByte:
		s.builder, s.numeric = array.NewInt8Builder(s.mem), true
	case sink.TypeShort:
		s.builder, s.numeric = array.NewInt16Builder(s.mem), true
	case sink.TypeInt:
		s.builder, s.numeric = array.NewInt32Builder(s.mem), true
	case sink.TypeLong:
		s.builder, s.numeric = array.NewInt64Builder(s.mem), true
	case sink.TypeFloat:
		s.builder = array.NewFloat32Builder(s.mem)
	case sink.TypeDouble:
		s.builder = array.NewFloat64Builder(s.mem)
	case sink.TypeChar:
		s.builder, s.numeric = array.NewInt32Builder(s.mem), true
	case sink.TypeString:
		s.builder = array.NewStringBuilder(s.mem)
	case sink.TypeBooleanAsByte:
		s.builder = array.NewBooleanBuilder(s.mem)
	case sink.TypeDateTimeAsLong, sink.TypeTimestampAsLong:
		s.builder, s.numeric = array.NewTimestampBuilder(s.mem, dt.(*arrow.TimestampType)), true
	case sink.TypeCustom:
		// Resolved lazily in Append once the first value's shape is known.
	default:
		return fmt.Errorf("sink/arrow: unsupported elected type %v", s.typ)
	}
	return nil
}

// Append implements sink.Sink.
func (s *columnSink) Append(chunk *sink.Chunk) error {
	if s.typ == sink.TypeCustom && s.builder == nil {
		if err := s.resolveCustomBuilder(chunk); err != nil {
			return err
		}
	}
	switch b := s.builder.(type) {
	case *array.Int8Builder:
		for i, v := range chunk.Int64s {
			s.appendMirror(v, chunk.IsNull[i])
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(int8(v))
			}
		}
	case *array.Int16Builder:
		for i, v := range chunk.Int64s {
			s.appendMirror(v, chunk.IsNull[i])
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(int16(v))
			}
		}
	case *array.Int32Builder:
		for i, v := range chunk.Int64s {
			s.appendMirror(v, chunk.IsNull[i])
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(int32(v))
			}
		}
	case *array.Int64Builder:
		for i, v := range chunk.Int64s {
			s.appendMirror(v, chunk.IsNull[i])
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
	case *array.TimestampBuilder:
		for i, v := range chunk.Int64s {
			s.appendMirror(v, chunk.IsNull[i])
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(arrow.Timestamp(v))
			}
		}
	case *array.Float32Builder:
		for i, v := range chunk.Float64s {
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(float32(v))
			}
		}
	case *array.Float64Builder:
		for i, v := range chunk.Float64s {
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
	case *array.StringBuilder:
		for i, v := range chunk.Strings {
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
	case *array.BooleanBuilder:
		for i, v := range chunk.Bools {
			if chunk.IsNull[i] {
				b.AppendNull()
			} else {
				b.Append(v)
			}
		}
	default:
		return fmt.Errorf("sink/arrow: column %q has no builder for %v", s.name, s.typ)
	}
	return nil
}

func (s *columnSink) appendMirror(v int64, isNull bool) {
	if !s.numeric {
		return
	}
	s.mirror = append(s.mirror, v)
	s.mirrorNull = append(s.mirrorNull, isNull)
}

// resolveCustomBuilder picks the CUSTOM column's concrete Arrow builder
// from whichever Chunk field the first Append call actually populated; a
// custom parser is expected to return one consistent Go type for the
// lifetime of a column (float64, int64, string or bool), matching how
// internal/infer.putValue routes CUSTOM values.
func (s *columnSink) resolveCustomBuilder(chunk *sink.Chunk) error {
	switch {
	case len(chunk.Float64s) > 0:
		s.builder = array.NewFloat64Builder(s.mem)
	case len(chunk.Int64s) > 0:
		s.builder, s.numeric = array.NewInt64Builder(s.mem), true
	case len(chunk.Bools) > 0:
		s.builder = array.NewBooleanBuilder(s.mem)
	case len(chunk.Strings) > 0:
		s.builder = array.NewStringBuilder(s.mem)
	default:
		return fmt.Errorf("sink/arrow: column %q: custom parser produced an empty chunk before any type could be resolved", s.name)
	}
	return nil
}

// Finish implements sink.Sink.
func (s *columnSink) Finish() (any, int64, error) {
	if s.builder == nil {
		// CUSTOM column that never saw a single value (an all-null column
		// with CUSTOM as its null_parser would route here, for instance).
		s.builder = array.NewStringBuilder(s.mem)
	}
	// NewArray hands the caller a ref-counted array at refcount 1; the
	// caller is responsible for Release when done with it.
	arr := s.builder.NewArray()
	return arr, int64(arr.Len()), nil
}

// ReadBack implements sink.Source for the int64-backed columns NewSink
// hands a Source out for (byte/short/int/long, char, datetime/timestamp),
// powering promotion without re-tokenizing (§4.5 rule 2).
func (s *columnSink) ReadBack(n int) ([]int64, []bool, error) {
	if !s.numeric {
		return nil, nil, fmt.Errorf("sink/arrow: column %q: ReadBack called on a non-numeric sink", s.name)
	}
	if n > len(s.mirror) {
		n = len(s.mirror)
	}
	vals := make([]int64, n)
	copy(vals, s.mirror[:n])
	nulls := make([]bool, n)
	copy(nulls, s.mirrorNull[:n])
	return vals, nulls, nil
}

package infer

import (
	"errors"
	"strings"
	"testing"

	"github.com/csvcolumns/ingest/internal/byteslice"
	"github.com/csvcolumns/ingest/internal/densestore"
	"github.com/csvcolumns/ingest/sink"
)

type fakeSink struct {
	typ      sink.Type
	int64s   []int64
	float64s []float64
	strings  []string
	bools    []bool
	nulls    []bool
	finished bool
}

func (s *fakeSink) Append(c *sink.Chunk) error {
	s.int64s = append(s.int64s, c.Int64s...)
	s.float64s = append(s.float64s, c.Float64s...)
	s.strings = append(s.strings, c.Strings...)
	s.bools = append(s.bools, c.Bools...)
	s.nulls = append(s.nulls, c.IsNull...)
	return nil
}

func (s *fakeSink) Finish() (any, int64, error) {
	s.finished = true
	switch s.typ {
	case sink.TypeFloat, sink.TypeDouble:
		return s.float64s, int64(len(s.nulls)), nil
	case sink.TypeString, sink.TypeCustom:
		return s.strings, int64(len(s.nulls)), nil
	case sink.TypeBooleanAsByte:
		return s.bools, int64(len(s.nulls)), nil
	default:
		return s.int64s, int64(len(s.nulls)), nil
	}
}

type fakeSource struct{ s *fakeSink }

func (f fakeSource) ReadBack(n int) ([]int64, []bool, error) {
	if n > len(f.s.int64s) {
		n = len(f.s.int64s)
	}
	return append([]int64(nil), f.s.int64s[:n]...), append([]bool(nil), f.s.nulls[:n]...), nil
}

type fakeFactory struct {
	reserved map[sink.Type]any
	sinks    []*fakeSink
}

func (f *fakeFactory) NewSink(name string, typ sink.Type) (sink.Sink, sink.Source, error) {
	s := &fakeSink{typ: typ}
	f.sinks = append(f.sinks, s)
	switch typ {
	case sink.TypeByte, sink.TypeShort, sink.TypeInt, sink.TypeLong:
		return s, fakeSource{s: s}, nil
	default:
		return s, nil, nil
	}
}

func (f *fakeFactory) ReservedSentinel(typ sink.Type) (any, bool) {
	if f.reserved == nil {
		return nil, false
	}
	v, ok := f.reserved[typ]
	return v, ok
}

// fakeReader implements the Reader interface over a fixed slice of raw
// string cells, each its own row.
type fakeReader struct {
	cells []string
	idx   int
}

func (r *fakeReader) Next() (densestore.Record, bool, error) {
	if r.idx >= len(r.cells) {
		return densestore.Record{}, false, nil
	}
	c := r.cells[r.idx]
	r.idx++
	return densestore.Record{
		Kind:   densestore.RecordData,
		View:   byteslice.FromBytes([]byte(c)),
		EndRow: true,
	}, true, nil
}

func TestInferBasicIntColumn(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"1", "2", "3"}}
	spec := ColumnSpec{
		Name:      "n",
		Hierarchy: []ParserKind{KindByte, KindShort, KindString},
	}
	res, err := New(spec, factory, reader).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Type != sink.TypeByte {
		t.Fatalf("Type = %v, want TypeByte", res.Type)
	}
	got, ok := res.Data.([]int64)
	if !ok || !int64sEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("Data = %v, want [1 2 3]", res.Data)
	}
	if res.NumRows != 3 {
		t.Fatalf("NumRows = %d, want 3", res.NumRows)
	}
}

func TestInferNumericWideningPromotion(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"1", "300"}}
	spec := ColumnSpec{
		Name:      "n",
		Hierarchy: []ParserKind{KindByte, KindShort, KindString},
	}
	res, err := New(spec, factory, reader).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Type != sink.TypeShort {
		t.Fatalf("Type = %v, want TypeShort", res.Type)
	}
	got, ok := res.Data.([]int64)
	if !ok || !int64sEqual(got, []int64{1, 300}) {
		t.Fatalf("Data = %v, want [1 300]", res.Data)
	}
}

func TestInferNonNumericPromotionReplaysFromLog(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"1", "abc"}}
	spec := ColumnSpec{
		Name:      "n",
		Hierarchy: []ParserKind{KindInt, KindString},
	}
	res, err := New(spec, factory, reader).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Type != sink.TypeString {
		t.Fatalf("Type = %v, want TypeString", res.Type)
	}
	got, ok := res.Data.([]string)
	if !ok || len(got) != 2 || got[0] != "1" || got[1] != "abc" {
		t.Fatalf("Data = %v, want [1 abc]", res.Data)
	}
}

func TestInferExhaustedHierarchyErrors(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"abc"}}
	spec := ColumnSpec{
		Name:      "n",
		Hierarchy: []ParserKind{KindInt},
	}
	_, err := New(spec, factory, reader).Run()
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
}

func TestInferAllNullWithNullParser(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"NULL", "NULL"}}
	spec := ColumnSpec{
		Name:                 "n",
		Hierarchy:            []ParserKind{KindInt},
		NullLiterals:         [][]byte{[]byte("NULL")},
		NullParserConfigured: true,
		NullParser:           KindString,
	}
	res, err := New(spec, factory, reader).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Type != sink.TypeString {
		t.Fatalf("Type = %v, want TypeString", res.Type)
	}
	got, ok := res.Data.([]string)
	if !ok || len(got) != 2 || got[0] != "" || got[1] != "" {
		t.Fatalf("Data = %v, want two empty strings", res.Data)
	}
}

func TestInferAllNullWithoutNullParserErrors(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"NULL"}}
	spec := ColumnSpec{
		Name:         "n",
		Hierarchy:    []ParserKind{KindInt},
		NullLiterals: [][]byte{[]byte("NULL")},
	}
	_, err := New(spec, factory, reader).Run()
	if !errors.Is(err, ErrNullOnly) {
		t.Fatalf("err = %v, want ErrNullOnly", err)
	}
}

func TestInferReservedSentinelForcesPromotion(t *testing.T) {
	factory := &fakeFactory{reserved: map[sink.Type]any{sink.TypeInt: int64(999)}}
	reader := &fakeReader{cells: []string{"999"}}
	spec := ColumnSpec{
		Name:      "n",
		Hierarchy: []ParserKind{KindInt, KindLong},
	}
	res, err := New(spec, factory, reader).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Type != sink.TypeLong {
		t.Fatalf("Type = %v, want TypeLong (reserved Int sentinel should force promotion)", res.Type)
	}
	got, ok := res.Data.([]int64)
	if !ok || !int64sEqual(got, []int64{999}) {
		t.Fatalf("Data = %v, want [999]", res.Data)
	}
}

func TestInferCustomParser(t *testing.T) {
	factory := &fakeFactory{}
	reader := &fakeReader{cells: []string{"ab", "cd"}}
	spec := ColumnSpec{
		Name:      "n",
		Hierarchy: []ParserKind{KindCustom, KindString},
		CustomAt: map[int]CustomParser{
			0: {
				Name: "upper",
				Try: func(cell byteslice.ByteSlice) (any, bool) {
					s := cell.String()
					if s == "" {
						return nil, false
					}
					return strings.ToUpper(s), true
				},
			},
		},
	}
	res, err := New(spec, factory, reader).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Type != sink.TypeCustom {
		t.Fatalf("Type = %v, want TypeCustom", res.Type)
	}
	got, ok := res.Data.([]string)
	if !ok || len(got) != 2 || got[0] != "AB" || got[1] != "CD" {
		t.Fatalf("Data = %v, want [AB CD]", res.Data)
	}
}

func int64sEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

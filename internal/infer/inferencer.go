package infer

import (
	"errors"
	"fmt"

	"github.com/csvcolumns/ingest/internal/byteslice"
	"github.com/csvcolumns/ingest/internal/densestore"
	"github.com/csvcolumns/ingest/internal/valparse"
	"github.com/csvcolumns/ingest/sink"
)

// Sentinel errors for the terminal states in §4.5's state machine.
var (
	ErrNoParsers = errors.New("no available parsers")
	ErrNullOnly  = errors.New("column contains all null cells and no nullParser is specified")
	ErrExhausted = errors.New("consumed numeric items, then encountered a non-numeric item but there are no further parsers available")
)

// ColumnSpec configures one column's inferencer run (§3 "ColumnSpec").
type ColumnSpec struct {
	Index     int
	Name      string
	Hierarchy []ParserKind
	CustomAt  map[int]CustomParser

	NullLiterals [][]byte

	CustomDoubleParser   func(byteslice.ByteSlice) (float64, bool)
	CustomTimeZoneParser valparse.CustomTimeZoneParser

	NullParserConfigured bool
	NullParser           ParserKind

	// ElidedCheck, if set, reports whether the row-shape layer committed to
	// trailing-null-column elision for this run. Only consulted when this
	// column never observed a single cell; see finalizeAllNull.
	ElidedCheck func() bool

	ChunkRows int
}

// Reader is the subset of densestore.Reader the inferencer needs, kept as
// an interface so tests can substitute a fake.
type Reader interface {
	Next() (densestore.Record, bool, error)
}

// loggedCell is one previously observed cell, retained so the column can
// be "re-read from dense storage" (§4.5 rule 3) without the dense storage
// layer itself needing to keep every block alive past first observation.
// See DESIGN.md for why replay is implemented at this layer instead.
type loggedCell struct {
	data   []byte
	quoted bool
	line   int64
}

// Inferencer runs the per-column parser hierarchy state machine (§4.5).
type Inferencer struct {
	spec    ColumnSpec
	factory sink.Factory
	reader  Reader

	log       []loggedCell
	replaying bool
	replayIdx int
}

// New constructs an Inferencer for one column.
func New(spec ColumnSpec, factory sink.Factory, reader Reader) *Inferencer {
	if spec.ChunkRows <= 0 {
		spec.ChunkRows = DefaultChunkRows
	}
	return &Inferencer{spec: spec, factory: factory, reader: reader}
}

// ColumnResult is the finished column (§6 "Output").
type ColumnResult struct {
	Name    string
	Type    sink.Type
	Data    any
	NumRows int64

	// Elided marks a phantom result for a column that trailing-null-column
	// elision dropped entirely; the caller must exclude it from the
	// retained column set rather than treat it as real output.
	Elided bool
}

// nextCell returns the next cell, transparently replaying from the log
// when a non-numeric promotion has requested a full re-read.
func (inf *Inferencer) nextCell() (loggedCell, bool, error) {
	if inf.replaying {
		if inf.replayIdx < len(inf.log) {
			c := inf.log[inf.replayIdx]
			inf.replayIdx++
			return c, true, nil
		}
		inf.replaying = false
	}
	rec, ok, err := inf.reader.Next()
	if err != nil {
		return loggedCell{}, false, err
	}
	if !ok {
		return loggedCell{}, false, nil
	}
	lc := loggedCell{data: rec.View.Clone(), quoted: rec.Quoted, line: rec.Line}
	inf.log = append(inf.log, lc)
	return lc, true, nil
}

func (inf *Inferencer) isNullLiteral(data []byte) bool {
	for _, lit := range inf.spec.NullLiterals {
		if bytesEqual(data, lit) {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
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

// Run drives the state machine to completion, returning the finished
// column or the first error encountered.
func (inf *Inferencer) Run() (ColumnResult, error) {
	if len(inf.spec.Hierarchy) == 0 {
		return ColumnResult{}, fmt.Errorf("column %q: %w", inf.spec.Name, ErrNoParsers)
	}

	kindIdx := 0
	var pending *loggedCell
	var priorSource sink.Source
	priorRows := 0
	sawNonNull := false

	for {
		kind := inf.spec.Hierarchy[kindIdx]
		s, src, err := inf.newSinkFor(kindIdx, kind)
		if err != nil {
			return ColumnResult{}, fmt.Errorf("column %q: %w", inf.spec.Name, err)
		}
		writer := newChunkWriter(s, kind, inf.spec.ChunkRows)
		reservedVal, hasReserved := inf.factory.ReservedSentinel(kind.sinkType())

		n := 0
		if priorSource != nil {
			vals, nulls, rerr := priorSource.ReadBack(priorRows)
			if rerr != nil {
				return ColumnResult{}, fmt.Errorf("column %q read-back: %w", inf.spec.Name, rerr)
			}
			for i, v := range vals {
				isNull := i < len(nulls) && nulls[i]
				if err := writer.putInt64(v, isNull); err != nil {
					return ColumnResult{}, err
				}
			}
			n = len(vals)
			priorSource = nil
		}

		eof := false
		promoted := false
		for {
			var cell loggedCell
			ok := true
			var cerr error
			if pending != nil {
				cell = *pending
				pending = nil
			} else {
				cell, ok, cerr = inf.nextCell()
				if cerr != nil {
					return ColumnResult{}, cerr
				}
			}
			if !ok {
				eof = true
				break
			}
			if inf.isNullLiteral(cell.data) {
				if err := inf.putNull(writer, kind); err != nil {
					return ColumnResult{}, err
				}
				n++
				continue
			}
			sawNonNull = true
			value, pok := inf.tryParse(kindIdx, kind, cell.data)
			if pok && hasReserved && valueEqual(value, reservedVal) {
				pok = false // reserved-hit: treated as a parse failure (rule 9)
			}
			if !pok {
				nextIdx := kindIdx + 1
				if nextIdx >= len(inf.spec.Hierarchy) {
					return ColumnResult{}, fmt.Errorf(
						"column %q: consumed %d numeric items, then encountered a non-numeric item but there are no further parsers available: %w",
						inf.spec.Name, n, ErrExhausted)
				}
				nextKind := inf.spec.Hierarchy[nextIdx]
				cc := cell
				if kind.isInteger() && nextKind.isInteger() && src != nil {
					if err := writer.flush(); err != nil {
						return ColumnResult{}, err
					}
					priorSource = src
					priorRows = n
					pending = &cc
				} else {
					inf.startReplay()
					pending = nil
				}
				kindIdx = nextIdx
				promoted = true
				break
			}
			if err := inf.putValue(writer, kind, value); err != nil {
				return ColumnResult{}, err
			}
			n++
		}

		if promoted {
			continue
		}

		if eof {
			if !sawNonNull {
				return inf.finalizeAllNull(n)
			}
			if err := writer.flush(); err != nil {
				return ColumnResult{}, err
			}
			data, numRows, ferr := s.Finish()
			if ferr != nil {
				return ColumnResult{}, fmt.Errorf("column %q sink: %w", inf.spec.Name, ferr)
			}
			return ColumnResult{Name: inf.spec.Name, Type: kind.sinkType(), Data: data, NumRows: numRows}, nil
		}
	}
}

func (inf *Inferencer) newSinkFor(kindIdx int, kind ParserKind) (sink.Sink, sink.Source, error) {
	if kind == KindCustom {
		// Custom parsers get a TypeCustom sink; putValue stores each value
		// by its runtime Go type (float64, int64, string or bool).
		return inf.factory.NewSink(inf.spec.Name, sink.TypeCustom)
	}
	return inf.factory.NewSink(inf.spec.Name, kind.sinkType())
}

func (inf *Inferencer) startReplay() {
	inf.replaying = true
	inf.replayIdx = 0
}

func valueEqual(v any, reserved any) bool {
	if reserved == nil {
		return false
	}
	switch rv := reserved.(type) {
	case int64:
		iv, ok := v.(int64)
		return ok && iv == rv
	case float64:
		fv, ok := v.(float64)
		return ok && fv == rv
	default:
		return false
	}
}

func (inf *Inferencer) tryParse(kindIdx int, kind ParserKind, data []byte) (any, bool) {
	bs := byteslice.FromBytes(data)
	switch kind {
	case KindByte, KindShort, KindInt, KindLong:
		v, ok := valparse.ParseInt64(bs)
		if !ok {
			return nil, false
		}
		width, _ := kind.intWidth()
		if !width.Fits(v) {
			return nil, false
		}
		return v, true
	case KindFloat:
		if inf.spec.CustomDoubleParser != nil {
			v, ok := inf.spec.CustomDoubleParser(bs)
			return v, ok
		}
		v, ok := valparse.ParseFloat64(bs)
		return v, ok
	case KindDouble:
		if inf.spec.CustomDoubleParser != nil {
			v, ok := inf.spec.CustomDoubleParser(bs)
			return v, ok
		}
		v, ok := valparse.ParseFloat64(bs)
		return v, ok
	case KindDateTime:
		v, ok := valparse.ParseDateTime(bs, inf.spec.CustomTimeZoneParser)
		return v, ok
	case KindTimestampSec:
		v, ok := valparse.ParseTimestamp(bs, valparse.UnitSeconds)
		return v, ok
	case KindTimestampMs:
		v, ok := valparse.ParseTimestamp(bs, valparse.UnitMillis)
		return v, ok
	case KindTimestampUs:
		v, ok := valparse.ParseTimestamp(bs, valparse.UnitMicros)
		return v, ok
	case KindTimestampNs:
		v, ok := valparse.ParseTimestamp(bs, valparse.UnitNanos)
		return v, ok
	case KindBoolean:
		v, ok := valparse.ParseBool(bs)
		return v, ok
	case KindChar:
		v, ok := valparse.ParseChar(bs)
		return int64(v), ok
	case KindString:
		return bs.String(), true
	case KindCustom:
		if c, ok := inf.spec.CustomAt[kindIdx]; ok && c.Try != nil {
			return c.Try(bs)
		}
		return nil, false
	default:
		return nil, false
	}
}

func (inf *Inferencer) putValue(w *chunkWriter, kind ParserKind, value any) error {
	switch kind {
	case KindByte, KindShort, KindInt, KindLong, KindDateTime,
		KindTimestampSec, KindTimestampMs, KindTimestampUs, KindTimestampNs, KindChar:
		return w.putInt64(value.(int64), false)
	case KindFloat, KindDouble:
		return w.putFloat64(value.(float64), false)
	case KindBoolean:
		return w.putBool(value.(bool), false)
	case KindString:
		return w.putString(value.(string), false)
	case KindCustom:
		switch v := value.(type) {
		case float64:
			return w.putFloat64(v, false)
		case int64:
			return w.putInt64(v, false)
		case string:
			return w.putString(v, false)
		case bool:
			return w.putBool(v, false)
		default:
			return fmt.Errorf("column %q: custom parser returned unsupported value type %T", inf.spec.Name, value)
		}
	default:
		return fmt.Errorf("column %q: unhandled parser kind", inf.spec.Name)
	}
}

// putNull records a null per §4.5 rule 8: the cell isn't handed to the
// parser, the isNull bitmap gets a true, and the stored value is the
// sentinel the factory reserves for the kind's type (zero value when none
// is reserved, since the bitmap is authoritative). A null never promotes
// the column, whether or not a sentinel is reserved.
func (inf *Inferencer) putNull(w *chunkWriter, kind ParserKind) error {
	reserved, _ := inf.factory.ReservedSentinel(kind.sinkType())
	switch kind {
	case KindFloat, KindDouble:
		v, _ := reserved.(float64)
		return w.putFloat64(v, true)
	case KindBoolean:
		return w.putBool(false, true)
	case KindString:
		return w.putString("", true)
	default:
		v, _ := reserved.(int64)
		return w.putInt64(v, true)
	}
}

// finalizeAllNull implements §4.5 rule 5: every cell in the column matched
// a null literal, so the elected type comes from the configured
// null_parser rather than whatever kind happened to be active.
func (inf *Inferencer) finalizeAllNull(rows int) (ColumnResult, error) {
	if rows == 0 && inf.spec.ElidedCheck != nil && inf.spec.ElidedCheck() {
		// This lane never saw a single cell because the row-shape layer
		// committed to trailing-null-column elision (§4.1 rule 5) and
		// dropped it from every row, not because the column's values were
		// genuinely all null. It isn't a real column; let the caller drop
		// it from the result set instead of demanding a null_parser.
		return ColumnResult{Name: inf.spec.Name, Elided: true}, nil
	}
	if !inf.spec.NullParserConfigured {
		return ColumnResult{}, fmt.Errorf("column %q: %w", inf.spec.Name, ErrNullOnly)
	}
	kind := inf.spec.NullParser
	s, _, err := inf.factory.NewSink(inf.spec.Name, kind.sinkType())
	if err != nil {
		return ColumnResult{}, fmt.Errorf("column %q null-parser sink: %w", inf.spec.Name, err)
	}
	writer := newChunkWriter(s, kind, inf.spec.ChunkRows)
	for i := 0; i < rows; i++ {
		if err := inf.putNull(writer, kind); err != nil {
			return ColumnResult{}, err
		}
	}
	if err := writer.flush(); err != nil {
		return ColumnResult{}, err
	}
	data, numRows, ferr := s.Finish()
	if ferr != nil {
		return ColumnResult{}, fmt.Errorf("column %q null-parser sink: %w", inf.spec.Name, ferr)
	}
	return ColumnResult{Name: inf.spec.Name, Type: kind.sinkType(), Data: data, NumRows: numRows}, nil
}

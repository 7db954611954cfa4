// Package tokenize implements the CellGrabber: the component that cuts an
// input byte stream into Cells under either RFC-4180-style delimited rules
// (delimited.go) or fixed-width-column rules (fixedwidth.go). Both variants
// share row-shape enforcement, null-literal padding, empty-line handling and
// trailing-column elision, implemented once in this file.
package tokenize

import (
	"errors"
	"fmt"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

// Result is the outcome of a single NextCell call.
type Result uint8

const (
	// ResultField indicates Cell holds a field; more cells may follow in
	// the current row.
	ResultField Result = iota
	// ResultEndOfRow indicates the row just completed; Cell is the row's
	// final field.
	ResultEndOfRow
	// ResultEndOfInput indicates no more rows remain; Cell is the zero
	// value.
	ResultEndOfInput
)

// Terminator records whether a Cell was closed by a field delimiter or by a
// row terminator (newline / EOF).
type Terminator uint8

const (
	TermDelimiter Terminator = iota
	TermRow
)

// Cell is a ByteSlice view plus the quoting and termination metadata the
// inferencer and dense storage layer need.
type Cell struct {
	Data ByteSlice
	// Quoted is true when the cell's source text began with the quote
	// character (delimited mode only; always false in fixed-width mode).
	Quoted bool
	Term   Terminator
	// Synthesized is true for the null-literal pads the grabber adds for
	// missing trailing columns; cells of the null row built for an empty
	// line are not marked. A pad carries the configured null literal
	// verbatim so it is recognized as null by the normal null-literal
	// match in §4.5 rule 8.
	Synthesized bool
	// Line is the 1-based physical input line this cell's row starts on.
	Line int64
}

// ByteSlice is a local alias kept for readability in this package's public
// surface.
type ByteSlice = byteslice.ByteSlice

// Options are the row-shape and null-handling rules common to both grabber
// variants (§4.1 rule 4-6, shared by reference from §4.2).
type Options struct {
	IgnoreSurroundingSpaces bool
	Trim                    bool
	IgnoreEmptyLines        bool
	AllowMissingColumns     bool
	IgnoreExcessColumns     bool
	SkipRows                uint64
	SkipHeaderRows          uint64
	HasHeaderRow            bool
	// NumRows bounds the number of data rows returned; Unbounded, or a
	// NumRows of 0, disables the limit.
	NumRows   uint64
	Unbounded bool
	// NullLiteralForColumn resolves the raw bytes to synthesize for a
	// missing column at the given 0-based index. ok is false when no
	// null literal is configured for that column.
	NullLiteralForColumn func(index int) (lit []byte, ok bool)
	// ElisionProbeRows bounds how many rows the grabber holds in memory
	// while deciding whether the rightmost column is empty everywhere
	// (§4.1 rule 5). 0 selects the default of 4096 rows; a negative value
	// disables elision detection entirely.
	ElisionProbeRows int
}

// withDefaults fills zero-valued tunables with sane defaults, mirroring the
// teacher's Options.withDefaults/DefaultOptions idiom (tsv_parser.go).
func (o Options) withDefaults() Options {
	if o.ElisionProbeRows == 0 {
		o.ElisionProbeRows = defaultElisionProbeRows
	}
	if o.NumRows == 0 {
		o.Unbounded = true
	}
	return o
}

const defaultElisionProbeRows = 4096

// Sentinel errors. Call sites wrap these with row/column context via %w so
// errors.Is keeps working across the wrap.
var (
	ErrUnterminatedQuote  = errors.New("cell did not have closing quote character")
	ErrJunkAfterQuote     = errors.New("logic error: final non-whitespace in field is not quoteChar")
	ErrTooFewColumns      = errors.New("row has too few columns")
	ErrTooManyColumns     = errors.New("row has too many columns")
	ErrNoNullLiteral      = errors.New("no null literal is defined for a missing column")
	ErrElidedColumnDirty  = errors.New("column assumed empty but contains data")
	ErrInvalidDelimiter   = errors.New("delimiter must be a single ASCII byte")
	ErrInvalidQuote       = errors.New("quote must be a single ASCII byte")
	ErrNegativeCount      = errors.New("count option must not be negative")
	ErrNegativeWidth      = errors.New("fixed column width must not be negative")
	ErrBadSkipHeaderRows  = errors.New("skip_header_rows must be zero when no header row is configured")
	ErrFixedDelimitedMix  = errors.New("fixed-width-only options set while in delimited mode, or vice versa")
)

// ValidateDelimiterQuote checks that delimiter and quote are each an ASCII
// byte (at most 0x7F), as required by §6's cross-field validation. It does
// not check that the two differ.
func ValidateDelimiterQuote(delimiter, quote byte) []error {
	var errs []error
	if delimiter > 0x7F {
		errs = append(errs, ErrInvalidDelimiter)
	}
	if quote > 0x7F {
		errs = append(errs, ErrInvalidQuote)
	}
	return errs
}

// rawCell is a cell exactly as cut from the byte stream, before row-shape
// normalization (padding/truncation/elision) is applied.
type rawCell struct {
	data   ByteSlice
	quoted bool
	term   Terminator
}

// rowSource is implemented by the delimited and fixed-width cutters to
// supply raw, un-normalized rows to the shared rowAssembler.
type rowSource interface {
	// nextRawRow returns the next physical row's cells and the 1-based
	// physical line it starts on. io.EOF-equivalent is signalled via the
	// ok return being false with a nil error.
	nextRawRow() (cells []rawCell, line int64, ok bool, err error)
}

// elisionState tracks the trailing-null-column-elision decision (§4.1 rule
// 5). See DESIGN.md for the bounded-probe-window rationale.
type elisionState uint8

const (
	elisionPending elisionState = iota
	elisionActive
	elisionDisproven
	elisionDisabled
)

type elisionTracker struct {
	state      elisionState
	probeLeft  int
	maxRows    int
	buffered   [][]rawCell // rows held while state == elisionPending
	bufferLine []int64
}

func newElisionTracker(maxRows int) *elisionTracker {
	if maxRows <= 0 {
		return &elisionTracker{state: elisionDisabled}
	}
	return &elisionTracker{state: elisionPending, probeLeft: maxRows, maxRows: maxRows}
}

// observe folds in one row's trailing-cell emptiness, returning any rows
// that must now be released downstream (in order) and whether the supplied
// row itself should be held back (still pending).
func (e *elisionTracker) observe(cells []rawCell, line int64, lastIdx int) (release [][]rawCell, releaseLines []int64, hold bool, err error) {
	switch e.state {
	case elisionDisabled, elisionDisproven:
		return nil, nil, false, nil
	case elisionActive:
		if lastIdx >= 0 && lastIdx < len(cells) && cells[lastIdx].data.Len() > 0 {
			return nil, nil, false, fmt.Errorf("row %d: %w", line, ErrElidedColumnDirty)
		}
		return nil, nil, false, nil
	case elisionPending:
		empty := lastIdx < 0 || lastIdx >= len(cells) || cells[lastIdx].data.Len() == 0
		if !empty {
			// Disproven: release every buffered row plus this one, all
			// carrying their original (unelided) shape.
			e.state = elisionDisproven
			rel := e.buffered
			relLines := e.bufferLine
			e.buffered = nil
			e.bufferLine = nil
			return rel, relLines, false, nil
		}
		// A held row outlives the source's per-row buffer, which the next
		// row overwrites, so keep a copy of its bytes.
		held := make([]rawCell, len(cells))
		for i, c := range cells {
			held[i] = c
			held[i].data = byteslice.FromBytes(c.data.Clone())
		}
		e.buffered = append(e.buffered, held)
		e.bufferLine = append(e.bufferLine, line)
		e.probeLeft--
		if e.probeLeft <= 0 {
			// Commit to elision: everything buffered is released with the
			// trailing column dropped by the caller.
			e.state = elisionActive
			rel := e.buffered
			relLines := e.bufferLine
			e.buffered = nil
			e.bufferLine = nil
			return rel, relLines, false, nil
		}
		return nil, nil, true, nil
	}
	return nil, nil, false, nil
}

// elided reports whether the trailing column is (so far, or finally)
// considered dropped.
func (e *elisionTracker) elided() bool {
	return e.state == elisionActive
}

package tokenize

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

// ColumnWidth describes one fixed-width column's cut point, in code units
// per the configured CountMode (§4.2).
type ColumnWidth struct {
	Width int
}

// CountMode selects how column widths are measured against a physical line
// (§4.2 "Column width counting").
type CountMode uint8

const (
	// CountUTF32 counts one Unicode scalar value per unit, regardless of
	// how many UTF-16 code units it would require.
	CountUTF32 CountMode = iota
	// CountUTF16 counts one unit per UTF-16 code unit, so a character
	// outside the Basic Multilingual Plane consumes two units of width.
	CountUTF16
)

// BrokenSurrogatePolicy controls how an isolated UTF-16 surrogate half
// found mid-stream (from already-invalid input, since Go strings carry no
// real surrogates) is handled when CountMode is CountUTF16.
type BrokenSurrogatePolicy uint8

const (
	// BrokenSurrogateReplace substitutes U+FFFD for the broken unit and
	// continues.
	BrokenSurrogateReplace BrokenSurrogatePolicy = iota
	// BrokenSurrogateError fails the row with ErrBrokenSurrogate.
	BrokenSurrogateError
)

var ErrBrokenSurrogate = fmt.Errorf("fixed-width column boundary falls inside a broken surrogate pair")

// ErrFixedWidthNeedsColumns is returned when no column widths were supplied
// and no header row is configured to infer them from (§4.2 "Width
// determination": "Otherwise, widths must be supplied by the caller").
var ErrFixedWidthNeedsColumns = fmt.Errorf("fixed-width columns must be supplied explicitly, or has_header_row must be set so widths can be inferred from the header")

// FixedWidthOptions configures the fixed-width grabber (§4.2).
type FixedWidthOptions struct {
	Options
	Columns         []ColumnWidth
	CountMode       CountMode
	SurrogatePolicy BrokenSurrogatePolicy
}

func (o FixedWidthOptions) withDefaults() FixedWidthOptions {
	o.Options = o.Options.withDefaults()
	return o
}

// Validate runs the fixed-width-mode cross-field checks from §6.
func (o FixedWidthOptions) Validate() []error {
	var errs []error
	for _, c := range o.Columns {
		if c.Width < 0 {
			errs = append(errs, ErrNegativeWidth)
		}
	}
	if !o.Options.HasHeaderRow && o.Options.SkipHeaderRows != 0 {
		errs = append(errs, ErrBadSkipHeaderRows)
	}
	if len(o.Columns) == 0 && !o.Options.HasHeaderRow {
		errs = append(errs, ErrFixedWidthNeedsColumns)
	}
	return errs
}

// NewFixedWidth builds a Grabber reading fixed-width columns from r. If
// opts.Columns is empty, widths are inferred from the header row the first
// time a row is pulled (§4.2 "Width determination"); Validate rejects that
// combination when no header row is configured.
func NewFixedWidth(r io.Reader, opts FixedWidthOptions) (*Grabber, error) {
	opts = opts.withDefaults()
	if errs := opts.Validate(); len(errs) > 0 {
		return nil, combineErrors(errs)
	}
	src := &fixedWidthSource{
		r:            bufio.NewReaderSize(r, 64*1024),
		columns:      opts.Columns,
		mode:         opts.CountMode,
		policy:       opts.SurrogatePolicy,
		line:         1,
		buf:          byteslice.NewBuffer(512),
		hasHeaderRow: opts.Options.HasHeaderRow,
		firstRow:     true,
	}
	return NewGrabber(opts.Options, src), nil
}

type fixedWidthSource struct {
	r       *bufio.Reader
	columns []ColumnWidth
	mode    CountMode
	policy  BrokenSurrogatePolicy
	line    int64
	eof     bool
	buf     *byteslice.Buffer

	// hasHeaderRow and firstRow together identify the header row (the
	// first physical row pulled, when a header is configured): column
	// widths are inferred from it when f.columns is still empty, and its
	// cell text is always trimmed regardless (§4.2 "header names are
	// always trimmed").
	hasHeaderRow bool
	firstRow     bool
}

// nextRawRow reads one physical line and cuts it into len(columns) cells by
// counted width, per §4.2 rules 1-3.
func (f *fixedWidthSource) nextRawRow() ([]rawCell, int64, bool, error) {
	if f.eof {
		return nil, 0, false, nil
	}
	line, err := f.r.ReadString('\n')
	if err == io.EOF {
		f.eof = true
		if len(line) == 0 {
			return nil, 0, false, nil
		}
	} else if err != nil {
		return nil, 0, false, err
	}
	startLine := f.line
	f.line++
	line = trimLineEnding(line)

	headerRow := f.firstRow && f.hasHeaderRow
	f.firstRow = false
	if len(f.columns) == 0 {
		f.columns = f.inferColumnWidths(line)
	}

	if len(line) == 0 {
		return []rawCell{}, startLine, true, nil
	}

	f.buf.Reset()
	start := f.buf.Mark()
	f.buf.Append([]byte(line))

	cells := make([]rawCell, 0, len(f.columns))
	runes := []rune(line)
	pos := 0 // index into runes
	byteStart := start
	for i, col := range f.columns {
		widthStart := pos
		last := i == len(f.columns)-1
		if last {
			// The final width is a sentinel: the last cell always
			// extends to end of line regardless of its declared or
			// inferred width (§4.2 "Width determination").
			pos = len(runes)
		} else {
			count := 0
			for pos < len(runes) && count < col.Width {
				r := runes[pos]
				units, err := f.codeUnits(r)
				if err != nil {
					return nil, 0, false, fmt.Errorf("row %d: %w", startLine, err)
				}
				if count+units > col.Width {
					// A multi-unit rune would cross the width boundary
					// under CountUTF16; stop here so it starts the next
					// column.
					break
				}
				count += units
				pos++
			}
		}
		byteLen := runeByteLen(runes[widthStart:pos])
		view := f.buf.View(byteStart, byteStart+byteLen)
		byteStart += byteLen
		if headerRow {
			view = view.TrimASCIISpace()
		}
		term := TermDelimiter
		if last {
			term = TermRow
		}
		cells = append(cells, rawCell{data: view, quoted: false, term: term})
	}
	return cells, startLine, true, nil
}

// inferColumnWidths scans line for the header-row width-inference rule
// (§4.2): each column is one run of non-space characters immediately
// followed by one run of space characters, counted in the configured
// CountMode's units. A header with no trailing space run after its last
// name (the common case) still yields one final column; its declared width
// is irrelevant since the last column is always a sentinel.
func (f *fixedWidthSource) inferColumnWidths(line string) []ColumnWidth {
	runes := []rune(line)
	n := len(runes)
	var cols []ColumnWidth
	i := 0
	for i < n {
		start := i
		for i < n && runes[i] != ' ' {
			i++
		}
		for i < n && runes[i] == ' ' {
			i++
		}
		units := 0
		for _, r := range runes[start:i] {
			u, _ := f.codeUnits(r)
			units += u
		}
		cols = append(cols, ColumnWidth{Width: units})
	}
	if len(cols) == 0 {
		cols = append(cols, ColumnWidth{Width: 0})
	}
	return cols
}

// codeUnits reports how many units of the configured CountMode a rune
// occupies.
func (f *fixedWidthSource) codeUnits(r rune) (int, error) {
	if f.mode == CountUTF32 {
		return 1, nil
	}
	if utf16.IsSurrogate(r) {
		if f.policy == BrokenSurrogateError {
			return 0, ErrBrokenSurrogate
		}
		return 1, nil
	}
	r1, r2 := utf16.EncodeRune(r)
	if r1 == utf8.RuneError && r2 == utf8.RuneError {
		return 1, nil
	}
	return 2, nil
}

func runeByteLen(rs []rune) int {
	n := 0
	for _, r := range rs {
		n += utf8.RuneLen(r)
	}
	return n
}

func trimLineEnding(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
		if n := len(s); n > 0 && s[n-1] == '\r' {
			s = s[:n-1]
		}
	}
	return s
}

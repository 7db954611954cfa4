// Package specs defines CsvSpecs, the immutable external configuration
// surface named in §6: a flat options struct built by a Builder and
// validated once, in the teacher's Options/withDefaults/DefaultOptions
// idiom (tsv_parser.go) rather than a dynamic option bag.
package specs

import (
	"time"

	"github.com/csvcolumns/ingest/internal/ambient"
	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
	"github.com/csvcolumns/ingest/internal/valparse"
)

// CharSet names the byte-to-text decoding applied to STRING cells and to
// fixed-width counting (§6 "Input"). The tokenizer itself always operates
// on raw bytes; CharSet only governs how those bytes are later interpreted
// as text.
type CharSet uint8

const (
	CharSetUTF8 CharSet = iota
	CharSetUSASCII
	CharSetISO8859_1
	CharSetUTF16
	CharSetUTF16BE
	CharSetUTF16LE
)

// NullLiteralRule lets null literals be scoped globally or to one column,
// addressed either by name or by 0-based index (§6 "null_value_literals").
type NullLiteralRule struct {
	ColumnName  string // empty means "applies to every column"
	ColumnIndex int
	ByIndex     bool
	Literal     string
}

// ParserOverride pins a single column (by name or index) to an explicit
// parser hierarchy instead of the default promotion chain.
type ParserOverride struct {
	ColumnName  string
	ColumnIndex int
	ByIndex     bool
	Hierarchy   []infer.ParserKind
}

// CsvSpecs is the complete, immutable configuration for one ingest run.
// Build one with NewBuilder; CsvSpecs itself has no exported constructor,
// matching the teacher's pattern of keeping mutation confined to the
// builder and the built value inert.
type CsvSpecs struct {
	CharSet CharSet

	Delimiter byte
	Quote     byte

	HasHeaderRow   bool
	SkipHeaderRows uint64
	SkipRows       uint64
	NumRows        uint64
	Unbounded      bool

	Headers         []string // overrides headers read from the input
	HeaderLegalizer func(original string) []string

	IgnoreSurroundingSpaces bool
	Trim                    bool
	IgnoreEmptyLines        bool
	AllowMissingColumns     bool
	IgnoreExcessColumns     bool

	NullValueLiterals []NullLiteralRule

	Parsers          []infer.ParserKind // global default hierarchy; empty means infer.DefaultHierarchy
	ParserOverrides  []ParserOverride
	NullParser       infer.ParserKind
	NullParserIsSet  bool
	CustomParsers    []infer.CustomParser

	CustomDoubleParser   func(s []byte) (float64, bool)
	CustomTimeZoneParser valparse.CustomTimeZoneParser

	HasFixedWidthColumns      bool
	FixedColumnWidths         []int
	UseUTF32CountingConvention bool

	Concurrent            bool
	ThreadShutdownTimeout time.Duration

	ElisionProbeRows int
}

// WithDefaults returns s with zero-valued tunables filled in, the same step
// Builder.Build runs; exported so callers who build a CsvSpecs literal
// directly (instead of via Builder) can opt into the same defaulting
// before Validate.
func (s CsvSpecs) WithDefaults() CsvSpecs {
	return s.withDefaults()
}

func (s CsvSpecs) withDefaults() CsvSpecs {
	if s.Delimiter == 0 {
		s.Delimiter = ','
	}
	if s.Quote == 0 {
		s.Quote = '"'
	}
	if s.ThreadShutdownTimeout <= 0 {
		s.ThreadShutdownTimeout = 30 * time.Second
	}
	return s
}

// Validate runs every cross-field check from §6 and returns the combined
// *ambient.ConfigError the caller should check with errors.As, or nil.
func (s CsvSpecs) Validate() error {
	var errs []error
	errs = append(errs, tokenize.ValidateDelimiterQuote(s.Delimiter, s.Quote)...)
	if !s.HasHeaderRow && s.SkipHeaderRows != 0 {
		errs = append(errs, tokenize.ErrBadSkipHeaderRows)
	}
	if s.HasFixedWidthColumns {
		for _, w := range s.FixedColumnWidths {
			if w < 0 {
				errs = append(errs, tokenize.ErrNegativeWidth)
			}
		}
	} else if len(s.FixedColumnWidths) > 0 {
		errs = append(errs, tokenize.ErrFixedDelimitedMix)
	}
	if len(errs) == 0 {
		return nil
	}
	return &ambient.ConfigError{Reasons: errs}
}

// Builder accumulates CsvSpecs fields fluently, mirroring the teacher's
// flag-parsing-then-Options-struct shape, before Build runs withDefaults
// and returns the immutable result.
type Builder struct {
	s CsvSpecs
}

// NewBuilder starts from the zero-value CsvSpecs.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) CharSet(cs CharSet) *Builder             { b.s.CharSet = cs; return b }
func (b *Builder) Delimiter(d byte) *Builder                { b.s.Delimiter = d; return b }
func (b *Builder) Quote(q byte) *Builder                    { b.s.Quote = q; return b }
func (b *Builder) HasHeaderRow(v bool) *Builder              { b.s.HasHeaderRow = v; return b }
func (b *Builder) SkipHeaderRows(n uint64) *Builder          { b.s.SkipHeaderRows = n; return b }
func (b *Builder) SkipRows(n uint64) *Builder                { b.s.SkipRows = n; return b }
func (b *Builder) NumRows(n uint64) *Builder                 { b.s.NumRows = n; return b }
func (b *Builder) Unbounded(v bool) *Builder                 { b.s.Unbounded = v; return b }
func (b *Builder) Headers(h []string) *Builder               { b.s.Headers = h; return b }
func (b *Builder) HeaderLegalizer(f func(string) []string) *Builder {
	b.s.HeaderLegalizer = f
	return b
}
func (b *Builder) IgnoreSurroundingSpaces(v bool) *Builder { b.s.IgnoreSurroundingSpaces = v; return b }
func (b *Builder) Trim(v bool) *Builder                    { b.s.Trim = v; return b }
func (b *Builder) IgnoreEmptyLines(v bool) *Builder        { b.s.IgnoreEmptyLines = v; return b }
func (b *Builder) AllowMissingColumns(v bool) *Builder     { b.s.AllowMissingColumns = v; return b }
func (b *Builder) IgnoreExcessColumns(v bool) *Builder     { b.s.IgnoreExcessColumns = v; return b }
func (b *Builder) AddNullLiteral(rule NullLiteralRule) *Builder {
	b.s.NullValueLiterals = append(b.s.NullValueLiterals, rule)
	return b
}
func (b *Builder) Parsers(p []infer.ParserKind) *Builder { b.s.Parsers = p; return b }
func (b *Builder) AddParserOverride(o ParserOverride) *Builder {
	b.s.ParserOverrides = append(b.s.ParserOverrides, o)
	return b
}
func (b *Builder) AddCustomParser(c infer.CustomParser) *Builder {
	b.s.CustomParsers = append(b.s.CustomParsers, c)
	return b
}
func (b *Builder) NullParser(k infer.ParserKind) *Builder {
	b.s.NullParser = k
	b.s.NullParserIsSet = true
	return b
}
func (b *Builder) CustomDoubleParser(f func([]byte) (float64, bool)) *Builder {
	b.s.CustomDoubleParser = f
	return b
}
func (b *Builder) CustomTimeZoneParser(f valparse.CustomTimeZoneParser) *Builder {
	b.s.CustomTimeZoneParser = f
	return b
}
func (b *Builder) HasFixedWidthColumns(v bool) *Builder { b.s.HasFixedWidthColumns = v; return b }
func (b *Builder) FixedColumnWidths(w []int) *Builder   { b.s.FixedColumnWidths = w; return b }
func (b *Builder) UseUTF32CountingConvention(v bool) *Builder {
	b.s.UseUTF32CountingConvention = v
	return b
}
func (b *Builder) Concurrent(v bool) *Builder { b.s.Concurrent = v; return b }
func (b *Builder) ThreadShutdownTimeout(d time.Duration) *Builder {
	b.s.ThreadShutdownTimeout = d
	return b
}
func (b *Builder) ElisionProbeRows(n int) *Builder { b.s.ElisionProbeRows = n; return b }

// Build finalizes the spec. Callers should still call Validate before
// using it for an ingest run; Build itself only fills defaults.
func (b *Builder) Build() CsvSpecs {
	return b.s.withDefaults()
}

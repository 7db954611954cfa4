package specs

import (
	"errors"
	"testing"
	"time"

	"github.com/csvcolumns/ingest/internal/ambient"
	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
)

func TestBuilderBuildAppliesDefaults(t *testing.T) {
	s := NewBuilder().Build()
	if s.Delimiter != ',' {
		t.Fatalf("Delimiter = %q, want ','", s.Delimiter)
	}
	if s.Quote != '"' {
		t.Fatalf("Quote = %q, want '\"'", s.Quote)
	}
	if s.ThreadShutdownTimeout != 30*time.Second {
		t.Fatalf("ThreadShutdownTimeout = %v, want 30s", s.ThreadShutdownTimeout)
	}
}

func TestBuilderExplicitValuesSurviveDefaulting(t *testing.T) {
	s := NewBuilder().
		Delimiter('\t').
		Quote('\'').
		ThreadShutdownTimeout(5 * time.Second).
		HasHeaderRow(true).
		SkipHeaderRows(2).
		NumRows(10).
		Trim(true).
		IgnoreEmptyLines(true).
		AllowMissingColumns(true).
		IgnoreExcessColumns(true).
		Parsers([]infer.ParserKind{infer.KindInt, infer.KindString}).
		NullParser(infer.KindString).
		ElisionProbeRows(64).
		Build()

	if s.Delimiter != '\t' || s.Quote != '\'' {
		t.Fatalf("delimiter/quote not preserved: %q %q", s.Delimiter, s.Quote)
	}
	if s.ThreadShutdownTimeout != 5*time.Second {
		t.Fatalf("ThreadShutdownTimeout = %v, want 5s (explicit value should survive withDefaults)", s.ThreadShutdownTimeout)
	}
	if !s.HasHeaderRow || s.SkipHeaderRows != 2 || s.NumRows != 10 {
		t.Fatalf("header/skip/numrows not preserved: %+v", s)
	}
	if !s.Trim || !s.IgnoreEmptyLines || !s.AllowMissingColumns || !s.IgnoreExcessColumns {
		t.Fatalf("boolean flags not preserved: %+v", s)
	}
	if len(s.Parsers) != 2 || s.Parsers[0] != infer.KindInt {
		t.Fatalf("Parsers = %v", s.Parsers)
	}
	if !s.NullParserIsSet || s.NullParser != infer.KindString {
		t.Fatalf("NullParser = %v, set=%v", s.NullParser, s.NullParserIsSet)
	}
	if s.ElisionProbeRows != 64 {
		t.Fatalf("ElisionProbeRows = %d, want 64", s.ElisionProbeRows)
	}
}

func TestBuilderAddNullLiteralAccumulates(t *testing.T) {
	s := NewBuilder().
		AddNullLiteral(NullLiteralRule{Literal: "NULL"}).
		AddNullLiteral(NullLiteralRule{ColumnName: "id", Literal: "NA"}).
		Build()
	if len(s.NullValueLiterals) != 2 {
		t.Fatalf("NullValueLiterals = %v, want 2 entries", s.NullValueLiterals)
	}
}

func TestBuilderAddParserOverrideAndCustomParserAccumulate(t *testing.T) {
	s := NewBuilder().
		AddParserOverride(ParserOverride{ColumnName: "id", Hierarchy: []infer.ParserKind{infer.KindLong}}).
		AddParserOverride(ParserOverride{ByIndex: true, ColumnIndex: 1, Hierarchy: []infer.ParserKind{infer.KindString}}).
		AddCustomParser(infer.CustomParser{Name: "weekday"}).
		Build()
	if len(s.ParserOverrides) != 2 {
		t.Fatalf("ParserOverrides = %v, want 2 entries", s.ParserOverrides)
	}
	if len(s.CustomParsers) != 1 || s.CustomParsers[0].Name != "weekday" {
		t.Fatalf("CustomParsers = %v", s.CustomParsers)
	}
}

func TestWithDefaultsIdempotentOnAlreadyDefaultedSpec(t *testing.T) {
	s := NewBuilder().Build()
	s2 := s.WithDefaults()
	if s2.Delimiter != s.Delimiter || s2.Quote != s.Quote || s2.ThreadShutdownTimeout != s.ThreadShutdownTimeout {
		t.Fatalf("WithDefaults changed an already-defaulted spec: %+v vs %+v", s, s2)
	}
}

func TestValidateAcceptsDefaultSpec(t *testing.T) {
	s := NewBuilder().Build()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsNonASCIIDelimiterAndQuote(t *testing.T) {
	s := NewBuilder().Delimiter(0x80).Quote(0x81).Build()
	err := s.Validate()
	var cfgErr *ambient.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() = %v, want *ambient.ConfigError", err)
	}
	if !errors.Is(err, tokenize.ErrInvalidDelimiter) || !errors.Is(err, tokenize.ErrInvalidQuote) {
		t.Fatalf("Validate() reasons = %v, want both ErrInvalidDelimiter and ErrInvalidQuote", cfgErr.Reasons)
	}
}

func TestValidateRejectsSkipHeaderRowsWithoutHeaderRow(t *testing.T) {
	s := NewBuilder().SkipHeaderRows(1).Build()
	err := s.Validate()
	if !errors.Is(err, tokenize.ErrBadSkipHeaderRows) {
		t.Fatalf("Validate() = %v, want ErrBadSkipHeaderRows", err)
	}
}

func TestValidateRejectsNegativeFixedColumnWidth(t *testing.T) {
	s := NewBuilder().HasFixedWidthColumns(true).FixedColumnWidths([]int{3, -1}).Build()
	err := s.Validate()
	if !errors.Is(err, tokenize.ErrNegativeWidth) {
		t.Fatalf("Validate() = %v, want ErrNegativeWidth", err)
	}
}

func TestValidateRejectsFixedColumnWidthsWithoutFixedWidthMode(t *testing.T) {
	s := NewBuilder().FixedColumnWidths([]int{3, 3}).Build()
	err := s.Validate()
	if !errors.Is(err, tokenize.ErrFixedDelimitedMix) {
		t.Fatalf("Validate() = %v, want ErrFixedDelimitedMix", err)
	}
}

func TestValidateAggregatesMultipleReasons(t *testing.T) {
	s := NewBuilder().
		Delimiter(0x80).
		SkipHeaderRows(1).
		Build()
	err := s.Validate()
	var cfgErr *ambient.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() = %v, want *ambient.ConfigError", err)
	}
	if len(cfgErr.Reasons) != 2 {
		t.Fatalf("Reasons = %v, want 2 entries", cfgErr.Reasons)
	}
}

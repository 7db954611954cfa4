package tokenize

import (
	"errors"
	"strings"
	"testing"
)

// drain pulls every cell from g, grouping them into rows of plain strings.
func drain(t *testing.T, g *Grabber) ([][]string, error) {
	t.Helper()
	var rows [][]string
	var row []string
	for {
		c, res, err := g.NextCell()
		if err != nil {
			return rows, err
		}
		if res == ResultEndOfInput {
			return rows, nil
		}
		row = append(row, c.Data.String())
		if res == ResultEndOfRow {
			rows = append(rows, row)
			row = nil
		}
	}
}

func mustDelimited(t *testing.T, input string, opts DelimitedOptions) *Grabber {
	t.Helper()
	g, err := NewDelimited(strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("NewDelimited: %v", err)
	}
	return g
}

func TestDelimitedBasicRows(t *testing.T) {
	g := mustDelimited(t, "a,b,c\n1,2,3\n", DelimitedOptions{Delimiter: ',', Quote: '"'})
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"a", "b", "c"}, {"1", "2", "3"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedQuotedFieldsAndEscaping(t *testing.T) {
	g := mustDelimited(t, `"hello, world","she said ""hi""",plain`+"\n", DelimitedOptions{Delimiter: ',', Quote: '"'})
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"hello, world", `she said "hi"`, "plain"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedUnterminatedQuoteErrors(t *testing.T) {
	g := mustDelimited(t, `"unterminated`+"\n", DelimitedOptions{Delimiter: ',', Quote: '"'})
	_, err := drain(t, g)
	if !errors.Is(err, ErrUnterminatedQuote) {
		t.Fatalf("err = %v, want ErrUnterminatedQuote", err)
	}
}

func TestDelimitedJunkAfterQuoteErrors(t *testing.T) {
	g := mustDelimited(t, `"ok"junk,b`+"\n", DelimitedOptions{Delimiter: ',', Quote: '"'})
	_, err := drain(t, g)
	if !errors.Is(err, ErrJunkAfterQuote) {
		t.Fatalf("err = %v, want ErrJunkAfterQuote", err)
	}
}

func TestDelimitedCRLFRowTerminator(t *testing.T) {
	g := mustDelimited(t, "a,b\r\n1,2\r\n", DelimitedOptions{Delimiter: ',', Quote: '"'})
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"a", "b"}, {"1", "2"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedTooFewColumnsRejectedByDefault(t *testing.T) {
	g := mustDelimited(t, "a,b,c\n1,2\n", DelimitedOptions{Delimiter: ',', Quote: '"', Options: Options{HasHeaderRow: true}})
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	_, err := drain(t, g)
	if !errors.Is(err, ErrTooFewColumns) {
		t.Fatalf("err = %v, want ErrTooFewColumns", err)
	}
}

func TestDelimitedAllowMissingColumnsPads(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{
			HasHeaderRow:        true,
			AllowMissingColumns: true,
			NullLiteralForColumn: func(int) ([]byte, bool) {
				return []byte("NULL"), true
			},
		},
	}
	g := mustDelimited(t, "a,b,c\n1,2\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1", "2", "NULL"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedIgnoreExcessColumnsTruncates(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{HasHeaderRow: true, IgnoreExcessColumns: true},
	}
	g := mustDelimited(t, "a,b\n1,2,3,4\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1", "2"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedTooManyColumnsRejectedByDefault(t *testing.T) {
	opts := DelimitedOptions{Delimiter: ',', Quote: '"', Options: Options{HasHeaderRow: true}}
	g := mustDelimited(t, "a,b\n1,2,3\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	_, err := drain(t, g)
	if !errors.Is(err, ErrTooManyColumns) {
		t.Fatalf("err = %v, want ErrTooManyColumns", err)
	}
}

func TestDelimitedEmptyLineSynthesizesNullRow(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{
			HasHeaderRow: true,
			NullLiteralForColumn: func(int) ([]byte, bool) {
				return []byte(""), true
			},
		},
	}
	g := mustDelimited(t, "a,b\n\n1,2\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"", ""}, {"1", "2"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedIgnoreEmptyLinesSkipsThem(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{HasHeaderRow: true, IgnoreEmptyLines: true},
	}
	g := mustDelimited(t, "a,b\n\n1,2\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1", "2"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedSurroundingSpaceTrim(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{IgnoreSurroundingSpaces: true},
	}
	g := mustDelimited(t, " a , b ,c\n", opts)
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"a", "b", "c"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedElisionDropsTrailingEmptyColumn(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{HasHeaderRow: true, ElisionProbeRows: 2},
	}
	g := mustDelimited(t, "a,b,c\n1,2,\n3,4,\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1", "2"}, {"3", "4"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedElisionDisprovenReleasesBufferedRowsWhole(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{HasHeaderRow: true, ElisionProbeRows: 4},
	}
	g := mustDelimited(t, "a,b,c\n1,2,\n3,4,5\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1", "2", ""}, {"3", "4", "5"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedSkipRowsAndSkipHeaderRows(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{SkipRows: 1, HasHeaderRow: true, SkipHeaderRows: 1},
	}
	g := mustDelimited(t, "junk-line\na,b\nskip,me\n1,2\n", opts)
	cells, ok, err := g.Header()
	if err != nil || !ok {
		t.Fatalf("Header: ok=%v err=%v", ok, err)
	}
	if cells[0].Data.String() != "a" || cells[1].Data.String() != "b" {
		t.Fatalf("header cells = %v", cells)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1", "2"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedNumRowsBoundsOutput(t *testing.T) {
	opts := DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{HasHeaderRow: true, NumRows: 1},
	}
	g := mustDelimited(t, "a\n1\n2\n3\n", opts)
	if _, _, err := g.Header(); err != nil {
		t.Fatalf("Header: %v", err)
	}
	rows, err := drain(t, g)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	want := [][]string{{"1"}}
	if !rowsEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestValidateDelimiterQuote(t *testing.T) {
	if errs := ValidateDelimiterQuote(',', '"'); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	errs := ValidateDelimiterQuote(0x80, 0x81)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors for non-ASCII bytes, got %v", errs)
	}
}

func TestNewDelimitedRejectsSkipHeaderRowsWithoutHeaderRow(t *testing.T) {
	_, err := NewDelimited(strings.NewReader("a,b\n"), DelimitedOptions{
		Delimiter: ',', Quote: '"',
		Options: Options{HasHeaderRow: false, SkipHeaderRows: 1},
	})
	if !errors.Is(err, ErrBadSkipHeaderRows) {
		t.Fatalf("err = %v, want ErrBadSkipHeaderRows", err)
	}
}

func rowsEqual(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

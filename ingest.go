// Package ingest is the top-level entry point: it wires specs.CsvSpecs,
// the tokenizer, the dense-storage pipeline, the per-column inferencer and
// the caller's sink.Factory into one Ingest call (§2 "System overview").
package ingest

import (
	"fmt"
	"io"

	"github.com/csvcolumns/ingest/internal/ambient"
	"github.com/csvcolumns/ingest/internal/coordinator"
	"github.com/csvcolumns/ingest/internal/densestore"
	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
	"github.com/csvcolumns/ingest/sink"
	"github.com/csvcolumns/ingest/specs"
)

// Result is the whole-run output: one ColumnResult per retained column, in
// declaration order (§6 "Output").
type Result struct {
	Columns []infer.ColumnResult
}

// Ingest runs one complete CSV/TSV/fixed-width ingestion pass over r under
// sp, materializing every retained column through factory.
//
// The per-column pipeline (§4.3, §4.6) is sized before a single cell is
// read, so the column count and names must be knowable up front: either
// sp.Headers is set, or sp.HasHeaderRow is set (the header row is read
// before streaming begins), or the input is fixed-width with an explicit
// FixedColumnWidths list, whose length fixes the count (the columns are
// then named column_0, column_1, ...). A header-less, schema-less
// input has no such anchor and is rejected with a config error rather than
// silently buffering the whole stream to find out.
func Ingest(r io.Reader, sp specs.CsvSpecs, factory sink.Factory) (Result, error) {
	sp = sp.WithDefaults()
	if err := sp.Validate(); err != nil {
		return Result{}, err
	}

	grabber, err := newGrabber(r, sp)
	if err != nil {
		return Result{}, err
	}

	names, err := resolveColumnNames(grabber, sp)
	if err != nil {
		return Result{}, err
	}

	columns := make([]infer.ColumnSpec, len(names))
	for i, name := range names {
		hierarchy, customAt := sp.HierarchyForColumn(i, name)
		if len(hierarchy) == 0 {
			return Result{}, &ambient.InferenceError{Column: name, Err: infer.ErrNoParsers}
		}
		columns[i] = infer.ColumnSpec{
			Index:                i,
			Name:                 name,
			Hierarchy:            hierarchy,
			CustomAt:             customAt,
			NullLiterals:         sp.NullLiteralsForColumn(i, name),
			CustomDoubleParser:   sp.CustomDoubleParser,
			CustomTimeZoneParser: sp.CustomTimeZoneParser,
			NullParserConfigured: sp.NullParserIsSet,
			NullParser:           sp.NullParser,
		}
	}
	if n := len(columns); n > 0 {
		// Only the last column can ever be the one elision drops (§4.1
		// rule 5 only elides a trailing column), so only its spec needs the
		// check wired in.
		columns[n-1].ElidedCheck = grabber.Elided
	}

	co := coordinator.New(coordinator.Options{
		Concurrent:      sp.Concurrent,
		ShutdownTimeout: sp.ThreadShutdownTimeout,
		Pipeline:        densestore.Options{},
	})
	results, err := co.Run(grabber, columns, factory)
	if err != nil {
		return Result{}, err
	}
	return Result{Columns: retainedColumns(results)}, nil
}

// retainedColumns drops the phantom ColumnResult that trailing-null-column
// elision leaves behind for the column it removed (§4.1 rule 5).
func retainedColumns(results []infer.ColumnResult) []infer.ColumnResult {
	out := make([]infer.ColumnResult, 0, len(results))
	for _, r := range results {
		if r.Elided {
			continue
		}
		out = append(out, r)
	}
	return out
}

// resolveColumnNames determines the retained column names from whichever
// up-front anchor sp provides, consuming the header row from grabber (if
// configured) in the process so the coordinator's first NextCell call
// lands on the first data row.
func resolveColumnNames(grabber *tokenize.Grabber, sp specs.CsvSpecs) ([]string, error) {
	if len(sp.Headers) > 0 {
		if sp.HasHeaderRow {
			if _, ok, err := grabber.Header(); err != nil {
				return nil, err
			} else if !ok {
				return nil, fmt.Errorf("ingest: configured has_header_row but input has no rows")
			}
		}
		legal, fanout := specs.LegalizeHeaders(sp.Headers, sp.HeaderLegalizer)
		if err := checkOneToOneLegalizer(sp.Headers, legal, fanout); err != nil {
			return nil, err
		}
		return legal, nil
	}

	if sp.HasHeaderRow {
		cells, ok, err := grabber.Header()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ingest: configured has_header_row but input has no rows")
		}
		original := make([]string, len(cells))
		for i, c := range cells {
			original[i] = c.Data.String()
		}
		legal, fanout := specs.LegalizeHeaders(original, sp.HeaderLegalizer)
		if err := checkOneToOneLegalizer(original, legal, fanout); err != nil {
			return nil, err
		}
		return legal, nil
	}

	if sp.HasFixedWidthColumns && len(sp.FixedColumnWidths) > 0 {
		names := make([]string, len(sp.FixedColumnWidths))
		for i := range names {
			names[i] = fmt.Sprintf("column_%d", i)
		}
		return names, nil
	}

	return nil, fmt.Errorf("ingest: column count cannot be determined without has_header_row or an explicit headers override")
}

// checkOneToOneLegalizer rejects a header_legalizer that fans a single
// original column out into zero or multiple retained columns: the wired
// pipeline routes cells by their original physical column index one-to-one,
// so a fan-out legalizer would need cell re-routing the engine does not
// implement. A pure rename (the common case, and the only shape specs.
// LegalizeHeaders' N:M contract degrades to here) is unaffected.
func checkOneToOneLegalizer(original, legal []string, fanout []int) error {
	oneToOne := len(legal) == len(original)
	for i := 0; oneToOne && i < len(fanout); i++ {
		oneToOne = fanout[i] == i
	}
	if oneToOne {
		return nil
	}
	return fmt.Errorf("ingest: header_legalizer must rename columns one-to-one (got %d original, %d legalized)", len(original), len(legal))
}

func newGrabber(r io.Reader, sp specs.CsvSpecs) (*tokenize.Grabber, error) {
	common := tokenize.Options{
		IgnoreSurroundingSpaces: sp.IgnoreSurroundingSpaces,
		Trim:                    sp.Trim,
		IgnoreEmptyLines:        sp.IgnoreEmptyLines,
		AllowMissingColumns:     sp.AllowMissingColumns,
		IgnoreExcessColumns:     sp.IgnoreExcessColumns,
		SkipRows:                sp.SkipRows,
		SkipHeaderRows:          sp.SkipHeaderRows,
		HasHeaderRow:            sp.HasHeaderRow,
		NumRows:                 sp.NumRows,
		Unbounded:               sp.Unbounded,
		ElisionProbeRows:        sp.ElisionProbeRows,
		NullLiteralForColumn: func(index int) ([]byte, bool) {
			lits := sp.NullLiteralsForColumn(index, "")
			if len(lits) == 0 {
				return nil, false
			}
			return lits[0], true
		},
	}

	if sp.HasFixedWidthColumns {
		cols := make([]tokenize.ColumnWidth, len(sp.FixedColumnWidths))
		for i, w := range sp.FixedColumnWidths {
			cols[i] = tokenize.ColumnWidth{Width: w}
		}
		mode := tokenize.CountUTF32
		if !sp.UseUTF32CountingConvention {
			mode = tokenize.CountUTF16
		}
		return tokenize.NewFixedWidth(r, tokenize.FixedWidthOptions{
			Options:   common,
			Columns:   cols,
			CountMode: mode,
		})
	}
	return tokenize.NewDelimited(r, tokenize.DelimitedOptions{
		Options:   common,
		Delimiter: sp.Delimiter,
		Quote:     sp.Quote,
	})
}

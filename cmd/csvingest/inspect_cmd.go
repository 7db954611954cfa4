package main

import (
	"flag"
	"fmt"

	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
	"github.com/csvcolumns/ingest/specs"
)

// runInspect reads only the header row (plus any configured skip_rows)
// and prints each retained column's legalized name and resolved parser
// hierarchy, without tokenizing a single data row.
func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	input := fs.String("input", "", "CSV/TSV input file (.gz accepted)")
	delimiter := fs.String("delimiter", ",", "Field delimiter (single ASCII byte)")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}
	if *input == "" {
		fatalf("inspect: -input is required")
	}
	if len(*delimiter) != 1 {
		fatalf("inspect: -delimiter must be exactly one ASCII byte")
	}

	in, err := openInput(*input)
	if err != nil {
		fatalf("open input: %v", err)
	}
	defer func() { _ = in.Close() }()

	sp := specs.NewBuilder().
		Delimiter((*delimiter)[0]).
		HasHeaderRow(true).
		Build()

	grabber, err := tokenize.NewDelimited(in, tokenize.DelimitedOptions{
		Options:   tokenize.Options{HasHeaderRow: true},
		Delimiter: sp.Delimiter,
		Quote:     sp.Quote,
	})
	if err != nil {
		fatalf("open grabber: %v", err)
	}

	cells, ok, err := grabber.Header()
	if err != nil {
		fatalf("read header: %v", err)
	}
	if !ok {
		fatalf("inspect: input has no rows")
	}

	original := make([]string, len(cells))
	for i, c := range cells {
		original[i] = c.Data.String()
	}
	legal, _ := specs.LegalizeHeaders(original, sp.HeaderLegalizer)

	for i, name := range legal {
		hierarchy, _ := sp.HierarchyForColumn(i, name)
		fmt.Printf("%s\t%s\n", name, formatHierarchy(hierarchy))
	}
}

func formatHierarchy(h []infer.ParserKind) string {
	names := make([]string, len(h))
	for i, k := range h {
		names[i] = k.String()
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

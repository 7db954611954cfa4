package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/csvcolumns/ingest"
	"github.com/csvcolumns/ingest/internal/ambient"
	arrowsink "github.com/csvcolumns/ingest/sink/arrow"
	"github.com/csvcolumns/ingest/specs"
)

func runInfer(args []string) {
	fs := flag.NewFlagSet("infer", flag.ExitOnError)
	input := fs.String("input", "", "CSV/TSV input file (.gz accepted)")
	delimiter := fs.String("delimiter", ",", "Field delimiter (single ASCII byte)")
	hasHeader := fs.Bool("header", true, "Input's first row is a header")
	trim := fs.Bool("trim", false, "Trim whitespace around each cell")
	allowMissing := fs.Bool("allow-missing-columns", false, "Pad short rows with null literals")
	ignoreExcess := fs.Bool("ignore-excess-columns", false, "Drop extra trailing columns instead of erroring")
	concurrent := fs.Bool("concurrent", true, "Run one tokenizer + one parser goroutine per column")
	shutdownTimeout := fs.Duration("shutdown-timeout", 30*time.Second, "Worker shutdown grace period")
	progressOn := fs.Bool("progress", true, "Show progress bar")
	verbose := fs.Bool("v", false, "Verbose diagnostic logging")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}
	ambient.Verbose = *verbose

	if *input == "" {
		fatalf("infer: -input is required")
	}
	if len(*delimiter) != 1 {
		fatalf("infer: -delimiter must be exactly one ASCII byte")
	}

	in, err := openInput(*input)
	if err != nil {
		fatalf("open input: %v", err)
	}
	defer func() { _ = in.Close() }()

	sp := specs.NewBuilder().
		Delimiter((*delimiter)[0]).
		HasHeaderRow(*hasHeader).
		Trim(*trim).
		AllowMissingColumns(*allowMissing).
		IgnoreExcessColumns(*ignoreExcess).
		Concurrent(*concurrent).
		ThreadShutdownTimeout(*shutdownTimeout).
		Build()

	bar := ambient.NewProgress(-1, boolToReportEvery(*progressOn))
	defer bar.Finish()

	factory := arrowsink.NewFactory(nil)
	result, err := ingest.Ingest(progressReader{r: in, bar: bar}, sp, factory)
	if err != nil {
		fatalf("ingest failed: %v", err)
	}

	for _, col := range result.Columns {
		fmt.Printf("%s\t%s\t%d\n", col.Name, col.Type, col.NumRows)
	}
}

func boolToReportEvery(on bool) int {
	if on {
		return 1
	}
	return 0
}

// progressReader advances bar by one unit per Read call that returns data,
// the same coarse-grained signal boldkit/cmd/progress.go uses (one tick
// per row processed, here approximated as one tick per buffer fill since
// Ingest itself doesn't expose a row callback to the CLI layer).
type progressReader struct {
	r   interface{ Read([]byte) (int, error) }
	bar *ambient.Progress
}

func (p progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.bar.Add(1)
	}
	return n, err
}

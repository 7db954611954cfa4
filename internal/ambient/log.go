// Package ambient holds the small cross-cutting pieces every layer of the
// ingest engine shares: stderr logging and the CLI-facing progress bar,
// both kept in the same plain style as the teacher's cmd package (no
// structured logging framework appears anywhere in the example pack for
// this kind of tool, so fmt.Fprintf(os.Stderr, ...) is the idiom to match
// rather than an invented dependency).
package ambient

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Verbose gates Logf's output; the CLI flips it on with -v.
var Verbose = false

// Logf writes a diagnostic line to stderr when Verbose is set. Mirrors the
// teacher's fatalf in boldkit/cmd/util.go, minus the os.Exit.
func Logf(format string, args ...any) {
	if !Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Warnf always writes to stderr, regardless of Verbose; used for recoverable
// per-row problems (a malformed cell under a lenient CsvSpecs) that the
// caller chose to continue past rather than fail on.
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Progress wraps schollz/progressbar the same way the teacher's cmd.progress
// does: a reportEvery of 0 disables it outright so library callers (Ingest
// is used as a library first, a CLI second) never get unsolicited stderr
// output.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress builds a row-count progress bar, or a no-op one when
// reportEvery is 0. total <= 0 renders an indeterminate spinner, matching
// rows read from a stream of unknown length ahead of time.
func NewProgress(total int64, reportEvery int) *Progress {
	if reportEvery == 0 {
		return &Progress{}
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(250 * time.Millisecond),
		progressbar.OptionClearOnFinish(),
	}

	var bar *progressbar.ProgressBar
	if total > 0 {
		opts = append(opts,
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetPredictTime(true),
		)
		bar = progressbar.NewOptions64(total, opts...)
	} else {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
		)
		bar = progressbar.NewOptions64(-1, opts...)
	}
	return &Progress{bar: bar}
}

// Add advances the bar by n rows; a no-op Progress ignores it.
func (p *Progress) Add(n int) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(n)
}

// Finish closes out the bar, clearing it from the terminal.
func (p *Progress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

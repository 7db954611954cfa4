// Package coordinator owns the tokenizer task and the N per-column parser
// tasks: it starts them, aggregates errors, and enforces the configurable
// shutdown timeout described in §4.6.
package coordinator

import (
	"fmt"
	"time"

	"github.com/csvcolumns/ingest/internal/densestore"
	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
	"github.com/csvcolumns/ingest/sink"
)

// DefaultShutdownTimeout is used when the caller leaves
// Options.ShutdownTimeout at zero.
const DefaultShutdownTimeout = 30 * time.Second

// Options controls the coordinator's scheduling model (§4.6, §5).
type Options struct {
	// Concurrent selects parallel tokenizer/parser goroutines (true) or
	// the single-threaded cooperative loop (false). Per §4.6, correctness
	// must not depend on this flag (P5 "Concurrency equivalence").
	Concurrent      bool
	ShutdownTimeout time.Duration
	Pipeline        densestore.Options
}

func (o Options) withDefaults() Options {
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
	return o
}

// ErrShutdownTimeout wraps the root cause when a worker ignored
// cancellation past the configured deadline (§4.6 "Parser tasks that
// ignore cancellation").
type ErrShutdownTimeout struct {
	Cause   error
	Waited  time.Duration
	Timeout time.Duration
}

func (e *ErrShutdownTimeout) Error() string {
	return fmt.Sprintf("failed to shutdown all threads (after waiting %s): %v", e.Timeout, e.Cause)
}

func (e *ErrShutdownTimeout) Unwrap() error { return e.Cause }

// Coordinator drives one ingest run.
type Coordinator struct {
	opts Options
}

// New constructs a Coordinator.
func New(opts Options) *Coordinator {
	return &Coordinator{opts: opts.withDefaults()}
}

// Run pulls cells from grabber, fans them out to one Inferencer per column,
// and returns the finished columns in declaration order.
func (c *Coordinator) Run(grabber *tokenize.Grabber, columns []infer.ColumnSpec, factory sink.Factory) ([]infer.ColumnResult, error) {
	if len(columns) == 0 {
		return nil, nil
	}
	if c.opts.Concurrent {
		return c.runConcurrent(grabber, columns, factory)
	}
	return c.runSequential(grabber, columns, factory)
}

// drainTokenizer pulls every cell from grabber and calls emit with its
// column index (cycling 0..N-1, reset at each row boundary — the
// CellGrabber has already normalized every row to the same width, so the
// cell's position within its row is exactly its column index).
func drainTokenizer(grabber *tokenize.Grabber, numColumns int, emit func(col int, cell tokenize.Cell, endRow bool) error) error {
	col := 0
	for {
		cell, result, err := grabber.NextCell()
		if err != nil {
			return err
		}
		if result == tokenize.ResultEndOfInput {
			return nil
		}
		endRow := result == tokenize.ResultEndOfRow
		if col >= numColumns {
			// CellGrabber already enforces row width against the
			// declared baseline; this only guards against a caller
			// passing fewer ColumnSpecs than the grabber's baseline.
			return fmt.Errorf("coordinator: row at line %d produced more cells than %d declared columns", cell.Line, numColumns)
		}
		if err := emit(col, cell, endRow); err != nil {
			return err
		}
		if endRow {
			col = 0
		} else {
			col++
		}
	}
}

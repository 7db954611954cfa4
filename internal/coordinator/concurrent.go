package coordinator

import (
	"fmt"
	"sync"
	"time"

	"github.com/csvcolumns/ingest/internal/densestore"
	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
	"github.com/csvcolumns/ingest/sink"
)

// runConcurrent wires one tokenizer goroutine and one parser goroutine per
// column through a densestore.Pipeline (§4.6 "Concurrency mode toggle",
// §5 "Scheduling model").
func (c *Coordinator) runConcurrent(grabber *tokenize.Grabber, columns []infer.ColumnSpec, factory sink.Factory) ([]infer.ColumnResult, error) {
	pipeline, err := densestore.New(len(columns), c.opts.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("coordinator: starting dense storage pipeline: %w", err)
	}
	defer pipeline.Close()

	results := make([]infer.ColumnResult, len(columns))
	errs := make([]error, len(columns))

	var cancelOnce sync.Once
	var rootCause error
	var rootMu sync.Mutex
	cancel := func(cause error) {
		cancelOnce.Do(func() {
			rootMu.Lock()
			rootCause = cause
			rootMu.Unlock()
			pipeline.Abort(cause)
		})
	}

	var wg sync.WaitGroup
	wg.Add(len(columns))
	for i := range columns {
		i := i
		go func() {
			defer wg.Done()
			inf := infer.New(columns[i], factory, pipeline.Reader(i))
			res, rerr := inf.Run()
			if rerr != nil {
				errs[i] = rerr
				cancel(rerr)
				return
			}
			results[i] = res
		}()
	}

	tokErrCh := make(chan error, 1)
	go func() {
		err := drainTokenizer(grabber, len(columns), func(col int, cell tokenize.Cell, endRow bool) error {
			return pipeline.WriteCell(col, cell.Data.Bytes(), cell.Quoted, endRow, cell.Line)
		})
		if err == nil {
			// Only a clean run seals the final block and sends the
			// per-column end sentinels; an aborted run already unblocked
			// every reader with an error sentinel via pipeline.Abort.
			pipeline.Finish()
		} else {
			// Abort immediately so every parser goroutine blocked on
			// <-r.ch gets an error sentinel instead of waiting out the
			// full shutdown timeout for a tokenizer failure (§4.3
			// "Failure semantics", §4.6).
			cancel(err)
		}
		tokErrCh <- err
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.opts.ShutdownTimeout):
		rootMu.Lock()
		cause := rootCause
		rootMu.Unlock()
		if cause == nil {
			cause = fmt.Errorf("coordinator: parser tasks did not complete")
		}
		return nil, &ErrShutdownTimeout{Cause: cause, Timeout: c.opts.ShutdownTimeout}
	}

	if tokErr := <-tokErrCh; tokErr != nil && tokErr != densestore.ErrAborted {
		cancel(tokErr)
	}

	rootMu.Lock()
	cause := rootCause
	rootMu.Unlock()
	if cause != nil {
		return nil, cause
	}
	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return results, nil
}

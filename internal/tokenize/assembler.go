package tokenize

import (
	"fmt"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

// Grabber drives a rowSource (the delimited or fixed-width byte cutter)
// through the shared row-shape rules in §4.1 rules 4-6 and exposes the
// resulting cells through the pull-based NextCell contract described in
// §4.1.
type Grabber struct {
	opts    Options
	src     rowSource
	elision *elisionTracker

	baseline      int // -1 until established
	pending       []Cell
	skippedRows   uint64
	skippedHeader uint64
	headerTaken   bool
	rowsEmitted   uint64
	finished      bool
}

// NewGrabber wraps a rowSource with shared row-shape handling.
func NewGrabber(opts Options, src rowSource) *Grabber {
	opts = opts.withDefaults()
	return &Grabber{
		opts:     opts,
		src:      src,
		elision:  newElisionTracker(opts.ElisionProbeRows),
		baseline: -1,
	}
}

// Header consumes skip_rows and, if a header row is configured, returns its
// cells (used by the caller to derive column names / fixed-width column
// boundaries) without counting it against num_rows. ok is false when no
// header row is configured; in that case the first data row establishes the
// column-count baseline instead, per §4.1 rule 4.
func (g *Grabber) Header() (cells []Cell, ok bool, err error) {
	for g.skippedRows < g.opts.SkipRows {
		_, _, rowOK, rerr := g.src.nextRawRow()
		if rerr != nil {
			return nil, false, rerr
		}
		if !rowOK {
			return nil, false, nil
		}
		g.skippedRows++
	}
	if !g.opts.HasHeaderRow {
		return nil, false, nil
	}
	raw, line, rowOK, err := g.src.nextRawRow()
	if err != nil {
		return nil, false, err
	}
	if !rowOK {
		return nil, false, nil
	}
	g.headerTaken = true
	g.baseline = len(raw)
	out := make([]Cell, len(raw))
	for i, rc := range raw {
		out[i] = Cell{Data: rc.data, Quoted: rc.quoted, Term: rc.term, Line: line}
	}
	return out, true, nil
}

// Elided reports whether the row-shape layer has committed to dropping the
// trailing null column from every row (§4.1 rule 5). Only meaningful once
// the grabber has been fully drained: the elision decision can still change
// up to ElisionProbeRows rows in.
func (g *Grabber) Elided() bool {
	return g.elision.elided()
}

// NextCell implements the CellGrabber pull contract (§4.1).
func (g *Grabber) NextCell() (Cell, Result, error) {
	if len(g.pending) == 0 {
		if g.finished {
			return Cell{}, ResultEndOfInput, nil
		}
		if err := g.fillPending(); err != nil {
			return Cell{}, ResultField, err
		}
		if len(g.pending) == 0 {
			g.finished = true
			return Cell{}, ResultEndOfInput, nil
		}
	}
	c := g.pending[0]
	g.pending = g.pending[1:]
	res := ResultField
	if c.Term == TermRow {
		res = ResultEndOfRow
	}
	return c, res, nil
}

func (g *Grabber) fillPending() error {
	for {
		if !g.opts.Unbounded && g.rowsEmitted >= g.opts.NumRows {
			return g.drainElisionAtLimit()
		}

		raw, line, ok, err := g.src.nextRawRow()
		if err != nil {
			return err
		}
		if !ok {
			return g.flushElisionAtEOF()
		}

		if !g.headerTaken && g.opts.HasHeaderRow {
			// Header wasn't pulled via Header(); establish baseline now
			// so callers that skip Header() still behave sanely.
			g.headerTaken = true
			g.baseline = len(raw)
			continue
		}
		if g.skippedHeader < g.opts.SkipHeaderRows {
			g.skippedHeader++
			continue
		}

		if len(raw) == 0 {
			if g.opts.IgnoreEmptyLines {
				continue
			}
			raw, err = g.nullRow(g.effectiveBaseline(), line)
			if err != nil {
				return err
			}
		}

		if g.baseline < 0 {
			g.baseline = len(raw)
		}

		released, releasedLines, err := g.applyElision(raw, line)
		if err != nil {
			return err
		}
		for i, rel := range released {
			if err := g.emitRow(rel, releasedLines[i]); err != nil {
				return err
			}
		}
		if len(g.pending) > 0 {
			return nil
		}
		// Row was held back pending the elision decision; keep pulling.
	}
}

func (g *Grabber) effectiveBaseline() int {
	if g.baseline < 0 {
		return 0
	}
	return g.baseline
}

// applyElision folds the row into the elision tracker (§4.1 rule 5,
// evaluated before excess-column handling per §9's documented ordering) and
// returns any rows now ready for row-shape normalization and emission.
func (g *Grabber) applyElision(raw []rawCell, line int64) ([][]rawCell, []int64, error) {
	lastIdx := g.effectiveBaseline() - 1
	released, releasedLines, hold, err := g.elision.observe(raw, line, lastIdx)
	if err != nil {
		return nil, nil, err
	}
	if hold {
		return nil, nil, nil
	}
	released = append(released, raw)
	releasedLines = append(releasedLines, line)
	return released, releasedLines, nil
}

func (g *Grabber) flushElisionAtEOF() error {
	released := g.elision.buffered
	releasedLines := g.elision.bufferLine
	g.elision.buffered = nil
	g.elision.bufferLine = nil
	for i, raw := range released {
		if err := g.emitRow(raw, releasedLines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (g *Grabber) drainElisionAtLimit() error {
	// num_rows reached: any rows still pending a final elision verdict
	// are simply dropped, since they fall past the requested window.
	g.elision.buffered = nil
	g.elision.bufferLine = nil
	return nil
}

// nullRow synthesizes a row of null-literal cells, one per column, used for
// an empty physical line when ignore_empty_lines is false (§4.1 rule 6).
func (g *Grabber) nullRow(width int, line int64) ([]rawCell, error) {
	out := make([]rawCell, width)
	for i := 0; i < width; i++ {
		lit, ok := g.nullLiteral(i)
		if !ok {
			return nil, fmt.Errorf("row %d: %w", line, ErrNoNullLiteral)
		}
		term := TermDelimiter
		if i == width-1 {
			term = TermRow
		}
		out[i] = rawCell{data: byteslice.FromBytes(lit), quoted: false, term: term}
	}
	return out, nil
}

func (g *Grabber) nullLiteral(index int) ([]byte, bool) {
	if g.opts.NullLiteralForColumn == nil {
		return nil, false
	}
	return g.opts.NullLiteralForColumn(index)
}

// emitRow applies padding/truncation against the established baseline, then
// drops the elided trailing column if the tracker has committed to
// elision, before appending the row's cells to the pending queue.
func (g *Grabber) emitRow(raw []rawCell, line int64) error {
	if !g.opts.Unbounded && g.rowsEmitted >= g.opts.NumRows {
		// num_rows also caps rows released from the elision probe window.
		return nil
	}
	baseline := g.effectiveBaseline()
	n := len(raw)

	switch {
	case n < baseline:
		if !g.opts.AllowMissingColumns {
			return fmt.Errorf("row %d has too few columns (expected %d): %w", line, baseline, ErrTooFewColumns)
		}
		padded := make([]rawCell, baseline)
		copy(padded, raw)
		for i := n; i < baseline; i++ {
			lit, ok := g.nullLiteral(i)
			if !ok {
				return fmt.Errorf("row %d: %w", line, ErrNoNullLiteral)
			}
			term := TermDelimiter
			if i == baseline-1 {
				term = TermRow
			}
			padded[i] = rawCell{data: byteslice.FromBytes(lit), quoted: false, term: term}
		}
		if n > 0 {
			padded[n-1].term = TermDelimiter
		}
		raw = padded
	case n > baseline:
		if !g.opts.IgnoreExcessColumns {
			return fmt.Errorf("row %d has too many columns (expected %d): %w", line, baseline, ErrTooManyColumns)
		}
		raw = raw[:baseline]
		if baseline > 0 {
			raw[baseline-1].term = TermRow
		}
	}

	if g.elision.elided() && baseline > 0 {
		raw = raw[:baseline-1]
		if len(raw) > 0 {
			raw[len(raw)-1].term = TermRow
		}
	}

	for i, rc := range raw {
		g.pending = append(g.pending, Cell{Data: rc.data, Quoted: rc.quoted, Term: rc.term, Synthesized: i >= n, Line: line})
	}
	g.rowsEmitted++
	return nil
}


package densestore

import (
	"errors"
	"sync"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

// ErrAborted is returned to the writer by WriteCell once the pipeline has
// been told to stop because some reader failed (§4.3 "Failure semantics");
// readers receive the abort cause itself.
var ErrAborted = errors.New("densestore: pipeline aborted")

// Options configures a Pipeline's block sizing and back-pressure bound
// (§3 "DenseStorage Block", §5 "Suspension points").
type Options struct {
	BlockCapacity       int
	LargeCellThreshold  int
	MaxUnobservedBlocks int
	// SpillLargeObjects routes cells at or above LargeCellThreshold to a
	// pgzip-compressed scratch file instead of a pooled in-memory buffer.
	SpillLargeObjects bool
}

func (o Options) withDefaults() Options {
	if o.BlockCapacity <= 0 {
		o.BlockCapacity = DefaultBlockCapacity
	}
	if o.LargeCellThreshold <= 0 {
		o.LargeCellThreshold = DefaultLargeCellThreshold
	}
	if o.MaxUnobservedBlocks <= 0 {
		o.MaxUnobservedBlocks = DefaultMaxUnobservedBlocks
	}
	return o
}

// Pipeline is the single-writer, N-reader ring described in §4.3. One
// Pipeline instance serves exactly one input stream; callers create one
// Reader per declared column before the writer starts producing cells.
type Pipeline struct {
	opts    Options
	columns int

	blockPool *sync.Pool
	largeObjs *largeObjectQueue

	mu         sync.Mutex
	cond       *sync.Cond
	unobserved []int32
	aborted    bool
	abortErr   error
	abortCh    chan struct{}

	channels []chan *batch

	seq        int64
	cur        *blockRef
	curSlot    *pooledBlock
	curLen     int
	curCols    map[int][]Record
	curColOrd  []int
}

// New constructs a Pipeline with one lane per column.
func New(columns int, opts Options) (*Pipeline, error) {
	opts = opts.withDefaults()
	largeObjs, err := newLargeObjectQueue(opts.LargeCellThreshold, opts.SpillLargeObjects)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		opts:       opts,
		columns:    columns,
		unobserved: make([]int32, columns),
		channels:   make([]chan *batch, columns),
		blockPool: &sync.Pool{New: func() any {
			return &pooledBlock{buf: make([]byte, 0, opts.BlockCapacity)}
		}},
		largeObjs: largeObjs,
		abortCh:   make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	for i := range p.channels {
		p.channels[i] = make(chan *batch, opts.MaxUnobservedBlocks)
	}
	return p, nil
}

// Close releases resources held by the large-object spill queue, if any.
func (p *Pipeline) Close() error {
	return p.largeObjs.close()
}

// Reader returns the consumer handle for the given column index. Must be
// called before WriteCell starts producing for that column.
func (p *Pipeline) Reader(col int) *Reader {
	return &Reader{p: p, col: col, ch: p.channels[col]}
}

// Abort broadcasts cause to every lane: the writer observes it at the next
// block boundary and stops; readers still draining a pending batch finish
// it, then receive a RecordError sentinel.
func (p *Pipeline) Abort(cause error) {
	p.mu.Lock()
	if !p.aborted {
		p.aborted = true
		p.abortErr = cause
		close(p.abortCh)
		p.cond.Broadcast()
	}
	p.mu.Unlock()
	for _, ch := range p.channels {
		select {
		case ch <- &batch{records: []Record{{Kind: RecordError, Err: cause}}}:
		default:
			// Lane's buffer is full; the writer's next backpressure check
			// will observe p.aborted and stop before sending more.
		}
	}
}

func (p *Pipeline) isAborted() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted, p.abortErr
}

// ensureCurrent lazily allocates the block currently being filled.
func (p *Pipeline) ensureCurrent() {
	if p.cur != nil {
		return
	}
	slot := p.blockPool.Get().(*pooledBlock)
	buf := slot.buf[:0]
	p.curSlot = slot
	p.cur = &blockRef{buf: buf, pool: p.blockPool, slot: slot}
	p.curLen = 0
	p.curCols = make(map[int][]Record)
	p.curColOrd = p.curColOrd[:0]
}

// WriteCell is the writer's single entry point, called once per cell by the
// tokenizer-driving side of the coordinator. term/endRow mirrors the
// CellGrabber's row-terminator discriminator (§3 Cell).
func (p *Pipeline) WriteCell(col int, data []byte, quoted bool, endRow bool, line int64) error {
	if err := p.waitForCapacity(); err != nil {
		return err
	}
	p.ensureCurrent()

	var view byteslice.ByteSlice
	if len(data) >= p.opts.LargeCellThreshold {
		lref, handle, err := p.largeObjs.store(data)
		if err != nil {
			return err
		}
		if handle.inline {
			view = byteslice.Of(lref.buf, 0, len(lref.buf))
			p.appendRecord(col, Record{Kind: RecordData, View: view, Quoted: quoted, EndRow: endRow, Line: line}, lref)
		} else {
			p.appendRecord(col, Record{Kind: RecordData, Spilled: true, Handle: handle, Quoted: quoted, EndRow: endRow, Line: line}, nil)
		}
	} else {
		start := len(p.cur.buf)
		p.cur.buf = append(p.cur.buf, data...)
		view = byteslice.Of(p.cur.buf, start, len(p.cur.buf))
		p.appendRecord(col, Record{Kind: RecordData, View: view, Quoted: quoted, EndRow: endRow, Line: line}, nil)
	}

	if len(p.cur.buf) >= p.opts.BlockCapacity {
		p.seal()
	}
	return nil
}

// appendRecord buffers a record for col in the block currently being
// filled. largeRef, if non-nil, is an independent one-shot blockRef for an
// oversize cell that bypasses the shared block entirely; it travels with
// the record's batch and is released the same way.
func (p *Pipeline) appendRecord(col int, rec Record, largeRef *blockRef) {
	if largeRef != nil {
		// Large cells get their own single-record batch immediately
		// rather than waiting for the shared block to seal, since
		// nothing else references largeRef's storage.
		p.dispatch(col, []Record{rec}, largeRef)
		return
	}
	if _, ok := p.curCols[col]; !ok {
		p.curColOrd = append(p.curColOrd, col)
	}
	p.curCols[col] = append(p.curCols[col], rec)
}

// seal closes out the block currently being filled, dispatching one batch
// per participating column, and clears p.cur so the next WriteCell call
// allocates a fresh block.
func (p *Pipeline) seal() {
	if p.cur == nil || len(p.curColOrd) == 0 {
		p.cur = nil
		return
	}
	p.cur.ref = int32(len(p.curColOrd))
	for _, col := range p.curColOrd {
		p.dispatch(col, p.curCols[col], p.cur)
	}
	p.cur = nil
}

func (p *Pipeline) dispatch(col int, records []Record, ref *blockRef) {
	p.seq++
	b := &batch{seq: p.seq, ref: ref, records: records}
	p.mu.Lock()
	p.unobserved[col]++
	p.mu.Unlock()
	select {
	case p.channels[col] <- b:
	case <-p.abortCh:
		// The reader for this column may already have exited after
		// observing the abort sentinel, so nothing will ever drain
		// this send. Drop the batch and release its block share.
		p.mu.Lock()
		p.unobserved[col]--
		p.mu.Unlock()
		b.ref.release()
	}
}

// waitForCapacity blocks the writer while any column lane is at the
// back-pressure bound (§3 "Invariant (back-pressure)").
func (p *Pipeline) waitForCapacity() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.aborted {
			return ErrAborted
		}
		max := int32(0)
		for _, u := range p.unobserved {
			if u > max {
				max = u
			}
		}
		if max < int32(p.opts.MaxUnobservedBlocks) {
			return nil
		}
		p.cond.Wait()
	}
}

func (p *Pipeline) ack(col int) {
	p.mu.Lock()
	if p.unobserved[col] > 0 {
		p.unobserved[col]--
	}
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Finish seals any partially filled block and sends an end sentinel to
// every column, signalling EOF (§4.3 "Flushing").
func (p *Pipeline) Finish() {
	p.seal()
	for _, ch := range p.channels {
		select {
		case ch <- &batch{records: []Record{{Kind: RecordEnd}}}:
		case <-p.abortCh:
			// A reader aborted after the tokenizer finished cleanly but
			// before every end sentinel went out; the already-aborted
			// lanes got their RecordError instead and don't need one.
		}
	}
}

// Reader is one column's cursor over the pipeline (§3 "Per-column lane
// state"). Only the owning goroutine may call Next.
type Reader struct {
	p   *Pipeline
	col int
	ch  chan *batch

	cur *batch
	idx int
}

// Next returns the next record for this column, or ok=false once the
// column's end sentinel has been observed.
func (r *Reader) Next() (Record, bool, error) {
	for r.cur == nil || r.idx >= len(r.cur.records) {
		if r.cur != nil {
			r.cur.ref.release()
			r.p.ack(r.col)
		}
		select {
		case r.cur = <-r.ch:
		case <-r.p.abortCh:
			// Abort's own sentinel may not fit a full lane; deliver the
			// cause here so the reader never waits on a silent lane.
			_, cause := r.p.isAborted()
			r.cur = &batch{records: []Record{{Kind: RecordError, Err: cause}}}
		}
		r.idx = 0
	}
	rec := r.cur.records[r.idx]
	r.idx++
	switch rec.Kind {
	case RecordEnd:
		return Record{}, false, nil
	case RecordError:
		return Record{}, false, rec.Err
	}
	if rec.Spilled {
		data, err := r.p.largeObjs.load(rec.Handle)
		if err != nil {
			return Record{}, false, err
		}
		rec.View = byteslice.FromBytes(data)
		rec.Spilled = false
	}
	return rec, true, nil
}

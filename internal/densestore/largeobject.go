package densestore

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/pgzip"
)

// largeObjectQueue owns storage for cells at or above the large-cell
// threshold, kept off the shared block ring to avoid fragmenting it (§3
// "DenseStorage Block"). By default cells are simply held in their own
// pooled buffer. When SpillToDisk is set (for workloads with many huge
// cells, e.g. embedded JSON blobs), a cell's bytes are instead compressed
// with pgzip and written to a scratch file, trading CPU for the resident
// memory a purely in-pool design would hold onto; pgzip's concurrent
// deflate keeps that trade from serializing against the tokenizer.
type largeObjectQueue struct {
	pool        *sync.Pool
	spillToDisk bool
	spillFile   *os.File
	spillW      *pgzip.Writer
	mu          sync.Mutex
}

func newLargeObjectQueue(threshold int, spillToDisk bool) (*largeObjectQueue, error) {
	q := &largeObjectQueue{
		spillToDisk: spillToDisk,
		pool: &sync.Pool{New: func() any {
			return &pooledBlock{buf: make([]byte, 0, threshold*4)}
		}},
	}
	if spillToDisk {
		f, err := os.CreateTemp("", "densestore-spill-*.gz")
		if err != nil {
			return nil, fmt.Errorf("densestore: creating spill file: %w", err)
		}
		w, err := pgzip.NewWriterLevel(f, pgzip.DefaultCompression)
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, fmt.Errorf("densestore: starting spill writer: %w", err)
		}
		q.spillFile = f
		q.spillW = w
	}
	return q, nil
}

// store takes ownership of a large cell's bytes, returning a handle the
// reader later resolves back to the original bytes via load. In
// in-memory mode the handle carries the data directly via ref; in
// spill-to-disk mode it carries a byte-range into the compressed stream
// and the data is reread lazily, decompressing from the start of that
// record's gzip member.
func (q *largeObjectQueue) store(data []byte) (ref *blockRef, handle largeHandle, err error) {
	if !q.spillToDisk {
		slot := q.pool.Get().(*pooledBlock)
		buf := append(slot.buf[:0], data...)
		ref = &blockRef{buf: buf, pool: q.pool, slot: slot, ref: 1}
		return ref, largeHandle{inline: true}, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	offset, err := q.spillFile.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, largeHandle{}, err
	}
	// Each spilled cell is flushed as its own gzip member so it can be
	// decompressed independently of members written before or after it.
	if _, err := q.spillW.Write(data); err != nil {
		return nil, largeHandle{}, fmt.Errorf("densestore: spilling large cell: %w", err)
	}
	if err := q.spillW.Close(); err != nil {
		return nil, largeHandle{}, fmt.Errorf("densestore: closing spill member: %w", err)
	}
	end, err := q.spillFile.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, largeHandle{}, err
	}
	q.spillW.Reset(q.spillFile)
	return nil, largeHandle{offset: offset, length: end - offset, size: len(data)}, nil
}

// load materializes a spilled cell's bytes. Only called in spill-to-disk
// mode; inline handles are resolved directly from their blockRef.
func (q *largeObjectQueue) load(h largeHandle) ([]byte, error) {
	section := io.NewSectionReader(q.spillFile, h.offset, h.length)
	zr, err := pgzip.NewReader(section)
	if err != nil {
		return nil, fmt.Errorf("densestore: reading spilled cell: %w", err)
	}
	defer zr.Close()
	out := make([]byte, h.size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("densestore: decompressing spilled cell: %w", err)
	}
	return out, nil
}

func (q *largeObjectQueue) close() error {
	if !q.spillToDisk {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	werr := q.spillW.Close()
	name := q.spillFile.Name()
	cerr := q.spillFile.Close()
	rerr := os.Remove(name)
	return firstNonNil(werr, cerr, rerr)
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// largeHandle is the bookkeeping carried alongside a Record for a large
// cell whose bytes live in the largeObjectQueue rather than the shared
// block.
type largeHandle struct {
	inline bool
	offset int64
	length int64
	size   int
}

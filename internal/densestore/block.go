// Package densestore implements the bounded, replayable byte pipeline that
// ferries cells from the single tokenizer to one reader goroutine per
// declared column. The pooled-block-plus-refcount design below is adapted
// from the teacher's bufferRef/pooledBuf idiom in tsv_parser.go: a block is
// handed out from a sync.Pool, stamped with a reference count equal to the
// number of distinct columns that hold a record in it, and returned to the
// pool once every one of those columns has advanced past it.
package densestore

import (
	"sync"
	"sync/atomic"

	"github.com/csvcolumns/ingest/internal/byteslice"
)

const (
	// DefaultBlockCapacity is the fixed-capacity byte region size (§3
	// "DenseStorage Block").
	DefaultBlockCapacity = 1 << 20 // 1 MiB
	// DefaultLargeCellThreshold routes cells at or above this size to the
	// large-object queue instead of the inline block, to avoid block
	// fragmentation.
	DefaultLargeCellThreshold = 1 << 10 // 1 KiB
	// DefaultMaxUnobservedBlocks is the back-pressure bound on how far the
	// writer may run ahead of the slowest column reader.
	DefaultMaxUnobservedBlocks = 16
)

// RecordKind distinguishes a data record from the sentinels readers use to
// detect end-of-input or a broadcast error.
type RecordKind uint8

const (
	RecordData RecordKind = iota
	RecordEnd
	RecordError
)

// Record is one cell as delivered to a single column's reader.
type Record struct {
	Kind   RecordKind
	View   byteslice.ByteSlice
	Quoted bool
	EndRow bool // true when this record closes its row (§3 Cell "trailing-row-terminator" discriminator)
	Line   int64
	Err    error

	// Spilled is true when this record's bytes live in the
	// largeObjectQueue's spill file rather than in View; the reader must
	// resolve Handle via Pipeline.loadSpilled before using the cell.
	Spilled bool
	Handle  largeHandle
}

// pooledBlock is the value recycled through a sync.Pool, mirroring the
// teacher's pooledBuf.
type pooledBlock struct {
	buf []byte
}

// blockRef is a reference-counted handle on one block's backing array,
// shared by every column-batch sliced out of it. Release mirrors
// bufferRef.release in tsv_parser.go: the last releaser returns the slot to
// the pool.
type blockRef struct {
	buf  []byte
	pool *sync.Pool
	slot *pooledBlock
	ref  int32
}

func (b *blockRef) release() {
	if b == nil {
		return
	}
	if atomic.AddInt32(&b.ref, -1) == 0 {
		b.slot.buf = b.buf[:cap(b.buf)]
		b.pool.Put(b.slot)
	}
}

// batch is the unit handed to one column's channel: every record in it is
// a view into ref's backing array (or, for large cells, an independently
// owned slice with its own one-shot ref).
type batch struct {
	seq     int64
	ref     *blockRef
	records []Record
}

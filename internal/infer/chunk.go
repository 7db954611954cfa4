package infer

import "github.com/csvcolumns/ingest/sink"

// DefaultChunkRows is the fixed-size staging-buffer capacity from §3
// "Chunk".
const DefaultChunkRows = 65536

// chunkWriter batches parsed values into a sink.Chunk and flushes to the
// Sink once it fills, so the Sink sees row-monotonic, contiguous batches
// rather than one call per cell (§5 "Chunk flushes to a Sink occur in
// row-monotonic order").
type chunkWriter struct {
	s        sink.Sink
	chunk    sink.Chunk
	capacity int
	kind     ParserKind
}

func newChunkWriter(s sink.Sink, kind ParserKind, capacity int) *chunkWriter {
	if capacity <= 0 {
		capacity = DefaultChunkRows
	}
	return &chunkWriter{s: s, capacity: capacity, kind: kind}
}

func (w *chunkWriter) putInt64(v int64, isNull bool) error {
	w.chunk.Int64s = append(w.chunk.Int64s, v)
	w.chunk.IsNull = append(w.chunk.IsNull, isNull)
	return w.flushIfFull()
}

func (w *chunkWriter) putFloat64(v float64, isNull bool) error {
	w.chunk.Float64s = append(w.chunk.Float64s, v)
	w.chunk.IsNull = append(w.chunk.IsNull, isNull)
	return w.flushIfFull()
}

func (w *chunkWriter) putString(v string, isNull bool) error {
	w.chunk.Strings = append(w.chunk.Strings, v)
	w.chunk.IsNull = append(w.chunk.IsNull, isNull)
	return w.flushIfFull()
}

func (w *chunkWriter) putBool(v bool, isNull bool) error {
	w.chunk.Bools = append(w.chunk.Bools, v)
	w.chunk.IsNull = append(w.chunk.IsNull, isNull)
	return w.flushIfFull()
}

func (w *chunkWriter) flushIfFull() error {
	if w.chunk.Len() < w.capacity {
		return nil
	}
	return w.flush()
}

func (w *chunkWriter) flush() error {
	if w.chunk.Len() == 0 {
		return nil
	}
	if err := w.s.Append(&w.chunk); err != nil {
		return err
	}
	w.chunk.Reset()
	return nil
}

// pendingRows reports how many rows are staged in the chunk and not yet
// flushed to the Sink.
func (w *chunkWriter) pendingRows() int {
	return w.chunk.Len()
}

package coordinator

import (
	"github.com/csvcolumns/ingest/internal/byteslice"
	"github.com/csvcolumns/ingest/internal/densestore"
	"github.com/csvcolumns/ingest/internal/infer"
	"github.com/csvcolumns/ingest/internal/tokenize"
	"github.com/csvcolumns/ingest/sink"
)

// runSequential implements the concurrent=false scheduling model (§4.6): the
// whole input is tokenized first into per-column slices held in memory, then
// each column is inferred one at a time on the calling goroutine. There is
// no bounded back-pressure in this mode — P6's bound is a concurrent-mode
// guarantee only — but P5 "Concurrency equivalence" still holds: the same
// cells reach the same Inferencer state machine in the same order.
func (c *Coordinator) runSequential(grabber *tokenize.Grabber, columns []infer.ColumnSpec, factory sink.Factory) ([]infer.ColumnResult, error) {
	buffers := make([]*sliceReader, len(columns))
	for i := range buffers {
		buffers[i] = &sliceReader{}
	}

	err := drainTokenizer(grabber, len(columns), func(col int, cell tokenize.Cell, endRow bool) error {
		buffers[col].append(cell.Data.Bytes(), cell.Quoted, endRow, cell.Line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, b := range buffers {
		b.close()
	}

	results := make([]infer.ColumnResult, len(columns))
	for i := range columns {
		inf := infer.New(columns[i], factory, buffers[i])
		res, err := inf.Run()
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// sliceReader is an unbounded, single-pass-then-replayable densestore.Record
// source backed by an in-memory slice, used in place of a Pipeline.Reader
// when the coordinator runs in single-threaded mode. Every cell's bytes are
// copied out of the tokenizer's reused buffer at append time, since nothing
// pins the original block alive the way a densestore batch does.
type sliceReader struct {
	records []densestore.Record
	idx     int
	ended   bool
}

func (s *sliceReader) append(data []byte, quoted bool, endRow bool, line int64) {
	owned := append([]byte(nil), data...)
	s.records = append(s.records, densestore.Record{
		Kind:   densestore.RecordData,
		View:   byteslice.FromBytes(owned),
		Quoted: quoted,
		EndRow: endRow,
		Line:   line,
	})
}

func (s *sliceReader) close() {
	s.records = append(s.records, densestore.Record{Kind: densestore.RecordEnd})
}

// Next implements infer.Reader.
func (s *sliceReader) Next() (densestore.Record, bool, error) {
	if s.idx >= len(s.records) {
		return densestore.Record{}, false, nil
	}
	rec := s.records[s.idx]
	s.idx++
	switch rec.Kind {
	case densestore.RecordEnd:
		return densestore.Record{}, false, nil
	case densestore.RecordError:
		return densestore.Record{}, false, rec.Err
	}
	return rec, true, nil
}

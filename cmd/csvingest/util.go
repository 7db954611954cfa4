package main

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// readCloser pairs an arbitrary reader with a close func, mirroring
// boldkit/cmd/util.go's readCloser wrapper for a gzip-decorated file.
type readCloser struct {
	reader io.Reader
	close  func() error
}

func (r readCloser) Read(p []byte) (int, error) { return r.reader.Read(p) }
func (r readCloser) Close() error                { return r.close() }

// openInput opens path, transparently decompressing a .gz suffix with
// pgzip instead of the teacher's compress/gzip, so a large BOLD-sized
// .csv.gz/.tsv.gz input decompresses on multiple cores in step with the
// ingest engine's own per-column concurrency.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return readCloser{
			reader: gz,
			close: func() error {
				_ = gz.Close()
				return f.Close()
			},
		}, nil
	}
	return f, nil
}

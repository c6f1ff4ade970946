package export

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compress returns a writer that zstd-compresses into w. Close flushes the
// frame but does not close w.
func Compress(w io.Writer) (io.WriteCloser, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("export: zstd writer: %w", err)
	}
	return zw, nil
}

// Decompress returns a reader of the zstd stream r.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("export: zstd reader: %w", err)
	}
	return zr.IOReadCloser(), nil
}

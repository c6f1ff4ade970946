// Package export reads and writes frames as CSV, XLSX, Arrow IPC, PDF and
// SQL tables, optionally zstd-compressed.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"petrovisor/pkg/frame"
)

// Format is a frame file format.
type Format string

const (
	CSV   Format = "csv"
	XLSX  Format = "xlsx"
	Arrow Format = "arrow"
	PDF   Format = "pdf"
)

// ErrUnsupported is returned for formats or operations that are not available.
var ErrUnsupported = errors.New("export: unsupported format")

// compressedExt marks zstd-compressed files.
const compressedExt = ".zst"

// ByExtension returns the format of path and whether it is compressed,
// e.g. "data.csv.zst" is compressed CSV.
func ByExtension(path string) (Format, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	compressed := ext == compressedExt
	if compressed {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	switch ext {
	case ".csv", ".txt":
		return CSV, compressed, nil
	case ".xlsx":
		return XLSX, compressed, nil
	case ".arrow", ".ipc", ".arrows":
		return Arrow, compressed, nil
	case ".pdf":
		return PDF, compressed, nil
	}
	return "", false, fmt.Errorf("%w: %q", ErrUnsupported, path)
}

// Write encodes f in format fm.
func Write(w io.Writer, f *frame.Frame, fm Format) error {
	switch fm {
	case CSV:
		return WriteCSV(w, f)
	case XLSX:
		return WriteXLSX(w, f, "")
	case Arrow:
		return WriteArrow(w, f)
	case PDF:
		return WritePDF(w, f, "")
	}
	return fmt.Errorf("%w: %q", ErrUnsupported, fm)
}

// Read decodes a frame in format fm. PDF cannot be read.
func Read(r io.Reader, fm Format) (*frame.Frame, error) {
	switch fm {
	case CSV:
		return ReadCSV(r)
	case XLSX:
		return ReadXLSX(r, "")
	case Arrow:
		return ReadArrow(r)
	}
	return nil, fmt.Errorf("%w: reading %q", ErrUnsupported, fm)
}

// WriteFile writes f to path in the format its extension names.
func WriteFile(path string, f *frame.Frame) (err error) {
	fm, compressed, err := ByExtension(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	if !compressed {
		return Write(file, f, fm)
	}
	zw, err := Compress(file)
	if err != nil {
		return err
	}
	if err := Write(zw, f, fm); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// ReadFile reads a frame from path in the format its extension names.
func ReadFile(path string) (*frame.Frame, error) {
	fm, compressed, err := ByExtension(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", path, err)
	}
	defer file.Close()
	if !compressed {
		return Read(file, fm)
	}
	zr, err := Decompress(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return Read(zr, fm)
}

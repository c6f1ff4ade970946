package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"petrovisor/pkg/frame"
)

// WriteCSV writes the header and rows of f. Missing values are empty cells.
func WriteCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("export: csv: %w", err)
	}
	rec := make([]string, f.Width())
	for i := 0; i < f.Len(); i++ {
		for j, v := range f.Row(i) {
			rec[j] = frame.ToString(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a frame whose first record is the header. Column kinds are
// inferred from the values.
func ReadCSV(r io.Reader) (*frame.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("export: csv: %w", err)
	}
	if len(records) == 0 {
		return frame.New(), nil
	}
	f, err := frame.FromStrings(records[0], records[1:])
	if err != nil {
		return nil, fmt.Errorf("export: csv: %w", err)
	}
	f.InferKinds()
	return f, nil
}

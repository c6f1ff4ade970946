package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"petrovisor/pkg/frame"
)

// DefaultSheet names the worksheet written when none is given.
const DefaultSheet = "Data"

// WriteXLSX writes f to one worksheet. Times are written as text in the
// service layout so they read back unchanged.
func WriteXLSX(w io.Writer, f *frame.Frame, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}
	x := excelize.NewFile()
	defer x.Close()
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: xlsx: %w", err)
	}

	header := make([]any, f.Width())
	for i, n := range f.Names() {
		header[i] = n
	}
	if err := x.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: xlsx: %w", err)
	}
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		for j, v := range row {
			row[j] = xlsxValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: xlsx: %w", err)
		}
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: xlsx: row %d: %w", i, err)
		}
	}
	if err := x.Write(w); err != nil {
		return fmt.Errorf("export: xlsx: %w", err)
	}
	return nil
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case time.Time:
		return frame.FormatTime(x)
	}
	return v
}

// ReadXLSX reads a worksheet whose first row is the header. An empty sheet
// name reads the first sheet. Column kinds are inferred from the values.
func ReadXLSX(r io.Reader, sheet string) (*frame.Frame, error) {
	x, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("export: xlsx: %w", err)
	}
	defer x.Close()
	if sheet == "" {
		sheet = x.GetSheetName(0)
	}
	rows, err := x.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("export: xlsx: %w", err)
	}
	if len(rows) == 0 {
		return frame.New(), nil
	}
	// GetRows trims trailing empty cells, so rows may be short.
	f, err := frame.FromStrings(rows[0], rows[1:])
	if err != nil {
		return nil, fmt.Errorf("export: xlsx: %w", err)
	}
	f.InferKinds()
	return f, nil
}

package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"petrovisor/internal/format"
	"petrovisor/pkg/frame"
)

// MaxPDFColumnChars truncates wide cells in PDF reports.
var MaxPDFColumnChars = 24

// WritePDF renders f as a landscape A4 table report. Columns share the
// page width equally; rows continue on new pages with a repeated header.
func WritePDF(w io.Writer, f *frame.Frame, title string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)

	names := f.Names()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := pageW - left - right
	if len(names) > 0 {
		colW /= float64(len(names))
	}

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		for _, n := range names {
			pdf.CellFormat(colW, 6, format.Truncate(n, MaxPDFColumnChars), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})

	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(10)
	}
	header()
	cols := f.Columns()
	for i := 0; i < f.Len(); i++ {
		for _, c := range cols {
			align := "L"
			if c.Kind == frame.Numeric {
				align = "R"
			}
			pdf.CellFormat(colW, 5, format.Truncate(format.Cell(c.Values[i]), MaxPDFColumnChars), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "I", 7)
	pdf.Cell(0, 6, fmt.Sprintf("%d rows", f.Len()))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: pdf: %w", err)
	}
	return nil
}

package format

import (
	"fmt"
	"slices"

	"petrovisor/pkg/frame"
	"petrovisor/pkg/petrovisor"
)

// maxCellWidth bounds text cells in ASCII tables.
const maxCellWidth = 60

// RenderFrame renders up to maxRows rows of f; maxRows <= 0 renders all.
// Truncated output carries a footer with the total row count.
func RenderFrame(f *frame.Frame, m Mode, maxRows int) string {
	tb := NewTable(m)
	names := f.Names()
	tb.Header(names...)
	n := f.Len()
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		tb.Row(f.Row(i)...)
	}
	if n < f.Len() {
		footer := make([]any, len(names))
		footer[0] = fmt.Sprintf("%d of %d rows", n, f.Len())
		tb.Footer(footer...)
	}
	if m == ASCII {
		cfgs := make([]ColumnConfig, 0, len(names))
		for i, c := range f.Columns() {
			cfg := ColumnConfig{Number: i + 1, MaxWidth: maxCellWidth}
			if c.Kind == frame.Numeric {
				cfg.Align = AlignRight
			}
			cfgs = append(cfgs, cfg)
		}
		tb.Columns(cfgs...)
	}
	return tb.String()
}

// RenderList renders names as a one-column table under header.
func RenderList(header string, names []string, m Mode) string {
	tb := NewTable(m)
	tb.Header(header)
	for _, n := range names {
		tb.Row(n)
	}
	return tb.String()
}

// RenderItems renders the listed fields of each item; a missing field is
// an empty cell.
func RenderItems(items []petrovisor.Item, fields []string, m Mode) string {
	tb := NewTable(m)
	tb.Header(fields...)
	for _, it := range items {
		row := make([]any, len(fields))
		for i, f := range fields {
			row[i], _ = it.Field(f)
		}
		tb.Row(row...)
	}
	return tb.String()
}

// RenderMap renders a key/value table with keys in sorted order.
func RenderMap[V any](keyHeader, valueHeader string, values map[string]V, m Mode) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	tb := NewTable(m)
	tb.Header(keyHeader, valueHeader)
	for _, k := range keys {
		tb.Row(k, values[k])
	}
	return tb.String()
}

package frame

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
)

// Column is a named, typed sequence of values. A nil value is missing.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Frame is an ordered set of equally sized columns.
type Frame struct {
	cols []*Column
	// synthetic names the row-ordering column introduced by ToWide.
	synthetic string
}

// New returns an empty frame with generic columns of the given names.
func New(names ...string) *Frame {
	f := &Frame{}
	for _, n := range names {
		f.cols = append(f.cols, &Column{Name: n})
	}
	return f
}

// FromRows builds a frame from a header and row-major values.
// Short rows are padded with missing values; long rows are an error.
func FromRows(names []string, rows [][]any) (*Frame, error) {
	f := New(names...)
	for i, r := range rows {
		if len(r) > len(names) {
			return nil, fmt.Errorf("frame: row %d has %d values, header has %d", i, len(r), len(names))
		}
		padded := make([]any, len(names))
		copy(padded, r)
		if err := f.AppendRow(padded...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromStrings builds a frame from a header and rows of text cells.
// Empty cells become missing values.
func FromStrings(names []string, rows [][]string) (*Frame, error) {
	conv := make([][]any, len(rows))
	for i, r := range rows {
		conv[i] = make([]any, len(r))
		for j, s := range r {
			if s != "" {
				conv[i][j] = s
			}
		}
	}
	return FromRows(names, conv)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil || len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0].Values)
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	if f == nil {
		return 0
	}
	return len(f.cols)
}

// Empty reports whether the frame holds no rows.
func (f *Frame) Empty() bool { return f.Len() == 0 }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is shared with the frame.
func (f *Frame) Columns() []*Column {
	if f == nil {
		return nil
	}
	return f.cols
}

// Index returns the position of the named column or -1.
func (f *Frame) Index(name string) int {
	if f == nil {
		return -1
	}
	for i, c := range f.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool { return f.Index(name) >= 0 }

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i := f.Index(name)
	if i < 0 {
		return nil, false
	}
	return f.cols[i], true
}

// AddColumn appends a column. Its length must match the frame unless the
// frame has no columns yet.
func (f *Frame) AddColumn(name string, kind Kind, values []any) error {
	if f.Has(name) {
		return fmt.Errorf("frame: duplicate column %q", name)
	}
	if len(f.cols) > 0 && len(values) != f.Len() {
		return fmt.Errorf("frame: column %q has %d values, frame has %d rows", name, len(values), f.Len())
	}
	f.cols = append(f.cols, &Column{Name: name, Kind: kind, Values: values})
	return nil
}

// InsertColumn places a column at position i.
func (f *Frame) InsertColumn(i int, name string, kind Kind, values []any) error {
	if err := f.AddColumn(name, kind, values); err != nil {
		return err
	}
	c := f.cols[len(f.cols)-1]
	f.cols = slices.Delete(f.cols, len(f.cols)-1, len(f.cols))
	i = max(0, min(i, len(f.cols)))
	f.cols = slices.Insert(f.cols, i, c)
	return nil
}

// AppendRow appends one value per column.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.cols) {
		return fmt.Errorf("frame: row has %d values, frame has %d columns", len(values), len(f.cols))
	}
	for i, c := range f.cols {
		c.Values = append(c.Values, values[i])
	}
	return nil
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.cols))
	for j, c := range f.cols {
		row[j] = c.Values[i]
	}
	return row
}

// Rows returns all rows in row-major order.
func (f *Frame) Rows() [][]any {
	rows := make([][]any, f.Len())
	for i := range rows {
		rows[i] = f.Row(i)
	}
	return rows
}

// Value returns the value at row i of the named column, or nil.
func (f *Frame) Value(i int, name string) any {
	c, ok := f.Column(name)
	if !ok || i < 0 || i >= len(c.Values) {
		return nil
	}
	return c.Values[i]
}

// Clone returns a deep copy of the column structure. Values are shared
// by identity, which is safe for the scalar types a frame stores.
func (f *Frame) Clone() *Frame {
	out := &Frame{synthetic: f.synthetic}
	for _, c := range f.cols {
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind, Values: slices.Clone(c.Values)})
	}
	return out
}

// Select returns a frame with the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{}
	for _, n := range names {
		c, ok := f.Column(n)
		if !ok {
			return nil, fmt.Errorf("frame: unknown column %q", n)
		}
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind, Values: slices.Clone(c.Values)})
	}
	return out, nil
}

// Drop removes the named columns if present.
func (f *Frame) Drop(names ...string) {
	f.cols = slices.DeleteFunc(f.cols, func(c *Column) bool {
		return slices.Contains(names, c.Name)
	})
}

// Rename renames columns according to the mapping.
func (f *Frame) Rename(mapping map[string]string) {
	for _, c := range f.cols {
		if n, ok := mapping[c.Name]; ok {
			c.Name = n
		}
	}
}

// Slice returns rows [start, end) as a new frame.
func (f *Frame) Slice(start, end int) *Frame {
	start = max(0, start)
	end = min(end, f.Len())
	out := &Frame{}
	for _, c := range f.cols {
		var vals []any
		if start < end {
			vals = slices.Clone(c.Values[start:end])
		}
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind, Values: vals})
	}
	return out
}

// Chunks splits the frame into consecutive frames of at most size rows.
// A non-positive size yields the frame itself.
func (f *Frame) Chunks(size int) []*Frame {
	if size <= 0 || f.Len() <= size {
		return []*Frame{f}
	}
	var out []*Frame
	for start := 0; start < f.Len(); start += size {
		out = append(out, f.Slice(start, start+size))
	}
	return out
}

// Filter keeps rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	out := &Frame{synthetic: f.synthetic}
	for _, c := range f.cols {
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind})
	}
	for i := 0; i < f.Len(); i++ {
		if !keep(i) {
			continue
		}
		for j, c := range f.cols {
			out.cols[j].Values = append(out.cols[j].Values, c.Values[i])
		}
	}
	return out
}

// DropEmptyRows removes rows whose values are all missing, ignoring the
// excluded columns.
func (f *Frame) DropEmptyRows(exclude ...string) *Frame {
	return f.Filter(func(i int) bool {
		for _, c := range f.cols {
			if slices.Contains(exclude, c.Name) {
				continue
			}
			if !IsMissing(c.Values[i]) {
				return true
			}
		}
		return false
	})
}

// GroupBy splits the frame by the textual value of the named column.
// Keys are returned in order of first appearance.
func (f *Frame) GroupBy(name string) ([]string, map[string]*Frame) {
	groups := map[string]*Frame{}
	var keys []string
	c, ok := f.Column(name)
	if !ok {
		return nil, groups
	}
	rows := map[string][]int{}
	for i, v := range c.Values {
		k := ToString(v)
		if _, seen := rows[k]; !seen {
			keys = append(keys, k)
		}
		rows[k] = append(rows[k], i)
	}
	for _, k := range keys {
		idx := rows[k]
		pos := 0
		groups[k] = f.Filter(func(i int) bool {
			if pos < len(idx) && idx[pos] == i {
				pos++
				return true
			}
			return false
		})
	}
	return keys, groups
}

// SortBy stably orders rows by the named columns. Missing values sort first.
func (f *Frame) SortBy(names ...string) {
	var keyCols []*Column
	for _, n := range names {
		if c, ok := f.Column(n); ok {
			keyCols = append(keyCols, c)
		}
	}
	if len(keyCols) == 0 {
		return
	}
	perm := make([]int, f.Len())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		for _, c := range keyCols {
			if r := Compare(c.Values[perm[a]], c.Values[perm[b]]); r != 0 {
				return r < 0
			}
		}
		return false
	})
	for _, c := range f.cols {
		vals := make([]any, len(c.Values))
		for i, p := range perm {
			vals[i] = c.Values[p]
		}
		c.Values = vals
	}
}

// Equal reports whether both frames have the same columns, kinds and values.
func (f *Frame) Equal(o *Frame) bool {
	if f.Width() != o.Width() || f.Len() != o.Len() {
		return false
	}
	for i, c := range f.cols {
		oc := o.cols[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for j := range c.Values {
			if Compare(c.Values[j], oc.Values[j]) != 0 {
				return false
			}
		}
	}
	return true
}

// String renders the frame as tab-separated text.
func (f *Frame) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(f.Names(), "\t"))
	for i := 0; i < f.Len(); i++ {
		b.WriteByte('\n')
		for j, c := range f.cols {
			if j > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(ToString(c.Values[i]))
		}
	}
	return b.String()
}

// IsMissing reports whether v is nil or a NaN float.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// Compare orders two cell values. Missing values sort first; values of
// different types compare by their text form.
func Compare(a, b any) int {
	am, bm := IsMissing(a), IsMissing(b)
	switch {
	case am && bm:
		return 0
	case am:
		return -1
	case bm:
		return 1
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	}
	if x, ok := ToFloat(a); ok {
		if y, ok := ToFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(ToString(a), ToString(b))
}

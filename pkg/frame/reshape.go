package frame

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// IndexColumn is the base name of the synthetic row-ordering column.
const IndexColumn = "index"

// IsLong reports whether f carries a dedicated Entity column.
func IsLong(f *Frame) bool { return f.Has(ColEntity) }

// IsWide reports whether any column is entity-qualified.
func IsWide(f *Frame) bool { return len(Entities(f.Names())) > 0 }

// ToWide converts a long frame into wide form with one column per
// entity and value column, labelled "<entity> : <column>".
//
// Rows are keyed by the index columns (Date and Depth when present, unless
// indices is given). When no index column exists, rows are keyed by their
// source row number and that key is kept as a synthetic "index" column,
// which ToLong orders by and removes again.
func ToWide(f *Frame, indices ...string) (*Frame, error) {
	ent, ok := f.Column(ColEntity)
	if !ok {
		return f.Clone(), nil
	}
	if len(indices) == 0 {
		for _, n := range []string{ColDate, ColDepth} {
			if f.Has(n) {
				indices = append(indices, n)
			}
		}
	}
	var keyCols []*Column
	for _, n := range indices {
		if n == ColEntity {
			continue
		}
		c, ok := f.Column(n)
		if !ok {
			return nil, fmt.Errorf("frame: unknown index column %q", n)
		}
		keyCols = append(keyCols, c)
	}
	var valueCols []*Column
	for _, c := range f.cols {
		if c.Name == ColEntity || slices.ContainsFunc(keyCols, func(k *Column) bool { return k == c }) {
			continue
		}
		valueCols = append(valueCols, c)
	}

	var entities []string
	var keys []string
	keyRow := map[string]int{}
	type cellKey struct {
		row    int
		entity string
	}
	cells := map[cellKey]int{}
	var synthetic []any

	for i := 0; i < f.Len(); i++ {
		e := ToString(ent.Values[i])
		if !slices.Contains(entities, e) {
			entities = append(entities, e)
		}
		var k string
		if len(keyCols) == 0 {
			k = strconv.Itoa(i)
		} else {
			parts := make([]string, len(keyCols))
			for j, c := range keyCols {
				parts[j] = ToString(c.Values[i])
			}
			k = strings.Join(parts, "\x1f")
		}
		r, seen := keyRow[k]
		if !seen {
			r = len(keys)
			keyRow[k] = r
			keys = append(keys, k)
			if len(keyCols) == 0 {
				synthetic = append(synthetic, float64(i))
			}
		}
		cells[cellKey{r, e}] = i
	}

	out := &Frame{}
	if len(keyCols) == 0 {
		out.synthetic = uniqueName(f, IndexColumn)
		if err := out.AddColumn(out.synthetic, Numeric, synthetic); err != nil {
			return nil, err
		}
	}
	firstRow := make([]int, len(keys))
	for r := range firstRow {
		firstRow[r] = -1
	}
	for ck, i := range cells {
		if firstRow[ck.row] < 0 || i < firstRow[ck.row] {
			firstRow[ck.row] = i
		}
	}
	for _, kc := range keyCols {
		vals := make([]any, len(keys))
		for r, i := range firstRow {
			vals[r] = kc.Values[i]
		}
		if err := out.AddColumn(kc.Name, kc.Kind, vals); err != nil {
			return nil, err
		}
	}
	for _, e := range entities {
		for _, vc := range valueCols {
			vals := make([]any, len(keys))
			for r := range keys {
				if i, ok := cells[cellKey{r, e}]; ok {
					vals[r] = vc.Values[i]
				}
			}
			if err := out.AddColumn(JoinEntity(e, vc.Name), vc.Kind, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// ToLong converts a wide frame back into long form with an Entity column.
// Unqualified columns are carried to every entity row. An entity row whose
// qualified values are all missing is omitted. Rows are ordered by the
// synthetic row-ordering column introduced by ToWide, which is removed.
func ToLong(f *Frame) (*Frame, error) {
	names := f.Names()
	entities := Entities(names)
	if len(entities) == 0 {
		return f.Clone(), nil
	}
	var shared []*Column
	var order *Column
	var valueNames []string
	type slot struct{ entity, column string }
	qualified := map[slot]*Column{}
	for _, c := range f.cols {
		e, col, ok := SplitEntity(c.Name)
		if !ok || e == "" {
			if f.synthetic != "" && c.Name == f.synthetic {
				order = c
			} else {
				shared = append(shared, c)
			}
			continue
		}
		if !slices.Contains(valueNames, col) {
			valueNames = append(valueNames, col)
		}
		qualified[slot{e, col}] = c
	}

	out := &Frame{}
	if err := out.AddColumn(ColEntity, String, nil); err != nil {
		return nil, err
	}
	for _, c := range shared {
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind})
	}
	for _, n := range valueNames {
		var kind Kind
		for _, e := range entities {
			if c, ok := qualified[slot{e, n}]; ok {
				kind = c.Kind
				break
			}
		}
		out.cols = append(out.cols, &Column{Name: n, Kind: kind})
	}

	rows := make([]int, f.Len())
	for i := range rows {
		rows[i] = i
	}
	if order != nil {
		slices.SortStableFunc(rows, func(a, b int) int {
			x, _ := ToFloat(order.Values[a])
			y, _ := ToFloat(order.Values[b])
			return cmp.Compare(x, y)
		})
	}
	for _, i := range rows {
		for _, e := range entities {
			row := make([]any, 0, out.Width())
			row = append(row, e)
			for _, c := range shared {
				row = append(row, c.Values[i])
			}
			present := false
			for _, n := range valueNames {
				var v any
				if c, ok := qualified[slot{e, n}]; ok {
					v = c.Values[i]
				}
				if !IsMissing(v) {
					present = true
				}
				row = append(row, v)
			}
			if !present {
				continue
			}
			if err := out.AppendRow(row...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

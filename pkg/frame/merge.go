package frame

import "slices"

// Concat stacks frames vertically. The result has the union of columns in
// order of first appearance; cells a frame lacks are missing.
func Concat(frames ...*Frame) *Frame {
	out := &Frame{}
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, c := range f.cols {
			if !out.Has(c.Name) {
				out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind, Values: make([]any, out.Len())})
			}
		}
		n := f.Len()
		for _, oc := range out.cols {
			if c, ok := f.Column(oc.Name); ok {
				oc.Values = append(oc.Values, c.Values...)
			} else {
				oc.Values = append(oc.Values, make([]any, n)...)
			}
		}
	}
	return out
}

// OuterMerge joins two frames on the named key column. Each left row is
// combined with every right row sharing its key; unmatched rows from
// either side are kept with missing values for the other side's columns.
// Columns present on both sides other than the key take the left value,
// falling back to the right value when the left one is missing.
func OuterMerge(left, right *Frame, on string) *Frame {
	switch {
	case left.Width() == 0 && right.Width() == 0:
		return &Frame{}
	case left.Width() == 0:
		return right.Clone()
	case right.Width() == 0:
		return left.Clone()
	}
	out := &Frame{}
	for _, c := range left.cols {
		out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind})
	}
	for _, c := range right.cols {
		if !out.Has(c.Name) {
			out.cols = append(out.cols, &Column{Name: c.Name, Kind: c.Kind})
		}
	}

	rightRows := map[string][]int{}
	lk, _ := left.Column(on)
	rk, _ := right.Column(on)
	if rk != nil {
		for i, v := range rk.Values {
			k := ToString(v)
			rightRows[k] = append(rightRows[k], i)
		}
	}
	matched := map[int]bool{}
	emit := func(li, ri int) {
		row := make([]any, out.Width())
		for j, oc := range out.cols {
			var v any
			if li >= 0 {
				v = left.Value(li, oc.Name)
			}
			if IsMissing(v) && ri >= 0 {
				v = right.Value(ri, oc.Name)
			}
			row[j] = v
		}
		_ = out.AppendRow(row...)
	}
	for i := 0; i < left.Len(); i++ {
		var rs []int
		if lk != nil {
			rs = rightRows[ToString(lk.Values[i])]
		}
		if len(rs) == 0 {
			emit(i, -1)
			continue
		}
		for _, r := range rs {
			matched[r] = true
			emit(i, r)
		}
	}
	for r := 0; r < right.Len(); r++ {
		if !matched[r] {
			emit(-1, r)
		}
	}
	return out
}

// MergeAxes combines frames pivoted per axis group into one table keyed
// by Entity. Time and depth rows are stacked, never crossed, with Depth
// placed right after Date. Static values are merged on Entity, which
// broadcasts them to every row of the entity.
func MergeAxes(timeF, depthF, staticF *Frame) *Frame {
	base := Concat(timeF, depthF)
	if base.Width() > 0 {
		var order []string
		for _, n := range []string{ColEntity, ColDate, ColDepth} {
			if base.Has(n) {
				order = append(order, n)
			}
		}
		for _, n := range base.Names() {
			if !slices.Contains(order, n) {
				order = append(order, n)
			}
		}
		base, _ = base.Select(order...)
	}
	if staticF == nil || staticF.Width() == 0 {
		return base
	}
	return OuterMerge(base, staticF, ColEntity)
}

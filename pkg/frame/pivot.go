package frame

import (
	"slices"
	"sort"
	"time"
)

// Point is one record of a series. Date and Depth are optional axes; a
// point with neither is a static value.
type Point struct {
	Date  *time.Time
	Depth *float64
	Value any
}

// Series holds the records of one result column for one entity.
type Series struct {
	Entity string
	Name   string
	Unit   string
	Kind   Kind
	Points []Point
}

// Label returns the pivoted column label "<name> [<unit>]".
func (s Series) Label() string { return JoinUnit(s.Name, s.Unit) }

type pivotKey struct {
	entity   string
	hasDate  bool
	date     int64
	hasDepth bool
	depth    float64
}

// Pivot aligns series into one analysis table with columns
// [Entity, Date?, Depth?, <name [unit]>...].
//
// Date is present iff any point carries a date, and likewise for Depth.
// Rows are produced only for (entity, date, depth) combinations that some
// point carries; dates and depths are never crossed. A point carrying both
// axes yields a paired row. Static points are broadcast to every row of
// their entity, and an entity with only static points gets one row with
// empty axes. Cells are coerced to their series kind, so a missing string
// is "" and an unparseable number is missing. Rows without any value are
// dropped.
//
// Column order follows order when given, then first appearance.
func Pivot(series []Series, order ...string) *Frame {
	var labels []string
	kinds := map[string]Kind{}
	for _, l := range order {
		if !slices.Contains(labels, l) {
			labels = append(labels, l)
		}
	}
	var entities []string
	hasDate, hasDepth := false, false
	for _, s := range series {
		l := s.Label()
		if !slices.Contains(labels, l) {
			labels = append(labels, l)
		}
		if _, ok := kinds[l]; !ok || kinds[l] == Generic {
			kinds[l] = s.Kind
		}
		if !slices.Contains(entities, s.Entity) {
			entities = append(entities, s.Entity)
		}
		for _, p := range s.Points {
			hasDate = hasDate || p.Date != nil
			hasDepth = hasDepth || p.Depth != nil
		}
	}

	rows := map[pivotKey]map[string]any{}
	static := map[string]map[string]any{}
	dates := map[int64]time.Time{}
	for _, s := range series {
		l := s.Label()
		for _, p := range s.Points {
			if p.Date == nil && p.Depth == nil {
				if static[s.Entity] == nil {
					static[s.Entity] = map[string]any{}
				}
				static[s.Entity][l] = p.Value
				continue
			}
			k := pivotKey{entity: s.Entity}
			if p.Date != nil {
				k.hasDate = true
				k.date = p.Date.UnixNano()
				dates[k.date] = *p.Date
			}
			if p.Depth != nil {
				k.hasDepth = true
				k.depth = *p.Depth
			}
			if rows[k] == nil {
				rows[k] = map[string]any{}
			}
			rows[k][l] = p.Value
		}
	}
	for e := range static {
		hasRows := false
		for k := range rows {
			if k.entity == e {
				hasRows = true
				break
			}
		}
		if !hasRows {
			rows[pivotKey{entity: e}] = map[string]any{}
		}
	}

	keys := make([]pivotKey, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	rank := map[string]int{}
	for i, e := range entities {
		rank[e] = i
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka.entity != kb.entity {
			return rank[ka.entity] < rank[kb.entity]
		}
		if ka.hasDate != kb.hasDate {
			return !ka.hasDate
		}
		if ka.date != kb.date {
			return ka.date < kb.date
		}
		if ka.hasDepth != kb.hasDepth {
			return !ka.hasDepth
		}
		return ka.depth < kb.depth
	})

	out := &Frame{}
	out.cols = append(out.cols, &Column{Name: ColEntity, Kind: String})
	if hasDate {
		out.cols = append(out.cols, &Column{Name: ColDate, Kind: Time})
	}
	if hasDepth {
		out.cols = append(out.cols, &Column{Name: ColDepth, Kind: Numeric})
	}
	for _, l := range labels {
		out.cols = append(out.cols, &Column{Name: l, Kind: kinds[l]})
	}
	for _, k := range keys {
		row := make([]any, 0, out.Width())
		row = append(row, k.entity)
		if hasDate {
			if k.hasDate {
				row = append(row, dates[k.date])
			} else {
				row = append(row, nil)
			}
		}
		if hasDepth {
			if k.hasDepth {
				row = append(row, k.depth)
			} else {
				row = append(row, nil)
			}
		}
		present := false
		for _, l := range labels {
			v, ok := rows[k][l]
			if !ok {
				v = static[k.entity][l]
			}
			cell := v
			if k := kinds[l]; k != Generic {
				cell = CoerceValue(v, k)
			}
			if !IsMissing(v) && !IsMissing(cell) {
				present = true
			}
			row = append(row, cell)
		}
		if !present {
			continue
		}
		_ = out.AppendRow(row...)
	}
	return out
}

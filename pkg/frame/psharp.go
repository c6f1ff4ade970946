package frame

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Table is a decoded P# table payload: either a *TextTable or a *ResultTable.
type Table interface {
	// Frame converts the table into an analysis frame.
	Frame(opts TableOptions) (*Frame, error)
	isTable()
}

// TableOptions controls the frame a Table produces.
type TableOptions struct {
	// Wide labels columns "<entity> : <column>" instead of using an
	// Entity column.
	Wide bool
}

// TextTable is the list-of-lines payload: the first line is the
// tab-separated header, every further line one tab-separated row.
type TextTable struct {
	Header []string
	Rows   [][]string
}

// ResultTable is the structured payload keyed by TableName and ResultsOrder.
type ResultTable struct {
	Name   string
	Order  []string
	Series []Series
}

func (*TextTable) isTable()   {}
func (*ResultTable) isTable() {}

type dataPoint struct {
	Date  *string  `json:"Date"`
	Depth *float64 `json:"Depth"`
	Value any      `json:"Value"`
}

// unitName accepts either a plain unit name or a unit object with a Name.
type unitName string

func (u *unitName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*u = unitName(s)
		return nil
	}
	var obj struct {
		Name string `json:"Name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*u = unitName(obj.Name)
	return nil
}

type shortColumn struct {
	EntityName string      `json:"EntityName"`
	ResultName string      `json:"ResultName"`
	UnitName   unitName    `json:"UnitName"`
	Data       []dataPoint `json:"Data"`
}

type fullColumn struct {
	Entity string `json:"Entity"`
	Result struct {
		Name string `json:"Name"`
	} `json:"Result"`
	Unit unitName    `json:"Unit"`
	Data []dataPoint `json:"Data"`
}

var (
	shortFields = []string{"Columns", "ColumnsDepth", "ColumnsString", "ColumnsTime", "ColumnsBool"}
	fullFields  = []string{"Data", "DataDepth", "DataString", "DataTime", "DataBool"}
)

func fieldKind(field string) Kind {
	switch {
	case strings.HasSuffix(field, "String"):
		return String
	case strings.HasSuffix(field, "Time"):
		return Time
	case strings.HasSuffix(field, "Bool"):
		return Bool
	}
	return Numeric
}

// DecodeTable decodes a P# table payload into its concrete shape.
// A JSON null decodes to a nil Table.
func DecodeTable(raw []byte) (Table, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var lines []string
		if err := json.Unmarshal(raw, &lines); err != nil {
			return nil, formatErr("P# table", "list payload must contain text lines: %v", err)
		}
		return decodeText(lines), nil
	case '{':
		return decodeResult(raw)
	}
	return nil, formatErr("P# table", "unknown payload starting with %q", raw[0])
}

func decodeText(lines []string) *TextTable {
	t := &TextTable{}
	if len(lines) == 0 {
		return t
	}
	t.Header = strings.Split(lines[0], "\t")
	for _, l := range lines[1:] {
		t.Rows = append(t.Rows, strings.Split(l, "\t"))
	}
	return t
}

func decodeResult(raw []byte) (*ResultTable, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, formatErr("P# table", "invalid object payload: %v", err)
	}
	nameRaw, hasName := obj["TableName"]
	orderRaw, hasOrder := obj["ResultsOrder"]
	if !hasName || !hasOrder {
		return nil, formatErr("P# table", "object payload lacks TableName or ResultsOrder")
	}
	t := &ResultTable{}
	if err := json.Unmarshal(nameRaw, &t.Name); err != nil {
		return nil, formatErr("P# table", "TableName: %v", err)
	}
	if err := json.Unmarshal(orderRaw, &t.Order); err != nil {
		return nil, formatErr("P# table", "ResultsOrder: %v", err)
	}

	nonEmpty := func(fields []string) []string {
		var out []string
		for _, f := range fields {
			if v, ok := obj[f]; ok && !isEmptyJSON(v) {
				out = append(out, f)
			}
		}
		return out
	}
	if fields := nonEmpty(shortFields); len(fields) > 0 {
		for _, f := range fields {
			var cols []shortColumn
			if err := json.Unmarshal(obj[f], &cols); err != nil {
				return nil, formatErr("P# table", "%s: %v", f, err)
			}
			for _, c := range cols {
				s, err := toSeries(c.EntityName, c.ResultName, string(c.UnitName), fieldKind(f), c.Data)
				if err != nil {
					return nil, err
				}
				t.Series = append(t.Series, s)
			}
		}
		return t, nil
	}
	for _, f := range nonEmpty(fullFields) {
		var cols []fullColumn
		if err := json.Unmarshal(obj[f], &cols); err != nil {
			return nil, formatErr("P# table", "%s: %v", f, err)
		}
		for _, c := range cols {
			s, err := toSeries(c.Entity, c.Result.Name, string(c.Unit), fieldKind(f), c.Data)
			if err != nil {
				return nil, err
			}
			t.Series = append(t.Series, s)
		}
	}
	return t, nil
}

func isEmptyJSON(v json.RawMessage) bool {
	switch string(bytes.TrimSpace(v)) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}

func toSeries(entity, name, unit string, kind Kind, data []dataPoint) (Series, error) {
	s := Series{Entity: entity, Name: name, Unit: unit, Kind: kind}
	for _, d := range data {
		p := Point{Value: CoerceValue(d.Value, kind), Depth: d.Depth}
		if d.Date != nil && *d.Date != "" {
			t, err := ParseTime(*d.Date)
			if err != nil {
				return Series{}, formatErr("P# table", "column %q: %v", name, err)
			}
			p.Date = &t
		}
		s.Points = append(s.Points, p)
	}
	return s, nil
}

// Frame builds a frame from the text rows. Standard columns get their
// standard kinds; other columns become Numeric when every non-empty cell
// parses as a number and String otherwise.
func (t *TextTable) Frame(opts TableOptions) (*Frame, error) {
	f, err := FromStrings(t.Header, t.Rows)
	if err != nil {
		return nil, formatErr("P# table", "%v", err)
	}
	f.InferKinds()
	return orient(f, opts)
}

// Frame pivots the result series. Columns follow ResultsOrder.
func (t *ResultTable) Frame(opts TableOptions) (*Frame, error) {
	// The first unit seen for a result names its column.
	units := map[string]string{}
	for _, s := range t.Series {
		if _, ok := units[s.Name]; !ok {
			units[s.Name] = s.Unit
		}
	}
	var order []string
	for _, n := range t.Order {
		if u, ok := units[n]; ok {
			order = append(order, JoinUnit(n, u))
		}
	}
	series := make([]Series, len(t.Series))
	for i, s := range t.Series {
		s.Unit = units[s.Name]
		series[i] = s
	}
	return orient(Pivot(series, order...), opts)
}

func orient(f *Frame, opts TableOptions) (*Frame, error) {
	switch {
	case opts.Wide && IsLong(f):
		return ToWide(f)
	case !opts.Wide && !IsLong(f) && IsWide(f):
		return ToLong(f)
	}
	return f, nil
}

// PivotTableFrame converts a pivot-table payload whose first row is the
// header. Every column is numeric except Date and Time (time), Entity,
// Alias and Type (string) and IsOpportunity (boolean).
func PivotTableFrame(data [][]any) (*Frame, error) {
	if len(data) == 0 {
		return &Frame{}, nil
	}
	header := make([]string, len(data[0]))
	for i, h := range data[0] {
		s, ok := h.(string)
		if !ok {
			return nil, formatErr("pivot table", "header cell %d is not text", i)
		}
		header[i] = s
	}
	f, err := FromRows(header, data[1:])
	if err != nil {
		return nil, formatErr("pivot table", "%v", err)
	}
	f.Coerce(nil, Numeric)
	return f, nil
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

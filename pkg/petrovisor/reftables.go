package petrovisor

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"petrovisor/pkg/frame"
)

const (
	refTableDataRoute = "RefTables"
	refTableKey       = "Key"
	refTableTimestamp = "Timestamp"
)

// date columns recognized when inferring a definition, by preference
var refTableDateColumns = []string{refTableTimestamp, frame.ColDate, frame.ColTime}

// RefTableColumn describes one column of a reference table.
type RefTableColumn struct {
	Name       string             `json:"Name"`
	Unit       string             `json:"UnitName"`
	ColumnType RefTableColumnType `json:"ColumnType"`
}

// Label returns the frame column label "<name> [<unit>]", or the bare name
// for a blank unit.
func (c RefTableColumn) Label() string {
	if strings.TrimSpace(c.Unit) == "" {
		return c.Name
	}
	return frame.JoinUnit(c.Name, c.Unit)
}

// RefTable is a reference table definition.
type RefTable struct {
	Name        string           `json:"Name"`
	Description string           `json:"Description"`
	Key         RefTableColumn   `json:"Key"`
	Values      []RefTableColumn `json:"Values"`
}

// RefTableScope groups reference table operations.
type RefTableScope struct {
	c *Client
}

// RefTables returns the reference table operations.
func (c *Client) RefTables() *RefTableScope { return &RefTableScope{c: c} }

func (s *RefTableScope) items() *ItemTypeScope { return s.c.Items(ItemReferenceTable) }

// Names returns the names of all reference tables.
func (s *RefTableScope) Names(ctx context.Context) ([]string, error) {
	return s.items().Names(ctx)
}

// Info returns the definition of the named table.
func (s *RefTableScope) Info(ctx context.Context, name string) (*RefTable, error) {
	var t *RefTable
	if err := s.items().GetInto(ctx, name, &t); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("reference table %q: %w", name, ErrNotFound)
	}
	return t, nil
}

// RefTableOptions control how a frame is stored in a reference table.
type RefTableOptions struct {
	Description string
	// KeyColumn defaults to "Key".
	KeyColumn string
	// DateColumn defaults to the first of Timestamp, Date and Time present.
	DateColumn string
	// EntityColumn defaults to "Entity".
	EntityColumn string
	// SkipExisting keeps rows with the same entity, timestamp and key.
	SkipExisting bool
	// ChunkSize bounds the rows per save request; 0 sends one request.
	ChunkSize int
}

func (o RefTableOptions) keyColumn() string {
	if o.KeyColumn == "" {
		return refTableKey
	}
	return o.KeyColumn
}

func (o RefTableOptions) entityColumn() string {
	if o.EntityColumn == "" {
		return frame.ColEntity
	}
	return o.EntityColumn
}

// findColumn returns the frame column whose name, with or without unit,
// matches one of the candidates in order.
func findColumn(f *frame.Frame, candidates ...string) string {
	for _, c := range candidates {
		for _, n := range f.Names() {
			if n == c || frame.BaseName(n) == c {
				return n
			}
		}
	}
	return ""
}

func (o RefTableOptions) dateColumn(f *frame.Frame) string {
	if o.DateColumn != "" {
		return findColumn(f, o.DateColumn)
	}
	return findColumn(f, refTableDateColumns...)
}

// Definition infers a reference table definition from a frame. Column
// types follow the column kinds; units come from "[unit]" suffixes.
func (o RefTableOptions) Definition(name string, f *frame.Frame) (*RefTable, error) {
	key := findColumn(f, o.keyColumn())
	if key == "" {
		return nil, fmt.Errorf("reftables.add: %w: key column %q not found", frame.ErrDataFormat, o.keyColumn())
	}
	reserved := []string{"ID", frame.ColEntity, refTableTimestamp, key, findColumn(f, o.entityColumn()), o.dateColumn(f)}
	t := &RefTable{Name: name, Description: o.Description, Key: refTableColumn(f, key)}
	for _, n := range f.Names() {
		if n == "" || slices.Contains(reserved, n) || slices.Contains(reserved, frame.BaseName(n)) {
			continue
		}
		t.Values = append(t.Values, refTableColumn(f, n))
	}
	return t, nil
}

func refTableColumn(f *frame.Frame, label string) RefTableColumn {
	col, _ := f.Column(label)
	unit := frame.Unit(label)
	if unit == "" {
		unit = " "
	}
	return RefTableColumn{Name: frame.BaseName(label), Unit: unit, ColumnType: refTableColumnType(col)}
}

func refTableColumnType(c *frame.Column) RefTableColumnType {
	switch c.Kind {
	case frame.Bool:
		return RefTableBool
	case frame.Numeric:
		return RefTableNumeric
	case frame.Time:
		return RefTableDateTime
	case frame.String:
		return RefTableString
	}
	for _, v := range c.Values {
		if frame.IsMissing(v) {
			continue
		}
		switch v.(type) {
		case bool:
			return RefTableBool
		case time.Time:
			return RefTableDateTime
		case string:
			return RefTableString
		}
	}
	return RefTableNumeric
}

// Add creates the table from the frame's columns unless it exists, waits
// until it is listed and saves the frame's rows.
func (s *RefTableScope) Add(ctx context.Context, name string, f *frame.Frame, opts RefTableOptions) error {
	exists, err := s.items().Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		def, err := opts.Definition(name, f)
		if err != nil {
			return err
		}
		if err := s.items().Add(ctx, def); err != nil {
			return err
		}
	}
	if f.Empty() {
		return nil
	}
	if err := s.items().WaitExists(ctx, name); err != nil {
		return err
	}
	return s.SaveData(ctx, name, f, opts)
}

// RefTableFilter selects reference table rows. Empty fields match all rows.
type RefTableFilter struct {
	Entities []string
	Start    *time.Time
	End      *time.Time
	// Where is an SQL-like WHERE expression.
	Where string
	// Options are merged into the request body.
	Options map[string]any
}

func (f RefTableFilter) body() map[string]any {
	body := map[string]any{}
	for k, v := range f.Options {
		body[k] = v
	}
	switch len(f.Entities) {
	case 0:
	case 1:
		body["Entity"] = f.Entities[0]
	default:
		body["Entities"] = f.Entities
	}
	switch {
	case f.Start != nil && f.End != nil:
		body["StartTimestamp"] = frame.FormatTime(*f.Start)
		body["EndTimestamp"] = frame.FormatTime(*f.End)
	case f.Start != nil:
		body["Timestamp"] = frame.FormatTime(*f.Start)
	case f.End != nil:
		body["Timestamp"] = frame.FormatTime(*f.End)
	}
	if f.Where != "" {
		body["WhereExpression"] = f.Where
	}
	return body
}

// LoadData loads the rows of the named table matching filter as a frame
// with columns Entity, Date, "<key> [<unit>]" and one column per value.
func (s *RefTableScope) LoadData(ctx context.Context, name string, filter RefTableFilter) (*frame.Frame, error) {
	var rows [][]any
	if err := s.c.post(ctx, "reftables.load", refTableDataRoute+"/"+name+"/Data", nil, filter.body(), &rows); err != nil {
		return nil, err
	}
	info, err := s.Info(ctx, name)
	if err != nil {
		return nil, err
	}
	names := []string{frame.ColEntity, frame.ColDate, info.Key.Label()}
	kinds := map[string]frame.Kind{frame.ColEntity: frame.String, frame.ColDate: frame.Time, info.Key.Label(): info.Key.ColumnType.Kind()}
	for _, v := range info.Values {
		names = append(names, v.Label())
		kinds[v.Label()] = v.ColumnType.Kind()
	}
	for i, r := range rows {
		if len(r) != len(names) {
			return nil, fmt.Errorf("reftables.load: %w: row %d has %d values for %d columns", frame.ErrDataFormat, i, len(r), len(names))
		}
	}
	f, err := frame.FromRows(names, rows)
	if err != nil {
		return nil, err
	}
	f.Coerce(kinds, frame.Generic)
	return f, nil
}

// SaveData writes the frame's rows to the named table. Columns are matched
// to the definition by name; numeric columns labelled with another unit of
// the same measurement are converted to the definition's unit first.
func (s *RefTableScope) SaveData(ctx context.Context, name string, f *frame.Frame, opts RefTableOptions) error {
	if f.Empty() {
		return nil
	}
	info, err := s.Info(ctx, name)
	if err != nil {
		return err
	}
	ordered, err := s.align(ctx, info, f, opts)
	if err != nil {
		return err
	}
	chunks := ordered.Chunks(opts.ChunkSize)
	q := url.Values{"skipExistingData": {strconv.FormatBool(opts.SkipExisting)}}
	for i, chunk := range chunks {
		s.c.logger.DebugContext(ctx, "saving reference table rows", "table", name, "chunk", i+1, "of", len(chunks), "rows", chunk.Len())
		if err := s.c.put(ctx, "reftables.save", refTableDataRoute+"/"+name+"/Data/String", q, stringRows(chunk), nil); err != nil {
			return err
		}
	}
	return nil
}

// align orders the frame's columns as Entity, Timestamp, Key, values and
// converts units to the definition's.
func (s *RefTableScope) align(ctx context.Context, info *RefTable, f *frame.Frame, opts RefTableOptions) (*frame.Frame, error) {
	out := frame.New()
	add := func(label, target string, kind frame.Kind) error {
		if label == "" {
			return out.AddColumn(target, kind, make([]any, f.Len()))
		}
		col, _ := f.Column(label)
		return out.AddColumn(target, kind, slices.Clone(col.Values))
	}
	if err := add(findColumn(f, opts.entityColumn(), frame.ColEntity), frame.ColEntity, frame.String); err != nil {
		return nil, err
	}
	if err := add(opts.dateColumn(f), refTableTimestamp, frame.Time); err != nil {
		return nil, err
	}
	key := findColumn(f, opts.keyColumn(), info.Key.Name)
	if key == "" {
		return nil, fmt.Errorf("reftables.save: %w: key column %q not found", frame.ErrDataFormat, info.Key.Name)
	}
	if err := add(key, info.Key.Label(), info.Key.ColumnType.Kind()); err != nil {
		return nil, err
	}
	for _, def := range info.Values {
		label := findColumn(f, def.Name)
		if err := add(label, def.Label(), def.ColumnType.Kind()); err != nil {
			return nil, err
		}
		if label == "" || def.ColumnType != RefTableNumeric {
			continue
		}
		if err := s.convertColumn(ctx, out, def, frame.Unit(label)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *RefTableScope) convertColumn(ctx context.Context, f *frame.Frame, def RefTableColumn, from string) error {
	to := def.Unit
	if from == "" || from == to || to == "" || to == " " {
		return nil
	}
	col, _ := f.Column(def.Label())
	var idx []int
	var xs []float64
	for i, v := range col.Values {
		if x, ok := frame.ToFloat(v); ok && !frame.IsMissing(x) {
			idx = append(idx, i)
			xs = append(xs, x)
		}
	}
	converted, err := s.c.Units().ConvertValues(ctx, xs, from, to)
	if err != nil {
		return fmt.Errorf("reftables.save: convert %s from %s to %s: %w", def.Name, from, to, err)
	}
	if len(converted) != len(xs) {
		return fmt.Errorf("reftables.save: convert %s: got %d values for %d", def.Name, len(converted), len(xs))
	}
	for j, i := range idx {
		col.Values[i] = converted[j]
	}
	return nil
}

// stringRows renders rows as text; missing values stay null.
func stringRows(f *frame.Frame) [][]*string {
	out := make([][]*string, 0, f.Len())
	for _, row := range f.Rows() {
		r := make([]*string, len(row))
		for j, v := range row {
			if frame.IsMissing(v) {
				continue
			}
			var s string
			if t, ok := v.(time.Time); ok {
				s = frame.FormatTime(t)
			} else {
				s = frame.ToString(v)
			}
			r[j] = &s
		}
		out = append(out, r)
	}
	return out
}

// DeleteData removes the rows of the named table. With a time bound only
// rows within the range are removed; a single bound is a single instant.
func (s *RefTableScope) DeleteData(ctx context.Context, name string, start, end *time.Time) error {
	p := refTableDataRoute + "/" + name + "/Data"
	if start == nil && end == nil {
		return s.c.delete(ctx, "reftables.delete_data", p, nil, nil)
	}
	if start == nil {
		start = end
	}
	if end == nil {
		end = start
	}
	q := url.Values{
		"TimestampStart":         {frame.FormatTime(*start)},
		"TimestampEnd":           {frame.FormatTime(*end)},
		"IncludeWithNoTimestamp": {"false"},
	}
	return s.c.delete(ctx, "reftables.delete_data", p+"/Timestamp", q, nil)
}

// Delete removes the named table and waits until it is no longer listed.
// A missing table is not an error.
func (s *RefTableScope) Delete(ctx context.Context, name string) error {
	exists, err := s.items().Exists(ctx, name)
	if err != nil || !exists {
		return err
	}
	if err := s.c.delete(ctx, "reftables.delete", refTableDataRoute+"/"+name, nil, nil); err != nil {
		return err
	}
	return s.items().WaitGone(ctx, name)
}

package petrovisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"petrovisor/pkg/frame"
)

const workspaceValueRoute = "ConfigurationSettings"

// Enumeration is an enumeration workspace value: names mapped to ids.
type Enumeration map[string]int

// EnumerationOf numbers names from 0 in order.
func EnumerationOf(names ...string) Enumeration {
	e := make(Enumeration, len(names))
	for i, n := range names {
		e[n] = i
	}
	return e
}

// WorkspaceValue is a named configuration value of a workspace.
//
// Value holds a float64 for numeric types, a string, a []string for
// lists, a map[string]string for dictionaries or an Enumeration.
type WorkspaceValue struct {
	Name        string
	Description string
	Type        WorkspaceValueType
	Value       any
	// Unit is set for NumericWithUnit values.
	Unit string
}

// NewWorkspaceValue infers the value type from value. Numbers with a unit
// become NumericWithUnit values.
func NewWorkspaceValue(name string, value any, unit, description string) (*WorkspaceValue, error) {
	if name == "" {
		return nil, fmt.Errorf("workspace value: name is required")
	}
	v := &WorkspaceValue{Name: name, Description: description}
	switch x := value.(type) {
	case Enumeration:
		v.Type, v.Value = WorkspaceEnumeration, x
	case string:
		v.Type, v.Value = WorkspaceString, x
	case []string:
		v.Type, v.Value = WorkspaceList, slices.Clone(x)
	case []any:
		list := make([]string, len(x))
		for i, e := range x {
			list[i] = frame.ToString(e)
		}
		v.Type, v.Value = WorkspaceList, list
	case map[string]string:
		v.Type, v.Value = WorkspaceDictionary, x
	case map[string]any:
		dict := make(map[string]string, len(x))
		for k, e := range x {
			dict[k] = frame.ToString(e)
		}
		v.Type, v.Value = WorkspaceDictionary, dict
	default:
		f, ok := frame.ToFloat(value)
		if !ok {
			return nil, fmt.Errorf("workspace value %q: unsupported value type %T", name, value)
		}
		v.Type, v.Value = WorkspaceNumeric, f
		if unit != "" {
			v.Type, v.Unit = WorkspaceNumericWithUnit, unit
		}
	}
	return v, nil
}

// valueField names the JSON field carrying the value of type t.
func valueField(t WorkspaceValueType) string {
	if t == WorkspaceNumericWithUnit {
		return "NumericValue"
	}
	return t.String() + "Value"
}

func (v WorkspaceValue) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"Name":        v.Name,
		"Description": v.Description,
		"ValueType":   v.Type,
	}
	out[valueField(v.Type)] = v.Value
	if v.Unit != "" {
		out["UnitName"] = v.Unit
	}
	return json.Marshal(out)
}

func (v *WorkspaceValue) UnmarshalJSON(b []byte) error {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	var w WorkspaceValue
	for field, dst := range map[string]any{"Name": &w.Name, "Description": &w.Description, "ValueType": &w.Type, "UnitName": &w.Unit} {
		if raw, ok := in[field]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("workspace value %s: %w", field, err)
			}
		}
	}
	raw, ok := in[valueField(w.Type)]
	if ok && string(raw) != "null" {
		var err error
		switch w.Type {
		case WorkspaceNumeric, WorkspaceNumericWithUnit:
			w.Value, err = decodeAs[float64](raw)
		case WorkspaceString:
			w.Value, err = decodeAs[string](raw)
		case WorkspaceList:
			w.Value, err = decodeAs[[]string](raw)
		case WorkspaceDictionary:
			w.Value, err = decodeAs[map[string]string](raw)
		case WorkspaceEnumeration:
			w.Value, err = decodeAs[Enumeration](raw)
		}
		if err != nil {
			return fmt.Errorf("workspace value %q: %w", w.Name, err)
		}
	}
	*v = w
	return nil
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// WorkspaceValueScope groups workspace value operations.
type WorkspaceValueScope struct {
	c *Client
}

// WorkspaceValues returns the workspace value operations.
func (c *Client) WorkspaceValues() *WorkspaceValueScope { return &WorkspaceValueScope{c: c} }

// Names returns the names of all workspace values.
func (s *WorkspaceValueScope) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.c.get(ctx, "workspacevalues.names", workspaceValueRoute, nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// All returns the workspace values by name, only those of a value type
// when typ is not empty.
func (s *WorkspaceValueScope) All(ctx context.Context, typ string) (map[string]*WorkspaceValue, error) {
	p := workspaceValueRoute + "/All"
	if typ != "" {
		t, err := ParseWorkspaceValueType(typ)
		if err != nil {
			return nil, err
		}
		p = workspaceValueRoute + "/" + t.String() + "/" + workspaceValueRoute
	}
	var values []*WorkspaceValue
	if err := s.c.get(ctx, "workspacevalues.all", p, nil, &values); err != nil {
		return nil, err
	}
	out := make(map[string]*WorkspaceValue, len(values))
	for _, v := range values {
		if v != nil {
			out[v.Name] = v
		}
	}
	return out, nil
}

// Get returns the named workspace value.
func (s *WorkspaceValueScope) Get(ctx context.Context, name string) (*WorkspaceValue, error) {
	var v *WorkspaceValue
	if err := s.c.get(ctx, "workspacevalues.get", workspaceValueRoute+"/"+name, nil, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Add creates the value, or replaces it when one of that name exists.
func (s *WorkspaceValueScope) Add(ctx context.Context, v *WorkspaceValue) error {
	names, err := s.Names(ctx)
	if err != nil {
		return err
	}
	if slices.Contains(names, v.Name) {
		return s.c.put(ctx, "workspacevalues.edit", workspaceValueRoute+"/"+v.Name, nil, v, nil)
	}
	return s.c.post(ctx, "workspacevalues.add", workspaceValueRoute, nil, v, nil)
}

// Rename renames a workspace value.
func (s *WorkspaceValueScope) Rename(ctx context.Context, oldName, newName string) error {
	q := url.Values{"OldName": {oldName}, "NewName": {newName}}
	return s.c.post(ctx, "workspacevalues.rename", workspaceValueRoute+"/Rename", q, nil, nil)
}

// Delete removes the named workspace value.
func (s *WorkspaceValueScope) Delete(ctx context.Context, name string) error {
	return s.c.delete(ctx, "workspacevalues.delete", workspaceValueRoute+"/"+name, nil, nil)
}

// SaveTableToDatabase writes the frame's rows as records to a database
// table of the workspace, replacing the table when deleteExisting is set.
func (c *Client) SaveTableToDatabase(ctx context.Context, name string, f *frame.Frame, deleteExisting bool) error {
	records := make([]map[string]any, f.Len())
	cols := f.Columns()
	for i := range records {
		rec := make(map[string]any, len(cols))
		for _, col := range cols {
			rec[col.Name] = frame.JSONValue(col.Values[i], col.Kind)
		}
		records[i] = rec
	}
	q := url.Values{"DeleteExisting": {strconv.FormatBool(deleteExisting)}, "TableName": {name}}
	return c.post(ctx, "configuration.save_table", "Configuration/SaveDataTable", q, records, nil)
}

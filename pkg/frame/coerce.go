package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a column.
type Kind int

const (
	Generic Kind = iota
	Numeric
	Time
	String
	Bool
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "Numeric"
	case Time:
		return "Time"
	case String:
		return "String"
	case Bool:
		return "Bool"
	default:
		return "Generic"
	}
}

// ParseKind maps a type name such as "numeric", "datetime" or "bool" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "double", "int", "integer":
		return Numeric, nil
	case "time", "date", "datetime", "timestamp":
		return Time, nil
	case "string", "str", "text":
		return String, nil
	case "bool", "boolean":
		return Bool, nil
	case "", "generic", "object", "unknown":
		return Generic, nil
	}
	return Generic, fmt.Errorf("frame: unknown column kind %q", s)
}

// TimeLayout is the wire format for timestamps.
const TimeLayout = "2006-01-02T15:04:05.000000"

var parseLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses the date formats the service emits.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("frame: cannot parse time %q", s)
}

// FormatTime formats t in TimeLayout.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }

func isBlank(v any) bool {
	if IsMissing(v) {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// ToFloat converts numbers, numeric strings and booleans to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ToTime converts time values and parseable strings.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, true
	case string:
		t, err := ParseTime(x)
		return t, err == nil
	}
	return time.Time{}, false
}

// ToBool converts booleans, numbers and "true"/"false" strings.
func ToBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	if f, ok := ToFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

// ToString renders a cell value as text. Missing values render as "".
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return FormatTime(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// CoerceValue converts v to the representation of kind k. Values that
// cannot be converted become missing; missing strings become "".
func CoerceValue(v any, k Kind) any {
	switch k {
	case Numeric:
		if isBlank(v) {
			return nil
		}
		if f, ok := ToFloat(v); ok {
			return f
		}
		return nil
	case Time:
		if isBlank(v) {
			return nil
		}
		if t, ok := ToTime(v); ok {
			return t
		}
		return nil
	case String:
		return ToString(v)
	case Bool:
		if isBlank(v) {
			return nil
		}
		if b, ok := ToBool(v); ok {
			return b
		}
		return nil
	}
	if isBlank(v) {
		return nil
	}
	return v
}

// DefaultKind returns the kind implied by a standard column name.
func DefaultKind(name string) (Kind, bool) {
	switch name {
	case ColDate, ColTime:
		return Time, true
	case ColEntity, ColAlias, ColType:
		return String, true
	case ColIsOpportunity:
		return Bool, true
	case ColDepth:
		return Numeric, true
	}
	return Generic, false
}

// Coerce converts every column in place. A column's kind is looked up in
// kinds by full label, then by base name, then by standard name, and
// otherwise falls back to fallback.
func (f *Frame) Coerce(kinds map[string]Kind, fallback Kind) {
	for _, c := range f.cols {
		k, ok := kinds[c.Name]
		if !ok {
			k, ok = kinds[BaseName(c.Name)]
		}
		if !ok {
			k, ok = DefaultKind(c.Name)
		}
		if !ok {
			k = fallback
		}
		f.CoerceColumn(c.Name, k)
	}
}

// InferKinds converts every generic column: standard names get their
// implied kind, columns whose values all parse as numbers become Numeric and
// the rest become String.
func (f *Frame) InferKinds() {
	for _, c := range f.cols {
		if c.Kind != Generic {
			continue
		}
		if k, ok := DefaultKind(c.Name); ok {
			f.CoerceColumn(c.Name, k)
			continue
		}
		f.CoerceColumn(c.Name, inferKind(c.Values))
	}
}

func inferKind(values []any) Kind {
	for _, v := range values {
		if isBlank(v) {
			continue
		}
		if _, ok := ToFloat(v); !ok {
			return String
		}
	}
	return Numeric
}

// CoerceColumn converts the named column to kind k.
func (f *Frame) CoerceColumn(name string, k Kind) {
	c, ok := f.Column(name)
	if !ok {
		return
	}
	for i, v := range c.Values {
		c.Values[i] = CoerceValue(v, k)
	}
	c.Kind = k
}

// JSONValue converts a cell to the value sent on the wire for kind k.
// Missing numerics become the string "NaN"; missing times, booleans and
// generic values become null; missing strings become "".
func JSONValue(v any, k Kind) any {
	switch k {
	case Numeric:
		if isBlank(v) {
			return "NaN"
		}
		if f, ok := ToFloat(v); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
		return "NaN"
	case Time:
		if isBlank(v) {
			return nil
		}
		if t, ok := ToTime(v); ok {
			return FormatTime(t)
		}
		return nil
	case String:
		return ToString(v)
	case Bool:
		if isBlank(v) {
			return nil
		}
		if b, ok := ToBool(v); ok {
			return b
		}
		return nil
	}
	if isBlank(v) {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		return FormatTime(t)
	}
	return v
}

package petrovisor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var ignoredNameChars = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", ",", "")

// NormalizeName prepares a name for case and punctuation insensitive
// comparison: spaces, underscores, dashes, dots and commas are removed and
// the result is lower-cased.
func NormalizeName(s string) string {
	return strings.TrimSpace(strings.ToLower(ignoredNameChars.Replace(s)))
}

type enumValue[T ~int] struct {
	value   T
	name    string
	aliases []string
}

// enum is a closed set of named values with normalized aliases.
type enum[T ~int] struct {
	kind    string
	names   map[T]string
	aliases map[string]T
	known   []string
}

func newEnum[T ~int](kind string, values []enumValue[T]) *enum[T] {
	e := &enum[T]{kind: kind, names: map[T]string{}, aliases: map[string]T{}}
	for _, v := range values {
		e.names[v.value] = v.name
		e.known = append(e.known, v.name)
		for _, a := range append([]string{v.name}, v.aliases...) {
			// the first value claiming a normalized alias keeps it
			if _, taken := e.aliases[NormalizeName(a)]; !taken {
				e.aliases[NormalizeName(a)] = v.value
			}
		}
	}
	return e
}

func (e *enum[T]) name(v T) string {
	if n, ok := e.names[v]; ok {
		return n
	}
	return fmt.Sprintf("%s(%d)", strings.ReplaceAll(e.kind, " ", ""), int(v))
}

func (e *enum[T]) parse(s string) (T, error) {
	if v, ok := e.aliases[NormalizeName(s)]; ok {
		return v, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if _, ok := e.names[T(n)]; ok {
			return T(n), nil
		}
	}
	return 0, &UnknownNameError{Kind: e.kind, Name: s, Known: e.known}
}

func (e *enum[T]) marshal(v T) ([]byte, error) {
	n, ok := e.names[v]
	if !ok {
		return nil, fmt.Errorf("petrovisor: invalid %s %d", e.kind, int(v))
	}
	return json.Marshal(n)
}

func (e *enum[T]) unmarshal(b []byte, dst *T) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := e.parse(s)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("petrovisor: %s must be a name or a number: %s", e.kind, b)
	}
	if _, ok := e.names[T(n)]; !ok {
		return &UnknownNameError{Kind: e.kind, Name: string(b), Known: e.known}
	}
	*dst = T(n)
	return nil
}

package frame

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Standard column names.
const (
	ColEntity        = "Entity"
	ColAlias         = "Alias"
	ColType          = "Type"
	ColIsOpportunity = "IsOpportunity"
	ColDate          = "Date"
	ColTime          = "Time"
	ColDepth         = "Depth"
)

// EntitySeparator joins an entity name and a column name in wide form.
const EntitySeparator = " : "

var unitPattern = regexp.MustCompile(`\[(.*?)\]`)

// IsReserved reports whether name is one of the standard column names.
func IsReserved(name string) bool {
	switch name {
	case ColEntity, ColAlias, ColType, ColIsOpportunity, ColDate, ColTime, ColDepth:
		return true
	}
	return false
}

// BaseName returns the column name without its unit suffix.
func BaseName(label string) string {
	name, _, _ := strings.Cut(label, "[")
	return strings.TrimSpace(name)
}

// Unit returns the text inside the first pair of square brackets, or "".
func Unit(label string) string {
	m := unitPattern.FindStringSubmatch(label)
	if m == nil {
		return ""
	}
	return m[1]
}

// HasUnit reports whether label carries a "[unit]" suffix.
func HasUnit(label string) bool { return unitPattern.MatchString(label) }

// SplitUnit parses "Oil Rate [bbl/d]" into ("Oil Rate", "bbl/d").
func SplitUnit(label string) (name, unit string) {
	return BaseName(label), Unit(label)
}

// JoinUnit formats a column label as "name [unit]".
func JoinUnit(name, unit string) string {
	return fmt.Sprintf("%s [%s]", name, unit)
}

// NormalizeLabel re-joins a parsed label, trimming whitespace around the name.
func NormalizeLabel(label string) string {
	if !HasUnit(label) {
		return BaseName(label)
	}
	return JoinUnit(SplitUnit(label))
}

// SplitEntity parses "Well A : Oil Rate [bbl/d]" into its entity and
// column parts. ok is false for labels without an entity qualifier.
func SplitEntity(label string) (entity, column string, ok bool) {
	return strings.Cut(label, EntitySeparator)
}

// JoinEntity formats a wide-form column label.
func JoinEntity(entity, column string) string {
	return entity + EntitySeparator + column
}

// Entities returns the distinct entity qualifiers of labels in order.
func Entities(labels []string) []string {
	var out []string
	for _, l := range labels {
		if e, _, ok := SplitEntity(l); ok && e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// uniqueName returns base, or base_N for the first N that is not taken.
func uniqueName(f *Frame, base string) string {
	if !f.Has(base) {
		return base
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%d", base, n)
		if !f.Has(name) {
			return name
		}
	}
}

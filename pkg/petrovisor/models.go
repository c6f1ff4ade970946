package petrovisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"petrovisor/pkg/frame"
)

// ScopeTimeLayout is the wire format of scope boundaries.
const ScopeTimeLayout = "2006-01-02T15:04:05.000000Z"

const maxShortNameLen = 29

// Timestamp is a point in time serialized in ScopeTimeLayout.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns t as a UTC timestamp.
func NewTimestamp(t time.Time) *Timestamp { return &Timestamp{Time: t.UTC()} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(ScopeTimeLayout))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := frame.ParseTime(strings.TrimSuffix(s, "Z"))
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// Signal describes a named measurement stored per entity.
type Signal struct {
	Name                string          `json:"Name"`
	ShortName           string          `json:"ShortName"`
	Type                SignalType      `json:"SignalType"`
	Unit                string          `json:"StorageUnitName"`
	Measurement         string          `json:"MeasurementName"`
	Aggregation         AggregationType `json:"AggregationType"`
	IntervalAggregation AggregationType `json:"ContainerAggregationType"`
}

// NewSignal returns a validated signal. An empty unit is stored as " " and
// an empty measurement as "Dimensionless".
func NewSignal(name string, typ SignalType, unit, measurement string) (*Signal, error) {
	s := &Signal{Name: name, Type: typ, Unit: unit, Measurement: measurement}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects an unnamed signal and fills in the defaults.
func (s *Signal) Validate() error {
	if s.Name == "" {
		return errors.New("petrovisor: signal name cannot be empty")
	}
	if s.ShortName == "" {
		s.ShortName = s.Name
	}
	if r := []rune(s.ShortName); len(r) > maxShortNameLen {
		s.ShortName = string(r[:maxShortNameLen])
	}
	if s.Unit == "" {
		s.Unit = " "
	}
	if s.Measurement == "" {
		s.Measurement = "Dimensionless"
	}
	return nil
}

// UnmarshalJSON accepts signal type and aggregation names in any alias.
// Unrecognized aggregations fall back to Sum.
func (s *Signal) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name                string          `json:"Name"`
		ShortName           string          `json:"ShortName"`
		Type                json.RawMessage `json:"SignalType"`
		Unit                string          `json:"StorageUnitName"`
		Measurement         string          `json:"MeasurementName"`
		Aggregation         json.RawMessage `json:"AggregationType"`
		IntervalAggregation json.RawMessage `json:"ContainerAggregationType"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Signal{
		Name:        raw.Name,
		ShortName:   raw.ShortName,
		Unit:        raw.Unit,
		Measurement: raw.Measurement,
	}
	if len(raw.Type) > 0 {
		if err := s.Type.UnmarshalJSON(raw.Type); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		raw json.RawMessage
		dst *AggregationType
	}{{raw.Aggregation, &s.Aggregation}, {raw.IntervalAggregation, &s.IntervalAggregation}} {
		if len(f.raw) > 0 && f.dst.UnmarshalJSON(f.raw) != nil {
			*f.dst = AggregationSum
		}
	}
	return nil
}

func (s Signal) String() string { return s.Name }

// Entity is a physical or logical object signals are recorded for.
type Entity struct {
	Name          string `json:"Name"`
	Type          string `json:"EntityTypeName"`
	Alias         string `json:"Alias,omitempty"`
	IsOpportunity bool   `json:"IsOpportunity"`
}

// NewEntity returns an entity of the given type.
func NewEntity(name, entityType string) (*Entity, error) {
	e := &Entity{Name: name, Type: entityType}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate rejects an entity without a name or type.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return errors.New("petrovisor: entity name cannot be empty")
	}
	if e.Type == "" {
		return fmt.Errorf("petrovisor: entity %q has no entity type", e.Name)
	}
	return nil
}

func (e Entity) String() string { return e.Name }

// EntitySet is a named, ordered collection of entities.
type EntitySet struct {
	Name     string   `json:"Name"`
	Entities []Entity `json:"Entities"`
}

// NewEntitySet returns a set of the given entities.
func NewEntitySet(name string, entities ...Entity) (*EntitySet, error) {
	if name == "" {
		return nil, errors.New("petrovisor: entity set name cannot be empty")
	}
	return &EntitySet{Name: name, Entities: entities}, nil
}

// EntityNames returns the names of the set's entities in order.
func (s *EntitySet) EntityNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	return names
}

// Hierarchy maps child entity names to parent entity names. A nil parent
// marks a root.
type Hierarchy struct {
	Name         string             `json:"Name"`
	Relationship map[string]*string `json:"Relationship"`
}

// NewHierarchy returns a hierarchy with the given child to parent mapping.
// An empty parent name marks a root.
func NewHierarchy(name string, parents map[string]string) (*Hierarchy, error) {
	if name == "" {
		return nil, errors.New("petrovisor: hierarchy name cannot be empty")
	}
	h := &Hierarchy{Name: name, Relationship: map[string]*string{}}
	for child, parent := range parents {
		if parent == "" {
			h.Relationship[child] = nil
			continue
		}
		p := parent
		h.Relationship[child] = &p
	}
	return h, nil
}

// Scope is a time range, a depth range, or both.
type Scope struct {
	Name           string          `json:"Name"`
	Start          *Timestamp      `json:"Start"`
	End            *Timestamp      `json:"End"`
	TimeIncrement  *TimeIncrement  `json:"TimeIncrement"`
	StartDepth     *float64        `json:"StartDepth"`
	EndDepth       *float64        `json:"EndDepth"`
	DepthIncrement *DepthIncrement `json:"DepthIncrement"`
}

// NewTimeScope returns a scope over [start, end] with the given step.
func NewTimeScope(name string, start, end time.Time, inc TimeIncrement) (*Scope, error) {
	s := &Scope{Name: name, Start: NewTimestamp(start), End: NewTimestamp(end), TimeIncrement: &inc}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDepthScope returns a scope over [start, end] meters with the given step.
func NewDepthScope(name string, start, end float64, inc DepthIncrement) (*Scope, error) {
	s := &Scope{Name: name, StartDepth: &start, EndDepth: &end, DepthIncrement: &inc}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects an unnamed scope or reversed ranges.
func (s *Scope) Validate() error {
	if s.Name == "" {
		return errors.New("petrovisor: scope name cannot be empty")
	}
	if s.Start != nil && s.End != nil && s.End.Before(s.Start.Time) {
		return fmt.Errorf("petrovisor: scope %q ends before it starts", s.Name)
	}
	if s.StartDepth != nil && s.EndDepth != nil && *s.EndDepth < *s.StartDepth {
		return fmt.Errorf("petrovisor: scope %q ends above its start depth", s.Name)
	}
	return nil
}

// HasTime reports whether the scope carries a time range.
func (s *Scope) HasTime() bool { return s != nil && s.Start != nil && s.End != nil }

// HasDepth reports whether the scope carries a depth range.
func (s *Scope) HasDepth() bool { return s != nil && s.StartDepth != nil && s.EndDepth != nil }

// UnmarshalJSON reads invalid times and increments as absent.
func (s *Scope) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name           string          `json:"Name"`
		Start          json.RawMessage `json:"Start"`
		End            json.RawMessage `json:"End"`
		TimeIncrement  json.RawMessage `json:"TimeIncrement"`
		StartDepth     *float64        `json:"StartDepth"`
		EndDepth       *float64        `json:"EndDepth"`
		DepthIncrement json.RawMessage `json:"DepthIncrement"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Scope{Name: raw.Name, StartDepth: raw.StartDepth, EndDepth: raw.EndDepth}
	s.Start = lenientTimestamp(raw.Start)
	s.End = lenientTimestamp(raw.End)
	if len(raw.TimeIncrement) > 0 && string(raw.TimeIncrement) != "null" {
		var inc TimeIncrement
		if inc.UnmarshalJSON(raw.TimeIncrement) == nil {
			s.TimeIncrement = &inc
		}
	}
	if len(raw.DepthIncrement) > 0 && string(raw.DepthIncrement) != "null" {
		var inc DepthIncrement
		if inc.UnmarshalJSON(raw.DepthIncrement) == nil {
			s.DepthIncrement = &inc
		}
	}
	return nil
}

func lenientTimestamp(raw json.RawMessage) *Timestamp {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var t Timestamp
	if t.UnmarshalJSON(raw) != nil {
		return nil
	}
	return &t
}

func (s Scope) String() string { return s.Name }

// Context binds a scope, an entity set and optionally a hierarchy.
type Context struct {
	Name      string     `json:"Name"`
	Scope     *Scope     `json:"Scope"`
	EntitySet *EntitySet `json:"EntitySet"`
	Hierarchy *Hierarchy `json:"Hierarchy"`
}

func (c Context) String() string { return c.Name }

// Unit is a unit of a measurement. A value x in this unit equals
// x*Factor + Summand in the measurement's base unit.
type Unit struct {
	Name        string  `json:"Name"`
	Measurement string  `json:"MeasurementName"`
	Factor      float64 `json:"Factor"`
	Summand     float64 `json:"Summand"`
}

// NewUnit returns a validated unit.
func NewUnit(name, measurement string, factor, summand float64) (*Unit, error) {
	u := &Unit{Name: name, Measurement: measurement, Factor: factor, Summand: summand}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate rejects a unit without a name or measurement. A zero factor
// defaults to 1.
func (u *Unit) Validate() error {
	if u.Name == "" {
		return errors.New("petrovisor: unit name cannot be empty")
	}
	if u.Measurement == "" {
		return fmt.Errorf("petrovisor: unit %q has no measurement name", u.Name)
	}
	if u.Factor == 0 {
		u.Factor = 1
	}
	return nil
}

// ToBase converts x from this unit to the measurement's base unit.
func (u Unit) ToBase(x float64) float64 { return x*u.factor() + u.Summand }

// FromBase converts x from the measurement's base unit to this unit.
func (u Unit) FromBase(x float64) float64 { return (x - u.Summand) / u.factor() }

func (u Unit) factor() float64 {
	if u.Factor == 0 {
		return 1
	}
	return u.Factor
}

func (u Unit) String() string { return u.Name }

// ConvertValue converts x from one unit to another of the same measurement.
func ConvertValue(x float64, from, to Unit) (float64, error) {
	if from.Name == to.Name {
		return x, nil
	}
	if from.Measurement != "" && to.Measurement != "" && from.Measurement != to.Measurement {
		return 0, fmt.Errorf("petrovisor: cannot convert %s (%s) to %s (%s)", from.Name, from.Measurement, to.Name, to.Measurement)
	}
	return to.FromBase(from.ToBase(x)), nil
}

// itemName extracts the name of an item given as a string, a model, a
// map with a Name key, or anything implementing fmt.Stringer. Other values
// yield "".
func itemName(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return v
	case Item:
		return v.Name()
	case map[string]any:
		return Item(v).Name()
	case interface{ ItemName() string }:
		return v.ItemName()
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

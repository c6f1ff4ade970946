package petrovisor

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// UnitScope groups unit and measurement operations.
type UnitScope struct {
	c *Client
}

// Units returns the unit operations.
func (c *Client) Units() *UnitScope { return &UnitScope{c: c} }

// unitSegment addresses the dimensionless unit " " as "_" and "%" as "@".
func unitSegment(name string) string {
	switch name {
	case " ", "":
		return "_"
	case "%":
		return "@"
	}
	return name
}

// Get returns the named unit.
func (s *UnitScope) Get(ctx context.Context, name string) (*Unit, error) {
	var u *Unit
	if err := s.c.get(ctx, "units.get", "Units/"+unitSegment(name), nil, &u); err != nil {
		return nil, err
	}
	return u, nil
}

// Names returns the names of all units.
func (s *UnitScope) Names(ctx context.Context) ([]string, error) {
	return s.c.Items(ItemUnit).Names(ctx)
}

// All returns every unit.
func (s *UnitScope) All(ctx context.Context) ([]Unit, error) {
	var units []Unit
	if err := s.c.get(ctx, "units.all", "Units/All", nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// Measurements returns every unit measurement.
func (s *UnitScope) Measurements(ctx context.Context) ([]Item, error) {
	return s.c.Items(ItemUnitMeasurement).All(ctx)
}

// MeasurementNames returns the names of all unit measurements.
func (s *UnitScope) MeasurementNames(ctx context.Context) ([]string, error) {
	return s.c.Items(ItemUnitMeasurement).Names(ctx)
}

// MeasurementUnits returns the units of a measurement.
func (s *UnitScope) MeasurementUnits(ctx context.Context, measurement string) ([]Unit, error) {
	var units []Unit
	if err := s.c.get(ctx, "units.measurement", "Units/"+measurement+"/Units", nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// MeasurementUnitNames returns the unit names of a measurement.
func (s *UnitScope) MeasurementUnitNames(ctx context.Context, measurement string) ([]string, error) {
	units, err := s.MeasurementUnits(ctx, measurement)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	return names, nil
}

// SignalUnits returns the units of the signal's measurement.
func (s *UnitScope) SignalUnits(ctx context.Context, signal string) ([]Unit, error) {
	sig, err := s.c.Signals().Get(ctx, signal)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, fmt.Errorf("units.signal: signal %q: %w", signal, ErrNotFound)
	}
	return s.MeasurementUnits(ctx, sig.Measurement)
}

// Add creates a unit.
func (s *UnitScope) Add(ctx context.Context, u Unit) error {
	if err := u.Validate(); err != nil {
		return err
	}
	return s.c.post(ctx, "units.add", "Units", nil, u, nil)
}

// AddMany creates several units, one request each.
func (s *UnitScope) AddMany(ctx context.Context, units []Unit) error {
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		if err := s.c.post(ctx, "units.add", "Units/Add", nil, u, nil); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the named unit.
func (s *UnitScope) Delete(ctx context.Context, name string) error {
	return s.c.delete(ctx, "units.delete", "Units/"+unitSegment(name), nil, nil)
}

// Convert converts one value on the server. Equal units return x as is.
// A response suppressed by the error policy yields NaN.
func (s *UnitScope) Convert(ctx context.Context, x float64, from, to string) (float64, error) {
	if from == to {
		return x, nil
	}
	p := "Units/" + unitSegment(from) + "/Convert/" + unitSegment(to) + "/" + strconv.FormatFloat(x, 'g', -1, 64)
	var out *float64
	if err := s.c.get(ctx, "units.convert", p, nil, &out); err != nil {
		return 0, err
	}
	if out == nil {
		return math.NaN(), nil
	}
	return *out, nil
}

// ConvertValues converts a batch of values on the server. A response
// suppressed by the error policy yields nil.
func (s *UnitScope) ConvertValues(ctx context.Context, xs []float64, from, to string) ([]float64, error) {
	if from == to || len(xs) == 0 {
		return xs, nil
	}
	p := "Units/" + unitSegment(from) + "/Convert/" + unitSegment(to)
	var out []float64
	if err := s.c.post(ctx, "units.convert", p, nil, xs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

package petrovisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"petrovisor/pkg/frame"
)

const (
	defaultPressureUnit    = "Pa"
	defaultTemperatureUnit = "K"

	// concurrent requests issued by one data load
	loadConcurrency = 4
)

// SignalScope groups signal and signal data operations.
type SignalScope struct {
	c *Client
}

// Signals returns the signal operations.
func (c *Client) Signals() *SignalScope { return &SignalScope{c: c} }

// Get returns the named signal.
func (s *SignalScope) Get(ctx context.Context, name string) (*Signal, error) {
	var sig *Signal
	if err := s.c.get(ctx, "signals.get", "Signals/"+name, nil, &sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// GetByShortName returns the signal with the given short name.
func (s *SignalScope) GetByShortName(ctx context.Context, shortName string) (*Signal, error) {
	var sig *Signal
	if err := s.c.get(ctx, "signals.short", "Signals/"+shortName+"/Signal", nil, &sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// SignalFilter narrows signal listings. Empty fields match everything.
type SignalFilter struct {
	Type   string
	Entity string
}

// List returns the signals matching f.
func (s *SignalScope) List(ctx context.Context, f SignalFilter) ([]Signal, error) {
	p := "Signals/All"
	if f.Type != "" {
		t, err := ParseSignalType(f.Type)
		if err != nil {
			return nil, err
		}
		p = "Signals/" + t.String() + "/Signals"
	}
	var signals []Signal
	if err := s.c.get(ctx, "signals.list", p, nil, &signals); err != nil {
		return nil, err
	}
	if f.Entity == "" {
		return signals, nil
	}
	names, err := s.entitySignalNames(ctx, f.Entity)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(signals, func(sig Signal) bool { return !slices.Contains(names, sig.Name) }), nil
}

// Names returns the names of the signals matching f.
func (s *SignalScope) Names(ctx context.Context, f SignalFilter) ([]string, error) {
	switch {
	case f.Entity != "":
		names, err := s.entitySignalNames(ctx, f.Entity)
		if err != nil || f.Type == "" || len(names) == 0 {
			return names, err
		}
		typed, err := s.Names(ctx, SignalFilter{Type: f.Type})
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(names, func(n string) bool { return !slices.Contains(typed, n) }), nil
	case f.Type != "":
		signals, err := s.List(ctx, SignalFilter{Type: f.Type})
		if err != nil {
			return nil, err
		}
		names := make([]string, len(signals))
		for i, sig := range signals {
			names[i] = sig.Name
		}
		return names, nil
	}
	names, err := s.c.Items(ItemSignal).Names(ctx)
	if names == nil && err == nil {
		names = []string{}
	}
	return names, err
}

func (s *SignalScope) entitySignalNames(ctx context.Context, entity string) ([]string, error) {
	var names []string
	if err := s.c.get(ctx, "signals.entity", "Entities/"+entity+"/Signals", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Add creates signals in one request.
func (s *SignalScope) Add(ctx context.Context, signals ...Signal) error {
	for i := range signals {
		if err := signals[i].Validate(); err != nil {
			return err
		}
	}
	return s.c.post(ctx, "signals.add", "Signals/Add", nil, signals, nil)
}

// Delete removes signals, one request each.
func (s *SignalScope) Delete(ctx context.Context, names ...string) error {
	for _, n := range names {
		if err := s.c.delete(ctx, "signals.delete", "Signals/"+n, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *SignalScope) mustGet(ctx context.Context, name string) (*Signal, error) {
	sig, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, fmt.Errorf("signal %q: %w", name, ErrNotFound)
	}
	return sig, nil
}

// Type returns the type of the named signal.
func (s *SignalScope) Type(ctx context.Context, name string) (SignalType, error) {
	sig, err := s.mustGet(ctx, name)
	if err != nil {
		return 0, err
	}
	return sig.Type, nil
}

// Unit returns the storage unit of the named signal.
func (s *SignalScope) Unit(ctx context.Context, name string) (string, error) {
	sig, err := s.mustGet(ctx, name)
	if err != nil {
		return "", err
	}
	return sig.Unit, nil
}

// MeasurementUnits returns the units the named signal can be read in.
func (s *SignalScope) MeasurementUnits(ctx context.Context, name string) ([]Unit, error) {
	sig, err := s.mustGet(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.c.Units().MeasurementUnits(ctx, sig.Measurement)
}

// DataRange is the extent of stored data: times for time signals, depths
// for depth signals.
type DataRange struct {
	Start any `json:"Start"`
	End   any `json:"End"`
}

// Times returns the range as times.
func (r *DataRange) Times() (start, end time.Time, ok bool) {
	if r == nil {
		return time.Time{}, time.Time{}, false
	}
	start, ok1 := frame.ToTime(r.Start)
	end, ok2 := frame.ToTime(r.End)
	return start, end, ok1 && ok2
}

// Depths returns the range as depths.
func (r *DataRange) Depths() (start, end float64, ok bool) {
	if r == nil {
		return 0, 0, false
	}
	start, ok1 := frame.ToFloat(r.Start)
	end, ok2 := frame.ToFloat(r.End)
	return start, end, ok1 && ok2
}

// DataRange returns the extent of data of the signal type, narrowed to a
// signal and an entity when given.
func (s *SignalScope) DataRange(ctx context.Context, typ SignalType, signal, entity string) (*DataRange, error) {
	p := typ.DataRoute() + "/Range"
	if signal != "" {
		p += "/" + signal
		if entity != "" {
			p += "/" + entity
		}
	}
	var r *DataRange
	if err := s.c.get(ctx, "signals.range", p, nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// CleanseRequest previews a cleansing script on one value.
type CleanseRequest struct {
	Type      SignalType
	Entity    string
	Signal    string
	Unit      string
	Value     float64
	Timestamp time.Time
	Script    string
	// Options are merged over the defaults.
	Options map[string]any
}

// Cleanse runs a cleansing script on a static or time value and returns
// the service's verdict.
func (s *SignalScope) Cleanse(ctx context.Context, r CleanseRequest) (any, error) {
	if r.Type != SignalStatic && r.Type != SignalTime {
		return nil, fmt.Errorf("signals.cleanse: cleansing supports Static and TimeDependent data, not %s", r.Type)
	}
	options := map[string]any{
		"UseDefaultCleansingScripts":                true,
		"CleansingScript":                           r.Script,
		"TreatCleansingScriptAsCleansingScriptName": true,
		"IsPreview":                                 true,
	}
	for k, v := range r.Options {
		options[k] = v
	}
	body := map[string]any{
		"Entity":  r.Entity,
		"Signal":  r.Signal,
		"Unit":    r.Unit,
		"Value":   r.Value,
		"Options": options,
	}
	if r.Type == SignalTime {
		body["Timestamp"] = frame.FormatTime(r.Timestamp)
	}
	var out any
	if err := s.c.post(ctx, "signals.cleanse", r.Type.DataRoute()+"/Cleanse", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DataRequest selects the data of one signal for one entity.
type DataRequest struct {
	Entity string `json:"Entity"`
	Signal string `json:"Signal"`
	Unit   string `json:"Unit"`
}

// DataPoint is one stored value. Date is set for time data and Depth for
// depth data.
type DataPoint struct {
	Date  *time.Time
	Depth *float64
	Value any
}

type dataPointJSON struct {
	Date  *string  `json:"Date,omitempty"`
	Depth *float64 `json:"Depth,omitempty"`
	Value any      `json:"Value"`
}

func (p DataPoint) MarshalJSON() ([]byte, error) {
	out := dataPointJSON{Depth: p.Depth, Value: p.Value}
	if p.Date != nil {
		d := frame.FormatTime(*p.Date)
		out.Date = &d
	}
	return json.Marshal(out)
}

func (p *DataPoint) UnmarshalJSON(b []byte) error {
	var in dataPointJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*p = DataPoint{Depth: in.Depth, Value: in.Value}
	if in.Date != nil && *in.Date != "" {
		t, err := frame.ParseTime(*in.Date)
		if err != nil {
			return err
		}
		p.Date = &t
	}
	return nil
}

// SignalData is the data of one signal for one entity: a series of points
// for time and depth signals, a single value for static signals.
type SignalData struct {
	Entity string
	Signal string
	Unit   string
	Points []DataPoint
	Value  any
}

type signalDataJSON struct {
	Entity string          `json:"Entity"`
	Signal string          `json:"Signal"`
	Unit   string          `json:"Unit"`
	Data   json.RawMessage `json:"Data"`
}

func (d SignalData) MarshalJSON() ([]byte, error) {
	var payload any = d.Value
	if d.Points != nil {
		payload = d.Points
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(signalDataJSON{Entity: d.Entity, Signal: d.Signal, Unit: d.Unit, Data: data})
}

func (d *SignalData) UnmarshalJSON(b []byte) error {
	var in signalDataJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*d = SignalData{Entity: in.Entity, Signal: in.Signal, Unit: in.Unit}
	if len(in.Data) > 0 && in.Data[0] == '[' {
		return json.Unmarshal(in.Data, &d.Points)
	}
	if len(in.Data) > 0 {
		return json.Unmarshal(in.Data, &d.Value)
	}
	return nil
}

// Series converts the data to a frame series of the given kind. Values are
// coerced to kind; "NaN" numerics become missing and null strings "".
func (d SignalData) Series(kind frame.Kind) frame.Series {
	s := frame.Series{Entity: d.Entity, Name: d.Signal, Unit: d.Unit, Kind: kind}
	if d.Points == nil {
		s.Points = []frame.Point{{Value: frame.CoerceValue(d.Value, kind)}}
		return s
	}
	s.Points = make([]frame.Point, len(d.Points))
	for i, p := range d.Points {
		s.Points[i] = frame.Point{Date: p.Date, Depth: p.Depth, Value: frame.CoerceValue(p.Value, kind)}
	}
	return s
}

// LoadDataOptions select the values LoadData returns.
//
// For time and depth data either NumValues or a range on the signal's axis
// is required. A range without increment is only valid when start equals
// end and reads the saved, or interpolated, value at that point.
type LoadDataOptions struct {
	StartTime      *time.Time
	EndTime        *time.Time
	TimeIncrement  *TimeIncrement
	StartDepth     *float64
	EndDepth       *float64
	DepthIncrement *DepthIncrement
	Hierarchy      string

	// NumValues > 0 loads the first values, < 0 the last ones.
	NumValues int
	// GapValue fills gaps in ranged loads when set.
	GapValue any
	// Interpolated reads an interpolated depth value at a single point.
	Interpolated bool

	PressureUnit    string
	TemperatureUnit string
}

// LoadData loads the data of the requested signal and entity pairs.
func (s *SignalScope) LoadData(ctx context.Context, typ SignalType, reqs []DataRequest, opts LoadDataOptions) ([]SignalData, error) {
	const op = "signals.load"
	route := typ.DataRoute()
	if route == "" {
		return nil, fmt.Errorf("%s: unsupported signal type %s", op, typ)
	}
	var out []SignalData
	post := func(p string, q url.Values) ([]SignalData, error) {
		if err := s.c.post(ctx, op, p, q, reqs, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	if !typ.IsTime() && !typ.IsDepth() {
		if typ == SignalPVT {
			return post(route+"/Load", pvtQuery(opts.PressureUnit, opts.TemperatureUnit))
		}
		return post(route+"/Load", nil)
	}

	switch {
	case opts.NumValues > 0:
		return post(route+"/First", url.Values{"NumberOfValues": {strconv.Itoa(opts.NumValues)}})
	case opts.NumValues < 0:
		return post(route+"/Last", url.Values{"NumberOfValues": {strconv.Itoa(-opts.NumValues)}})
	}

	start, end, point, ok := opts.bounds(typ)
	if !ok {
		return nil, fmt.Errorf("%s: start, end and increment are required for %s data; the increment may be omitted when start equals end", op, typ)
	}
	inc := opts.increment(typ)
	if inc == "" && point && typ == SignalStringTime {
		inc = EverySecond.String()
	}
	if inc != "" {
		q := url.Values{"Start": {start}, "End": {end}, "Increment": {inc}}
		if opts.Hierarchy != "" && typ.IsTime() {
			q.Set("Hierarchy", opts.Hierarchy)
		}
		if opts.GapValue != nil {
			gap := frame.ToString(frame.JSONValue(opts.GapValue, typ.ValueKind()))
			return post(route+"/Load/"+gap, q)
		}
		return post(route+"/Load", q)
	}
	if !point {
		return nil, fmt.Errorf("%s: an increment is required for a %s range", op, typ)
	}
	switch typ {
	case SignalTime:
		return post(route+"/Saved", url.Values{"Date": {start}})
	case SignalDepth:
		if opts.Interpolated {
			return post(route+"/Interpolated", url.Values{"Depth": {start}})
		}
		return post(route+"/Saved", url.Values{"Depth": {start}})
	}
	return nil, fmt.Errorf("%s: single point loads are not supported for %s data", op, typ)
}

// bounds formats the range on the signal's axis and reports whether it is
// a single point.
func (o LoadDataOptions) bounds(typ SignalType) (start, end string, point, ok bool) {
	if typ.IsTime() {
		if o.StartTime == nil || o.EndTime == nil {
			return "", "", false, false
		}
		return frame.FormatTime(*o.StartTime), frame.FormatTime(*o.EndTime), o.StartTime.Equal(*o.EndTime), true
	}
	if o.StartDepth == nil || o.EndDepth == nil {
		return "", "", false, false
	}
	return formatFloat(*o.StartDepth), formatFloat(*o.EndDepth), *o.StartDepth == *o.EndDepth, true
}

func (o LoadDataOptions) increment(typ SignalType) string {
	if typ.IsTime() && o.TimeIncrement != nil {
		return o.TimeIncrement.String()
	}
	if typ.IsDepth() && o.DepthIncrement != nil {
		return o.DepthIncrement.String()
	}
	return ""
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func pvtQuery(pressure, temperature string) url.Values {
	if pressure == "" {
		pressure = defaultPressureUnit
	}
	if temperature == "" {
		temperature = defaultTemperatureUnit
	}
	return url.Values{"PressureUnit": {pressure}, "TemperatureUnit": {temperature}}
}

// SignalUnit pairs a signal with the unit its values are read in.
type SignalUnit struct {
	Signal string `json:"Signal"`
	Unit   string `json:"Unit"`
}

// Combinations requests every signal for every entity.
type Combinations struct {
	Entities []string     `json:"Entities"`
	Signals  []SignalUnit `json:"Signals"`
}

// RetrieveRequest is the body of a bulk data retrieval.
type RetrieveRequest struct {
	Requests       []DataRequest   `json:"Requests,omitempty"`
	Combinations   *Combinations   `json:"Combinations,omitempty"`
	Start          string          `json:"Start,omitempty"`
	End            string          `json:"End,omitempty"`
	TimeIncrement  *TimeIncrement  `json:"TimeIncrement,omitempty"`
	StartDepth     *float64        `json:"StartDepth,omitempty"`
	EndDepth       *float64        `json:"EndDepth,omitempty"`
	DepthIncrement *DepthIncrement `json:"DepthIncrement,omitempty"`
	DepthUnit      string          `json:"DepthUnit,omitempty"`
	Hierarchy      *Hierarchy      `json:"Hierarchy,omitempty"`
	Scenario       string          `json:"Scenario,omitempty"`
	TopRecords     int             `json:"TopRecords,omitempty"`
}

// Retrieve loads data in bulk.
func (s *SignalScope) Retrieve(ctx context.Context, typ SignalType, r RetrieveRequest) ([]SignalData, error) {
	route := typ.DataRoute()
	if route == "" || typ == SignalPVT {
		return nil, fmt.Errorf("signals.retrieve: unsupported signal type %s", typ)
	}
	var out []SignalData
	if err := s.c.post(ctx, "signals.retrieve", route+"/Retrieve", nil, r, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveDataOptions control SaveData.
type SaveDataOptions struct {
	// WithLogs returns the save logs.
	WithLogs        bool
	PressureUnit    string
	TemperatureUnit string
}

// SaveData stores signal data and returns the response body, which holds
// the logs when requested.
func (s *SignalScope) SaveData(ctx context.Context, typ SignalType, data []SignalData, opts SaveDataOptions) (json.RawMessage, error) {
	route := typ.DataRoute()
	if route == "" {
		return nil, fmt.Errorf("signals.save: unsupported signal type %s", typ)
	}
	p := route + "/Save"
	if opts.WithLogs {
		p = route + "/SaveWithLogs"
	}
	var q url.Values
	if typ == SignalPVT {
		q = pvtQuery(opts.PressureUnit, opts.TemperatureUnit)
	}
	var out json.RawMessage
	if err := s.c.post(ctx, "signals.save", p, q, data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDataOptions bound the deleted range of time and depth data.
type DeleteDataOptions struct {
	StartTime  *time.Time
	EndTime    *time.Time
	StartDepth *float64
	EndDepth   *float64
}

// DeleteData removes stored data of the requested signal and entity pairs.
func (s *SignalScope) DeleteData(ctx context.Context, typ SignalType, reqs []DataRequest, opts DeleteDataOptions) error {
	route := typ.DataRoute()
	if route == "" {
		return fmt.Errorf("signals.delete_data: unsupported signal type %s", typ)
	}
	var q url.Values
	switch {
	case typ.IsTime():
		q = url.Values{}
		if opts.StartTime != nil {
			q.Set("Start", frame.FormatTime(*opts.StartTime))
		}
		if opts.EndTime != nil {
			q.Set("End", frame.FormatTime(*opts.EndTime))
		}
	case typ.IsDepth():
		q = url.Values{}
		if opts.StartDepth != nil {
			q.Set("Start", formatFloat(*opts.StartDepth))
		}
		if opts.EndDepth != nil {
			q.Set("End", formatFloat(*opts.EndDepth))
		}
	}
	return s.c.post(ctx, "signals.delete_data", route+"/Delete", q, reqs, nil)
}

// SignalRef names a signal and, optionally, the unit to read it in.
type SignalRef struct {
	Name string
	Unit string
}

// ParseSignalRefs reads signal references from column labels such as
// "Oil Rate [bbl/d]".
func ParseSignalRefs(labels ...string) []SignalRef {
	refs := make([]SignalRef, len(labels))
	for i, l := range labels {
		name, unit := frame.SplitUnit(l)
		refs[i] = SignalRef{Name: name, Unit: unit}
	}
	return refs
}

// SignalsDataOptions select the data LoadSignalsData returns.
type SignalsDataOptions struct {
	Signals []SignalRef
	// Context names a stored context; ContextOptions override its parts.
	Context string
	ContextOptions
	Scenario  string
	DepthUnit string
}

type resolvedSignal struct {
	Signal
	readUnit string
}

// LoadSignalsData loads several signals for the entities of a context into
// one analysis frame with columns Entity, Date and/or Depth, then one
// "<signal> [<unit>]" column per signal.
//
// Static, time and depth signals are loaded separately and merged on
// Entity. It returns a nil frame when no signal or no data is found.
func (s *SignalScope) LoadSignalsData(ctx context.Context, opts SignalsDataOptions) (*frame.Frame, error) {
	const op = "signals.load_signals_data"
	if len(opts.Signals) == 0 {
		s.c.logger.WarnContext(ctx, "no signals were provided", "operation", op)
		return nil, nil
	}
	signals, err := s.resolveSignals(ctx, opts.Signals)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		s.c.logger.WarnContext(ctx, "no signals found", "operation", op, "signals", len(opts.Signals))
		return nil, nil
	}

	groups := map[RangeKind][]resolvedSignal{}
	for _, sig := range signals {
		if sig.Type == SignalPVT {
			s.c.logger.WarnContext(ctx, "skipping PVT signal", "operation", op, "signal", sig.Name)
			continue
		}
		groups[sig.Type.RangeKind()] = append(groups[sig.Type.RangeKind()], sig)
	}
	if len(groups) == 0 {
		return nil, nil
	}

	c, err := s.c.Contexts().ResolveContext(ctx, opts.Context, opts.ContextOptions)
	if err != nil {
		return nil, err
	}
	entities := c.EntitySet.EntityNames()
	if len(entities) == 0 {
		return nil, fmt.Errorf("%s: entity set is empty, provide an entity set, entities or entity types", op)
	}

	frames := map[RangeKind]*frame.Frame{}
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for kind, group := range groups {
		g.Go(func() error {
			f, err := s.loadGroup(ctx, kind, group, entities, c, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			frames[kind] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := frame.MergeAxes(frames[RangeTime], frames[RangeDepth], frames[RangeNone])
	if merged == nil || merged.Empty() {
		s.c.logger.WarnContext(ctx, "no data retrieved", "operation", op)
		return nil, nil
	}
	// Merging fills the other axis' rows with nil.
	for _, col := range merged.Columns() {
		if col.Kind != frame.Generic {
			merged.CoerceColumn(col.Name, col.Kind)
		}
	}
	return merged, nil
}

func (s *SignalScope) resolveSignals(ctx context.Context, refs []SignalRef) ([]resolvedSignal, error) {
	found := make([]*resolvedSignal, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			sig, err := s.Get(gctx, ref.Name)
			if err != nil || sig == nil {
				return err
			}
			unit := ref.Unit
			if unit == "" {
				unit = sig.Unit
			}
			found[i] = &resolvedSignal{Signal: *sig, readUnit: unit}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []resolvedSignal
	for _, r := range found {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// loadGroup retrieves numeric and string signals of one axis and pivots
// them.
func (s *SignalScope) loadGroup(ctx context.Context, kind RangeKind, group []resolvedSignal, entities []string, c *Context, opts SignalsDataOptions) (*frame.Frame, error) {
	base := RetrieveRequest{Scenario: opts.Scenario}
	switch kind {
	case RangeTime:
		start, end, err := s.timeBounds(ctx, c.Scope, group)
		if err != nil {
			return nil, err
		}
		base.Start, base.End = start, end
		if c.Scope != nil {
			base.TimeIncrement = c.Scope.TimeIncrement
		}
		base.Hierarchy = c.Hierarchy
	case RangeDepth:
		start, end, err := s.depthBounds(ctx, c.Scope, group)
		if err != nil {
			return nil, err
		}
		base.StartDepth, base.EndDepth = &start, &end
		if c.Scope != nil {
			base.DepthIncrement = c.Scope.DepthIncrement
		}
		base.DepthUnit = opts.DepthUnit
	default:
		base.Hierarchy = c.Hierarchy
	}

	byType := map[SignalType][]SignalUnit{}
	var order []string
	for _, sig := range group {
		byType[sig.Type] = append(byType[sig.Type], SignalUnit{Signal: sig.Name, Unit: sig.readUnit})
		order = append(order, frame.JoinUnit(sig.Name, sig.readUnit))
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		series = map[SignalType][]frame.Series{}
	)
	for typ, sigs := range byType {
		g.Go(func() error {
			r := base
			r.Combinations = &Combinations{Entities: entities, Signals: sigs}
			data, err := s.Retrieve(ctx, typ, r)
			if err != nil {
				return err
			}
			out := make([]frame.Series, len(data))
			for i, d := range data {
				out[i] = d.Series(typ.ValueKind())
			}
			mu.Lock()
			series[typ] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []frame.Series
	for _, typ := range SignalTypes() {
		all = append(all, series[typ]...)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return frame.Pivot(all, order...), nil
}

// timeBounds takes the range from the scope and fills missing bounds from
// the stored data range of the signals.
func (s *SignalScope) timeBounds(ctx context.Context, sc *Scope, group []resolvedSignal) (string, string, error) {
	var start, end time.Time
	if sc != nil && sc.Start != nil {
		start = sc.Start.Time
	}
	if sc != nil && sc.End != nil {
		end = sc.End.Time
	}
	if start.IsZero() || end.IsZero() {
		for _, sig := range group {
			r, err := s.DataRange(ctx, sig.Type, sig.Name, "")
			if err != nil {
				return "", "", err
			}
			rs, re, ok := r.Times()
			if !ok {
				continue
			}
			if sc == nil || sc.Start == nil {
				if start.IsZero() || rs.Before(start) {
					start = rs
				}
			}
			if sc == nil || sc.End == nil {
				if end.IsZero() || re.After(end) {
					end = re
				}
			}
		}
	}
	if start.IsZero() || end.IsZero() {
		return "", "", errors.New("signals.load_signals_data: no time range in scope or stored data")
	}
	return frame.FormatTime(start), frame.FormatTime(end), nil
}

func (s *SignalScope) depthBounds(ctx context.Context, sc *Scope, group []resolvedSignal) (float64, float64, error) {
	var start, end *float64
	if sc != nil {
		start, end = sc.StartDepth, sc.EndDepth
	}
	fillStart, fillEnd := start == nil, end == nil
	if fillStart || fillEnd {
		for _, sig := range group {
			r, err := s.DataRange(ctx, sig.Type, sig.Name, "")
			if err != nil {
				return 0, 0, err
			}
			rs, re, ok := r.Depths()
			if !ok {
				continue
			}
			if fillStart && (start == nil || rs < *start) {
				start = &rs
			}
			if fillEnd && (end == nil || re > *end) {
				end = &re
			}
		}
	}
	if start == nil || end == nil {
		return 0, 0, errors.New("signals.load_signals_data: no depth range in scope or stored data")
	}
	return *start, *end, nil
}

package petrovisor

import (
	"context"
	"fmt"
	"slices"

	"petrovisor/pkg/frame"
)

const defaultSaveChunkSize = 10000

// FrameDataOptions control how a frame is read as signal data.
type FrameDataOptions struct {
	// Signals maps column labels, or their names without unit, to
	// signals. A target may carry a unit as in "Oil Rate [bbl/d]".
	Signals map[string]string
	// Entities renames frame entities to workspace entities.
	Entities map[string]string
	// AllEntities keeps entities that do not exist in the workspace.
	AllEntities bool
	// EntityType restricts the existing entities to one type.
	EntityType string
}

// SaveFrameOptions control SaveFrame.
type SaveFrameOptions struct {
	FrameDataOptions
	// ChunkSize bounds the frame rows read per batch, 10000 by default.
	ChunkSize int
	WithLogs  bool
}

type frameColumn struct {
	label string
	sig   *Signal
	unit  string
}

// FrameData reads a long or wide frame as signal data, grouped by signal
// type. Columns that do not map to an existing signal are skipped.
func (s *SignalScope) FrameData(ctx context.Context, f *frame.Frame, opts FrameDataOptions) (map[SignalType][]SignalData, error) {
	const op = "signals.frame_data"
	long, err := frame.ToLong(f)
	if err != nil {
		return nil, err
	}
	if !long.Has(frame.ColEntity) {
		return nil, fmt.Errorf("%s: %w: frame has no %q column and no %q columns", op, frame.ErrDataFormat, frame.ColEntity, "entity"+frame.EntitySeparator+"column")
	}

	var existing []string
	if !opts.AllEntities {
		existing, err = s.c.Entities().Names(ctx, EntityFilter{Type: opts.EntityType})
		if err != nil {
			return nil, err
		}
	}

	columns, err := s.frameColumns(ctx, long, opts.Signals)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		s.c.logger.WarnContext(ctx, "no columns map to existing signals", "operation", op)
		return nil, nil
	}

	depthCol := ""
	for _, n := range long.Names() {
		if frame.BaseName(n) == frame.ColDepth {
			depthCol = n
			break
		}
	}

	out := map[SignalType][]SignalData{}
	keys, groups := long.GroupBy(frame.ColEntity)
	for _, key := range keys {
		entity := key
		if mapped, ok := opts.Entities[key]; ok {
			entity = mapped
		}
		if entity == "" || (!opts.AllEntities && !slices.Contains(existing, entity)) {
			s.c.logger.DebugContext(ctx, "skipping entity", "operation", op, "entity", entity)
			continue
		}
		rows := groups[key]
		for _, col := range columns {
			d, ok := columnData(rows, col, depthCol)
			if !ok {
				continue
			}
			d.Entity = entity
			out[col.sig.Type] = append(out[col.sig.Type], d)
		}
	}
	return out, nil
}

func (s *SignalScope) frameColumns(ctx context.Context, f *frame.Frame, mapping map[string]string) ([]frameColumn, error) {
	const op = "signals.frame_data"
	known, err := s.Names(ctx, SignalFilter{})
	if err != nil {
		return nil, err
	}
	cache := map[string]*Signal{}
	var columns []frameColumn
	for _, label := range f.Names() {
		if frame.IsReserved(frame.BaseName(label)) || label == frame.IndexColumn {
			continue
		}
		target, ok := mapping[label]
		if !ok {
			target, ok = mapping[frame.BaseName(label)]
		}
		if !ok {
			target = label
		}
		name, unit := frame.SplitUnit(target)
		if unit == "" {
			unit = frame.Unit(label)
		}
		if !slices.Contains(known, name) {
			s.c.logger.WarnContext(ctx, "column does not match a signal", "operation", op, "column", label, "signal", name)
			continue
		}
		sig, ok := cache[name]
		if !ok {
			if sig, err = s.mustGet(ctx, name); err != nil {
				return nil, err
			}
			cache[name] = sig
		}
		if sig.Type == SignalPVT {
			s.c.logger.WarnContext(ctx, "PVT data cannot be read from a frame", "operation", op, "signal", name)
			continue
		}
		if unit == "" {
			unit = sig.Unit
		}
		columns = append(columns, frameColumn{label: label, sig: sig, unit: unit})
	}
	return columns, nil
}

// columnData converts one column of one entity's rows.
func columnData(rows *frame.Frame, col frameColumn, depthCol string) (SignalData, bool) {
	typ := col.sig.Type
	kind := typ.ValueKind()
	d := SignalData{Signal: col.sig.Name, Unit: col.unit}
	values, _ := rows.Column(col.label)

	switch {
	case typ.IsTime():
		dates, ok := rows.Column(frame.ColDate)
		if !ok {
			return d, false
		}
		d.Points = []DataPoint{}
		for i, v := range values.Values {
			t, ok := frame.ToTime(dates.Values[i])
			if !ok {
				continue
			}
			d.Points = append(d.Points, DataPoint{Date: frame.TimePtr(t), Value: frame.JSONValue(v, kind)})
		}
	case typ.IsDepth():
		depths, ok := rows.Column(depthCol)
		if depthCol == "" || !ok {
			return d, false
		}
		d.Points = []DataPoint{}
		for i, v := range values.Values {
			z, ok := frame.ToFloat(depths.Values[i])
			if !ok || frame.IsMissing(z) {
				continue
			}
			d.Points = append(d.Points, DataPoint{Depth: &z, Value: frame.JSONValue(v, kind)})
		}
	default:
		i := slices.IndexFunc(values.Values, func(v any) bool { return !frame.IsMissing(v) })
		if i < 0 {
			return d, false
		}
		d.Value = frame.JSONValue(values.Values[i], kind)
		return d, true
	}
	return d, len(d.Points) > 0
}

// SaveFrame stores the signal data of a long or wide frame. The frame is
// split into chunks of at most ChunkSize rows; each chunk is saved with
// one request per signal type.
func (s *SignalScope) SaveFrame(ctx context.Context, f *frame.Frame, opts SaveFrameOptions) error {
	size := opts.ChunkSize
	if size <= 0 {
		size = defaultSaveChunkSize
	}
	for _, chunk := range f.Chunks(size) {
		data, err := s.FrameData(ctx, chunk, opts.FrameDataOptions)
		if err != nil {
			return err
		}
		for _, typ := range SignalTypes() {
			if len(data[typ]) == 0 {
				continue
			}
			s.c.logger.DebugContext(ctx, "saving signal data", "type", typ.String(), "entries", len(data[typ]), "rows", chunk.Len())
			if _, err := s.SaveData(ctx, typ, data[typ], SaveDataOptions{WithLogs: opts.WithLogs}); err != nil {
				return fmt.Errorf("signals.save_frame: %s: %w", typ, err)
			}
		}
	}
	return nil
}

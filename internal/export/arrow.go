package export

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"petrovisor/pkg/frame"
)

func arrowType(k frame.Kind) arrow.DataType {
	switch k {
	case frame.Numeric:
		return arrow.PrimitiveTypes.Float64
	case frame.Time:
		return arrow.FixedWidthTypes.Timestamp_us
	case frame.Bool:
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.BinaryTypes.String
}

// Schema returns the Arrow schema of f: numeric columns are float64, time
// columns UTC microsecond timestamps, booleans boolean and the rest strings.
func Schema(f *frame.Frame) *arrow.Schema {
	fields := make([]arrow.Field, f.Width())
	for i, c := range f.Columns() {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Kind), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow writes f as an Arrow IPC stream holding one record batch.
func WriteArrow(w io.Writer, f *frame.Frame) error {
	mem := memory.NewGoAllocator()
	schema := Schema(f)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for j, c := range f.Columns() {
		fb := b.Field(j)
		for _, v := range c.Values {
			if frame.IsMissing(v) {
				fb.AppendNull()
				continue
			}
			if err := appendValue(fb, c.Kind, v); err != nil {
				return fmt.Errorf("export: arrow: column %q: %w", c.Name, err)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("export: arrow: %w", err)
	}
	return iw.Close()
}

func appendValue(b array.Builder, k frame.Kind, v any) error {
	switch k {
	case frame.Numeric:
		x, ok := frame.ToFloat(v)
		if !ok || math.IsInf(x, 0) {
			b.AppendNull()
			return nil
		}
		b.(*array.Float64Builder).Append(x)
	case frame.Time:
		t, ok := frame.ToTime(v)
		if !ok {
			b.AppendNull()
			return nil
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(t.UnixMicro()))
	case frame.Bool:
		x, ok := frame.ToBool(v)
		if !ok {
			b.AppendNull()
			return nil
		}
		b.(*array.BooleanBuilder).Append(x)
	default:
		sb, ok := b.(*array.StringBuilder)
		if !ok {
			return fmt.Errorf("unexpected builder %T", b)
		}
		sb.Append(frame.ToString(v))
	}
	return nil
}

// ReadArrow reads every record batch of an Arrow IPC stream into one frame.
// Float, integer, timestamp, boolean and string columns are supported.
func ReadArrow(r io.Reader) (*frame.Frame, error) {
	mem := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("export: arrow: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	out := frame.New()
	cols := make([][]any, schema.NumFields())
	kinds := make([]frame.Kind, schema.NumFields())
	for j, field := range schema.Fields() {
		kinds[j] = kindOf(field.Type)
	}
	for rdr.Next() {
		rec := rdr.Record()
		for j := range cols {
			vals, err := arrowValues(rec.Column(j))
			if err != nil {
				return nil, fmt.Errorf("export: arrow: column %q: %w", schema.Field(j).Name, err)
			}
			cols[j] = append(cols[j], vals...)
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("export: arrow: %w", err)
	}
	for j, field := range schema.Fields() {
		vals := cols[j]
		if vals == nil {
			vals = []any{}
		}
		if err := out.AddColumn(field.Name, kinds[j], vals); err != nil {
			return nil, fmt.Errorf("export: arrow: %w", err)
		}
	}
	return out, nil
}

func arrowValues(col arrow.Array) ([]any, error) {
	if kindOf(col.DataType()) == frame.Generic {
		return nil, fmt.Errorf("unsupported type %s", col.DataType())
	}
	vals := make([]any, col.Len())
	for i := range vals {
		if col.IsNull(i) {
			continue
		}
		switch a := col.(type) {
		case *array.Float64:
			vals[i] = a.Value(i)
		case *array.Float32:
			vals[i] = float64(a.Value(i))
		case *array.Int64:
			vals[i] = float64(a.Value(i))
		case *array.Int32:
			vals[i] = float64(a.Value(i))
		case *array.Timestamp:
			vals[i] = a.Value(i).ToTime(a.DataType().(*arrow.TimestampType).Unit)
		case *array.Boolean:
			vals[i] = a.Value(i)
		case *array.String:
			vals[i] = a.Value(i)
		}
	}
	return vals, nil
}

func kindOf(dt arrow.DataType) frame.Kind {
	switch dt.ID() {
	case arrow.FLOAT64, arrow.FLOAT32, arrow.INT64, arrow.INT32:
		return frame.Numeric
	case arrow.TIMESTAMP:
		return frame.Time
	case arrow.BOOL:
		return frame.Bool
	case arrow.STRING:
		return frame.String
	}
	return frame.Generic
}

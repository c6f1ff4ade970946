package petrovisor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"petrovisor/pkg/frame"
)

// frameAPI knows the signals Oil (time), Area (static) and Props (PVT) and
// the entities W1, W2 and Field.
func frameAPI(t *testing.T) *fakeAPI {
	api := newFakeAPI(t)
	api.json("GET Signals", []string{"Oil", "Area", "Props"})
	api.json("GET Signals/Oil", Signal{Name: "Oil", Type: SignalTime, Unit: "bbl"})
	api.json("GET Signals/Area", Signal{Name: "Area", Type: SignalStatic, Unit: "m2"})
	api.json("GET Signals/Props", Signal{Name: "Props", Type: SignalPVT})
	api.json("GET Entities", []string{"W1", "W2", "Field"})
	return api
}

func TestFrameData_Long(t *testing.T) {
	c := newTestClient(t, frameAPI(t))
	f, err := frame.FromRows(
		[]string{"Entity", "Date", "Oil [m3]", "Area", "Unknown", "Props"},
		[][]any{
			{"W1", day(1), 1.0, 9.0, 1.0, 1.0},
			{"W1", day(2), nil, 9.0, 1.0, 1.0},
			{"W2", day(1), 3.0, 4.0},
			{"X", day(1), 5.0, 5.0},
		},
	)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}

	got, err := c.Signals().FrameData(context.Background(), f, FrameDataOptions{
		Entities: map[string]string{"W2": "Field"},
	})
	if err != nil {
		t.Fatalf("FrameData: %v", err)
	}
	d1, d2 := day(1), day(2)
	want := map[SignalType][]SignalData{
		SignalTime: {
			{Entity: "W1", Signal: "Oil", Unit: "m3", Points: []DataPoint{{Date: &d1, Value: 1.0}, {Date: &d2, Value: "NaN"}}},
			{Entity: "Field", Signal: "Oil", Unit: "m3", Points: []DataPoint{{Date: &d1, Value: 3.0}}},
		},
		SignalStatic: {
			{Entity: "W1", Signal: "Area", Unit: "m2", Value: 9.0},
			{Entity: "Field", Signal: "Area", Unit: "m2", Value: 4.0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frame data mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameData_WideWithMapping(t *testing.T) {
	c := newTestClient(t, frameAPI(t))
	f, err := frame.FromRows(
		[]string{"Date", frame.JoinEntity("W1", "Production"), frame.JoinEntity("W9", "Production")},
		[][]any{{day(1), 2.0, 7.0}},
	)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	got, err := c.Signals().FrameData(context.Background(), f, FrameDataOptions{
		Signals:     map[string]string{"Production": "Oil [bbl/d]"},
		AllEntities: true,
	})
	if err != nil {
		t.Fatalf("FrameData: %v", err)
	}
	data := got[SignalTime]
	if len(data) != 2 {
		t.Fatalf("expected data for W1 and W9, got %+v", data)
	}
	if data[0].Entity != "W1" || data[0].Signal != "Oil" || data[0].Unit != "bbl/d" {
		t.Errorf("unexpected entry %+v", data[0])
	}
	if data[1].Entity != "W9" || data[1].Points[0].Value != 7.0 {
		t.Errorf("unexpected entry %+v", data[1])
	}
}

func TestFrameData_DepthColumn(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET Signals", []string{"GR"})
	api.json("GET Signals/GR", Signal{Name: "GR", Type: SignalDepth, Unit: "API"})
	c := newTestClient(t, api)
	f, _ := frame.FromRows(
		[]string{"Entity", "Depth [ft]", "GR"},
		[][]any{{"W1", 100.0, 50.0}, {"W1", nil, 60.0}, {"W1", 101.0, 55.0}},
	)
	got, err := c.Signals().FrameData(context.Background(), f, FrameDataOptions{AllEntities: true})
	if err != nil {
		t.Fatalf("FrameData: %v", err)
	}
	z1, z2 := 100.0, 101.0
	want := []SignalData{{Entity: "W1", Signal: "GR", Unit: "API", Points: []DataPoint{{Depth: &z1, Value: 50.0}, {Depth: &z2, Value: 55.0}}}}
	if diff := cmp.Diff(want, got[SignalDepth]); diff != "" {
		t.Errorf("depth data mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameData_RequiresEntity(t *testing.T) {
	c := newTestClient(t, frameAPI(t))
	f, _ := frame.FromRows([]string{"Date", "Oil"}, [][]any{{day(1), 1.0}})
	_, err := c.Signals().FrameData(context.Background(), f, FrameDataOptions{})
	if !errors.Is(err, frame.ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
}

func TestFrameData_NoMatchingColumns(t *testing.T) {
	c := newTestClient(t, frameAPI(t))
	f, _ := frame.FromRows([]string{"Entity", "Gas"}, [][]any{{"W1", 1.0}})
	got, err := c.Signals().FrameData(context.Background(), f, FrameDataOptions{})
	if err != nil || got != nil {
		t.Fatalf("FrameData = %v, %v", got, err)
	}
}

func TestSaveFrame_Chunks(t *testing.T) {
	api := frameAPI(t)
	api.json("POST Data/Time/Save", []string{})
	api.json("POST Data/Static/Save", []string{})
	c := newTestClient(t, api)

	rows := make([][]any, 5)
	for i := range rows {
		rows[i] = []any{"W1", day(i + 1), float64(i), 1.0}
	}
	f, _ := frame.FromRows([]string{"Entity", "Date", "Oil", "Area"}, rows)

	if err := c.Signals().SaveFrame(context.Background(), f, SaveFrameOptions{ChunkSize: 2}); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	saves := api.calls("POST Data/Time/Save")
	if len(saves) != 3 {
		t.Fatalf("expected 3 time saves, got %d", len(saves))
	}
	if n := len(api.calls("POST Data/Static/Save")); n != 3 {
		t.Errorf("expected 3 static saves, got %d", n)
	}
	var last []SignalData
	if err := json.Unmarshal([]byte(saves[2].Body), &last); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(last) != 1 || len(last[0].Points) != 1 || last[0].Unit != "bbl" {
		t.Errorf("unexpected last chunk %+v", last)
	}
}

func TestSaveFrame_WithLogs(t *testing.T) {
	api := frameAPI(t)
	api.json("POST Data/Static/SaveWithLogs", []string{})
	c := newTestClient(t, api)
	f, _ := frame.FromRows([]string{"Entity", "Area"}, [][]any{{"W1", 3.0}})
	if err := c.Signals().SaveFrame(context.Background(), f, SaveFrameOptions{WithLogs: true}); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	if n := len(api.calls("POST Data/Static/SaveWithLogs")); n != 1 {
		t.Errorf("expected one save with logs, got %d", n)
	}
}

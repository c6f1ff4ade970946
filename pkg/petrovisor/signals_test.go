package petrovisor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"petrovisor/pkg/frame"
)

func TestLoadData_Routes(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotQuery url.Values
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = strings.TrimPrefix(r.URL.Path, "/"+DefaultRoute+testWorkspace+"/")
		gotQuery = r.URL.Query()
		mu.Unlock()
		writeJSON(w, []SignalData{})
	}))

	daily := Daily
	meter := Meter
	start, end := day(1), day(31)
	startStr, endStr := frame.FormatTime(start), frame.FormatTime(end)
	d1, d2 := 1500.5, 1600.0

	tests := []struct {
		name      string
		typ       SignalType
		opts      LoadDataOptions
		wantPath  string
		wantQuery url.Values
	}{
		{"static", SignalStatic, LoadDataOptions{}, "Data/Static/Load", url.Values{}},
		{"pvt units default", SignalPVT, LoadDataOptions{}, "Data/PVT/Load",
			url.Values{"PressureUnit": {"Pa"}, "TemperatureUnit": {"K"}}},
		{"first values", SignalTime, LoadDataOptions{NumValues: 5}, "Data/Time/First",
			url.Values{"NumberOfValues": {"5"}}},
		{"last values", SignalDepth, LoadDataOptions{NumValues: -2}, "Data/Depth/Last",
			url.Values{"NumberOfValues": {"2"}}},
		{"time range", SignalTime, LoadDataOptions{StartTime: &start, EndTime: &end, TimeIncrement: &daily, Hierarchy: "H"},
			"Data/Time/Load", url.Values{"Start": {startStr}, "End": {endStr}, "Increment": {"Daily"}, "Hierarchy": {"H"}}},
		{"depth range ignores hierarchy", SignalDepth, LoadDataOptions{StartDepth: &d1, EndDepth: &d2, DepthIncrement: &meter, Hierarchy: "H"},
			"Data/Depth/Load", url.Values{"Start": {"1500.5"}, "End": {"1600"}, "Increment": {"Meter"}}},
		{"gap value", SignalTime, LoadDataOptions{StartTime: &start, EndTime: &end, TimeIncrement: &daily, GapValue: -999},
			"Data/Time/Load/-999", url.Values{"Start": {startStr}, "End": {endStr}, "Increment": {"Daily"}}},
		{"saved time point", SignalTime, LoadDataOptions{StartTime: &start, EndTime: &start},
			"Data/Time/Saved", url.Values{"Date": {startStr}}},
		{"saved depth point", SignalDepth, LoadDataOptions{StartDepth: &d1, EndDepth: &d1},
			"Data/Depth/Saved", url.Values{"Depth": {"1500.5"}}},
		{"interpolated depth point", SignalDepth, LoadDataOptions{StartDepth: &d1, EndDepth: &d1, Interpolated: true},
			"Data/Depth/Interpolated", url.Values{"Depth": {"1500.5"}}},
		{"string time point", SignalStringTime, LoadDataOptions{StartTime: &start, EndTime: &start},
			"Data/StringTime/Load", url.Values{"Start": {startStr}, "End": {startStr}, "Increment": {"EverySecond"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := []DataRequest{{Entity: "W1", Signal: "Oil", Unit: "bbl"}}
			if _, err := c.Signals().LoadData(context.Background(), tt.typ, reqs, tt.opts); err != nil {
				t.Fatalf("LoadData: %v", err)
			}
			mu.Lock()
			defer mu.Unlock()
			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if diff := cmp.Diff(tt.wantQuery, gotQuery); diff != "" {
				t.Errorf("query mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadData_InvalidRanges(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	start, end := day(1), day(2)
	d := 10.0
	tests := []struct {
		name string
		typ  SignalType
		opts LoadDataOptions
	}{
		{"no range", SignalTime, LoadDataOptions{}},
		{"half range", SignalTime, LoadDataOptions{StartTime: &start}},
		{"range without increment", SignalTime, LoadDataOptions{StartTime: &start, EndTime: &end}},
		{"string depth point", SignalStringDepth, LoadDataOptions{StartDepth: &d, EndDepth: &d}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Signals().LoadData(context.Background(), tt.typ, nil, tt.opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSignalData_JSON(t *testing.T) {
	raw := `[
		{"Entity":"W1","Signal":"Oil","Unit":"bbl","Data":[{"Date":"2024-01-02T00:00:00","Value":3.5},{"Date":"2024-01-03T00:00:00.000000","Value":null}]},
		{"Entity":"W1","Signal":"Area","Unit":"m2","Data":12},
		{"Entity":"W1","Signal":"GR","Unit":"API","Data":[{"Depth":100.5,"Value":7}]}
	]`
	var data []SignalData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatal(err)
	}
	if len(data[0].Points) != 2 || !data[0].Points[0].Date.Equal(day(2)) || data[0].Points[0].Value != 3.5 {
		t.Errorf("unexpected time data %+v", data[0])
	}
	if data[1].Points != nil || data[1].Value != 12.0 {
		t.Errorf("unexpected static data %+v", data[1])
	}
	if *data[2].Points[0].Depth != 100.5 || data[2].Points[0].Date != nil {
		t.Errorf("unexpected depth data %+v", data[2])
	}

	b, err := json.Marshal(SignalData{Entity: "W1", Signal: "Oil", Unit: "bbl", Points: []DataPoint{{Date: frame.TimePtr(day(2)), Value: 1.0}}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"Entity":"W1","Signal":"Oil","Unit":"bbl","Data":[{"Date":"2024-01-02T00:00:00.000000","Value":1}]}`
	if string(b) != want {
		t.Errorf("got %s\nwant %s", b, want)
	}
	b, _ = json.Marshal(SignalData{Entity: "W1", Signal: "Area", Unit: "m2", Value: 4.0})
	if !strings.Contains(string(b), `"Data":4`) {
		t.Errorf("static value not inlined: %s", b)
	}
}

func TestSignalData_Series(t *testing.T) {
	d := SignalData{Entity: "W1", Signal: "Area", Unit: "m2", Value: 9.0}
	s := d.Series(frame.Numeric)
	if s.Label() != "Area [m2]" || len(s.Points) != 1 || s.Points[0].Value != 9.0 || s.Points[0].Date != nil {
		t.Errorf("unexpected series %+v", s)
	}
}

func TestSignals_NamesFilters(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET Signals", nil)
	api.json("GET Signals/TimeDependent/Signals", []Signal{{Name: "Oil", Type: SignalTime}, {Name: "Gas", Type: SignalTime}})
	api.json("GET Entities/W1/Signals", []string{"Oil", "Area"})
	c := newTestClient(t, api)
	ctx := context.Background()

	all, err := c.Signals().Names(ctx, SignalFilter{})
	if err != nil || all == nil || len(all) != 0 {
		t.Errorf("expected empty non-nil names, got %#v, %v", all, err)
	}
	got, err := c.Signals().Names(ctx, SignalFilter{Type: "time", Entity: "W1"})
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if diff := cmp.Diff([]string{"Oil"}, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	list, err := c.Signals().List(ctx, SignalFilter{Type: "time", Entity: "W1"})
	if err != nil || len(list) != 1 || list[0].Name != "Oil" {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestSignals_TypeOfMissingSignal(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("GET Signals/Ghost", func(w http.ResponseWriter, r *http.Request) { writeRaw(w, "null") })
	c := newTestClient(t, api)
	if _, err := c.Signals().Type(context.Background(), "Ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSignals_Add(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST Signals/Add", func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, api)
	if err := c.Signals().Add(context.Background(), Signal{Name: "Oil", Type: SignalTime}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	var sent []map[string]any
	json.Unmarshal([]byte(api.calls("POST Signals/Add")[0].Body), &sent)
	if sent[0]["SignalType"] != "TimeDependent" || sent[0]["StorageUnitName"] != " " || sent[0]["ShortName"] != "Oil" {
		t.Errorf("unexpected body %v", sent)
	}
}

func TestDataRange(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET Data/Time/Range/Oil/W1", map[string]any{"Start": "2024-01-01T00:00:00", "End": "2024-01-05T00:00:00"})
	api.json("GET Data/Depth/Range", map[string]any{"Start": 10, "End": 20.5})
	c := newTestClient(t, api)
	ctx := context.Background()

	r, err := c.Signals().DataRange(ctx, SignalTime, "Oil", "W1")
	if err != nil {
		t.Fatalf("DataRange: %v", err)
	}
	if start, end, ok := r.Times(); !ok || !start.Equal(day(1)) || !end.Equal(day(5)) {
		t.Errorf("Times() = %v %v %v", start, end, ok)
	}
	r, err = c.Signals().DataRange(ctx, SignalDepth, "", "W1")
	if err != nil {
		t.Fatalf("DataRange: %v", err)
	}
	if start, end, ok := r.Depths(); !ok || start != 10 || end != 20.5 {
		t.Errorf("Depths() = %v %v %v", start, end, ok)
	}
}

func TestCleanse(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST Data/Time/Cleanse", map[string]any{"Valid": true})
	c := newTestClient(t, api)
	_, err := c.Signals().Cleanse(context.Background(), CleanseRequest{
		Type: SignalTime, Entity: "W1", Signal: "Oil", Unit: "bbl", Value: 3,
		Timestamp: day(1), Script: "Rules", Options: map[string]any{"IsPreview": false},
	})
	if err != nil {
		t.Fatalf("Cleanse: %v", err)
	}
	var body map[string]any
	json.Unmarshal([]byte(api.calls("POST Data/Time/Cleanse")[0].Body), &body)
	opts := body["Options"].(map[string]any)
	if opts["IsPreview"] != false || opts["CleansingScript"] != "Rules" || body["Timestamp"] != frame.FormatTime(day(1)) {
		t.Errorf("unexpected body %v", body)
	}
	if _, err := c.Signals().Cleanse(context.Background(), CleanseRequest{Type: SignalDepth}); err == nil {
		t.Error("expected error for depth data")
	}
}

func TestRetrieve_RejectsPVT(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	if _, err := c.Signals().Retrieve(context.Background(), SignalPVT, RetrieveRequest{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteData_Query(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST Data/Depth/Delete", func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, api)
	start := 5.0
	err := c.Signals().DeleteData(context.Background(), SignalDepth, []DataRequest{{Entity: "W1", Signal: "GR"}}, DeleteDataOptions{StartDepth: &start})
	if err != nil {
		t.Fatalf("DeleteData: %v", err)
	}
	if q := api.calls("POST Data/Depth/Delete")[0].Query; q != "Start=5" {
		t.Errorf("unexpected query %q", q)
	}
}

func TestParseSignalRefs(t *testing.T) {
	got := ParseSignalRefs("Oil Rate [bbl/d]", "Status")
	want := []SignalRef{{Name: "Oil Rate", Unit: "bbl/d"}, {Name: "Status"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("refs mismatch (-want +got):\n%s", diff)
	}
}

// signalsDataAPI serves one time, one depth and one static string signal
// for entity W1.
func signalsDataAPI(t *testing.T) *fakeAPI {
	api := newFakeAPI(t)
	api.json("GET Signals/Oil", Signal{Name: "Oil", Type: SignalTime, Unit: "bbl"})
	api.json("GET Signals/GR", Signal{Name: "GR", Type: SignalDepth, Unit: "API"})
	api.json("GET Signals/Status", Signal{Name: "Status", Type: SignalString, Unit: " "})
	api.json("GET Signals/Fluid", Signal{Name: "Fluid", Type: SignalPVT, Unit: " "})
	api.handle("GET Signals/Missing", func(w http.ResponseWriter, r *http.Request) { writeRaw(w, "null") })
	api.json("GET Entities/W1", Entity{Name: "W1", Type: "Well"})
	api.json("GET Data/Depth/Range/GR", map[string]any{"Start": 100, "End": 200})
	api.handle("POST Data/Time/Retrieve", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[{"Entity":"W1","Signal":"Oil","Unit":"m3","Data":[{"Date":"2024-01-01T00:00:00.000000","Value":1}]}]`)
	})
	api.handle("POST Data/Depth/Retrieve", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[{"Entity":"W1","Signal":"GR","Unit":"API","Data":[{"Depth":100,"Value":50}]}]`)
	})
	api.handle("POST Data/String/Retrieve", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[{"Entity":"W1","Signal":"Status","Unit":" ","Data":"Open"}]`)
	})
	return api
}

func TestLoadSignalsData(t *testing.T) {
	api := signalsDataAPI(t)
	c := newTestClient(t, api)
	start, end := day(1), day(2)
	daily := Daily

	f, err := c.Signals().LoadSignalsData(context.Background(), SignalsDataOptions{
		Signals: ParseSignalRefs("Oil [m3]", "GR", "Status", "Fluid", "Missing"),
		ContextOptions: ContextOptions{
			Entities:       []string{"W1"},
			ScopeOverrides: ScopeOverrides{TimeStart: &start, TimeEnd: &end, TimeIncrement: &daily},
		},
	})
	if err != nil {
		t.Fatalf("LoadSignalsData: %v", err)
	}
	wantNames := []string{"Entity", "Date", "Depth", "Oil [m3]", "GR [API]", "Status [ ]"}
	if diff := cmp.Diff(wantNames, f.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{"W1", day(1), nil, 1.0, nil, "Open"},
		{"W1", nil, 100.0, nil, 50.0, "Open"},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	var timeReq RetrieveRequest
	json.Unmarshal([]byte(api.calls("POST Data/Time/Retrieve")[0].Body), &timeReq)
	if timeReq.Start != frame.FormatTime(start) || timeReq.End != frame.FormatTime(end) || *timeReq.TimeIncrement != Daily {
		t.Errorf("unexpected time request %+v", timeReq)
	}
	if diff := cmp.Diff(&Combinations{Entities: []string{"W1"}, Signals: []SignalUnit{{Signal: "Oil", Unit: "m3"}}}, timeReq.Combinations); diff != "" {
		t.Errorf("combinations mismatch (-want +got):\n%s", diff)
	}
	var depthReq RetrieveRequest
	json.Unmarshal([]byte(api.calls("POST Data/Depth/Retrieve")[0].Body), &depthReq)
	if *depthReq.StartDepth != 100 || *depthReq.EndDepth != 200 {
		t.Errorf("depth bounds should come from the stored range: %+v", depthReq)
	}
	if n := len(api.calls("POST Data/PVT/Retrieve")); n != 0 {
		t.Errorf("PVT signals are skipped, got %d requests", n)
	}
}

func TestLoadSignalsData_CoercesMissingValues(t *testing.T) {
	api := signalsDataAPI(t)
	api.json("GET Signals/Note", Signal{Name: "Note", Type: SignalStringTime, Unit: " "})
	api.handle("POST Data/Time/Retrieve", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[{"Entity":"W1","Signal":"Oil","Unit":"bbl","Data":[`+
			`{"Date":"2024-01-01T00:00:00.000000","Value":1.5},`+
			`{"Date":"2024-01-02T00:00:00.000000","Value":"NaN"}]}]`)
	})
	api.handle("POST Data/StringTime/Retrieve", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[{"Entity":"W1","Signal":"Note","Unit":" ","Data":[`+
			`{"Date":"2024-01-01T00:00:00.000000","Value":null},`+
			`{"Date":"2024-01-02T00:00:00.000000","Value":"shut"}]}]`)
	})
	c := newTestClient(t, api)
	start, end := day(1), day(2)
	daily := Daily

	f, err := c.Signals().LoadSignalsData(context.Background(), SignalsDataOptions{
		Signals: ParseSignalRefs("Oil", "Note"),
		ContextOptions: ContextOptions{
			Entities:       []string{"W1"},
			ScopeOverrides: ScopeOverrides{TimeStart: &start, TimeEnd: &end, TimeIncrement: &daily},
		},
	})
	if err != nil {
		t.Fatalf("LoadSignalsData: %v", err)
	}
	if f == nil || f.Len() != 2 {
		t.Fatalf("expected 2 rows, got %v", f)
	}
	if v := f.Value(0, "Oil [bbl]"); v != 1.5 {
		t.Errorf("Oil day 1 = %v, want 1.5", v)
	}
	if v, ok := f.Value(1, "Oil [bbl]").(float64); !ok || !math.IsNaN(v) {
		t.Errorf("Oil day 2 = %#v, want NaN", f.Value(1, "Oil [bbl]"))
	}
	if v := f.Value(0, "Note [ ]"); v != "" {
		t.Errorf("Note day 1 = %#v, want empty string", v)
	}
	if v := f.Value(1, "Note [ ]"); v != "shut" {
		t.Errorf("Note day 2 = %#v, want shut", v)
	}
}

func TestLoadSignalsData_EmptyEntitySet(t *testing.T) {
	c := newTestClient(t, signalsDataAPI(t))
	_, err := c.Signals().LoadSignalsData(context.Background(), SignalsDataOptions{Signals: ParseSignalRefs("Oil")})
	if err == nil || !strings.Contains(err.Error(), "entity set is empty") {
		t.Fatalf("expected empty entity set error, got %v", err)
	}
}

func TestLoadSignalsData_NoSignals(t *testing.T) {
	c := newTestClient(t, signalsDataAPI(t))
	f, err := c.Signals().LoadSignalsData(context.Background(), SignalsDataOptions{Signals: ParseSignalRefs("Missing")})
	if err != nil || f != nil {
		t.Fatalf("expected nil frame, got %v, %v", f, err)
	}
}

func TestLoadSignalsData_TimeRangeFromStoredData(t *testing.T) {
	api := signalsDataAPI(t)
	api.json("GET Data/Time/Range/Oil", map[string]any{"Start": "2023-06-01T00:00:00", "End": "2024-03-01T00:00:00"})
	c := newTestClient(t, api)
	start := day(1)
	_, err := c.Signals().LoadSignalsData(context.Background(), SignalsDataOptions{
		Signals:        ParseSignalRefs("Oil"),
		ContextOptions: ContextOptions{Entities: []string{"W1"}, ScopeOverrides: ScopeOverrides{TimeStart: &start}},
	})
	if err != nil {
		t.Fatalf("LoadSignalsData: %v", err)
	}
	var req RetrieveRequest
	json.Unmarshal([]byte(api.calls("POST Data/Time/Retrieve")[0].Body), &req)
	if req.Start != frame.FormatTime(start) || req.End != "2024-03-01T00:00:00.000000" {
		t.Errorf("scope start is kept and the end filled from the stored range: %+v", req)
	}
}

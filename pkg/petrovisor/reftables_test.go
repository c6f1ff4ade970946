package petrovisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"petrovisor/pkg/frame"
)

var permTable = RefTable{
	Name:   "T",
	Key:    RefTableColumn{Name: "Key", Unit: "m", ColumnType: RefTableNumeric},
	Values: []RefTableColumn{{Name: "Perm", Unit: "mD", ColumnType: RefTableNumeric}, {Name: "Zone", Unit: " ", ColumnType: RefTableString}},
}

func TestRefTableDefinition(t *testing.T) {
	f := frame.New()
	f.AddColumn("ID", frame.Numeric, []any{1.0})
	f.AddColumn("Entity", frame.String, []any{"W1"})
	f.AddColumn("Timestamp", frame.Time, []any{day(1)})
	f.AddColumn("Key [m]", frame.Numeric, []any{1.0})
	f.AddColumn("Perm [mD]", frame.Numeric, []any{2.0})
	f.AddColumn("Zone", frame.Generic, []any{"A"})
	f.AddColumn("Active", frame.Bool, []any{true})

	got, err := RefTableOptions{Description: "perm"}.Definition("T", f)
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	want := &RefTable{
		Name:        "T",
		Description: "perm",
		Key:         RefTableColumn{Name: "Key", Unit: "m", ColumnType: RefTableNumeric},
		Values: []RefTableColumn{
			{Name: "Perm", Unit: "mD", ColumnType: RefTableNumeric},
			{Name: "Zone", Unit: " ", ColumnType: RefTableString},
			{Name: "Active", Unit: " ", ColumnType: RefTableBool},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("definition mismatch (-want +got):\n%s", diff)
	}

	if _, err := (RefTableOptions{KeyColumn: "Depth"}).Definition("T", f); !errors.Is(err, frame.ErrDataFormat) {
		t.Errorf("expected ErrDataFormat for a missing key column, got %v", err)
	}
}

func TestRefTables_SaveDataAlignsAndConverts(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET ReferenceTables/T", permTable)
	api.handle("POST Units/D/Convert/mD", func(w http.ResponseWriter, r *http.Request) {
		var xs []float64
		json.NewDecoder(r.Body).Decode(&xs)
		for i := range xs {
			xs[i] *= 1000
		}
		writeJSON(w, xs)
	})
	api.handle("PUT RefTables/T/Data/String", func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, api)

	f, _ := frame.FromRows(
		[]string{"Zone", "Perm [D]", "Key", "Date", "Entity"},
		[][]any{{"A", 0.5, 1.0, day(1), "W1"}, {"B", nil, 2.0, nil, "W1"}},
	)
	if err := c.RefTables().SaveData(context.Background(), "T", f, RefTableOptions{ChunkSize: 1, SkipExisting: true}); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	puts := api.calls("PUT RefTables/T/Data/String")
	if len(puts) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(puts))
	}
	if q, _ := url.ParseQuery(puts[0].Query); q.Get("skipExistingData") != "true" {
		t.Errorf("unexpected query %q", puts[0].Query)
	}
	var rows [][]any
	for _, p := range puts {
		var chunk [][]any
		if err := json.Unmarshal([]byte(p.Body), &chunk); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		rows = append(rows, chunk...)
	}
	want := [][]any{
		{"W1", "2024-01-01T00:00:00.000000", "1", "500", "A"},
		{"W1", nil, "2", nil, "B"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRefTables_SaveDataMissingKey(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET ReferenceTables/T", permTable)
	c := newTestClient(t, api)
	f, _ := frame.FromRows([]string{"Entity", "Perm"}, [][]any{{"W1", 1.0}})
	err := c.RefTables().SaveData(context.Background(), "T", f, RefTableOptions{})
	if !errors.Is(err, frame.ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
}

func TestRefTables_Add(t *testing.T) {
	api := newFakeAPI(t)
	var mu sync.Mutex
	var def []byte
	api.handle("GET ReferenceTables", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if def == nil {
			writeJSON(w, []string{})
			return
		}
		writeJSON(w, []string{"T"})
	})
	api.handle("PUT ReferenceTables/T", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		def, _ = io.ReadAll(r.Body)
	})
	api.handle("GET ReferenceTables/T", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeRaw(w, string(def))
	})
	api.handle("PUT RefTables/T/Data/String", func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, api)

	f, _ := frame.FromRows([]string{"Entity", "Key [m]", "Perm [mD]"}, [][]any{{"W1", 1.0, 3.0}})
	f.Coerce(map[string]frame.Kind{"Key": frame.Numeric, "Perm": frame.Numeric}, frame.Generic)
	if err := c.RefTables().Add(context.Background(), "T", f, RefTableOptions{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	var got RefTable
	if err := json.Unmarshal(def, &got); err != nil {
		t.Fatalf("decode definition: %v", err)
	}
	if got.Key.Name != "Key" || len(got.Values) != 1 || got.Values[0].Unit != "mD" {
		t.Errorf("unexpected definition %+v", got)
	}
	puts := api.calls("PUT RefTables/T/Data/String")
	if len(puts) != 1 {
		t.Fatalf("expected one save, got %d", len(puts))
	}
	var rows [][]any
	json.Unmarshal([]byte(puts[0].Body), &rows)
	if diff := cmp.Diff([][]any{{"W1", nil, "1", "3"}}, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRefTables_LoadData(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET ReferenceTables/T", permTable)
	api.handle("POST RefTables/T/Data", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, `[["W1","2024-01-01T00:00:00",1,2.5,"A"],["W2",null,2,null,null]]`)
	})
	c := newTestClient(t, api)
	start, end := day(1), day(31)

	f, err := c.RefTables().LoadData(context.Background(), "T", RefTableFilter{
		Entities: []string{"W1"},
		Start:    &start,
		End:      &end,
		Where:    "Zone = 'A'",
	})
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if diff := cmp.Diff([]string{"Entity", "Date", "Key [m]", "Perm [mD]", "Zone"}, f.Names()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if v, ok := f.Value(0, "Date").(time.Time); !ok || !v.Equal(day(1)) {
		t.Errorf("Date = %v", f.Value(0, "Date"))
	}
	if v := f.Value(0, "Perm [mD]"); v != 2.5 {
		t.Errorf("Perm = %v", v)
	}
	if v := f.Value(1, "Zone"); v != "" {
		t.Errorf("missing string should be empty, got %v", v)
	}

	var body map[string]any
	json.Unmarshal([]byte(api.calls("POST RefTables/T/Data")[0].Body), &body)
	want := map[string]any{
		"Entity":          "W1",
		"StartTimestamp":  "2024-01-01T00:00:00.000000",
		"EndTimestamp":    "2024-01-31T00:00:00.000000",
		"WhereExpression": "Zone = 'A'",
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestRefTables_LoadDataRowWidth(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET ReferenceTables/T", permTable)
	api.json("POST RefTables/T/Data", [][]any{{"W1", nil, 1}})
	c := newTestClient(t, api)
	if _, err := c.RefTables().LoadData(context.Background(), "T", RefTableFilter{}); !errors.Is(err, frame.ErrDataFormat) {
		t.Fatalf("expected ErrDataFormat, got %v", err)
	}
}

func TestRefTables_DeleteData(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("DELETE RefTables/T/Data", func(w http.ResponseWriter, r *http.Request) {})
	api.handle("DELETE RefTables/T/Data/Timestamp", func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, api)
	ctx := context.Background()

	if err := c.RefTables().DeleteData(ctx, "T", nil, nil); err != nil {
		t.Fatalf("DeleteData: %v", err)
	}
	start := day(3)
	if err := c.RefTables().DeleteData(ctx, "T", &start, nil); err != nil {
		t.Fatalf("DeleteData: %v", err)
	}
	if n := len(api.calls("DELETE RefTables/T/Data")); n != 1 {
		t.Errorf("expected one full delete, got %d", n)
	}
	ranged := api.calls("DELETE RefTables/T/Data/Timestamp")
	if len(ranged) != 1 {
		t.Fatalf("expected one ranged delete, got %d", len(ranged))
	}
	q, _ := url.ParseQuery(ranged[0].Query)
	if q.Get("TimestampStart") != "2024-01-03T00:00:00.000000" || q.Get("TimestampEnd") != q.Get("TimestampStart") {
		t.Errorf("unexpected query %v", q)
	}
}

func TestRefTables_DeleteMissing(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET ReferenceTables", []string{"Other"})
	c := newTestClient(t, api)
	if err := c.RefTables().Delete(context.Background(), "T"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := len(api.calls("DELETE RefTables/T")); n != 0 {
		t.Errorf("missing table should not be deleted, got %d requests", n)
	}
}

func TestRefTables_DeleteWaitsUntilGone(t *testing.T) {
	api := newFakeAPI(t)
	var mu sync.Mutex
	listings, deleted := 0, false
	api.handle("GET ReferenceTables", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		listings++
		// the table stays listed for one poll after the delete
		if !deleted || listings < 3 {
			writeJSON(w, []string{"T"})
			return
		}
		writeJSON(w, []string{})
	})
	api.handle("DELETE RefTables/T", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		deleted = true
		mu.Unlock()
	})
	c := newTestClient(t, api)

	if err := c.RefTables().Delete(context.Background(), "T"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := len(api.calls("DELETE RefTables/T")); n != 1 {
		t.Errorf("expected one delete, got %d", n)
	}
	mu.Lock()
	defer mu.Unlock()
	if listings != 3 {
		t.Errorf("expected 3 listings, got %d", listings)
	}
}

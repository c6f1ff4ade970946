package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"petrovisor/pkg/frame"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

// production returns a small long frame with one column of each kind.
func production(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New()
	add := func(name string, k frame.Kind, vals ...any) {
		if err := f.AddColumn(name, k, vals); err != nil {
			t.Fatalf("AddColumn: %v", err)
		}
	}
	add("Entity", frame.String, "W1", "W2")
	add("Date", frame.Time, day(1), day(2))
	add("Oil [bbl]", frame.Numeric, 1.5, nil)
	add("Active", frame.Bool, true, false)
	return f
}

func TestByExtension(t *testing.T) {
	tests := []struct {
		path       string
		want       Format
		compressed bool
		wantErr    bool
	}{
		{"out.csv", CSV, false, false},
		{"OUT.XLSX", XLSX, false, false},
		{"data.arrow.zst", Arrow, true, false},
		{"report.pdf", PDF, false, false},
		{"data.csv.zst", CSV, true, false},
		{"data.parquet", "", false, true},
		{"data.zst", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, compressed, err := ByExtension(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByExtension(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrUnsupported) {
					t.Errorf("expected ErrUnsupported, got %v", err)
				}
				return
			}
			if got != tt.want || compressed != tt.compressed {
				t.Errorf("ByExtension(%q) = %q, %v", tt.path, got, compressed)
			}
		})
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, production(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	wantText := "Entity,Date,Oil [bbl],Active\n" +
		"W1,2024-01-01T00:00:00.000000,1.5,true\n" +
		"W2,2024-01-02T00:00:00.000000,,false\n"
	if diff := cmp.Diff(wantText, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	// booleans read back as text
	want := [][]any{{"W1", day(1), 1.5, "true"}, {"W2", day(2), nil, "false"}}
	if diff := cmp.Diff(want, got.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if c, _ := got.Column("Oil [bbl]"); c.Kind != frame.Numeric {
		t.Errorf("Oil kind = %v", c.Kind)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	f, err := ReadCSV(bytes.NewReader(nil))
	if err != nil || f.Width() != 0 {
		t.Fatalf("ReadCSV(empty) = %v, %v", f, err)
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	f := production(t)
	f.Drop("Active")
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, f, ""); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	got, err := ReadXLSX(&buf, DefaultSheet)
	if err != nil {
		t.Fatalf("ReadXLSX: %v", err)
	}
	if diff := cmp.Diff(f.Names(), got.Names()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{{"W1", day(1), 1.5}, {"W2", day(2), nil}}
	if diff := cmp.Diff(want, got.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestArrow_RoundTrip(t *testing.T) {
	f := production(t)
	var buf bytes.Buffer
	if err := WriteArrow(&buf, f); err != nil {
		t.Fatalf("WriteArrow: %v", err)
	}
	got, err := ReadArrow(&buf)
	if err != nil {
		t.Fatalf("ReadArrow: %v", err)
	}
	if diff := cmp.Diff(f.Rows(), got.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	for _, c := range f.Columns() {
		gc, ok := got.Column(c.Name)
		if !ok || gc.Kind != c.Kind {
			t.Errorf("column %q kind = %v, want %v", c.Name, gc, c.Kind)
		}
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, production(t), "Production"); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", buf.Bytes()[:min(buf.Len(), 16)])
	}
	if _, err := Read(&buf, PDF); !errors.Is(err, ErrUnsupported) {
		t.Errorf("reading PDF should be unsupported, got %v", err)
	}
}

func TestFile_CompressedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "production.arrow.zst")
	f := production(t)
	if err := WriteFile(path, f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff(f.Rows(), got.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestSQL_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL("sqlite::memory:")
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := production(t)
	for range 2 {
		if err := WriteSQL(ctx, db, "production", f); err != nil {
			t.Fatalf("WriteSQL: %v", err)
		}
	}
	got, err := ReadSQL(ctx, db, `SELECT "Entity", "Oil [bbl]" FROM "production" WHERE "Entity" = ? ORDER BY rowid`, "W1")
	if err != nil {
		t.Fatalf("ReadSQL: %v", err)
	}
	want := [][]any{{"W1", 1.5}, {"W1", 1.5}}
	if diff := cmp.Diff(want, got.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	missing, err := ReadSQL(ctx, db, `SELECT "Oil [bbl]" FROM "production" WHERE "Entity" = 'W2' LIMIT 1`)
	if err != nil {
		t.Fatalf("ReadSQL: %v", err)
	}
	if v := missing.Value(0, "Oil [bbl]"); v != nil {
		t.Errorf("missing value should read back as nil, got %v", v)
	}
}

func TestOpenSQL_Unsupported(t *testing.T) {
	if _, err := OpenSQL("mysql://localhost/db"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	db, err := OpenSQL("postgres://user@localhost:5432/db")
	if err != nil {
		t.Fatalf("OpenSQL(postgres): %v", err)
	}
	defer db.Close()
	if db.Driver != "pgx" || db.placeholder(2) != "$2" {
		t.Errorf("unexpected driver %q", db.Driver)
	}
}

package frame

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeTable_Text(t *testing.T) {
	raw := []byte(`["Entity\tDate\tOil [bbl]\tStatus [ ]","W1\t2023-11-29\t1.5\topen","W1\t2023-11-30\t\tshut"]`)
	tbl, err := DecodeTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tbl.(*TextTable); !ok {
		t.Fatalf("expected *TextTable, got %T", tbl)
	}
	f, err := tbl.Frame(TableOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]any{
		{"W1", day(1), 1.5, "open"},
		{"W1", day(2), nil, "shut"},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	oil, _ := f.Column("Oil [bbl]")
	if oil.Kind != Numeric {
		t.Errorf("Oil kind = %v, want Numeric", oil.Kind)
	}
}

func TestDecodeTable_TextWide(t *testing.T) {
	raw := []byte(`["Date\tW1 : Oil [bbl]\tW2 : Oil [bbl]","2023-11-29\t1\t2"]`)
	tbl, err := DecodeTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	f, err := tbl.Frame(TableOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Has(ColEntity) || f.Len() != 2 {
		t.Errorf("expected long form with 2 rows, got %v with %d rows", f.Names(), f.Len())
	}
}

func TestDecodeTable_ShortSpec(t *testing.T) {
	raw := []byte(`{
		"TableName": "T",
		"ResultsOrder": ["Gas", "Oil"],
		"Columns": [
			{"EntityName": "W1", "ResultName": "Oil", "UnitName": "bbl",
			 "Data": [{"Date": "2023-11-29T00:00:00", "Value": 1}]},
			{"EntityName": "W1", "ResultName": "Gas", "UnitName": "m3",
			 "Data": [{"Date": "2023-11-29T00:00:00", "Value": 7}]}
		],
		"ColumnsString": [
			{"EntityName": "W1", "ResultName": "Note", "UnitName": " ",
			 "Data": [{"Date": "2023-11-30T00:00:00", "Value": "x"}]}
		]
	}`)
	tbl, err := DecodeTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	rt, ok := tbl.(*ResultTable)
	if !ok {
		t.Fatalf("expected *ResultTable, got %T", tbl)
	}
	if rt.Name != "T" {
		t.Errorf("Name = %q", rt.Name)
	}
	f, err := tbl.Frame(TableOptions{})
	if err != nil {
		t.Fatal(err)
	}
	wantNames := []string{"Entity", "Date", "Gas [m3]", "Oil [bbl]", "Note [ ]"}
	if diff := cmp.Diff(wantNames, f.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{"W1", day(1), 7.0, 1.0, ""},
		{"W1", day(2), nil, nil, "x"},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTable_FullSpec(t *testing.T) {
	raw := []byte(`{
		"TableName": "T",
		"ResultsOrder": ["GR"],
		"DataDepth": [
			{"Entity": "W1", "Result": {"Name": "GR"}, "Unit": "API",
			 "Data": [{"Depth": 10, "Value": 55}, {"Depth": 20, "Value": 65}]}
		]
	}`)
	tbl, err := DecodeTable(raw)
	if err != nil {
		t.Fatal(err)
	}
	f, err := tbl.Frame(TableOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]any{{"W1", 10.0, 55.0}, {"W1", 20.0, 65.0}}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTable_UnknownShape(t *testing.T) {
	for _, raw := range []string{`{"Foo": 1}`, `42`, `[1, 2]`} {
		_, err := DecodeTable([]byte(raw))
		if !errors.Is(err, ErrDataFormat) {
			t.Errorf("DecodeTable(%s) error = %v, want ErrDataFormat", raw, err)
		}
	}
}

func TestPivotTableFrame(t *testing.T) {
	f, err := PivotTableFrame([][]any{
		{"Entity", "Date", "IsOpportunity", "Oil [bbl]"},
		{"W1", "2023-11-29", "true", "3.5"},
		{"W2", nil, false, nil},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]any{
		{"W1", day(1), true, 3.5},
		{"W2", nil, false, nil},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if _, err := PivotTableFrame([][]any{{1, 2}}); !errors.Is(err, ErrDataFormat) {
		t.Errorf("expected ErrDataFormat for non-text header, got %v", err)
	}
}

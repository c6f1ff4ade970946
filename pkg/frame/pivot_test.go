package frame

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPivot_DateOnly(t *testing.T) {
	f := Pivot([]Series{
		{Entity: "W1", Name: "Oil", Unit: "bbl", Kind: Numeric, Points: []Point{
			{Date: TimePtr(day(1)), Value: 1.0},
			{Date: TimePtr(day(2)), Value: 2.0},
		}},
		{Entity: "W1", Name: "Gas", Unit: "m3", Kind: Numeric, Points: []Point{
			{Date: TimePtr(day(2)), Value: 20.0},
		}},
	})
	if diff := cmp.Diff([]string{"Entity", "Date", "Oil [bbl]", "Gas [m3]"}, f.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{"W1", day(1), 1.0, nil},
		{"W1", day(2), 2.0, 20.0},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestPivot_DepthOnly(t *testing.T) {
	f := Pivot([]Series{
		{Entity: "W1", Name: "GR", Unit: "API", Points: []Point{
			{Depth: FloatPtr(10), Value: 50.0},
		}},
	})
	if f.Has(ColDate) || !f.Has(ColDepth) {
		t.Errorf("expected Depth without Date, got %v", f.Names())
	}
}

func TestPivot_BothAxesNeverCrossed(t *testing.T) {
	f := Pivot([]Series{
		{Entity: "W1", Name: "Oil", Unit: "bbl", Points: []Point{
			{Date: TimePtr(day(1)), Value: 1.0},
			{Date: TimePtr(day(2)), Value: 2.0},
		}},
		{Entity: "W1", Name: "GR", Unit: "API", Points: []Point{
			{Depth: FloatPtr(10), Value: 50.0},
			{Depth: FloatPtr(20), Value: 60.0},
			{Depth: FloatPtr(30), Value: 70.0},
		}},
	})
	if f.Len() != 5 {
		t.Fatalf("expected 2 date rows + 3 depth rows, got %d:\n%s", f.Len(), f)
	}
	for i := 0; i < f.Len(); i++ {
		if f.Value(i, ColDate) != nil && f.Value(i, ColDepth) != nil {
			t.Errorf("row %d pairs a date with a depth: %v", i, f.Row(i))
		}
	}
}

func TestPivot_PairedAndStatic(t *testing.T) {
	f := Pivot([]Series{
		{Entity: "W1", Name: "P", Unit: "bar", Points: []Point{
			{Date: TimePtr(day(1)), Depth: FloatPtr(5), Value: 3.0},
		}},
		{Entity: "W1", Name: "Area", Unit: "m2", Points: []Point{{Value: 9.0}}},
		{Entity: "W2", Name: "Area", Unit: "m2", Points: []Point{{Value: 4.0}}},
	})
	want := [][]any{
		{"W1", day(1), 5.0, 3.0, 9.0},
		{"W2", nil, nil, nil, 4.0},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestPivot_DropsEmptyRowsAndHonoursOrder(t *testing.T) {
	f := Pivot([]Series{
		{Entity: "W1", Name: "A", Unit: "u", Points: []Point{{Date: TimePtr(day(1)), Value: nil}}},
		{Entity: "W1", Name: "B", Unit: "u", Points: []Point{{Date: TimePtr(day(2)), Value: 1.0}}},
	}, "B [u]", "A [u]")
	if diff := cmp.Diff([]string{"Entity", "Date", "B [u]", "A [u]"}, f.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if f.Len() != 1 {
		t.Errorf("expected the all-missing row to be dropped, got %d rows", f.Len())
	}
}

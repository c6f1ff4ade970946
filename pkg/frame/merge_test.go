package frame

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeAxes(t *testing.T) {
	timeF := Pivot([]Series{{Entity: "W1", Name: "Oil", Unit: "bbl", Points: []Point{
		{Date: TimePtr(day(1)), Value: 1.0},
	}}})
	depthF := Pivot([]Series{{Entity: "W1", Name: "GR", Unit: "API", Points: []Point{
		{Depth: FloatPtr(10), Value: 50.0},
	}}})
	staticF := Pivot([]Series{
		{Entity: "W1", Name: "Area", Unit: "m2", Points: []Point{{Value: 9.0}}},
		{Entity: "W2", Name: "Area", Unit: "m2", Points: []Point{{Value: 4.0}}},
	})

	f := MergeAxes(timeF, depthF, staticF)
	wantNames := []string{"Entity", "Date", "Depth", "Oil [bbl]", "GR [API]", "Area [m2]"}
	if diff := cmp.Diff(wantNames, f.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{"W1", day(1), nil, 1.0, nil, 9.0},
		{"W1", nil, 10.0, nil, 50.0, 9.0},
		{"W2", nil, nil, nil, nil, 4.0},
	}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestOuterMerge_KeepsUnmatched(t *testing.T) {
	left := New("Entity", "a")
	must(t, left.AppendRow("X", 1.0))
	right := New("Entity", "b")
	must(t, right.AppendRow("Y", 2.0))

	f := OuterMerge(left, right, ColEntity)
	want := [][]any{{"X", 1.0, nil}, {"Y", nil, 2.0}}
	if diff := cmp.Diff(want, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestConcat_UnionColumns(t *testing.T) {
	a := New("x")
	must(t, a.AppendRow(1.0))
	b := New("y")
	must(t, b.AppendRow(2.0))
	f := Concat(a, nil, b)
	if diff := cmp.Diff([][]any{{1.0, nil}, {nil, 2.0}}, f.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

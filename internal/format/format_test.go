package format_test

import (
	"strings"
	"testing"
	"time"

	"petrovisor/internal/format"
	"petrovisor/pkg/frame"
	"petrovisor/pkg/petrovisor"
)

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Entity", "Signal", "Value")
	tb.Row("W1", "Oil Rate", 0.95)
	tb.Row("W2", "Water Cut", 0.88)
	out := tb.String()

	for _, want := range []string{"Entity", "Oil Rate", "0.95", "───"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestMarkdown_BasicTable(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Signal", "Unit")
	tb.Row("Oil Rate", "bbl/d")
	out := tb.String()

	if !strings.Contains(out, "| Signal") {
		t.Errorf("expected markdown header with '| Signal':\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator '---':\n%s", out)
	}
}

func TestCSV_SkipsFooter(t *testing.T) {
	tb := format.NewTable(format.CSV)
	tb.Header("A", "B")
	tb.Row("x", 1.5)
	tb.Footer("TOTAL", 1.5)
	out := tb.String()

	if !strings.Contains(out, "A,B") || !strings.Contains(out, "x,1.5") {
		t.Errorf("unexpected CSV output:\n%s", out)
	}
	if strings.Contains(out, "TOTAL") {
		t.Errorf("CSV output should not carry a footer:\n%s", out)
	}
}

func TestSameData_DualFormat(t *testing.T) {
	build := func(m format.Mode) string {
		tb := format.NewTable(m)
		tb.Header("A", "B")
		tb.Row("x", "y")
		return tb.String()
	}

	ascii := build(format.ASCII)
	md := build(format.Markdown)

	if ascii == md {
		t.Error("ASCII and Markdown output should differ")
	}
	for _, out := range []string{ascii, md} {
		if !strings.Contains(out, "x") || !strings.Contains(out, "y") {
			t.Errorf("expected data in output:\n%s", out)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]format.Mode{"": format.ASCII, "table": format.ASCII, "md": format.Markdown, "CSV": format.CSV} {
		got, err := format.ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := format.ParseMode("html"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRenderFrame_Truncates(t *testing.T) {
	f, err := frame.FromRows([]string{"Entity", "Date", "Oil [bbl]"}, [][]any{
		{"W1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1.5},
		{"W1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil},
		{"W2", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := format.RenderFrame(f, format.ASCII, 2)
	for _, want := range []string{"Oil [bbl]", "2024-01-02T00:00:00.000000", "2 of 3 rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "W2") {
		t.Errorf("rows beyond the limit should be dropped:\n%s", out)
	}
}

func TestRenderItems(t *testing.T) {
	items := []petrovisor.Item{{"Name": "W1", "EntityTypeName": "Well"}, {"Name": "F1"}}
	out := format.RenderItems(items, []string{"Name", "EntityTypeName"}, format.CSV)
	if !strings.Contains(out, "W1,Well") || !strings.Contains(out, "F1,") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRenderMap_Sorted(t *testing.T) {
	out := format.RenderMap("Name", "Value", map[string]float64{"b": 2, "a": 1}, format.CSV)
	if strings.Index(out, "a,1") > strings.Index(out, "b,2") {
		t.Errorf("keys should be sorted:\n%s", out)
	}
}

// --- Helper tests ---

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{1.5, "1.5"},
		{3.0, "3"},
		{true, "✓"},
		{time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC), "2024-03-01T06:00:00.000000"},
		{petrovisor.SignalTime, "Time"},
		{7, "7"},
	}
	for _, tc := range tests {
		if got := format.Cell(tc.in); got != tc.want {
			t.Errorf("Cell(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m 0s"},
		{5*time.Minute + 15*time.Second, "5m 15s"},
	}
	for _, tc := range tests {
		got := format.FmtDuration(tc.in)
		if got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range tests {
		got := format.Truncate(tc.in, tc.maxLen)
		if got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}

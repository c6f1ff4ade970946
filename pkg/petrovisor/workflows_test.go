package petrovisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestWorkflows_RunDefaults(t *testing.T) {
	api := newFakeAPI(t)
	api.json("POST WorkflowExecution/AddRequest", "queued")
	c := newTestClient(t, api)
	if _, err := c.Workflows().Run(context.Background(), WorkflowRun{Workflow: "Daily", Scope: "Q1"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var body map[string]any
	json.Unmarshal([]byte(api.calls("POST WorkflowExecution/AddRequest")[0].Body), &body)
	want := map[string]any{
		"WorkflowName":        "Daily",
		"WorkspaceName":       testWorkspace,
		"Source":              "by Activity service",
		"ScheduleName":        "Now",
		"ProcessingContexts":  []any{},
		"ProcessingScopeName": "Q1",
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkflows_ExecutionState(t *testing.T) {
	id := uuid.New()
	api := newFakeAPI(t)
	api.json("GET WorkflowExecution/"+id.String(), Item{"State": "Running"})
	c := newTestClient(t, api)
	st, err := c.Workflows().ExecutionState(context.Background(), id)
	if err != nil {
		t.Fatalf("ExecutionState: %v", err)
	}
	if v, _ := st.Field("State"); v != "Running" {
		t.Errorf("unexpected state %v", st)
	}
}

func TestLogs_AddWorkflowEntry(t *testing.T) {
	api := newFakeAPI(t)
	api.handle("POST LogEntries", func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, api)
	e := LogEntry{Message: "done", Entity: "W1"}
	e.SetElapsed(day(1), day(1).Add(90*time.Second))

	if err := c.Logs().AddWorkflowEntry(context.Background(), "Daily", e); err != nil {
		t.Fatalf("AddWorkflowEntry: %v", err)
	}
	var got map[string]any
	json.Unmarshal([]byte(api.calls("POST LogEntries")[0].Body), &got)
	for _, k := range []string{"Message", "Entity", "Workflow", "Category", "UserName", "StartTime", "EndTime", "ElapsedTime"} {
		if _, ok := got[k]; !ok {
			t.Errorf("missing field %s in %v", k, got)
		}
	}
	for _, k := range []string{"Signal", "ValueBefore", "NumberOfItems", "Timestamp"} {
		if _, ok := got[k]; ok {
			t.Errorf("empty field %s should be omitted", k)
		}
	}
	if got["Category"] != "Workflow Execution" || got["ElapsedTime"] != "1m30s" {
		t.Errorf("unexpected entry %v", got)
	}
}

func TestDataGrids_Defaults(t *testing.T) {
	api := newFakeAPI(t)
	api.json("GET DataGrids/Import", []string{"G1"})
	api.json("GET DataGrids/G1/Project", map[string]any{"Name": "G1"})
	c := newTestClient(t, api)
	ctx := context.Background()

	names, err := c.DataGrids().Import(ctx, DataGridImport{Extension: "asc"})
	if err != nil || len(names) != 1 {
		t.Fatalf("Import = %v, %v", names, err)
	}
	q, _ := url.ParseQuery(api.calls("GET DataGrids/Import")[0].Query)
	if q.Get("DefaultCRS") != "EPSG:3857" || q.Get("Extension") != "asc" {
		t.Errorf("unexpected import query %v", q)
	}

	if _, err := c.DataGrids().Project(ctx, "G1", ""); err != nil {
		t.Fatalf("Project: %v", err)
	}
	q, _ = url.ParseQuery(api.calls("GET DataGrids/G1/Project")[0].Query)
	if q.Get("CRS") != defaultProjectionCRS {
		t.Errorf("unexpected projection query %v", q)
	}
}

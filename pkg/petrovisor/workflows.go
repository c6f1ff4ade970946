package petrovisor

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// WorkflowRun requests a workflow execution.
type WorkflowRun struct {
	Workflow  string
	Contexts  []string
	Scope     string
	EntitySet string
	// Schedule defaults to "Now".
	Schedule string
	// Source defaults to "by Activity service".
	Source string
}

// WorkflowScope groups workflow execution operations.
type WorkflowScope struct {
	c *Client
}

// Workflows returns the workflow operations.
func (c *Client) Workflows() *WorkflowScope { return &WorkflowScope{c: c} }

// Run queues a workflow execution in the client's workspace and returns
// the service's answer.
func (s *WorkflowScope) Run(ctx context.Context, r WorkflowRun) (any, error) {
	if r.Schedule == "" {
		r.Schedule = "Now"
	}
	if r.Source == "" {
		r.Source = "by Activity service"
	}
	if r.Contexts == nil {
		r.Contexts = []string{}
	}
	body := map[string]any{
		"WorkflowName":       r.Workflow,
		"WorkspaceName":      s.c.Workspace(),
		"Source":             r.Source,
		"ScheduleName":       r.Schedule,
		"ProcessingContexts": r.Contexts,
	}
	if r.Scope != "" {
		body["ProcessingScopeName"] = r.Scope
	}
	if r.EntitySet != "" {
		body["ProcessingEntitySet"] = r.EntitySet
	}
	var out any
	err := s.c.post(ctx, "workflows.run", "WorkflowExecution/AddRequest", nil, body, &out)
	return out, err
}

// ExecutionState returns the state of a workflow execution.
func (s *WorkflowScope) ExecutionState(ctx context.Context, id uuid.UUID) (Item, error) {
	var st Item
	err := s.c.get(ctx, "workflows.state", "WorkflowExecution/"+id.String(), nil, &st)
	return st, err
}

// LogEntry is a workspace log message. Empty fields are omitted.
type LogEntry struct {
	Message        string     `json:"Message"`
	Timestamp      *Timestamp `json:"Timestamp,omitempty"`
	Category       string     `json:"Category,omitempty"`
	UserName       string     `json:"UserName,omitempty"`
	Severity       string     `json:"Severity,omitempty"`
	Workspace      string     `json:"Workspace,omitempty"`
	Schedule       string     `json:"Schedule,omitempty"`
	Workflow       string     `json:"Workflow,omitempty"`
	StartTime      *Timestamp `json:"StartTime,omitempty"`
	EndTime        *Timestamp `json:"EndTime,omitempty"`
	Script         string     `json:"Script,omitempty"`
	Entity         string     `json:"Entity,omitempty"`
	Signal         string     `json:"Signal,omitempty"`
	Unit           string     `json:"Unit,omitempty"`
	Tag            string     `json:"Tag,omitempty"`
	NumberOfItems  *int       `json:"NumberOfItems,omitempty"`
	ValueBefore    *float64   `json:"ValueBefore,omitempty"`
	ValueAfter     *float64   `json:"ValueAfter,omitempty"`
	ElapsedTime    string     `json:"ElapsedTime,omitempty"`
	MessageDetails string     `json:"MessageDetails,omitempty"`
	Directory      string     `json:"Directory,omitempty"`
}

// SetElapsed records the duration between start and end.
func (e *LogEntry) SetElapsed(start, end time.Time) {
	e.StartTime, e.EndTime = NewTimestamp(start), NewTimestamp(end)
	e.ElapsedTime = end.Sub(start).String()
}

// LogScope groups log operations.
type LogScope struct {
	c *Client
}

// Logs returns the log operations.
func (c *Client) Logs() *LogScope { return &LogScope{c: c} }

// Add writes a log entry.
func (s *LogScope) Add(ctx context.Context, e LogEntry) error {
	return s.c.post(ctx, "logs.add", "LogEntries", nil, e, nil)
}

// AddWorkflowEntry writes a log entry on behalf of a running workflow.
func (s *LogScope) AddWorkflowEntry(ctx context.Context, workflow string, e LogEntry) error {
	e.Workflow = workflow
	e.Category = "Workflow Execution"
	e.UserName = "WorkflowService"
	return s.Add(ctx, e)
}

const defaultProjectionCRS = "+proj=longlat +datum=WGS84 +no_defs"

// DataGridImport selects the files imported as data grids.
type DataGridImport struct {
	Filter    string
	Extension string
	// DefaultCRS defaults to EPSG:3857.
	DefaultCRS string
}

// DataGridScope groups data grid operations.
type DataGridScope struct {
	c *Client
}

// DataGrids returns the data grid operations.
func (c *Client) DataGrids() *DataGridScope { return &DataGridScope{c: c} }

// Import imports workspace files as data grids and returns their names.
func (s *DataGridScope) Import(ctx context.Context, o DataGridImport) ([]string, error) {
	if o.DefaultCRS == "" {
		o.DefaultCRS = "EPSG:3857"
	}
	q := url.Values{"Extension": {o.Extension}, "Filter": {o.Filter}, "DefaultCRS": {o.DefaultCRS}}
	var names []string
	if err := s.c.get(ctx, "datagrids.import", "DataGrids/Import", q, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// UpdateCRS sets the coordinate reference system of a data grid.
func (s *DataGridScope) UpdateCRS(ctx context.Context, name, crs string) error {
	return s.c.post(ctx, "datagrids.crs", "DataGrids/"+name+"/CRS", url.Values{"CRS": {crs}}, nil, nil)
}

// Project reprojects a data grid, to WGS84 longitude and latitude when crs
// is empty.
func (s *DataGridScope) Project(ctx context.Context, name, crs string) (any, error) {
	if crs == "" {
		crs = defaultProjectionCRS
	}
	var out any
	err := s.c.get(ctx, "datagrids.project", "DataGrids/"+name+"/Project", url.Values{"CRS": {crs}}, &out)
	return out, err
}

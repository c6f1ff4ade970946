package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	"petrovisor/internal/logging"
	"petrovisor/pkg/frame"
	"petrovisor/pkg/petrovisor"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultMaxRows bounds the rows a data tool returns.
var DefaultMaxRows = 500

// Server exposes read operations of one workspace as MCP tools.
type Server struct {
	MCPServer *sdkmcp.Server
	// MaxRows bounds the rows returned by data tools.
	MaxRows int

	client *petrovisor.Client
}

// NewServer creates an MCP server backed by client.
func NewServer(client *petrovisor.Client, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{client: client, MaxRows: DefaultMaxRows}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "petrovisor", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_items",
		Description: "List the names of workspace items of one type, e.g. Signal, Entity, Context, ReferenceTable, PivotTable.",
	}, s.handleListItems)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_item",
		Description: "Get one workspace item by type and name.",
	}, s.handleGetItem)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_signals",
		Description: "List signals with their type and storage unit, optionally only those of one type or with data for one entity.",
	}, s.handleListSignals)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "load_signals_data",
		Description: "Load signal data for entities as a table with Entity, Date and/or Depth columns and one column per signal.",
	}, s.handleLoadSignalsData)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "load_ref_table",
		Description: "Load the rows of a reference table, optionally filtered by entities, time range and a WHERE expression.",
	}, s.handleLoadRefTable)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "load_pivot_table",
		Description: "Load the saved rows of a pivot table, or generate them.",
	}, s.handleLoadPivotTable)
}

// --- Tool input/output types ---

type listItemsInput struct {
	ItemType string `json:"item_type" jsonschema:"item type name or alias (Signal, Entity, Scope, Context, ReferenceTable, ...)"`
}

type listItemsOutput struct {
	ItemType string   `json:"item_type"`
	Names    []string `json:"names"`
	Total    int      `json:"total"`
}

type getItemInput struct {
	ItemType string `json:"item_type" jsonschema:"item type name or alias"`
	Name     string `json:"name" jsonschema:"item name"`
}

type getItemOutput struct {
	Found bool            `json:"found"`
	Item  petrovisor.Item `json:"item,omitempty"`
}

type listSignalsInput struct {
	SignalType string `json:"signal_type,omitempty" jsonschema:"only signals of this type (Static, Time, Depth, String, PVT, StringTime, StringDepth)"`
	Entity     string `json:"entity,omitempty" jsonschema:"only signals with data for this entity"`
}

type signalInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Unit string `json:"unit"`
}

type listSignalsOutput struct {
	Signals []signalInfo `json:"signals"`
	Total   int          `json:"total"`
}

type loadSignalsDataInput struct {
	Signals       []string `json:"signals" jsonschema:"signal labels, optionally with a unit as in 'Oil Rate [bbl/d]'"`
	Entities      []string `json:"entities,omitempty" jsonschema:"entity names"`
	EntitySet     string   `json:"entity_set,omitempty" jsonschema:"stored entity set name"`
	Context       string   `json:"context,omitempty" jsonschema:"stored context name"`
	Scope         string   `json:"scope,omitempty" jsonschema:"stored scope name"`
	Start         string   `json:"start,omitempty" jsonschema:"start time, e.g. 2024-01-01"`
	End           string   `json:"end,omitempty" jsonschema:"end time"`
	TimeIncrement string   `json:"time_increment,omitempty" jsonschema:"time step (Hourly, Daily, Monthly, ...)"`
}

type loadRefTableInput struct {
	Table    string   `json:"table" jsonschema:"reference table name"`
	Entities []string `json:"entities,omitempty" jsonschema:"entity names"`
	Start    string   `json:"start,omitempty" jsonschema:"start timestamp"`
	End      string   `json:"end,omitempty" jsonschema:"end timestamp"`
	Where    string   `json:"where,omitempty" jsonschema:"SQL-like WHERE expression"`
}

type loadPivotTableInput struct {
	Table    string `json:"table" jsonschema:"pivot table name"`
	Generate bool   `json:"generate,omitempty" jsonschema:"compute the table instead of reading saved rows"`
}

// tableOutput is a frame as JSON. Rows beyond the limit are dropped and
// reported through Truncated.
type tableOutput struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	TotalRows int      `json:"total_rows"`
	Truncated bool     `json:"truncated,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleListItems(ctx context.Context, _ *sdkmcp.CallToolRequest, input listItemsInput) (*sdkmcp.CallToolResult, listItemsOutput, error) {
	t, err := petrovisor.ParseItemType(input.ItemType)
	if err != nil {
		return nil, listItemsOutput{}, err
	}
	names, err := s.client.Items(t).Names(ctx)
	if err != nil {
		return nil, listItemsOutput{}, fmt.Errorf("list_items: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return nil, listItemsOutput{ItemType: string(t), Names: names, Total: len(names)}, nil
}

func (s *Server) handleGetItem(ctx context.Context, _ *sdkmcp.CallToolRequest, input getItemInput) (*sdkmcp.CallToolResult, getItemOutput, error) {
	if input.Name == "" {
		return nil, getItemOutput{}, fmt.Errorf("name is required")
	}
	t, err := petrovisor.ParseItemType(input.ItemType)
	if err != nil {
		return nil, getItemOutput{}, err
	}
	it, err := s.client.Items(t).Get(ctx, input.Name)
	if err != nil {
		if petrovisor.IsNotFound(err) {
			return nil, getItemOutput{}, nil
		}
		return nil, getItemOutput{}, fmt.Errorf("get_item: %w", err)
	}
	return nil, getItemOutput{Found: len(it) > 0, Item: it}, nil
}

func (s *Server) handleListSignals(ctx context.Context, _ *sdkmcp.CallToolRequest, input listSignalsInput) (*sdkmcp.CallToolResult, listSignalsOutput, error) {
	signals, err := s.client.Signals().List(ctx, petrovisor.SignalFilter{Type: input.SignalType, Entity: input.Entity})
	if err != nil {
		return nil, listSignalsOutput{}, fmt.Errorf("list_signals: %w", err)
	}
	out := listSignalsOutput{Signals: make([]signalInfo, len(signals)), Total: len(signals)}
	for i, sig := range signals {
		out.Signals[i] = signalInfo{Name: sig.Name, Type: sig.Type.String(), Unit: sig.Unit}
	}
	return nil, out, nil
}

func (s *Server) handleLoadSignalsData(ctx context.Context, _ *sdkmcp.CallToolRequest, input loadSignalsDataInput) (*sdkmcp.CallToolResult, tableOutput, error) {
	if len(input.Signals) == 0 {
		return nil, tableOutput{}, fmt.Errorf("signals are required")
	}
	opts := petrovisor.SignalsDataOptions{
		Signals: petrovisor.ParseSignalRefs(input.Signals...),
		Context: input.Context,
		ContextOptions: petrovisor.ContextOptions{
			Scope:     input.Scope,
			EntitySet: input.EntitySet,
			Entities:  input.Entities,
		},
	}
	var err error
	if opts.TimeStart, err = parseTime(input.Start); err != nil {
		return nil, tableOutput{}, err
	}
	if opts.TimeEnd, err = parseTime(input.End); err != nil {
		return nil, tableOutput{}, err
	}
	if input.TimeIncrement != "" {
		inc, err := petrovisor.ParseTimeIncrement(input.TimeIncrement)
		if err != nil {
			return nil, tableOutput{}, err
		}
		opts.TimeIncrement = &inc
	}
	f, err := s.client.Signals().LoadSignalsData(ctx, opts)
	if err != nil {
		return nil, tableOutput{}, fmt.Errorf("load_signals_data: %w", err)
	}
	return nil, s.table(f), nil
}

func (s *Server) handleLoadRefTable(ctx context.Context, _ *sdkmcp.CallToolRequest, input loadRefTableInput) (*sdkmcp.CallToolResult, tableOutput, error) {
	if input.Table == "" {
		return nil, tableOutput{}, fmt.Errorf("table is required")
	}
	filter := petrovisor.RefTableFilter{Entities: input.Entities, Where: input.Where}
	var err error
	if filter.Start, err = parseTime(input.Start); err != nil {
		return nil, tableOutput{}, err
	}
	if filter.End, err = parseTime(input.End); err != nil {
		return nil, tableOutput{}, err
	}
	f, err := s.client.RefTables().LoadData(ctx, input.Table, filter)
	if err != nil {
		return nil, tableOutput{}, fmt.Errorf("load_ref_table: %w", err)
	}
	return nil, s.table(f), nil
}

func (s *Server) handleLoadPivotTable(ctx context.Context, _ *sdkmcp.CallToolRequest, input loadPivotTableInput) (*sdkmcp.CallToolResult, tableOutput, error) {
	if input.Table == "" {
		return nil, tableOutput{}, fmt.Errorf("table is required")
	}
	f, err := s.client.PivotTables().Load(ctx, input.Table, petrovisor.PivotTableOptions{Generate: input.Generate})
	if err != nil {
		return nil, tableOutput{}, fmt.Errorf("load_pivot_table: %w", err)
	}
	return nil, s.table(f), nil
}

// table converts f, which may be nil, into at most MaxRows JSON rows.
func (s *Server) table(f *frame.Frame) tableOutput {
	out := tableOutput{Columns: []string{}, Rows: [][]any{}}
	if f == nil {
		return out
	}
	out.Columns = f.Names()
	out.TotalRows = f.Len()
	n := f.Len()
	if s.MaxRows > 0 && n > s.MaxRows {
		n, out.Truncated = s.MaxRows, true
	}
	for i := 0; i < n; i++ {
		row := f.Row(i)
		for j, v := range row {
			row[j] = jsonCell(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// jsonCell makes v encodable: NaN and infinities become null and times use
// the service layout.
func jsonCell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case time.Time:
		return frame.FormatTime(x)
	}
	return v
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := frame.ParseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Serve runs the server on the stdio transport until ctx is done or the
// client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	logger := logging.New("mcp")
	logger.Info("serving MCP over stdio", "workspace", s.client.Workspace())
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

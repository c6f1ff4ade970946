package petrovisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"petrovisor/pkg/frame"
)

// PSharpScope groups P# script operations.
type PSharpScope struct {
	c *Client
}

// PSharp returns the P# script operations.
func (c *Client) PSharp() *PSharpScope { return &PSharpScope{c: c} }

// ScriptNames returns the names of the P# functions and scripts.
func (s *PSharpScope) ScriptNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.c.get(ctx, "psharp.names", "Configuration/PSharpFunctions", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Script returns the named script item.
func (s *PSharpScope) Script(ctx context.Context, name string) (Item, error) {
	var it Item
	if err := s.c.get(ctx, "psharp.script", "PSharpScripts/"+name, nil, &it); err != nil {
		return nil, err
	}
	return it, nil
}

// ScriptContent returns the source of the named script.
func (s *PSharpScope) ScriptContent(ctx context.Context, name string) (string, error) {
	it, err := s.Script(ctx, name)
	if err != nil {
		return "", err
	}
	content, ok := it.Field("Content")
	if !ok {
		return "", fmt.Errorf("psharp.script: no content for script %q: %w", name, ErrNotFound)
	}
	str, _ := content.(string)
	return str, nil
}

// ParsedColumn is one column of a parsed table calculation.
type ParsedColumn struct {
	Name string `json:"Name"`
	Unit struct {
		Name string `json:"Name"`
	} `json:"Unit"`
	Formula string `json:"Formula"`
}

// ParsedTable is one table calculation of a parsed script.
type ParsedTable struct {
	Name    string         `json:"Name"`
	Columns []ParsedColumn `json:"Columns"`
}

// ParsedScript is the parser's view of a P# script.
type ParsedScript struct {
	Tables []ParsedTable `json:"TableCalculations"`
}

// TableNames returns the table names in script order.
func (p *ParsedScript) TableNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		names[i] = t.Name
	}
	return names
}

// Parse parses script content. Options replace the default parse options.
func (s *PSharpScope) Parse(ctx context.Context, content string, options map[string]any) (*ParsedScript, error) {
	if options == nil {
		options = map[string]any{
			"TreatScriptContentAsScriptName": false,
			"NoMissedObjects":                true,
		}
	}
	body := map[string]any{"ScriptContent": content, "Options": options}
	var p *ParsedScript
	if err := s.c.post(ctx, "psharp.parse", "Parsing/Parsed", nil, body, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = &ParsedScript{}
	}
	return p, nil
}

func (s *PSharpScope) parseScript(ctx context.Context, script string) (*ParsedScript, string, error) {
	content, err := s.ScriptContent(ctx, script)
	if err != nil {
		return nil, "", err
	}
	p, err := s.Parse(ctx, content, nil)
	return p, content, err
}

// TableNames returns the names of the tables the named script computes.
func (s *PSharpScope) TableNames(ctx context.Context, script string) ([]string, error) {
	p, _, err := s.parseScript(ctx, script)
	if err != nil {
		return nil, err
	}
	return p.TableNames(), nil
}

// ColumnSignal describes the signal a script column reads.
type ColumnSignal struct {
	Unit       string
	Signal     string
	SignalUnit string
}

// ColumnSignals maps table names to column names to the signal each column
// reads. The signal and its unit are the first and second quoted strings
// of the column formula.
func (p *ParsedScript) ColumnSignals() map[string]map[string]ColumnSignal {
	out := map[string]map[string]ColumnSignal{}
	for _, t := range p.Tables {
		cols := map[string]ColumnSignal{}
		for _, c := range t.Columns {
			parts := strings.Split(c.Formula, `"`)
			cs := ColumnSignal{Unit: c.Unit.Name, SignalUnit: " "}
			if len(parts) > 1 {
				cs.Signal = parts[1]
			}
			if len(parts) > 3 {
				cs.SignalUnit = parts[3]
			}
			cols[c.Name] = cs
		}
		out[t.Name] = cols
	}
	return out
}

// ColumnsAndSignals returns the column signals of the named script.
func (s *PSharpScope) ColumnsAndSignals(ctx context.Context, script string) (map[string]map[string]ColumnSignal, error) {
	p, _, err := s.parseScript(ctx, script)
	if err != nil {
		return nil, err
	}
	return p.ColumnSignals(), nil
}

// PSharpTableOptions select one table of a script.
type PSharpTableOptions struct {
	// Table names the table. When empty Index selects it by position;
	// negative positions count from the end.
	Table string
	Index int
	// Wide labels columns "<entity> : <column>" instead of using an
	// Entity column.
	Wide bool
}

// LoadTable executes the script and returns one of its tables. An index
// out of range yields a nil frame.
func (s *PSharpScope) LoadTable(ctx context.Context, script string, opts PSharpTableOptions) (*frame.Frame, error) {
	const op = "psharp.load_table"
	table := opts.Table
	if table == "" && (!opts.Wide || opts.Index != 0) {
		names, err := s.TableNames(ctx, script)
		if err != nil {
			return nil, err
		}
		i := opts.Index
		if i < 0 {
			i += len(names)
		}
		if i < 0 || i >= len(names) {
			s.c.logger.WarnContext(ctx, "table index out of range", "operation", op, "script", script, "index", opts.Index, "tables", len(names))
			return nil, nil
		}
		table = names[i]
	}

	p := "PSharpScripts/" + script + "/ExecuteAsBITable"
	if opts.Wide {
		p = "PSharpScripts/" + script + "/ExecuteAsTable"
	}
	var q url.Values
	if table != "" {
		q = url.Values{"Table": {table}}
	}
	raw, err := s.c.rawJSON(ctx, Call{Method: http.MethodGet, Path: p, Query: q, Operation: op})
	if err != nil || raw == nil {
		return nil, err
	}
	return decodePSharpTable(raw, opts.Wide)
}

func decodePSharpTable(raw []byte, wide bool) (*frame.Frame, error) {
	t, err := frame.DecodeTable(raw)
	if err != nil || t == nil {
		return nil, err
	}
	return t.Frame(frame.TableOptions{Wide: wide})
}

// ExecuteOptions control Execute.
type ExecuteOptions struct {
	Wide bool
	// FullInfo requests the structured table payload.
	FullInfo bool
}

// Execute runs the named script and returns every table by name.
func (s *PSharpScope) Execute(ctx context.Context, script string, opts ExecuteOptions) (map[string]*frame.Frame, error) {
	const op = "psharp.execute"
	parsed, content, err := s.parseScript(ctx, script)
	if err != nil {
		return nil, err
	}
	p := "PSharpScripts/Execute"
	if opts.FullInfo {
		p = "PSharpScripts/ExecuteScript"
	}
	var tables []json.RawMessage
	if err := s.c.post(ctx, op, p, nil, map[string]any{"ScriptContent": content}, &tables); err != nil {
		return nil, err
	}
	if tables == nil {
		return nil, nil
	}
	names := parsed.TableNames()
	out := make(map[string]*frame.Frame, len(names))
	for i, raw := range tables {
		if i >= len(names) {
			break
		}
		f, err := decodePSharpTable(raw, opts.Wide)
		if err != nil {
			return nil, fmt.Errorf("%s: table %q: %w", op, names[i], err)
		}
		out[names[i]] = f
	}
	return out, nil
}

// rawJSON runs call and returns the undecoded body, or nil when the error
// policy suppressed the response.
func (c *Client) rawJSON(ctx context.Context, call Call) ([]byte, error) {
	call.Format = FormatNone
	res, err := c.Call(ctx, call)
	if err != nil || res == nil || !res.OK() {
		return nil, err
	}
	return res.Body, nil
}

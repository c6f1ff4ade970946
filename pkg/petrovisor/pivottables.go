package petrovisor

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"petrovisor/pkg/frame"
)

const pivotTableRoute = "PivotTables"

// PivotTableScope groups pivot table operations.
type PivotTableScope struct {
	c *Client
}

// PivotTables returns the pivot table operations.
func (c *Client) PivotTables() *PivotTableScope { return &PivotTableScope{c: c} }

func (s *PivotTableScope) items() *ItemTypeScope { return s.c.Items(ItemPivotTable) }

// Names returns the names of all pivot tables.
func (s *PivotTableScope) Names(ctx context.Context) ([]string, error) {
	return s.items().Names(ctx)
}

// Info returns the named pivot table definition.
func (s *PivotTableScope) Info(ctx context.Context, name string) (Item, error) {
	return s.items().Get(ctx, name)
}

// PivotTableOptions select how a pivot table is loaded or saved.
type PivotTableOptions struct {
	// EntitySet and Scope name stored items overriding the definition's.
	EntitySet string
	Scope     string
	// Generate computes the table instead of reading the saved rows.
	Generate bool
	// Rows limits the saved rows returned; 0 returns all.
	Rows int
}

// overrides fetches the override items, or returns nil when none is set.
func (s *PivotTableScope) overrides(ctx context.Context, o PivotTableOptions) (map[string]any, error) {
	body := map[string]any{}
	if o.EntitySet != "" {
		set, err := s.c.Items(ItemEntitySet).Get(ctx, o.EntitySet)
		if err != nil {
			return nil, err
		}
		body["OverrideEntitySet"] = set
	}
	if o.Scope != "" {
		sc, err := s.c.Items(ItemScope).Get(ctx, o.Scope)
		if err != nil {
			return nil, err
		}
		body["OverrideScope"] = sc
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

// Load returns the pivot table as a frame: the saved rows by default, or
// generated rows when asked to or when overrides are given. An unsaved
// table yields a warning and a nil frame.
func (s *PivotTableScope) Load(ctx context.Context, name string, o PivotTableOptions) (*frame.Frame, error) {
	const op = "pivottables.load"
	var rows [][]any
	base := pivotTableRoute + "/" + name
	switch body, err := s.overrides(ctx, o); {
	case err != nil:
		return nil, err
	case body != nil:
		call := Call{Method: http.MethodGet, Path: base + "/Generated/Options", Body: body, Operation: op}
		if err := s.c.doJSON(ctx, call, &rows); err != nil {
			return nil, err
		}
	case o.Generate:
		if err := s.c.get(ctx, op, base+"/Generated", nil, &rows); err != nil {
			return nil, err
		}
	default:
		q := url.Values{"RowCount": {strconv.Itoa(o.Rows)}}
		if err := s.c.get(ctx, op, base+"/Saved", q, &rows); err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		s.c.logger.WarnContext(ctx, "pivot table not saved, generate it instead", "operation", op, "table", name)
		return nil, nil
	}
	return frame.PivotTableFrame(rows)
}

// Save stores the generated rows of the pivot table, first applying the
// overrides when given.
func (s *PivotTableScope) Save(ctx context.Context, name string, o PivotTableOptions) error {
	body, err := s.overrides(ctx, o)
	if err != nil {
		return err
	}
	base := pivotTableRoute + "/" + name
	if body != nil {
		if err := s.c.post(ctx, "pivottables.save", base+"/Save/Options", nil, body, nil); err != nil {
			return err
		}
	}
	return s.c.get(ctx, "pivottables.save", base+"/Save", nil, nil)
}

// DeleteData removes the saved rows. A missing table is not an error.
func (s *PivotTableScope) DeleteData(ctx context.Context, name string) error {
	exists, err := s.items().Exists(ctx, name)
	if err != nil || !exists {
		return err
	}
	return s.c.get(ctx, "pivottables.delete_data", pivotTableRoute+"/"+name+"/Delete", nil, nil)
}

// Delete removes the saved rows and the table. A missing table is not an
// error.
func (s *PivotTableScope) Delete(ctx context.Context, name string) error {
	exists, err := s.items().Exists(ctx, name)
	if err != nil || !exists {
		return err
	}
	if err := s.c.get(ctx, "pivottables.delete_data", pivotTableRoute+"/"+name+"/Delete", nil, nil); err != nil {
		return err
	}
	return s.c.delete(ctx, "pivottables.delete", pivotTableRoute+"/"+name, nil, nil)
}

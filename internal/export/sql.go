package export

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"petrovisor/pkg/frame"
)

// DB is a database handle that knows its driver.
type DB struct {
	*sql.DB
	// Driver is "sqlite" or "pgx".
	Driver string
}

func (db *DB) placeholder(i int) string {
	if db.Driver == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// OpenSQL opens a database from a URL. "sqlite:<path>" (or "sqlite::memory:")
// uses the pure Go SQLite driver; "postgres://" and "postgresql://" use pgx.
func OpenSQL(dsn string) (*DB, error) {
	var driver, source string
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		driver, source = "sqlite", strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, source = "pgx", dsn
	default:
		return nil, fmt.Errorf("%w: database %q", ErrUnsupported, dsn)
	}
	sqlDB, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", driver, err)
	}
	if driver == "sqlite" && source == ":memory:" {
		// every connection would get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	return &DB{DB: sqlDB, Driver: driver}, nil
}

func sqlType(k frame.Kind) string {
	switch k {
	case frame.Numeric:
		return "DOUBLE PRECISION"
	case frame.Time:
		return "TIMESTAMP"
	case frame.Bool:
		return "BOOLEAN"
	}
	return "TEXT"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteSQL creates table if needed and inserts the rows of f in one
// transaction.
func WriteSQL(ctx context.Context, db *DB, table string, f *frame.Frame) (err error) {
	cols := f.Columns()
	if len(cols) == 0 {
		return nil
	}
	defs := make([]string, len(cols))
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.Name)
		defs[i] = names[i] + " " + sqlType(c.Kind)
		params[i] = db.placeholder(i + 1)
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("export: create table %s: %w", table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(names, ", "), strings.Join(params, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("export: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range cols {
			args[j] = sqlValue(c.Values[i], c.Kind)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("export: insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	return nil
}

func sqlValue(v any, k frame.Kind) any {
	if frame.IsMissing(v) {
		return nil
	}
	switch k {
	case frame.Numeric:
		if x, ok := frame.ToFloat(v); ok && !math.IsInf(x, 0) {
			return x
		}
		return nil
	case frame.Time:
		if t, ok := frame.ToTime(v); ok {
			return t.UTC()
		}
		return nil
	case frame.Bool:
		if b, ok := frame.ToBool(v); ok {
			return b
		}
		return nil
	}
	return frame.ToString(v)
}

// ReadSQL runs query and returns the result set as a frame. Column kinds
// follow the Go types the driver returns.
func ReadSQL(ctx context.Context, db *DB, query string, args ...any) (*frame.Frame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export: query: %w", err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("export: columns: %w", err)
	}

	f := frame.New(names...)
	kinds := make([]frame.Kind, len(names))
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("export: scan: %w", err)
		}
		for i, v := range vals {
			vals[i], kinds[i] = scanned(v, kinds[i])
		}
		if err := f.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: rows: %w", err)
	}
	for i, n := range names {
		if kinds[i] == frame.Generic {
			continue
		}
		f.CoerceColumn(n, kinds[i])
	}
	f.InferKinds()
	return f, nil
}

// scanned normalizes a driver value and reports its kind, keeping the
// first kind seen for the column.
func scanned(v any, seen frame.Kind) (any, frame.Kind) {
	var k frame.Kind
	switch x := v.(type) {
	case nil:
		return nil, seen
	case []byte:
		v, k = string(x), frame.String
	case string:
		k = frame.String
	case int64, int32, int, float32, float64:
		k = frame.Numeric
	case time.Time:
		k = frame.Time
	case bool:
		k = frame.Bool
	}
	if seen != frame.Generic {
		return v, seen
	}
	return v, k
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"petrovisor/internal/export"
	"petrovisor/internal/format"
	"petrovisor/pkg/frame"
)

// structured reports whether --output asks for JSON or YAML instead of a
// table.
func (a *app) structured() bool { return a.output == "json" || a.output == "yaml" }

// encode writes v as JSON or YAML.
func (a *app) encode(w io.Writer, v any) error {
	if a.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// print writes v structured, or the table render produces.
func (a *app) print(cmd *cobra.Command, v any, render func(format.Mode) string) error {
	if a.structured() {
		return a.encode(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), render(a.mode))
	return err
}

func (a *app) printNames(cmd *cobra.Command, header string, names []string) error {
	return a.print(cmd, names, func(m format.Mode) string {
		return format.RenderList(header, names, m)
	})
}

// printFrame writes f to path when one is given, the format following the
// file extension. Otherwise it prints up to maxRows rows.
func (a *app) printFrame(cmd *cobra.Command, f *frame.Frame, path string, maxRows int) error {
	if f == nil {
		_, err := fmt.Fprintln(cmd.ErrOrStderr(), "no data")
		return err
	}
	if path != "" {
		if err := export.WriteFile(path, f); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", f.Len(), path)
		return err
	}
	if a.structured() {
		return a.encode(cmd.OutOrStdout(), records(f))
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), format.RenderFrame(f, a.mode, maxRows))
	return err
}

// records converts f into one map per row.
func records(f *frame.Frame) []map[string]any {
	cols := f.Columns()
	out := make([]map[string]any, f.Len())
	for i := range out {
		rec := make(map[string]any, len(cols))
		for _, c := range cols {
			rec[c.Name] = plain(c.Values[i])
		}
		out[i] = rec
	}
	return out
}

func plain(v any) any {
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

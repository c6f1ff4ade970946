package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"petrovisor/internal/export"
	"petrovisor/internal/format"
	"petrovisor/pkg/frame"
	"petrovisor/pkg/petrovisor"
)

func newDataCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Load and save signal data",
	}
	cmd.AddCommand(newDataLoadCmd(a), newDataSaveCmd(a))
	return cmd
}

func newDataLoadCmd(a *app) *cobra.Command {
	var flags struct {
		signals     []string
		entities    []string
		entityTypes []string
		entitySet   string
		context     string
		scope       string
		hierarchy   string
		start       string
		end         string
		increment   string
		scenario    string
		depthUnit   string
		out         string
		maxRows     int
	}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load signal data into a table",
		Long: `Loads the data of the given signals for a context, or for a scope and
entities. A signal may carry the unit to read it in, e.g. "Oil [bbl/d]".

With --out the table is written to a file whose extension selects the
format: .csv, .xlsx, .arrow or .pdf, optionally followed by .zst.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := petrovisor.SignalsDataOptions{
				Signals:   petrovisor.ParseSignalRefs(flags.signals...),
				Context:   flags.context,
				Scenario:  flags.scenario,
				DepthUnit: flags.depthUnit,
			}
			opts.Scope = flags.scope
			opts.EntitySet = flags.entitySet
			opts.Entities = flags.entities
			opts.EntityTypes = flags.entityTypes
			opts.Hierarchy = flags.hierarchy
			var err error
			if opts.TimeStart, err = parseFlagTime("start", flags.start); err != nil {
				return err
			}
			if opts.TimeEnd, err = parseFlagTime("end", flags.end); err != nil {
				return err
			}
			if flags.increment != "" {
				inc, err := petrovisor.ParseTimeIncrement(flags.increment)
				if err != nil {
					return err
				}
				opts.TimeIncrement = &inc
			}

			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			f, err := c.Signals().LoadSignalsData(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printFrame(cmd, f, flags.out, flags.maxRows)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVarP(&flags.signals, "signal", "s", nil, "signal to load, repeatable")
	fl.StringSliceVarP(&flags.entities, "entity", "e", nil, "entity, repeatable")
	fl.StringSliceVar(&flags.entityTypes, "entity-type", nil, "entity type, repeatable")
	fl.StringVar(&flags.entitySet, "entity-set", "", "entity set")
	fl.StringVar(&flags.context, "context", "", "context")
	fl.StringVar(&flags.scope, "scope", "", "scope")
	fl.StringVar(&flags.hierarchy, "hierarchy", "", "hierarchy")
	fl.StringVar(&flags.start, "start", "", "time range start")
	fl.StringVar(&flags.end, "end", "", "time range end")
	fl.StringVar(&flags.increment, "increment", "", "time increment: daily, monthly, ...")
	fl.StringVar(&flags.scenario, "scenario", "", "scenario")
	fl.StringVar(&flags.depthUnit, "depth-unit", "", "unit of the depth column")
	fl.StringVar(&flags.out, "out", "", "write the table to this file")
	fl.IntVar(&flags.maxRows, "max-rows", 100, "rows to print, 0 prints all")
	cmd.MarkFlagRequired("signal")
	return cmd
}

func newDataSaveCmd(a *app) *cobra.Command {
	var flags struct {
		chunkSize int
		withLogs  bool
		entities  map[string]string
		signals   map[string]string
	}
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Save a table file as signal data",
		Long: `Reads a .csv, .xlsx or .arrow file and saves every column that names a
signal. Long tables carry an Entity column, wide tables label columns
"<entity>: <signal>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ReadFile(args[0])
			if err != nil {
				return err
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			opts := petrovisor.SaveFrameOptions{ChunkSize: flags.chunkSize, WithLogs: flags.withLogs}
			opts.Entities = flags.entities
			opts.Signals = flags.signals
			start := time.Now()
			if err := c.Signals().SaveFrame(cmd.Context(), f, opts); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %d rows from %s in %s\n", f.Len(), args[0], format.FmtDuration(time.Since(start)))
			return err
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&flags.chunkSize, "chunk-size", 0, "frame rows per batch, 0 uses 10000")
	fl.BoolVar(&flags.withLogs, "with-logs", false, "write data change logs")
	fl.StringToStringVar(&flags.entities, "map-entity", nil, "rename entities, e.g. W1=Well-1")
	fl.StringToStringVar(&flags.signals, "map-signal", nil, "map columns to signals, e.g. Production=Oil")
	return cmd
}

func parseFlagTime(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := frame.ParseTime(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

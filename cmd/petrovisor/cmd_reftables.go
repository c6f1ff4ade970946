package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"petrovisor/internal/export"
	"petrovisor/internal/format"
	"petrovisor/pkg/petrovisor"
)

func newRefTablesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reftables",
		Aliases: []string{"reftable", "rt"},
		Short:   "Load, save and delete reference tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reference table names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			names, err := c.RefTables().Names(cmd.Context())
			if err != nil {
				return err
			}
			return a.printNames(cmd, "Reference Table", names)
		},
	})

	var loadFlags struct {
		entities []string
		start    string
		end      string
		where    string
		out      string
		maxRows  int
	}
	load := &cobra.Command{
		Use:   "load <table>",
		Short: "Load reference table data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := petrovisor.RefTableFilter{Entities: loadFlags.entities, Where: loadFlags.where}
			var err error
			if filter.Start, err = parseFlagTime("start", loadFlags.start); err != nil {
				return err
			}
			if filter.End, err = parseFlagTime("end", loadFlags.end); err != nil {
				return err
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			f, err := c.RefTables().LoadData(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			return a.printFrame(cmd, f, loadFlags.out, loadFlags.maxRows)
		},
	}
	lf := load.Flags()
	lf.StringSliceVarP(&loadFlags.entities, "entity", "e", nil, "entity, repeatable")
	lf.StringVar(&loadFlags.start, "start", "", "time range start")
	lf.StringVar(&loadFlags.end, "end", "", "time range end")
	lf.StringVar(&loadFlags.where, "where", "", "filter expression")
	lf.StringVar(&loadFlags.out, "out", "", "write the table to this file")
	lf.IntVar(&loadFlags.maxRows, "max-rows", 100, "rows to print, 0 prints all")
	cmd.AddCommand(load)

	var saveFlags struct {
		create       bool
		description  string
		keyColumn    string
		skipExisting bool
		chunkSize    int
	}
	save := &cobra.Command{
		Use:   "save <table> <file>",
		Short: "Save a table file into a reference table",
		Long: `Saves the rows of a .csv, .xlsx or .arrow file. With --create the table
is defined from the file's columns first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ReadFile(args[1])
			if err != nil {
				return err
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			opts := petrovisor.RefTableOptions{
				Description:  saveFlags.description,
				KeyColumn:    saveFlags.keyColumn,
				SkipExisting: saveFlags.skipExisting,
				ChunkSize:    saveFlags.chunkSize,
			}
			start := time.Now()
			if saveFlags.create {
				err = c.RefTables().Add(cmd.Context(), args[0], f, opts)
			} else {
				err = c.RefTables().SaveData(cmd.Context(), args[0], f, opts)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %d rows to %s in %s\n", f.Len(), args[0], format.FmtDuration(time.Since(start)))
			return err
		},
	}
	sf := save.Flags()
	sf.BoolVar(&saveFlags.create, "create", false, "define the table from the file first")
	sf.StringVar(&saveFlags.description, "description", "", "table description, with --create")
	sf.StringVar(&saveFlags.keyColumn, "key", "", "key column (default Key)")
	sf.BoolVar(&saveFlags.skipExisting, "skip-existing", false, "keep rows that already exist")
	sf.IntVar(&saveFlags.chunkSize, "chunk-size", 0, "rows per request")
	cmd.AddCommand(save)

	var deleteFlags struct {
		dataOnly bool
		start    string
		end      string
	}
	del := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete a reference table or its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if !deleteFlags.dataOnly {
				if err := c.RefTables().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted reference table %q\n", args[0])
				return err
			}
			start, err := parseFlagTime("start", deleteFlags.start)
			if err != nil {
				return err
			}
			end, err := parseFlagTime("end", deleteFlags.end)
			if err != nil {
				return err
			}
			if err := c.RefTables().DeleteData(cmd.Context(), args[0], start, end); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted data of reference table %q\n", args[0])
			return err
		},
	}
	df := del.Flags()
	df.BoolVar(&deleteFlags.dataOnly, "data", false, "delete data only, keep the table")
	df.StringVar(&deleteFlags.start, "start", "", "with --data, delete from this time")
	df.StringVar(&deleteFlags.end, "end", "", "with --data, delete up to this time")
	cmd.AddCommand(del)
	return cmd
}

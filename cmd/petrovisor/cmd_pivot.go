package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"petrovisor/pkg/petrovisor"
)

func newPivotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pivot",
		Aliases: []string{"pivottables"},
		Short:   "Load, generate and save pivot tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pivot table names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			names, err := c.PivotTables().Names(cmd.Context())
			if err != nil {
				return err
			}
			return a.printNames(cmd, "Pivot Table", names)
		},
	})

	var opts petrovisor.PivotTableOptions
	var loadFlags struct {
		out     string
		maxRows int
	}
	load := &cobra.Command{
		Use:   "load <table>",
		Short: "Load the saved or generated rows of a pivot table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			f, err := c.PivotTables().Load(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return a.printFrame(cmd, f, loadFlags.out, loadFlags.maxRows)
		},
	}
	lf := load.Flags()
	lf.BoolVar(&opts.Generate, "generate", false, "generate the rows instead of loading saved ones")
	lf.IntVar(&opts.Rows, "rows", 0, "saved rows to load, 0 loads all")
	lf.StringVar(&opts.EntitySet, "entity-set", "", "override the entity set")
	lf.StringVar(&opts.Scope, "scope", "", "override the scope")
	lf.StringVar(&loadFlags.out, "out", "", "write the table to this file")
	lf.IntVar(&loadFlags.maxRows, "max-rows", 100, "rows to print, 0 prints all")
	cmd.AddCommand(load)

	var saveOpts petrovisor.PivotTableOptions
	save := &cobra.Command{
		Use:   "save <table>",
		Short: "Generate and store the rows of a pivot table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.PivotTables().Save(cmd.Context(), args[0], saveOpts); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved pivot table %q\n", args[0])
			return err
		},
	}
	save.Flags().StringVar(&saveOpts.EntitySet, "entity-set", "", "override the entity set")
	save.Flags().StringVar(&saveOpts.Scope, "scope", "", "override the scope")
	cmd.AddCommand(save)

	var deleteData bool
	del := &cobra.Command{
		Use:   "delete <table>",
		Short: "Delete a pivot table or its saved rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if deleteData {
				err = c.PivotTables().DeleteData(cmd.Context(), args[0])
			} else {
				err = c.PivotTables().Delete(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted pivot table %q\n", args[0])
			return err
		},
	}
	del.Flags().BoolVar(&deleteData, "data", false, "delete saved rows only")
	cmd.AddCommand(del)
	return cmd
}

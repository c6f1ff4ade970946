package main

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"petrovisor/pkg/petrovisor"
)

func newPSharpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "psharp",
		Short: "Inspect and run P# scripts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List P# script names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			names, err := c.PSharp().ScriptNames(cmd.Context())
			if err != nil {
				return err
			}
			return a.printNames(cmd, "Script", names)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <script>",
		Short: "Print the content of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			content, err := c.PSharp().ScriptContent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tables <script>",
		Short: "List the tables a script produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			names, err := c.PSharp().TableNames(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printNames(cmd, "Table", names)
		},
	})

	var tableOpts petrovisor.PSharpTableOptions
	var tableFlags struct {
		out     string
		maxRows int
	}
	table := &cobra.Command{
		Use:   "table <script>",
		Short: "Execute a script and print one of its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			f, err := c.PSharp().LoadTable(cmd.Context(), args[0], tableOpts)
			if err != nil {
				return err
			}
			return a.printFrame(cmd, f, tableFlags.out, tableFlags.maxRows)
		},
	}
	tf := table.Flags()
	tf.StringVar(&tableOpts.Table, "table", "", "table name")
	tf.IntVar(&tableOpts.Index, "index", 0, "table position when --table is empty, negative counts from the end")
	tf.BoolVar(&tableOpts.Wide, "wide", false, "one column per entity and signal")
	tf.StringVar(&tableFlags.out, "out", "", "write the table to this file")
	tf.IntVar(&tableFlags.maxRows, "max-rows", 100, "rows to print, 0 prints all")
	cmd.AddCommand(table)

	var execOpts petrovisor.ExecuteOptions
	var execFlags struct {
		outDir  string
		ext     string
		maxRows int
	}
	execute := &cobra.Command{
		Use:   "execute <script>",
		Short: "Execute a script and print every table",
		Long: `Executes the script once and prints each table under its name. With
--out-dir every table is written to <dir>/<table><ext>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			tables, err := c.PSharp().Execute(cmd.Context(), args[0], execOpts)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(tables))
			for n := range tables {
				names = append(names, n)
			}
			slices.Sort(names)
			for _, n := range names {
				path := ""
				if execFlags.outDir != "" {
					path = filepath.Join(execFlags.outDir, n+execFlags.ext)
				} else if !a.structured() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", n)
				}
				if err := a.printFrame(cmd, tables[n], path, execFlags.maxRows); err != nil {
					return err
				}
			}
			return nil
		},
	}
	ef := execute.Flags()
	ef.BoolVar(&execOpts.Wide, "wide", false, "one column per entity and signal")
	ef.BoolVar(&execOpts.FullInfo, "full-info", false, "request the structured table payload")
	ef.StringVar(&execFlags.outDir, "out-dir", "", "write every table into this directory")
	ef.StringVar(&execFlags.ext, "ext", ".csv", "file extension with --out-dir")
	ef.IntVar(&execFlags.maxRows, "max-rows", 100, "rows to print per table, 0 prints all")
	cmd.AddCommand(execute)
	return cmd
}

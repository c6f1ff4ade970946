package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"petrovisor/internal/format"
	"petrovisor/pkg/petrovisor"
)

func newUnitsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List units and convert values",
	}

	var flags struct {
		measurement string
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List units with their measurement and conversion factors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			var units []petrovisor.Unit
			if flags.measurement != "" {
				units, err = c.Units().MeasurementUnits(cmd.Context(), flags.measurement)
			} else {
				units, err = c.Units().All(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.print(cmd, units, func(m format.Mode) string {
				tb := format.NewTable(m)
				tb.Header("Unit", "Measurement", "Factor", "Summand")
				for _, u := range units {
					tb.Row(u.Name, u.Measurement, u.Factor, u.Summand)
				}
				tb.Columns(format.ColumnConfig{Number: 3, Align: format.AlignRight}, format.ColumnConfig{Number: 4, Align: format.AlignRight})
				return tb.String()
			})
		},
	}
	list.Flags().StringVar(&flags.measurement, "measurement", "", "only units of this measurement")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "convert <value> <from> <to>",
		Short: "Convert a value between units",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			y, err := c.Units().Convert(cmd.Context(), x, args[1], args[2])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(y, 'f', -1, 64))
			return err
		},
	})
	return cmd
}

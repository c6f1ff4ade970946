package main

import (
	"github.com/spf13/cobra"

	"petrovisor/internal/format"
	"petrovisor/pkg/petrovisor"
)

type signalRow struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Unit string `json:"unit" yaml:"unit"`
}

func newSignalsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List and inspect signals",
	}

	var flags struct {
		typ    string
		entity string
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List signals with their type and storage unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			signals, err := c.Signals().List(cmd.Context(), petrovisor.SignalFilter{Type: flags.typ, Entity: flags.entity})
			if err != nil {
				return err
			}
			rows := make([]signalRow, len(signals))
			for i, s := range signals {
				rows[i] = signalRow{Name: s.Name, Type: s.Type.String(), Unit: s.Unit}
			}
			return a.print(cmd, rows, func(m format.Mode) string {
				tb := format.NewTable(m)
				tb.Header("Signal", "Type", "Unit")
				for _, r := range rows {
					tb.Row(r.Name, r.Type, r.Unit)
				}
				return tb.String()
			})
		},
	}
	list.Flags().StringVar(&flags.typ, "type", "", "signal type: time, depth, static, string, pvt, ...")
	list.Flags().StringVar(&flags.entity, "entity", "", "only signals with data for this entity")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Show one signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			sig, err := c.Signals().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fields := map[string]string{
				"Name":        sig.Name,
				"Type":        sig.Type.String(),
				"Unit":        sig.Unit,
				"Measurement": sig.Measurement,
				"Aggregation": sig.Aggregation.String(),
			}
			return a.print(cmd, fields, func(m format.Mode) string {
				return format.RenderMap("Field", "Value", fields, m)
			})
		},
	})
	return cmd
}

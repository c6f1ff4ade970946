package main

import (
	"github.com/spf13/cobra"

	"petrovisor/pkg/petrovisor"
)

func newEntitiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entities and entity types",
	}

	var flags struct {
		typ    string
		signal string
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List entity names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			names, err := c.Entities().Names(cmd.Context(), petrovisor.EntityFilter{Type: flags.typ, Signal: flags.signal})
			if err != nil {
				return err
			}
			return a.printNames(cmd, "Entity", names)
		},
	}
	list.Flags().StringVar(&flags.typ, "type", "", "only entities of this type")
	list.Flags().StringVar(&flags.signal, "signal", "", "only entities with data for this signal")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "types",
		Short: "List entity type names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			types, err := c.Entities().Types(cmd.Context())
			if err != nil {
				return err
			}
			return a.printNames(cmd, "Entity Type", types)
		},
	})
	return cmd
}

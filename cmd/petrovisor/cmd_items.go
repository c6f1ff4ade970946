package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"petrovisor/internal/format"
	"petrovisor/pkg/petrovisor"
)

func newItemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List, show and delete workspace items",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "types",
		Short: "List the item types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			types := petrovisor.ItemTypes()
			names := make([]string, len(types))
			for i, t := range types {
				names[i] = string(t)
			}
			return a.printNames(cmd, "Item Type", names)
		},
	})

	var listFlags struct {
		fields string
	}
	list := &cobra.Command{
		Use:   "list <type>",
		Short: "List the items of a type",
		Long:  "Lists item names, or with --fields the given fields of every item.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.items(cmd, args[0])
			if err != nil {
				return err
			}
			if listFlags.fields == "" {
				names, err := scope.Names(cmd.Context())
				if err != nil {
					return err
				}
				return a.printNames(cmd, string(scope.Type()), names)
			}
			items, err := scope.All(cmd.Context())
			if err != nil {
				return err
			}
			fields := strings.Split(listFlags.fields, ",")
			return a.print(cmd, items, func(m format.Mode) string {
				return format.RenderItems(items, fields, m)
			})
		},
	}
	list.Flags().StringVar(&listFlags.fields, "fields", "", "comma-separated item fields to show")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <type> <name>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.items(cmd, args[0])
			if err != nil {
				return err
			}
			item, err := scope.Get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			// items have no fixed columns, tables fall back to JSON
			return a.encode(cmd.OutOrStdout(), item)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <type> <name>",
		Short: "Delete one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.items(cmd, args[0])
			if err != nil {
				return err
			}
			if err := scope.Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %q\n", scope.Type(), args[1])
			return err
		},
	})
	return cmd
}

func (a *app) items(cmd *cobra.Command, typ string) (*petrovisor.ItemTypeScope, error) {
	t, err := petrovisor.ParseItemType(typ)
	if err != nil {
		return nil, err
	}
	c, err := a.connect(cmd.Context())
	if err != nil {
		return nil, err
	}
	return c.Items(t), nil
}

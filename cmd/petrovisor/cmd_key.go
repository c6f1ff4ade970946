package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"petrovisor/pkg/petrovisor"
)

func newKeyCmd(a *app) *cobra.Command {
	var flags struct {
		username string
		password string
	}
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Encode credentials into an API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := petrovisor.EncodeKey(flags.username, flags.password)
			if key == "" {
				return errors.New("both --username and --password are required")
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.username, "username", "", "user name")
	f.StringVar(&flags.password, "password", "", "password")

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <key>",
		Short: "Print the user name encoded in a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _, err := petrovisor.DecodeKey(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), user)
			return err
		},
	})
	return cmd
}

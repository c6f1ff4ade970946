package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"petrovisor/pkg/petrovisor"
)

func newLogCmd(a *app) *cobra.Command {
	var entry petrovisor.LogEntry
	var workflow string
	cmd := &cobra.Command{
		Use:   "log <message>",
		Short: "Write a workspace log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			e := entry
			e.Message = args[0]
			e.Timestamp = petrovisor.NewTimestamp(time.Now())
			if workflow != "" {
				err = c.Logs().AddWorkflowEntry(cmd.Context(), workflow, e)
			} else {
				err = c.Logs().Add(cmd.Context(), e)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "logged")
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&entry.Category, "category", "", "log category")
	f.StringVar(&entry.Severity, "severity", "", "severity, e.g. Information or Error")
	f.StringVar(&entry.Entity, "entity", "", "related entity")
	f.StringVar(&entry.Signal, "signal", "", "related signal")
	f.StringVar(&entry.MessageDetails, "details", "", "message details")
	f.StringVar(&workflow, "workflow", "", "log on behalf of this workflow")
	return cmd
}

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"petrovisor/pkg/petrovisor"
)

func newWorkflowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run workflows and query their executions",
	}

	var run petrovisor.WorkflowRun
	runCmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Queue a workflow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			r := run
			r.Workflow = args[0]
			out, err := c.Workflows().Run(cmd.Context(), r)
			if err != nil {
				return err
			}
			return a.encode(cmd.OutOrStdout(), out)
		},
	}
	f := runCmd.Flags()
	f.StringSliceVar(&run.Contexts, "context", nil, "processing context, repeatable")
	f.StringVar(&run.Scope, "scope", "", "processing scope")
	f.StringVar(&run.EntitySet, "entity-set", "", "processing entity set")
	f.StringVar(&run.Schedule, "schedule", "", "schedule (default Now)")
	cmd.AddCommand(runCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "state <execution-id>",
		Short: "Show the state of a workflow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("execution id: %w", err)
			}
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			st, err := c.Workflows().ExecutionState(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.encode(cmd.OutOrStdout(), st)
		},
	})
	return cmd
}

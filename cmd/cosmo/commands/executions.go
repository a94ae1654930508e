package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/workflow"
)

func newExecutionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect and control workflow executions",
	}
	cmd.AddCommand(newExecutionsCancelCommand(a))
	cmd.AddCommand(newExecutionsListCommand(a))
	return cmd
}

func newExecutionsCancelCommand(a *app) *cobra.Command {
	var managementIP string

	cmd := &cobra.Command{
		Use:   "cancel <execution-id>",
		Short: "Cancel a running execution",
		Long: `Ask the management server to cancel an execution. The request returns once
accepted; the execution may take a while to actually stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executionID := args[0]
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			logger := a.logger.WithManagementAddress(address).WithExecutionID(executionID)
			logger.Info("requesting execution cancellation")

			journal, err := openJournal(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer journal.Close()

			orchestrator := workflow.NewOrchestrator(a.client(address), workflow.WithJournal(journal))
			if err := orchestrator.Cancel(cmd.Context(), executionID); err != nil {
				return err
			}
			logger.Info("cancellation requested")
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	return cmd
}

func newExecutionsListCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions journaled from this working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := openJournal(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer journal.Close()

			runs, err := journal.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No executions have been run from this working directory")
				return nil
			}
			fmt.Println("Executions:")
			for _, run := range runs {
				line := fmt.Sprintf("\t%s %s/%s %s", run.ExecutionID, run.DeploymentID, run.Operation, run.State)
				if run.Error != nil {
					line += " (" + *run.Error + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of executions to show")
	return cmd
}

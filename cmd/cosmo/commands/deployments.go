package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/failures"
	"github.com/cosmo-orch/cosmo/pkg/rest"
	"github.com/cosmo-orch/cosmo/pkg/session"
	"github.com/cosmo-orch/cosmo/pkg/stores"
	"github.com/cosmo-orch/cosmo/pkg/telemetry"
	"github.com/cosmo-orch/cosmo/pkg/workflow"
)

func newDeploymentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Manage deployments on the management server",
	}
	cmd.AddCommand(newDeploymentsCreateCommand(a))
	cmd.AddCommand(newDeploymentsListCommand(a))
	cmd.AddCommand(newDeploymentsDeleteCommand(a))
	cmd.AddCommand(newDeploymentsExecuteCommand(a))
	cmd.AddCommand(newAliasCommand(a, session.KindDeployments, "deployment"))
	return cmd
}

func newDeploymentsCreateCommand(a *app) *cobra.Command {
	var (
		managementIP string
		alias        string
	)

	cmd := &cobra.Command{
		Use:   "create <blueprint-id>",
		Short: "Create a deployment of a blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			doc, err := a.sessionStore().Load()
			if err != nil {
				return err
			}
			blueprintID := doc.TranslateContextualAlias(session.KindBlueprints, args[0], address)
			if alias != "" && doc.TranslateContextualAlias(session.KindDeployments, alias, address) != alias {
				return failures.UserInput("deployment alias %q is already in use", alias)
			}

			logger := a.logger.WithManagementAddress(address)
			logger.Infof("creating new deployment from blueprint %s", args[0])

			deployment, err := a.client(address).CreateDeployment(cmd.Context(), blueprintID, "")
			if err != nil {
				return err
			}

			if alias == "" {
				logger.Infof("deployment created, id: %s", deployment.ID)
				return nil
			}
			if err := a.sessionStore().Update(func(doc *session.Document) error {
				return doc.SaveContextualAlias(session.KindDeployments, alias, deployment.ID, address, false)
			}); err != nil {
				return err
			}
			logger.Infof("deployment created, alias: %s (id: %s)", alias, deployment.ID)
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "alias to save for the created deployment")
	return cmd
}

func newDeploymentsListCommand(a *app) *cobra.Command {
	var managementIP string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments on the management server",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			deployments, err := a.client(address).ListDeployments(cmd.Context())
			if err != nil {
				return err
			}
			if len(deployments) == 0 {
				fmt.Println("There are no deployments on the management server")
				return nil
			}
			fmt.Println("Deployments:")
			for _, d := range deployments {
				fmt.Printf("\t%s (blueprint: %s)\n", d.ID, d.BlueprintID)
			}
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	return cmd
}

func newDeploymentsDeleteCommand(a *app) *cobra.Command {
	var (
		managementIP    string
		ignoreLiveNodes bool
	)

	cmd := &cobra.Command{
		Use:   "delete <deployment-id>",
		Short: "Delete a deployment from the management server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			doc, err := a.sessionStore().Load()
			if err != nil {
				return err
			}
			deploymentID := doc.TranslateContextualAlias(session.KindDeployments, args[0], address)

			logger := a.logger.WithManagementAddress(address)
			logger.Infof("deleting deployment %s", args[0])
			if err := a.client(address).DeleteDeployment(cmd.Context(), deploymentID, ignoreLiveNodes); err != nil {
				return err
			}
			logger.Info("deleted deployment successfully")
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	cmd.Flags().BoolVar(&ignoreLiveNodes, "ignore-live-nodes", false, "delete even when the deployment still has live nodes")
	return cmd
}

func newDeploymentsExecuteCommand(a *app) *cobra.Command {
	var (
		managementIP   string
		timeoutSeconds int
		force          bool
		includeLogs    bool
	)

	cmd := &cobra.Command{
		Use:   "execute <operation> <deployment-id>",
		Short: "Execute a workflow operation on a deployment",
		Long: `Start a workflow operation and stream its events until it terminates or
the local timeout elapses. On timeout the execution keeps running remotely;
use 'cosmo executions cancel' with the reported execution id to stop it.`,
		Example: `  # Install a deployment, waiting up to 15 minutes
  cosmo deployments execute install my-app --timeout 900

  # Start even though another execution is active
  cosmo deployments execute uninstall my-app --force`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, deploymentArg := args[0], args[1]
			ctx := cmd.Context()

			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			doc, err := a.sessionStore().Load()
			if err != nil {
				return err
			}
			deploymentID := doc.TranslateContextualAlias(session.KindDeployments, deploymentArg, address)

			logger := a.logger.WithManagementAddress(address).WithDeploymentID(deploymentID)
			logger.Infof("executing operation %s", operation)

			journal, err := openJournal(ctx, a)
			if err != nil {
				return err
			}
			defer journal.Close()

			ctx, span := a.tracer.StartExecutionSpan(ctx, deploymentID, operation)
			defer span.End()

			orchestrator := workflow.NewOrchestrator(a.client(address), workflow.WithJournal(journal))
			result, err := orchestrator.Run(ctx, workflow.Request{
				DeploymentID: deploymentID,
				Operation:    operation,
				Timeout:      time.Duration(timeoutSeconds) * time.Second,
				Force:        force,
				IncludeLogs:  includeLogs,
			}, workflow.EventSinkFunc(func(event rest.Event) {
				printEvent(event, includeLogs)
			}))
			if err != nil {
				telemetry.RecordError(span, err)
				return err
			}

			span.SetAttributes(
				telemetry.AttrExecutionID.String(result.ExecutionID),
				telemetry.AttrTerminalState.String(string(result.State)),
			)
			logger = logger.WithExecutionID(result.ExecutionID)

			switch result.State {
			case workflow.StateSucceeded:
				telemetry.RecordSuccess(span)
				logger.Infof("finished executing operation %s on deployment", operation)
				return nil
			case workflow.StateTimedOut:
				logger.Errorf("execution timed out after %ds but is still running remotely; cancel it with 'cosmo executions cancel %s' or keep waiting", timeoutSeconds, result.ExecutionID)
				return failures.AlreadyReported()
			default:
				logger.Errorf("execution ended in state %s: %s", result.State, result.Error)
				return failures.AlreadyReported()
			}
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 900, "seconds to wait for the execution to terminate")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "start even when another execution is active on the deployment")
	cmd.Flags().BoolVarP(&includeLogs, "include-logs", "l", false, "show the structured context of each event")
	return cmd
}

func openJournal(ctx context.Context, a *app) (*stores.Journal, error) {
	journal, err := stores.NewJournal(filepath.Join(a.sessionStore().Dir(), stores.JournalFileName))
	if err != nil {
		return nil, err
	}
	if err := journal.Init(ctx); err != nil {
		return nil, err
	}
	return journal, nil
}

func printEvent(event rest.Event, includeLogs bool) {
	line := fmt.Sprintf("%s [%s] %s", event.Timestamp.Format(time.RFC3339), event.Type, event.Message)
	fmt.Println(line)
	if includeLogs && len(event.Context) > 0 {
		fmt.Printf("\t%v\n", event.Context)
	}
}

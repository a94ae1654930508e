package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/session"
)

func newWorkflowsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect deployment workflows",
	}
	cmd.AddCommand(newWorkflowsListCommand(a))
	return cmd
}

func newWorkflowsListCommand(a *app) *cobra.Command {
	var managementIP string

	cmd := &cobra.Command{
		Use:   "list <deployment-id>",
		Short: "List the workflows of a deployment",
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

			a.logger.WithManagementAddress(address).WithDeploymentID(deploymentID).Info("querying workflows list")

			workflows, err := a.client(address).ListWorkflows(cmd.Context(), deploymentID)
			if err != nil {
				return err
			}
			fmt.Println("Deployment workflows:")
			for _, w := range workflows {
				fmt.Println("\t" + w.Name)
			}
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	return cmd
}

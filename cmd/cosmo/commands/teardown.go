package commands

import (
	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/failures"
	"github.com/cosmo-orch/cosmo/pkg/session"
	"github.com/cosmo-orch/cosmo/pkg/telemetry"
)

func newTeardownCommand(a *app) *cobra.Command {
	var (
		managementIP string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Tear down the Cosmo platform",
		Long: `Destroy the management infrastructure through the provider, using the
provider context recorded at bootstrap time, and clear the server's aliases
from the session document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return failures.UserInput("this action requires additional confirmation; add the --force flag if you are certain")
			}

			ctx := cmd.Context()
			store := a.sessionStore()
			doc, err := store.Load()
			if err != nil {
				return err
			}
			if doc.Provider == "" {
				return failures.UserInput("no provider is set in the working directory; run 'cosmo init' first")
			}
			provider, err := a.registry.Resolve(doc.Provider)
			if err != nil {
				return err
			}

			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			logger := a.logger.WithProvider(doc.Provider).WithManagementAddress(address)
			logger.Info("tearing down management server")

			ctx, span := a.tracer.StartProviderSpan(ctx, doc.Provider, "teardown")
			defer span.End()

			if err := provider.Teardown(ctx, doc.ProviderContext, force); err != nil {
				telemetry.RecordError(span, err)
				return failures.ProviderOperation("teardown", err)
			}

			var wasActive bool
			if err := store.Update(func(doc *session.Document) error {
				wasActive = doc.RemoveServerContext(address)
				doc.ProviderContext = nil
				return nil
			}); err != nil {
				return err
			}
			if wasActive {
				logger.Warnf("no longer using management server %s as the default; run 'cosmo use' to pick another server", address)
			}

			telemetry.RecordSuccess(span)
			logger.Info("teardown complete")
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm the teardown request")
	return cmd
}

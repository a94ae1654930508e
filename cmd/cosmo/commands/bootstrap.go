package commands

import (
	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/config"
	"github.com/cosmo-orch/cosmo/pkg/failures"
	"github.com/cosmo-orch/cosmo/pkg/session"
	"github.com/cosmo-orch/cosmo/pkg/telemetry"
)

func newBootstrapCommand(a *app) *cobra.Command {
	var (
		configFile   string
		defaultsFile string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap the Cosmo platform on the configured provider",
		Long: `Provision management infrastructure through the provider recorded at init
time, install the management services on it, and set the result as the
active management server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			logger := a.logger.WithProvider(doc.Provider)
			logger.Info("reading provider configuration")

			effective, err := config.ReadEffective(configFile, defaultsFile)
			if err != nil {
				return err
			}
			if err := provider.ValidateConfig(effective); err != nil {
				return failures.ProviderOperation("config validation", err)
			}

			ctx, span := a.tracer.StartProviderSpan(ctx, doc.Provider, "bootstrap")
			defer span.End()

			logger.Info("provisioning management infrastructure")
			result, err := provider.Provision(ctx, effective)
			if err != nil {
				telemetry.RecordError(span, err)
				return failures.ProviderOperation("provision", err)
			}

			logger.WithManagementAddress(result.ManagementAddress).Info("bootstrapping management services")
			if err := provider.Bootstrap(ctx, effective, result); err != nil {
				telemetry.RecordError(span, err)
				return failures.ProviderOperation("bootstrap", err)
			}

			if err := store.Update(func(doc *session.Document) error {
				doc.ManagementAddress = result.ManagementAddress
				doc.ManagementKey = result.KeyPath
				doc.ManagementUser = result.User
				doc.ProviderContext = result.Context
				return nil
			}); err != nil {
				return err
			}

			// Best effort: the server keeps a copy of the context so other
			// operators can tear down from their own directories.
			if err := a.client(result.ManagementAddress).PostProviderContext(ctx, doc.Provider, result.Context); err != nil {
				logger.WithError(err).Warn("failed to store provider context on the management server")
			}

			telemetry.RecordSuccess(span)
			logger.Infof("management server is up at %s (now set as the default management server)", result.ManagementAddress)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config-file", "c", config.FileName, "path to the provider configuration file")
	cmd.Flags().StringVarP(&defaultsFile, "defaults-file", "d", config.DefaultsFileName, "path to the provider defaults file")
	return cmd
}

// Package commands is the cobra command layer of the cosmo CLI. Commands
// stay thin: they resolve aliases through the session store, call into the
// core packages, and leave failure classification to the binary's main.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/providers"
	"github.com/cosmo-orch/cosmo/pkg/rest"
	"github.com/cosmo-orch/cosmo/pkg/session"
	"github.com/cosmo-orch/cosmo/pkg/telemetry"
)

// app carries the state every command needs. Verbosity and the working
// directory are explicit values resolved once at startup, not mutable
// process-wide flags.
type app struct {
	workdir  string
	verbose  bool
	logger   *telemetry.Logger
	tracer   *telemetry.Tracer
	registry *providers.Registry
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	return newRootCommand(version).ExecuteContext(ctx)
}

func newRootCommand(version string) *cobra.Command {
	a := &app{registry: providers.Default()}

	rootCmd := &cobra.Command{
		Use:   "cosmo",
		Short: "Cosmo - operator CLI for the Cosmo orchestration platform",
		Long: `Cosmo drives a Cosmo management server: bootstrap the platform on a
provider, upload blueprints, create deployments, and execute workflow
operations while streaming their events.

State lives in the working directory: the session document (.cosmo) records
the active management server, the provisioning provider, and your aliases.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := telemetry.DefaultConfig(version)
			if a.verbose {
				cfg.Logging.Level = "debug"
			}
			logger, err := telemetry.NewLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			tracer, err := telemetry.NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			a.logger = logger
			a.tracer = tracer
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.workdir, "workdir", "w", "", "working directory holding the session document")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newUseCommand(a))
	rootCmd.AddCommand(newStatusCommand(a))
	rootCmd.AddCommand(newBootstrapCommand(a))
	rootCmd.AddCommand(newTeardownCommand(a))
	rootCmd.AddCommand(newBlueprintsCommand(a))
	rootCmd.AddCommand(newDeploymentsCommand(a))
	rootCmd.AddCommand(newExecutionsCommand(a))
	rootCmd.AddCommand(newWorkflowsCommand(a))
	rootCmd.AddCommand(newValidateCommand(a))
	rootCmd.AddCommand(newSSHCommand(a))

	return rootCmd
}

func (a *app) sessionStore() *session.Store {
	return session.NewStore(a.workdir)
}

// managementAddress resolves the management server to talk to: an explicit
// flag value (translated through management aliases) wins, then the
// session's active address. No address at all is a user-input failure.
func (a *app) managementAddress(flagValue string) (string, error) {
	doc, err := a.sessionStore().Load()
	if err != nil {
		return "", err
	}
	if flagValue != "" {
		return doc.TranslateManagementAlias(flagValue), nil
	}
	if doc.ManagementAddress != "" {
		return doc.ManagementAddress, nil
	}
	return "", fmt.Errorf("must either first run 'cosmo use' for a management server or provide one explicitly with --management-ip")
}

func (a *app) client(address string) *rest.Client {
	return rest.NewClient(address)
}

func addManagementIPFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "management-ip", "t", "", "management server address or alias")
}

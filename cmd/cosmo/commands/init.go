package commands

import (
	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/session"
)

func newInitCommand(a *app) *cobra.Command {
	var targetDir string

	cmd := &cobra.Command{
		Use:   "init <provider>",
		Short: "Initialize a working directory for a provider",
		Long: `Create the session document and the provider's configuration scaffolding
in the target directory, and record the provider as the active one.`,
		Example: `  # Initialize for the bundled baremetal provider
  cosmo init baremetal

  # Initialize another directory
  cosmo init baremetal --target-dir ./prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerName := args[0]
			dir := targetDir
			if dir == "" {
				dir = a.workdir
			}

			a.logger.WithProvider(providerName).Info("initializing working directory")

			provider, err := a.registry.Resolve(providerName)
			if err != nil {
				return err
			}

			store := session.NewStore(dir)
			if err := store.Save(session.NewDocument()); err != nil {
				return err
			}
			if err := provider.Scaffold(store.Dir()); err != nil {
				return err
			}
			if err := store.Update(func(doc *session.Document) error {
				doc.Provider = provider.Name()
				return nil
			}); err != nil {
				return err
			}

			a.logger.Info("initialization complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetDir, "target-dir", "t", "", "directory to initialize (default: working directory)")
	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/session"
)

func newUseCommand(a *app) *cobra.Command {
	var (
		alias string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "use <address>",
		Short: "Use a management server as the default",
		Long: `Set the active management server for this working directory. The argument
may be an address or a previously saved management alias.`,
		Example: `  # Use a server by address and alias it
  cosmo use 10.0.0.5 --alias prod

  # Later, by alias
  cosmo use prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addressOrAlias := args[0]
			return a.sessionStore().Update(func(doc *session.Document) error {
				address := doc.TranslateManagementAlias(addressOrAlias)
				doc.ManagementAddress = address
				if alias != "" {
					if err := doc.SaveManagementAlias(alias, addressOrAlias, force); err != nil {
						return err
					}
					a.logger.WithManagementAddress(address).Infof("using management server %s (alias %s)", address, alias)
					return nil
				}
				a.logger.WithManagementAddress(address).Infof("using management server %s", address)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&alias, "alias", "a", "", "alias to save for this management server")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "allow overwriting an existing alias")
	return cmd
}

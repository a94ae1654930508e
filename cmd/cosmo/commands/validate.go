package commands

import (
	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/blueprint"
	"github.com/cosmo-orch/cosmo/pkg/failures"
)

func newValidateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <blueprint-file>",
		Short: "Validate a blueprint file locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			a.logger.Infof("validating blueprint %s", path)
			if err := blueprint.ValidateFile(path); err != nil {
				return failures.UserInput("%v", err)
			}
			a.logger.Info("blueprint validated successfully")
			return nil
		},
	}
	return cmd
}

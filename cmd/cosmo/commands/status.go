package commands

import (
	"github.com/spf13/cobra"
)

func newStatusCommand(a *app) *cobra.Command {
	var managementIP string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the management server's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			logger := a.logger.WithManagementAddress(address)
			logger.Info("querying management server")

			status, err := a.client(address).Status(cmd.Context())
			if err != nil {
				logger.WithError(err).Error("REST service at management server is not responding")
				return err
			}
			logger.Infof("REST service at management server is up and running (status: %s, version: %s)", status.Status, status.Version)
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	return cmd
}

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/failures"
	"github.com/cosmo-orch/cosmo/pkg/transports/ssh"
)

func newSSHCommand(a *app) *cobra.Command {
	var command string

	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Run a command on the management server over SSH",
		Long: `Connect to the active management server with the key and user recorded at
bootstrap time and run a single command, printing its combined output.`,
		Example: `  cosmo ssh -c "sudo docker ps"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if command == "" {
				return failures.UserInput("a command is required; pass one with --command")
			}

			doc, err := a.sessionStore().Load()
			if err != nil {
				return err
			}
			if doc.ManagementAddress == "" {
				return failures.UserInput("must either first run 'cosmo use' for a management server or provide one explicitly with --management-ip")
			}
			if doc.ManagementKey == "" || doc.ManagementUser == "" {
				return failures.UserInput("the session document has no management key or user; run 'cosmo bootstrap' first")
			}

			a.logger.WithManagementAddress(doc.ManagementAddress).Debugf("running command over ssh: %s", command)

			client, err := ssh.NewClient(&ssh.Config{
				Host:           doc.ManagementAddress,
				User:           doc.ManagementUser,
				KeyPath:        doc.ManagementKey,
				ConnectTimeout: 30 * time.Second,
			})
			if err != nil {
				return err
			}
			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}
			defer client.Close()

			output, err := client.Run(cmd.Context(), command)
			if output != "" {
				fmt.Print(output)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "", "command to run on the management server")
	return cmd
}

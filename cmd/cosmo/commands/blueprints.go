package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cosmo-orch/cosmo/pkg/blueprint"
	"github.com/cosmo-orch/cosmo/pkg/failures"
	"github.com/cosmo-orch/cosmo/pkg/session"
)

func newBlueprintsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blueprints",
		Short: "Manage blueprints on the management server",
	}
	cmd.AddCommand(newBlueprintsUploadCommand(a))
	cmd.AddCommand(newBlueprintsListCommand(a))
	cmd.AddCommand(newBlueprintsDeleteCommand(a))
	cmd.AddCommand(newAliasCommand(a, session.KindBlueprints, "blueprint"))
	return cmd
}

func newBlueprintsUploadCommand(a *app) *cobra.Command {
	var (
		managementIP string
		alias        string
	)

	cmd := &cobra.Command{
		Use:   "upload <blueprint-file>",
		Short: "Upload a blueprint to the management server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := blueprint.ValidateFile(path); err != nil {
				return failures.UserInput("%v", err)
			}

			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			doc, err := a.sessionStore().Load()
			if err != nil {
				return err
			}
			if alias != "" && doc.TranslateContextualAlias(session.KindBlueprints, alias, address) != alias {
				return failures.UserInput("blueprint alias %q is already in use", alias)
			}

			logger := a.logger.WithManagementAddress(address)
			logger.Infof("uploading blueprint %s", path)

			uploaded, err := a.client(address).PublishBlueprint(cmd.Context(), path, "")
			if err != nil {
				return err
			}

			if alias == "" {
				logger.Infof("uploaded blueprint, id: %s", uploaded.ID)
				return nil
			}
			if err := a.sessionStore().Update(func(doc *session.Document) error {
				return doc.SaveContextualAlias(session.KindBlueprints, alias, uploaded.ID, address, false)
			}); err != nil {
				return err
			}
			logger.Infof("uploaded blueprint, alias: %s (id: %s)", alias, uploaded.ID)
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "alias to save for the uploaded blueprint")
	return cmd
}

func newBlueprintsListCommand(a *app) *cobra.Command {
	var managementIP string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blueprints on the management server",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			logger := a.logger.WithManagementAddress(address)
			logger.Info("querying blueprints list")

			blueprints, err := a.client(address).ListBlueprints(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := a.sessionStore().Load()
			if err != nil {
				return err
			}
			aliasToID := doc.AliasMapping(session.KindBlueprints, address)
			idToAliases := reverseLookup(aliasToID)

			if len(blueprints) == 0 {
				fmt.Println("There are no blueprints available on the management server")
			} else {
				fmt.Println("Blueprints:")
				onServer := make(map[string]bool, len(blueprints))
				for _, bp := range blueprints {
					onServer[bp.ID] = true
					line := "\t" + bp.ID
					if aliases := idToAliases[bp.ID]; len(aliases) > 0 {
						line += " (" + strings.Join(aliases, ", ") + ")"
					}
					fmt.Println(line)
				}
				printUnusedAliases(aliasToID, onServer)
				return nil
			}
			printUnusedAliases(aliasToID, nil)
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	return cmd
}

func newBlueprintsDeleteCommand(a *app) *cobra.Command {
	var managementIP string

	cmd := &cobra.Command{
		Use:   "delete <blueprint-id>",
		Short: "Delete a blueprint from the management server",
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

			logger := a.logger.WithManagementAddress(address)
			logger.Infof("deleting blueprint %s", args[0])
			if err := a.client(address).DeleteBlueprint(cmd.Context(), blueprintID); err != nil {
				return err
			}
			logger.Info("deleted blueprint successfully")
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	return cmd
}

// newAliasCommand builds the shared `alias` subcommand for blueprints and
// deployments.
func newAliasCommand(a *app, kind, objectName string) *cobra.Command {
	var (
		managementIP string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("alias <alias> <%s-id>", objectName),
		Short: fmt.Sprintf("Save an alias for a %s", objectName),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias, id := args[0], args[1]
			address, err := a.managementAddress(managementIP)
			if err != nil {
				return err
			}
			if err := a.sessionStore().Update(func(doc *session.Document) error {
				return doc.SaveContextualAlias(kind, alias, id, address, force)
			}); err != nil {
				return err
			}
			a.logger.WithManagementAddress(address).Infof("%s %s is now aliased %s", objectName, id, alias)
			return nil
		},
	}

	addManagementIPFlag(cmd, &managementIP)
	cmd.Flags().BoolVarP(&force, "force", "f", false, "allow overwriting an existing alias")
	return cmd
}

func reverseLookup(aliasToID map[string]string) map[string][]string {
	reversed := make(map[string][]string)
	for alias, id := range aliasToID {
		reversed[id] = append(reversed[id], alias)
	}
	for _, aliases := range reversed {
		sort.Strings(aliases)
	}
	return reversed
}

func printUnusedAliases(aliasToID map[string]string, onServer map[string]bool) {
	var unused []string
	for alias, id := range aliasToID {
		if !onServer[id] {
			unused = append(unused, alias)
		}
	}
	if len(unused) == 0 {
		return
	}
	sort.Strings(unused)
	fmt.Println("Unused aliases:")
	fmt.Println("\t" + strings.Join(unused, ", "))
}

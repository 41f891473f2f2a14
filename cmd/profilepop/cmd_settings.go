package main

import (
	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change preferences",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			prefs, err := app.Settings.Load(cmd.Context())
			if err != nil {
				return err
			}
			rows := pterm.TableData{{"Setting", "Value"}}
			for _, kv := range prefs.Values() {
				rows = append(rows, []string{kv[0], kv[1]})
			}
			return printTable(rows)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			if _, err := app.Settings.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			pterm.Success.Printf("%s = %s\n", args[0], args[1])
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

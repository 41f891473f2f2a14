package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all profiles, settings, and license state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			confirmed, err := confirm("Delete all profilepop data? This cannot be undone.")
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		return withApp(cmd, func(app *commands.App) error {
			if err := app.ClearAll(cmd.Context()); err != nil {
				return err
			}
			pterm.Success.Println("All data cleared.")
			return nil
		})
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
}

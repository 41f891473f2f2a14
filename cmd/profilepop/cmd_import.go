package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var importYes bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all profiles with those in an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		if !importYes {
			confirmed, err := confirm(fmt.Sprintf("Replace all profiles with the contents of %s?", args[0]))
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		return withApp(cmd, func(app *commands.App) error {
			imported, err := app.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			pterm.Success.Printf("Imported %s\n", plural.Pluralize("profile", len(imported), true))
			return nil
		})
	},
}

func init() {
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "skip confirmation")
}

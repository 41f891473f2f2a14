package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export profiles and settings to a JSON file",
	Long:  "Export profiles and settings to a JSON file. Without a file argument the export is written to browser-profiles-<date>.json in the current directory; use - for stdout.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := commands.ExportFileName(time.Now())
		if len(args) == 1 {
			path = args[0]
		}

		return withApp(cmd, func(app *commands.App) error {
			if path == "-" {
				_, err := app.Export(cmd.Context(), os.Stdout)
				return err
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			doc, err := app.Export(cmd.Context(), f)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("closing %s: %w", path, cerr)
			}
			if err != nil {
				os.Remove(path)
				return err
			}

			pterm.Success.Printf("Exported %s to %s\n", plural.Pluralize("profile", doc.ProfileCount, true), path)
			return nil
		})
	},
}

package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/ruminaider/profilepop/internal/discover"
	"github.com/spf13/cobra"
)

var (
	discoverBrowser string
	discoverDryRun  bool
)

var profileDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Create profiles from a browser's existing profiles",
	Long:  "Read the profiles Chrome, Edge or Firefox already has on this machine and create a profile for each one not yet stored.",
	RunE: func(cmd *cobra.Command, args []string) error {
		browser, err := discover.ParseBrowser(discoverBrowser)
		if err != nil {
			return err
		}

		return withApp(cmd, func(app *commands.App) error {
			res, err := app.Discover(cmd.Context(), browser, discoverDryRun)
			if res != nil && len(res.Added) > 0 {
				rows := pterm.TableData{{"Name", "Color", "ID"}}
				for _, p := range res.Added {
					rows = append(rows, []string{p.Name, p.Color, string(p.ID)})
				}
				if perr := printTable(rows); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}

			for _, name := range res.Skipped {
				pterm.Info.Printf("Skipped %q, already exists\n", name)
			}
			switch {
			case len(res.Found) == 0:
				fmt.Printf("No %s profiles found in %s\n", browser, res.Root)
			case discoverDryRun:
				pterm.Info.Printf("Would add %s\n", plural.Pluralize("profile", len(res.Added), true))
			default:
				pterm.Success.Printf("Added %s from %s\n", plural.Pluralize("profile", len(res.Added), true), browser)
			}
			return nil
		})
	},
}

func init() {
	profileDiscoverCmd.Flags().StringVar(&discoverBrowser, "browser", string(discover.Chrome), "browser to read: chrome, edge or firefox")
	profileDiscoverCmd.Flags().BoolVar(&discoverDryRun, "dry-run", false, "list what would be added without saving")
	profileCmd.AddCommand(profileDiscoverCmd)
}

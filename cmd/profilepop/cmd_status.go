package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gertd/go-pluralize"
	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/ruminaider/profilepop/internal/license"
	"github.com/spf13/cobra"
)

var plural = pluralize.NewClient()

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show profiles and license status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			result, err := app.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("License:  %s\n", tierLine(result.Capabilities))
			fmt.Printf("Storage:  %s\n", result.Backend)
			fmt.Printf("Profiles: %s\n", plural.Pluralize("profile", len(result.Stored), true))
			if result.Current != nil {
				fmt.Printf("Current:  %s (switched %s)\n", result.Current.Name, humanize.Time(*result.Current.LastUsed))
			}

			if hidden := result.Hidden(); hidden > 0 {
				fmt.Println()
				pterm.Warning.Printf("%s hidden by the free tier. Run 'profilepop license purchase' to unlock them.\n",
					plural.Pluralize("profile", hidden, true))
			}
			if len(result.Stored) == 0 {
				fmt.Println()
				fmt.Println("No profiles yet. Run 'profilepop profile add' or 'profilepop profile reset'.")
			}
			return nil
		})
	},
}

func tierLine(caps license.Capabilities) string {
	switch caps.Tier {
	case license.TierPro:
		return "Pro"
	case license.TierTrial:
		if caps.TrialEndsAt != nil {
			return fmt.Sprintf("Trial (ends %s)", humanize.Time(*caps.TrialEndsAt))
		}
		return "Trial"
	}
	return fmt.Sprintf("Free (up to %d profiles)", caps.MaxProfiles)
}

package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/spf13/cobra"
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Show or change the license",
}

var licenseStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the license tier and the features it includes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			resp, err := app.Do(cmd.Context(), router.CheckLicense{})
			if err != nil {
				return err
			}
			caps := *resp.Status

			fmt.Printf("License: %s\n\n", tierLine(caps))
			limit := "unlimited"
			if !caps.Unlimited() {
				limit = strconv.Itoa(caps.MaxProfiles)
			}
			rows := pterm.TableData{{"Feature", "Included"}}
			rows = append(rows, []string{"Profiles", limit})
			rows = append(rows, []string{"Keyboard shortcuts", yesNo(caps.Features.Shortcuts)})
			rows = append(rows, []string{"Theme sync", yesNo(caps.Features.ThemeSync)})
			rows = append(rows, []string{"Extension toggling", yesNo(caps.Features.ExtensionToggle)})
			rows = append(rows, []string{"Export / import", yesNo(caps.Features.ExportImport)})
			rows = append(rows, []string{"Sync", yesNo(caps.Features.Sync)})
			return printTable(rows)
		})
	},
}

var licensePurchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Buy Pro",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			resp, err := app.Do(cmd.Context(), router.PurchasePro{})
			if err != nil {
				return err
			}
			if resp.External {
				pterm.Info.Printf("Complete the purchase at %s, then run 'profilepop license activate <key>'.\n", app.Config.License.PurchaseURL)
				return nil
			}
			pterm.Success.Println("Pro unlocked. Thank you!")
			return nil
		})
	},
}

var licenseActivateCmd = &cobra.Command{
	Use:   "activate <key>",
	Short: "Activate Pro with a license key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			if _, err := app.Do(cmd.Context(), router.ActivateLicense{Key: args[0]}); err != nil {
				return err
			}
			pterm.Success.Println("License activated. Pro features unlocked.")
			return nil
		})
	},
}

func init() {
	licenseCmd.AddCommand(licenseStatusCmd)
	licenseCmd.AddCommand(licensePurchaseCmd)
	licenseCmd.AddCommand(licenseActivateCmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

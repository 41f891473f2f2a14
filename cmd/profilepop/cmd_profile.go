package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage browser profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles available on the current license",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			resp, err := app.Do(cmd.Context(), router.GetProfiles{})
			if err != nil {
				return err
			}
			if len(resp.Profiles) == 0 {
				fmt.Println("No profiles configured.")
				return nil
			}

			rows := pterm.TableData{{"#", "", "Name", "Color", "ID", "Last used"}}
			for i, p := range resp.Profiles {
				icon := p.Icon
				if icon == "" {
					icon = profiles.Initial(p)
				}
				name := p.Name
				if p.IsDefault {
					name += " (default)"
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), icon, name, p.Color, string(p.ID), lastUsed(p)})
			}
			return printTable(rows)
		})
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <id-or-name>",
	Short: "Show one profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			p, err := resolveProfile(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}

			rows := pterm.TableData{{"Property", "Value"}}
			rows = append(rows, []string{"ID", string(p.ID)})
			rows = append(rows, []string{"Name", p.Name})
			rows = append(rows, []string{"Icon", p.Icon})
			rows = append(rows, []string{"Color", p.Color})
			rows = append(rows, []string{"Default", strconv.FormatBool(p.IsDefault)})
			rows = append(rows, []string{"Created", humanize.Time(p.CreatedAt)})
			rows = append(rows, []string{"Last used", lastUsed(p)})
			if p.Theme != nil {
				theme := "custom"
				if p.Theme.Reset {
					theme = "browser default"
				}
				rows = append(rows, []string{"Theme", theme})
			}
			for _, ext := range p.Extensions {
				state := "disabled"
				if ext.Enabled {
					state = "enabled"
				}
				rows = append(rows, []string{"Extension " + ext.ID, state})
			}
			return printTable(rows)
		})
	},
}

var (
	profileAddName     string
	profileAddColor    string
	profileAddIcon     string
	profileAddTemplate string
	profileAddDefault  bool
)

var profileAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a profile",
	Long:  "Create a profile from flags, from a template (--template), or interactively when neither --name nor --template is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var p profiles.Profile
		if profileAddTemplate != "" {
			t, ok := profiles.LookupTemplate(profileAddTemplate)
			if !ok {
				return fmt.Errorf("unknown template %q (see 'profilepop profile templates')", profileAddTemplate)
			}
			p = profiles.FromTemplate(t)
		}
		if profileAddName != "" {
			p.Name = profileAddName
		}
		if profileAddColor != "" {
			p.Color = profileAddColor
		}
		if profileAddIcon != "" {
			p.Icon = profileAddIcon
		}
		p.IsDefault = profileAddDefault

		if p.Name == "" {
			if err := profileForm(&p, "New profile").Run(); err != nil {
				return err
			}
		}

		return withApp(cmd, func(app *commands.App) error {
			resp, err := app.Do(cmd.Context(), router.SaveProfile{Profile: p})
			if err != nil {
				return err
			}
			pterm.Success.Printf("Profile %q created (%s)\n", resp.Profile.Name, resp.Profile.ID)
			return nil
		})
	},
}

var (
	profileEditName    string
	profileEditColor   string
	profileEditIcon    string
	profileEditDefault bool
)

var profileEditCmd = &cobra.Command{
	Use:   "edit <id-or-name>",
	Short: "Edit a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			ctx := cmd.Context()
			p, err := resolveProfile(ctx, app, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !flags.Changed("name") && !flags.Changed("color") && !flags.Changed("icon") && !flags.Changed("default") {
				if err := profileForm(&p, "Edit profile").Run(); err != nil {
					return err
				}
			}
			if flags.Changed("name") {
				p.Name = profileEditName
			}
			if flags.Changed("color") {
				p.Color = profileEditColor
			}
			if flags.Changed("icon") {
				p.Icon = profileEditIcon
			}
			if flags.Changed("default") {
				p.IsDefault = profileEditDefault
			}

			resp, err := app.Do(ctx, router.SaveProfile{Profile: p})
			if err != nil {
				return err
			}
			pterm.Success.Printf("Profile %q updated\n", resp.Profile.Name)
			return nil
		})
	},
}

var profileDeleteYes bool

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <id-or-name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			ctx := cmd.Context()
			p, err := resolveProfile(ctx, app, args[0])
			if err != nil {
				return err
			}

			if !profileDeleteYes {
				confirmed, err := confirm(fmt.Sprintf("Delete profile %q?", p.Name))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			if _, err := app.Do(ctx, router.DeleteProfile{ProfileID: p.ID}); err != nil {
				return err
			}
			pterm.Success.Printf("Profile %q deleted\n", p.Name)
			return nil
		})
	},
}

var profileSwitchCmd = &cobra.Command{
	Use:   "switch <id-or-name>",
	Short: "Switch to a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *commands.App) error {
			ctx := cmd.Context()
			p, err := resolveProfile(ctx, app, args[0])
			if err != nil {
				return err
			}
			_, err = app.Do(ctx, router.SwitchProfile{ProfileID: p.ID})
			return err
		})
	},
}

var profileShortcutCmd = &cobra.Command{
	Use:   "shortcut <slot>",
	Short: "Switch to the profile in a quick-switch slot (1-based)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("slot must be a number: %w", err)
		}
		return withApp(cmd, func(app *commands.App) error {
			_, err := app.Do(cmd.Context(), router.QuickSwitch{Slot: slot})
			return err
		})
	},
}

var profileTemplatesCategory string

var profileTemplatesCmd = &cobra.Command{
	Use:   "templates [query]",
	Short: "List profile templates",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var list []profiles.Template
		switch {
		case len(args) == 1:
			list = profiles.SearchTemplates(args[0])
		case profileTemplatesCategory != "":
			list = profiles.TemplatesByCategory(profiles.Category(profileTemplatesCategory))
		default:
			list = profiles.Templates()
		}
		if len(list) == 0 {
			fmt.Println("No matching templates.")
			return nil
		}

		rows := pterm.TableData{{"Key", "", "Name", "Color", "Category"}}
		for _, t := range list {
			rows = append(rows, []string{t.Key, t.Icon, t.Name, t.Color, t.Category.Label()})
		}
		return printTable(rows)
	},
}

var profileResetYes bool

var profileResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace all profiles with the default set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !profileResetYes {
			confirmed, err := confirm("Replace all profiles with the defaults?")
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}
		return withApp(cmd, func(app *commands.App) error {
			resp, err := app.Do(cmd.Context(), router.ResetProfiles{})
			if err != nil {
				return err
			}
			pterm.Success.Printf("Restored %s\n", plural.Pluralize("default profile", len(resp.Profiles), true))
			return nil
		})
	},
}

func init() {
	profileAddCmd.Flags().StringVar(&profileAddName, "name", "", "profile name")
	profileAddCmd.Flags().StringVar(&profileAddColor, "color", "", "hex color, e.g. #2196F3 (default: next palette color)")
	profileAddCmd.Flags().StringVar(&profileAddIcon, "icon", "", "icon, usually an emoji")
	profileAddCmd.Flags().StringVar(&profileAddTemplate, "template", "", "template key to start from")
	profileAddCmd.Flags().BoolVar(&profileAddDefault, "default", false, "mark as the default profile")

	profileEditCmd.Flags().StringVar(&profileEditName, "name", "", "new name")
	profileEditCmd.Flags().StringVar(&profileEditColor, "color", "", "new hex color")
	profileEditCmd.Flags().StringVar(&profileEditIcon, "icon", "", "new icon")
	profileEditCmd.Flags().BoolVar(&profileEditDefault, "default", false, "mark as the default profile")

	profileDeleteCmd.Flags().BoolVarP(&profileDeleteYes, "yes", "y", false, "skip confirmation")
	profileResetCmd.Flags().BoolVarP(&profileResetYes, "yes", "y", false, "skip confirmation")
	profileTemplatesCmd.Flags().StringVar(&profileTemplatesCategory, "category", "", "only list templates in this category")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileSwitchCmd)
	profileCmd.AddCommand(profileShortcutCmd)
	profileCmd.AddCommand(profileTemplatesCmd)
	profileCmd.AddCommand(profileResetCmd)
}

// resolveProfile finds a profile by exact id, then by case-insensitive name.
func resolveProfile(ctx context.Context, app *commands.App, ref string) (profiles.Profile, error) {
	all, err := app.Profiles.All(ctx)
	if err != nil {
		return profiles.Profile{}, err
	}
	for _, p := range all {
		if string(p.ID) == ref {
			return p, nil
		}
	}
	for _, p := range all {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return profiles.Profile{}, fmt.Errorf("%w: %s", profiles.ErrNotFound, ref)
}

func profileForm(p *profiles.Profile, title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&p.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Color").
				Description("Hex color. Leave empty to pick the next palette color.").
				Value(&p.Color),
			huh.NewInput().
				Title("Icon").
				Description("Usually a single emoji.").
				Value(&p.Icon),
		).Title(title),
	)
}

func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&ok),
		),
	).Run()
	return ok, err
}

func lastUsed(p profiles.Profile) string {
	if p.LastUsed == nil {
		return "never"
	}
	return humanize.Time(*p.LastUsed)
}

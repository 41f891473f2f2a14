package main

import (
	"io"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var configPath string

// openApp wires the application for one command invocation. Host
// notifications go to hostOut.
func openApp(cmd *cobra.Command, hostOut io.Writer) (*commands.App, error) {
	return commands.Open(cmd.Context(), commands.Options{
		ConfigPath: configPath,
		HostOutput: hostOut,
	})
}

// withApp runs fn against a freshly opened App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(app *commands.App) error) error {
	app, err := openApp(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printTable(rows pterm.TableData) error {
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the message API and event stream over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(cmd, func(app *commands.App) error {
			addr := app.Config.Server.Listen
			if serveListen != "" {
				addr = serveListen
			}
			pterm.Info.Printf("Listening on http://%s (POST /api/v1/messages, GET /api/v1/events)\n", addr)
			return app.Server().ListenAndServe(ctx, addr)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (default from config, 127.0.0.1:7465)")
}

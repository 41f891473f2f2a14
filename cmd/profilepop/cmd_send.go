package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ruminaider/profilepop/internal/commands"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send [json]",
	Short: "Send one raw request to the router and print the response",
	Long:  `Send one raw request, e.g. '{"action":"getProfiles"}', and print the JSON response. Reads the request from stdin when no argument is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		if len(args) == 1 {
			data = []byte(args[0])
		} else {
			var err error
			if data, err = io.ReadAll(os.Stdin); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}

		return withApp(cmd, func(app *commands.App) error {
			resp := app.Router.HandleRaw(cmd.Context(), data)
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if resp.Error != nil {
				return resp.Error
			}
			return nil
		})
	},
}

package main

import (
	"os"

	"github.com/ruminaider/profilepop/internal/nativemsg"
	"github.com/spf13/cobra"
)

// nativeCmd is launched by the browser as a native messaging host. The
// browser passes the caller origin (and, for Firefox, the manifest path) as
// arguments; they are accepted and ignored. stdout carries only frames.
var nativeCmd = &cobra.Command{
	Use:    "native [origin]",
	Short:  "Run as a browser native messaging host on stdin/stdout",
	Args:   cobra.ArbitraryArgs,
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer app.Close()

		return nativemsg.Serve(cmd.Context(), os.Stdin, os.Stdout, app.Router, app.Log)
	},
}

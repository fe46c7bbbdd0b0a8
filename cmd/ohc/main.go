// Package main provides the ohc CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joss/ohc/internal/logging"
	"github.com/joss/ohc/internal/tui"
)

var (
	version = "0.1.0"

	serverName string
	plain      bool
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ohc",
		Short: "OpenHands Cloud conversation manager",
		Long: `ohc: browse, wake, and download OpenHands Cloud conversations.

Usage modes:
  ohc              Start the interactive conversation browser
  ohc <command>    Run a specific command (see below)

Use 'ohc server add' to configure a server profile first.`,
		Args: cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLevel(logLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			if err := tui.Run(tui.NewBrowser(newClient())); err != nil {
				exitOnError(err)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&serverName, "server", "s", "", "Server profile to use (default: the configured default)")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "servers", Title: "Servers:"},
		&cobra.Group{ID: "conversations", Title: "Conversations:"},
	)

	server := serverCmd()
	server.GroupID = "servers"
	rootCmd.AddCommand(server)

	conv := convCmd()
	conv.GroupID = "conversations"
	rootCmd.AddCommand(conv)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ohc %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

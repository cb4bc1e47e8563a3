package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "dubwatch",
	Short: "CLI client for the dubwatch daemon",
	Long: `dubwatch - CLI client for the dubwatch daemon

Inspect what the webhook pipeline has been doing: recent event
outcomes, skips, and collection updates.

Run 'dubwatchd' to start the daemon.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8686", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("dubwatch {{.Version}}\n")
}

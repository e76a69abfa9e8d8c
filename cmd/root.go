package cmd

import (
	"fmt"
	"os"

	"mediatag/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mediatag",
	Short: "mediatag curates a media collection with timestamps and annotations.",
	Run: func(cmd *cobra.Command, args []string) {
		// server.Start handles its own config and logging for startup.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

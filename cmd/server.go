package cmd

import (
	"mediatag/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the mediatag HTTP server",
	Long:  `Start the HTTP/websocket server serving the catalog, annotation and playback APIs.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cmd

import (
	"otakuwave/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the OtakuWave server",
	Long:  `Start the HTTP server: catalog and admin APIs, the player websocket, stored files and the web UI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

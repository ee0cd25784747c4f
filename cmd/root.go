package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "connectsphere",
	Short: "Event planning service with live RSVPs, chat and polls",
	Long: `ConnectSphere serves the event planning API and websocket gateway,
fans domain events out across instances through Redis, and turns them
into per-user notifications.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}

package main

import (
	"os"

	"github.com/spf13/cobra"

	"darkest-dnd-server/logger"
)

var rootCmd = &cobra.Command{
	Use:   "darkest-dnd-server",
	Short: "Shared tabletop map server with fog of war",
	Long: `darkest-dnd-server hosts one shared tile map. Sessions steer characters
across it, share what they see, and the game master paints and freezes
the board for everyone.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, pathCmd, schemaCmd, tokenCmd, botCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

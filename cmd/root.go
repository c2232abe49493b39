package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/logger"
)

// rootCmd is the base command all subcommands attach to
var rootCmd = &cobra.Command{
	Use:   "modio-manager",
	Short: "Manage mod.io mods for your game",
	Long: `A manager for mod.io content: synchronizes your subscribed mods,
resolves their dependencies and installs them with integrity verification.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Fatalw("Command failed", zap.Error(err))
	}
}

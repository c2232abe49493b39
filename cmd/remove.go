package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/db"
	"github.com/RainOrigami/ModIoManager/logger"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove [modID...]",
	Short: "Remove installed mods",
	Long: `Removes the installed copy of the given mods from the mod directory.
Example: modio-manager remove 2773760`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		runRemove(args)
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(args []string) {
	ids, err := parseModIDs(args)
	if err != nil {
		logger.Log.Fatalw("Invalid arguments", zap.Error(err))
	}

	_, _, ins := bootstrap(".")

	for _, id := range ids {
		if err := ins.Remove(id); err != nil {
			logger.Log.Errorw("Failed to remove mod", zap.Int("mod_id", id), zap.Error(err))
			continue
		}
		if err := db.RecordRemove(id); err != nil {
			logger.Log.Warnw("Failed to record removal", zap.Int("mod_id", id), zap.Error(err))
		}
		logger.Log.Infow("Removed mod", zap.Int("mod_id", id))
		fmt.Printf("Removed UGC%d\n", id)
	}
}

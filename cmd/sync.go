package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/db"
	"github.com/RainOrigami/ModIoManager/logger"
	"github.com/RainOrigami/ModIoManager/modio"
	"github.com/RainOrigami/ModIoManager/ui"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the local catalog with your mod.io subscriptions",
	Long: `Fetches all subscribed mods from mod.io, resolves their dependency
closures into the local catalog and merges the installed state found in the
mod directory.`,
	Run: func(_ *cobra.Command, _ []string) {
		runSync()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync() {
	cfg, resolver, _ := bootstrap(".")

	ctx, cancel := sessionContext()
	defer cancel()

	logger.Log.Info("Fetching subscribed mods...")
	subscribed, err := resolver.GetSubscribedMods(ctx, logProgress)
	if err != nil {
		if modio.IsCancelled(err) {
			// Cancellation is a silent stop, not a failure.
			logger.Log.Info("Sync cancelled")
			return
		}
		logger.Log.Fatalw("Failed to fetch subscribed mods", zap.Error(err))
	}
	if subscribed == nil {
		logger.Log.Warn("No API token configured, cannot load subscriptions.")
		return
	}

	mergeLocalState(cfg, resolver.Cache())

	// Keep the subscription flags in the database in step with mod.io.
	for _, mod := range subscribed {
		db.DB.Model(&db.InstalledMod{}).Where("mod_id = ?", mod.ID).Update("subscribed", true)
	}

	fmt.Println(ui.Title(fmt.Sprintf("Subscribed mods (%d):", len(subscribed))))
	for _, mod := range subscribed {
		status := modStatus(mod, cfg.TargetPlatform)
		deps := ""
		if count := len(mod.DependencyModIDs); count > 0 {
			deps = fmt.Sprintf("  (%d dependencies)", count)
		}
		fmt.Printf("  UGC%-10d %-40s %s%s\n", mod.ID, mod.Name, ui.StatusStyle(status), deps)
	}

	// Dependency resolution may have pulled records into the catalog the user
	// is not subscribed to; list them so the install set is no surprise.
	var depOnly []*modio.Mod
	for _, mod := range resolver.Cache().All() {
		if !mod.Subscribed {
			depOnly = append(depOnly, mod)
		}
	}
	if len(depOnly) > 0 {
		fmt.Println(ui.Title(fmt.Sprintf("Pulled in as dependencies (%d):", len(depOnly))))
		for _, mod := range depOnly {
			status := modStatus(mod, cfg.TargetPlatform)
			fmt.Printf("  UGC%-10d %-40s %s\n", mod.ID, mod.Name, ui.StatusStyle(status))
		}
	}

	logger.Log.Infow("Sync finished",
		zap.Int("subscribed", len(subscribed)),
		zap.Int("cached", resolver.Cache().Len()),
	)
}

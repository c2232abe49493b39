package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/batch"
	"github.com/RainOrigami/ModIoManager/db"
	"github.com/RainOrigami/ModIoManager/logger"
	"github.com/RainOrigami/ModIoManager/modio"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install [modID...]",
	Short: "Install mods and their dependencies by id",
	Long: `Resolves the given mods and their full dependency closure, then
downloads, verifies and installs each of them.
Example: modio-manager install 2773760 2803451`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		runInstall(args, plain)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().Bool("plain", false, "Log progress instead of showing the interactive progress view")
}

func runInstall(args []string, plain bool) {
	ids, err := parseModIDs(args)
	if err != nil {
		logger.Log.Fatalw("Invalid arguments", zap.Error(err))
	}

	cfg, resolver, ins := bootstrap(".")

	ctx, cancel := sessionContext()
	defer cancel()

	logger.Log.Infof("Resolving %d mods...", len(ids))
	selected, err := resolver.GetModsByIDs(ctx, ids, logProgress)
	if err != nil {
		if modio.IsCancelled(err) {
			logger.Log.Info("Install cancelled")
			return
		}
		logger.Log.Fatalw("Failed to resolve mods", zap.Error(err))
	}
	if len(selected) == 0 {
		logger.Log.Warn("No mods found for the given ids.")
		return
	}

	mergeLocalState(cfg, resolver.Cache())

	// Install dependencies before their dependents.
	toInstall := installOrder(resolver.Cache(), selected)
	logger.Log.Infow("Resolved install set",
		zap.Int("selected", len(selected)),
		zap.Int("with_dependencies", len(toInstall)),
	)

	orchestrator := batch.New(ins, logger.Log)
	runBatch := func(progress batch.ProgressFunc) []batch.Result {
		results := orchestrator.Run(ctx, toInstall, progress)
		persistResults(cfg.TargetPlatform, results)
		return results
	}

	var results []batch.Result
	if plain {
		results = runBatch(func(p batch.Progress) {
			logger.Log.Infow(p.Message,
				zap.Int("current", p.CurrentIndex),
				zap.Int("batch_size", p.BatchSize),
				zap.Int("percent", p.Percent),
			)
		})
	} else {
		model := newInstallModel(len(toInstall), runBatch)
		final, err := tea.NewProgram(model).Run()
		if err != nil {
			logger.Log.Fatalw("Failed to run progress view", zap.Error(err))
		}
		if m, ok := final.(installModel); ok {
			results = m.results
		}
	}

	installed, failed := 0, 0
	for _, result := range results {
		if result.Err == nil {
			installed++
		} else if !modio.IsCancelled(result.Err) {
			failed++
		}
	}

	fmt.Printf("Installed %d mods, %d failed.\n", installed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// persistResults records batch outcomes in the database.
func persistResults(platform string, results []batch.Result) {
	for _, result := range results {
		mod := result.Mod
		if result.Err == nil {
			err := db.RecordInstall(mod.ID, mod.Name, mod.PlatformTaint(platform), mod.Modfile.Filename, mod.Modfile.Filesize, mod.Subscribed)
			if err != nil {
				logger.Log.Warnw("Failed to record install", zap.Int("mod_id", mod.ID), zap.Error(err))
			}
			continue
		}
		if modio.IsCancelled(result.Err) {
			continue
		}
		event := db.InstallEvent{
			ModID:    mod.ID,
			Action:   "install",
			Taint:    mod.PlatformTaint(platform),
			FileName: mod.Modfile.Filename,
			Error:    result.Err.Error(),
		}
		if err := db.DB.Create(&event).Error; err != nil {
			logger.Log.Warnw("Failed to record install failure", zap.Int("mod_id", mod.ID), zap.Error(err))
		}
	}
}

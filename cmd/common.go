package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/catalog"
	"github.com/RainOrigami/ModIoManager/config"
	"github.com/RainOrigami/ModIoManager/db"
	"github.com/RainOrigami/ModIoManager/installer"
	"github.com/RainOrigami/ModIoManager/logger"
	"github.com/RainOrigami/ModIoManager/modio"
	"github.com/RainOrigami/ModIoManager/scanner"
)

// bootstrap handles shared initialization logic for commands.
func bootstrap(path string) (config.Config, *catalog.Resolver, *installer.Installer) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	db.InitDatabase(cfg.DatabasePath)
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	client := modio.NewClient(cfg.ModIoBaseURL, cfg.ModIoAPIToken, cfg.UserAgent, cfg.PageLimit)
	resolver := catalog.NewResolver(client, cfg.GameID)
	ins := installer.New(client, cfg.ModDir, cfg.DownloadDir, cfg.TargetPlatform, logger.Log)

	return cfg, resolver, ins
}

// sessionContext returns a context cancelled by Ctrl-C. One signal is created
// per top-level command invocation.
func sessionContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// mergeLocalState scans the mod directory and patches the installed-version
// state onto the cached records.
func mergeLocalState(cfg config.Config, cache *catalog.Cache) []scanner.LocalMod {
	locals, err := scanner.Scan(cfg.ModDir)
	if err != nil {
		logger.Log.Warnw("Failed to scan local mods", zap.Error(err))
		return nil
	}
	for _, local := range locals {
		cache.ApplyLocalState(local.ID, local.Taint, local.Broken)
	}
	return locals
}

// logProgress is the progress sink for commands that run without a TUI.
func logProgress(message string, current, total int) {
	logger.Log.Infow(message, zap.Int("current", current), zap.Int("total", total))
}

// parseModIDs converts command arguments to mod ids.
func parseModIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid mod id '%s'", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// modStatus summarizes a cached record's local installation state.
func modStatus(mod *modio.Mod, platform string) string {
	switch {
	case mod.LocalVersion == 0:
		return "not-installed"
	case mod.LocalBroken:
		return "broken"
	case mod.UpdateAvailable(platform):
		return "update-available"
	default:
		return "up-to-date"
	}
}

// installOrder returns the given mods expanded with their cached dependency
// closures, dependencies first, each mod at most once.
func installOrder(cache *catalog.Cache, mods []*modio.Mod) []*modio.Mod {
	seen := make(map[int]bool)
	var ordered []*modio.Mod

	var visit func(mod *modio.Mod)
	visit = func(mod *modio.Mod) {
		if seen[mod.ID] {
			return
		}
		seen[mod.ID] = true
		for _, depID := range mod.DependencyModIDs {
			if dep, ok := cache.Get(depID); ok {
				visit(dep)
			}
		}
		ordered = append(ordered, mod)
	}

	for _, mod := range mods {
		visit(mod)
	}
	return ordered
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/db"
	"github.com/RainOrigami/ModIoManager/logger"
	"github.com/RainOrigami/ModIoManager/scanner"
	"github.com/RainOrigami/ModIoManager/ui"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally installed mods",
	Long:  `Lists the mods found in the mod directory together with their installed version and state.`,
	Run: func(_ *cobra.Command, _ []string) {
		runList()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList() {
	cfg, _, _ := bootstrap(".")

	locals, err := scanner.Scan(cfg.ModDir)
	if err != nil {
		logger.Log.Fatalw("Failed to scan mod directory", zap.Error(err))
	}

	if len(locals) == 0 {
		fmt.Println("No mods installed.")
		return
	}

	fmt.Println(ui.Title(fmt.Sprintf("Installed mods (%d):", len(locals))))
	for _, local := range locals {
		name := fmt.Sprintf("UGC%d", local.ID)
		var record db.InstalledMod
		if err := db.DB.Where("mod_id = ?", local.ID).First(&record).Error; err == nil && record.Name != "" {
			name = record.Name
		}

		status := "installed"
		if local.Broken {
			status = "broken"
		}
		fmt.Printf("  UGC%-10d %-40s taint=%-10d %s\n", local.ID, name, local.Taint, ui.StatusStyle(status))
	}
}

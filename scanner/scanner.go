// Package scanner enumerates locally installed mods and locates the game's
// mod directory.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var modDirPattern = regexp.MustCompile(`^UGC(\d+)$`)
var configModDirPattern = regexp.MustCompile(`ModDirectory=(.+)`)

// LocalMod describes one installed mod directory.
type LocalMod struct {
	ID     int
	Taint  int  // installed version marker, 0 = not installed
	Broken bool // installed but missing content or carrying a zero marker
}

// Scan enumerates the UGC<id> directories under modsDir and reads their taint
// markers. A mod is broken when its Data directory is missing or the marker
// is absent or zero.
func Scan(modsDir string) ([]LocalMod, error) {
	entries, err := os.ReadDir(modsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read mods directory '%s': %w", modsDir, err)
	}

	var mods []LocalMod
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		match := modDirPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		id, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		modPath := filepath.Join(modsDir, entry.Name())
		taint := readTaint(filepath.Join(modPath, "taint"))

		dataInfo, err := os.Stat(filepath.Join(modPath, "Data"))
		hasData := err == nil && dataInfo.IsDir()

		mods = append(mods, LocalMod{
			ID:     id,
			Taint:  taint,
			Broken: !hasData || taint == 0,
		})
	}
	return mods, nil
}

func readTaint(path string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	taint, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0
	}
	return taint
}

// AutodetectModPath locates the game's mod directory: first from the
// ModDirectory setting in GameUserSettings.ini, then the default mods path.
// Returns an empty string when neither exists.
func AutodetectModPath() string {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		return ""
	}

	configPath := filepath.Join(localAppData, "Pavlov", "Saved", "Config", "Windows", "GameUserSettings.ini")
	if raw, err := os.ReadFile(configPath); err == nil {
		if match := configModDirPattern.FindStringSubmatch(string(raw)); match != nil {
			return strings.TrimSpace(match[1])
		}
	}

	defaultPath := filepath.Join(localAppData, "Pavlov", "Saved", "Mods")
	if info, err := os.Stat(defaultPath); err == nil && info.IsDir() {
		return defaultPath
	}

	return ""
}

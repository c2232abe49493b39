// Package installer downloads, verifies and installs mod artifacts. An
// install never leaves a half-written mod at the final path: everything is
// staged in a scratch directory and swapped into place with a single rename.
package installer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/modio"
)

// ProgressFunc receives a status message and a percentage (0-100) for the
// current pipeline phase.
type ProgressFunc func(message string, percent int)

// TaintFileName is the version marker file written into every installed mod
// directory. It holds the live modfile id the mod was installed at; a missing
// or zero marker means "not installed".
const TaintFileName = "taint"

// DataDirName is the subdirectory the archive contents are extracted into.
const DataDirName = "Data"

// Installer runs the acquisition pipeline. Concurrent installs of different
// mods are safe because every install works in a scratch directory keyed by
// mod id; installs of the same mod id must be serialized by the caller.
type Installer struct {
	client      *modio.Client
	modsDir     string
	downloadDir string
	platform    string
	log         *zap.SugaredLogger
}

// New creates an installer that installs into modsDir, staging downloads in
// downloadDir and selecting artifacts for the given mod.io platform name.
func New(client *modio.Client, modsDir, downloadDir, platform string, log *zap.SugaredLogger) *Installer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Installer{
		client:      client,
		modsDir:     modsDir,
		downloadDir: downloadDir,
		platform:    platform,
		log:         log,
	}
}

// InstallPath returns the final install directory for a mod id.
func (ins *Installer) InstallPath(modID int) string {
	return filepath.Join(ins.modsDir, fmt.Sprintf("UGC%d", modID))
}

// scratchPath returns the per-mod scratch directory holding the downloaded
// archive and the staging tree while an install is in flight.
func (ins *Installer) scratchPath(modID int) string {
	return filepath.Join(ins.downloadDir, fmt.Sprintf("UGC%d", modID))
}

// Install downloads the mod's binary artifact, verifies its MD5 hash,
// extracts it, stamps the taint marker and atomically replaces any previously
// installed copy. On failure at most scratch/staging contents are left
// behind; they are cleaned up at the start of the next attempt.
func (ins *Installer) Install(ctx context.Context, mod *modio.Mod, progress ProgressFunc) error {
	if progress == nil {
		progress = func(string, int) {}
	}

	taint := mod.PlatformTaint(ins.platform)
	if taint == 0 {
		return fmt.Errorf("%w: %s has no live %s modfile", ErrPlatformUnsupported, mod.Name, ins.platform)
	}

	// Each mod gets its own scratch directory so concurrent installs of
	// different mods never touch each other's files. Stale contents from a
	// previous failed run of the same mod are removed first.
	scratchDir := ins.scratchPath(mod.ID)
	if err := os.RemoveAll(scratchDir); err != nil {
		return fmt.Errorf("failed to clean scratch directory: %w", err)
	}
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}

	archivePath := filepath.Join(scratchDir, mod.Modfile.Filename)
	ins.log.Infow("Downloading mod artifact",
		zap.String("mod", mod.Name),
		zap.String("url", mod.Modfile.Download.BinaryURL),
		zap.String("size", FormatBytes(mod.Modfile.Filesize)),
	)

	err := ins.client.DownloadFile(ctx, mod.Modfile.Download.BinaryURL, archivePath, func(transferred, total int64) {
		percent := 0
		if total > 0 {
			percent = int(transferred * 100 / total)
		}
		progress(fmt.Sprintf("Downloading %s: %s / %s", mod.Name, FormatBytes(transferred), FormatBytes(total)), percent)
	})
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	progress("Hashing file...", 0)
	actual, err := hashFileMD5(archivePath)
	if err != nil {
		return fmt.Errorf("failed to hash '%s': %w", archivePath, err)
	}
	progress("Hashing file...", 50)

	expected := mod.Modfile.Filehash.MD5
	if !strings.EqualFold(actual, expected) {
		// A corrupted or tampered artifact is never installed and never
		// retried.
		if err := os.Remove(archivePath); err != nil {
			ins.log.Warnw("Failed to remove artifact after hash mismatch",
				zap.String("file", archivePath), zap.Error(err))
		}
		return &IntegrityError{Mod: mod.Name, Expected: expected, Actual: actual}
	}

	stagingPath := filepath.Join(scratchDir, fmt.Sprintf("UGC%d", mod.ID))
	if err := os.MkdirAll(stagingPath, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	progress("Extracting file...", 0)
	err = extractZip(archivePath, filepath.Join(stagingPath, DataDirName), func(name string, index, total int) {
		percent := 0
		if total > 0 {
			percent = index * 100 / total
		}
		progress(fmt.Sprintf("Extracting %s (%d / %d)...", name, index, total), percent)
	})
	if err != nil {
		return fmt.Errorf("failed to extract '%s': %w", archivePath, err)
	}

	progress("Writing mod...", 0)
	taintPath := filepath.Join(stagingPath, TaintFileName)
	if err := os.WriteFile(taintPath, []byte(strconv.Itoa(taint)), 0644); err != nil {
		return fmt.Errorf("failed to write taint marker: %w", err)
	}

	installPath := ins.InstallPath(mod.ID)
	if _, err := os.Stat(installPath); err == nil {
		progress("Removing old mod...", 0)
		if err := os.RemoveAll(installPath); err != nil {
			return fmt.Errorf("failed to remove old mod at '%s': %w", installPath, err)
		}
	}

	// Single atomic rename; the final path never holds a partial install.
	progress("Moving mod...", 0)
	if err := os.MkdirAll(ins.modsDir, 0755); err != nil {
		return fmt.Errorf("failed to create mods directory: %w", err)
	}
	if err := os.Rename(stagingPath, installPath); err != nil {
		return fmt.Errorf("failed to move mod into place: %w", err)
	}

	progress("Cleaning up...", 0)
	if err := os.RemoveAll(scratchDir); err != nil {
		ins.log.Warnw("Failed to remove scratch directory",
			zap.String("dir", scratchDir), zap.Error(err))
	}

	ins.log.Infow("Installed mod",
		zap.String("mod", mod.Name),
		zap.Int("mod_id", mod.ID),
		zap.Int("taint", taint),
	)
	return nil
}

// Remove deletes the installed copy of a mod. Removing a mod that is not
// installed is a no-op.
func (ins *Installer) Remove(modID int) error {
	installPath := ins.InstallPath(modID)
	if err := os.RemoveAll(installPath); err != nil {
		return fmt.Errorf("failed to remove mod at '%s': %w", installPath, err)
	}
	return nil
}

func hashFileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

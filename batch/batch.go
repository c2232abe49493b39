// Package batch sequences the acquisition pipeline over a user-selected list
// of mods and relays per-item and per-batch progress.
package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RainOrigami/ModIoManager/installer"
	"github.com/RainOrigami/ModIoManager/modio"
)

// Progress is a single batch progress update. Immutable once emitted.
type Progress struct {
	Message      string
	BatchSize    int
	CurrentIndex int // 1-based index of the mod currently being processed
	Percent      int
}

// ProgressFunc receives batch progress updates.
type ProgressFunc func(Progress)

// Result captures the outcome of one mod's install within a batch.
type Result struct {
	Mod *modio.Mod
	Err error
}

// Orchestrator installs batches of mods one at a time. Sequential processing
// also serializes installs per mod id, which the installer requires.
type Orchestrator struct {
	installer *installer.Installer
	log       *zap.SugaredLogger
}

// New creates a batch orchestrator.
func New(ins *installer.Installer, log *zap.SugaredLogger) *Orchestrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{installer: ins, log: log}
}

// Run installs the given mods in order. A failed install aborts only that
// mod; the batch proceeds to the next one. Cancellation stops the batch
// before the next mod starts. The returned results are in batch order and
// hold the per-mod errors.
func (o *Orchestrator) Run(ctx context.Context, mods []*modio.Mod, progress ProgressFunc) []Result {
	if progress == nil {
		progress = func(Progress) {}
	}

	results := make([]Result, 0, len(mods))
	for i, mod := range mods {
		if ctx.Err() != nil {
			break
		}

		index := i + 1
		progress(Progress{
			Message:      fmt.Sprintf("Starting download of %s (%s)...", mod.Name, installer.FormatBytes(mod.Modfile.Filesize)),
			BatchSize:    len(mods),
			CurrentIndex: index,
			Percent:      0,
		})

		err := o.installer.Install(ctx, mod, func(message string, percent int) {
			progress(Progress{
				Message:      message,
				BatchSize:    len(mods),
				CurrentIndex: index,
				Percent:      percent,
			})
		})
		if err != nil {
			if modio.IsCancelled(err) {
				break
			}
			o.log.Errorw("Failed to install mod",
				zap.String("mod", mod.Name),
				zap.Int("mod_id", mod.ID),
				zap.Error(err),
			)
			progress(Progress{
				Message:      fmt.Sprintf("Failed to install %s: %v", mod.Name, err),
				BatchSize:    len(mods),
				CurrentIndex: index,
				Percent:      100,
			})
		}
		results = append(results, Result{Mod: mod, Err: err})
	}
	return results
}

// Package reload watches the config file and re-applies runtime-adjustable
// settings without a restart.
package reload

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the directory containing path and
// calls apply after the file changes, debounced, until ctx is cancelled.
// The parent directory is watched rather than the file itself because
// editors and config management tools replace files via rename, which
// drops a direct file watch.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("config watcher: started", slog.String("path", path))

	var applyTimer *time.Timer
	var applyCh <-chan time.Time

	scheduleApply := func() {
		if applyTimer == nil {
			applyTimer = time.NewTimer(debounce)
			applyCh = applyTimer.C
		} else {
			applyTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if applyTimer != nil {
				applyTimer.Stop()
			}
			logger.Info("config watcher: stopped")
			return nil

		case <-applyCh:
			if err := apply(); err != nil {
				logger.Warn("config reload failed, keeping previous settings",
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("config reloaded", slog.String("path", path))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			scheduleApply()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events editors produce when saving.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the configuration at path whenever it changes and passes every valid result to
// onChange. Invalid files are logged and ignored. Watch blocks until ctx is done.
//
// The directory is watched rather than the file so that editors replacing the file are noticed.
func Watch(ctx context.Context, l *slog.Logger, path string, onChange func(*Bot)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("error watching %s: %w", filepath.Dir(target), err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("Configuration watcher error", slog.String(logging.KeyError, err.Error()))
		case <-pending:
			pending = nil
			b, err := LoadFile(target)
			if err != nil {
				l.Warn("Ignoring invalid configuration change",
					slog.String("path", target),
					slog.String(logging.KeyError, err.Error()),
				)
				continue
			}
			l.Info("Configuration reloaded", slog.String("path", target))
			onChange(b)
		}
	}
}

package api

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces bursts of write events into one reload. Editors
// and the atomic-rename save both fire several events per change.
const debounceDelay = 200 * time.Millisecond

// Watch monitors the collection file and reloads the service when it
// changes on disk, so external edits show up in serve mode without a
// restart. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself: atomic
// saves replace the file, which would silently drop a per-file watch.
func Watch(ctx context.Context, svc *Service, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(path)

	svc.logger.Info("watching collection file", "path", path)

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounceDelay)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounceDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			svc.logger.Info("watcher stopped")
			return nil

		case <-reloadCh:
			if err := svc.Reload(ctx); err != nil {
				svc.logger.Error("reload failed", "error", err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			svc.logger.Error("watcher error", "error", watchErr)
		}
	}
}

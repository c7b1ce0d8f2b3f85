package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, filename string)

// Watch starts an fsnotify watcher on the wiki root and processes page
// changes until ctx is cancelled. Only top-level *.md files are pages;
// subdirectories are ignored. cb (if non-nil) runs after every page change,
// including pages that fail to parse, so callers can drop cached cards.
//
// Rename events delete the old entry and schedule a reconciliation pass
// that indexes the new name.
func Watch(ctx context.Context, db PageIndex, src Source, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, name string) {
		if cb != nil {
			cb(kind, name)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, src, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name, ok := pageName(root, ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := EventUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = EventCreated
				}
				// The page changed on disk either way, so the callback runs
				// even when it no longer parses.
				if err := indexPage(db, src.Parse(name)); err != nil {
					logger.Warn("watcher: index failed", slog.String("path", name), slog.String("error", err.Error()))
				} else {
					logger.Debug("watcher: indexed", slog.String("path", name), slog.String("op", kind))
				}
				notify(kind, name)

			case ev.Op&fsnotify.Remove != 0:
				if err := db.DeletePage(name); err != nil {
					logger.Warn("watcher: delete failed", slog.String("path", name), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", name))
				notify(EventDeleted, name)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports only the old name; the new one arrives
				// as a Create if it stays in the wiki directory.
				if err := db.DeletePage(name); err != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", name), slog.String("error", err.Error()))
				} else {
					notify(EventDeleted, name)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// pageName maps an absolute event path to a top-level page filename.
func pageName(root, abs string) (string, bool) {
	if !strings.HasSuffix(abs, ".md") {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || filepath.Dir(rel) != "." {
		return "", false
	}
	return rel, true
}

// reconcile removes index entries whose file is gone and indexes files that
// are missing or stale.
func reconcile(db PageIndex, src Source, logger *slog.Logger, notify func(kind, name string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	files, err := src.Files()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(files))
	for _, f := range files {
		disk[f.Path] = f.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeletePage(p); err == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			notify(EventDeleted, p)
		}
	}

	for p, cs := range disk {
		if old, ok := checksums[p]; ok && old == cs {
			continue
		}
		if err := indexPage(db, src.Parse(p)); err == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			notify(EventCreated, p)
		}
	}
}

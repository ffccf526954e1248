package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"wellnesslog/internal/core"
	"wellnesslog/internal/kv/filekv"
	applog "wellnesslog/internal/log"
)

const defaultDebounce = 300 * time.Millisecond

// DirWatcher refreshes dashboards when the file backend's log files change,
// for setups that run without a broker.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	charts   *ChartWorker
	dir      string
	debounce time.Duration
	files    map[string]core.Category
	logger   *applog.Logger
}

func NewDirWatcher(dir string, charts *ChartWorker, logger *applog.Logger) (*DirWatcher, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	files := make(map[string]core.Category, len(core.Categories()))
	for _, c := range core.Categories() {
		files[filekv.FileName(c.StorageKey())] = c
	}
	return &DirWatcher{
		watcher:  watcher,
		charts:   charts,
		dir:      dir,
		debounce: defaultDebounce,
		files:    files,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}, nil
}

// categoryOf maps a changed path to the category whose log it holds.
func (d *DirWatcher) categoryOf(event fsnotify.Event) (core.Category, bool) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return "", false
	}
	c, ok := d.files[filepath.Base(event.Name)]
	return c, ok
}

// Run blocks until ctx is done. Bursts of changes to one log collapse into
// a single refresh once the file has been quiet for the debounce period.
func (d *DirWatcher) Run(ctx context.Context) error {
	defer d.watcher.Close()

	d.logger.InfoContext(ctx, "Watching data directory", "dir", d.dir)

	pending := make(map[core.Category]time.Time)
	ticker := time.NewTicker(d.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if c, ok := d.categoryOf(event); ok {
				pending[c] = time.Now()
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.ErrorContext(ctx, "File watcher error", applog.FieldError, err)

		case now := <-ticker.C:
			for c, last := range pending {
				if now.Sub(last) < d.debounce {
					continue
				}
				delete(pending, c)
				if err := d.charts.Refresh(ctx, c); err != nil {
					d.logger.ErrorContext(ctx, "Refresh after file change failed",
						applog.FieldError, err,
						applog.FieldCategory, c.String())
				}
			}
		}
	}
}

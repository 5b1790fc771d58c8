package config

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/answergrid/answergrid/internal/logger"
)

// Watcher reloads the configuration file when it changes on disk and
// hands the result to a callback. Each successful reload carries a
// monotonically increasing version, so stale swaps are rejected
// downstream.
type Watcher struct {
	path    string
	version atomic.Int64
	watcher *fsnotify.Watcher
	onLoad  func(cfg *Config, version int64)
}

// NewWatcher creates a watcher over the config file. initialVersion is
// the version the currently installed configuration was loaded at.
func NewWatcher(path string, initialVersion int64, onLoad func(cfg *Config, version int64)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a direct file watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fsw, onLoad: onLoad}
	w.version.Store(initialVersion)
	return w, nil
}

// Run processes file events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// reload parses the file and, if valid, invokes the callback with the
// next version. A broken edit keeps the previous configuration running.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Warn("config reload skipped: %v", err)
		return
	}

	version := w.version.Add(1)
	logger.Info("config file changed, loaded version %d", version)
	w.onLoad(cfg, version)
}

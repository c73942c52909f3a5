package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gsclens/gsclens/internal/logging"
)

// Watcher reloads the configuration when the file changes on disk.
type Watcher struct {
	loader  *Loader
	logger  *logging.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a file watcher around a loader. Watching the parent
// directory rather than the file itself survives editors that replace the
// file on save.
func NewWatcher(loader *Loader, logger *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(loader.path)
	if dir == "" {
		dir = "."
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		loader:  loader,
		logger:  logger,
		watcher: fw,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	target := filepath.Clean(w.loader.path)

	go func() {
		for {
			select {
			case <-w.done:
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					if _, err := w.loader.Reload(); err != nil {
						w.logger.Warn("config reload failed", "error", err.Error())
						continue
					}
					w.logger.Info("config reloaded", "path", w.loader.path)
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "error", err.Error())
			}
		}
	}()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

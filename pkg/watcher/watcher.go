// Package watcher calls back when topology source files change on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a set of files. Parent directories are watched so that
// editors replacing a file are still noticed.
type Watcher struct {
	paths    []string
	onChange func(path string)
	debounce time.Duration
	logger   *slog.Logger
	ready    chan struct{}
}

type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before onChange fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for paths. onChange receives the absolute path.
func New(paths []string, onChange func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		paths:    paths,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once every directory is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Watch blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watchedDirs := make(map[string]bool)
	fileSet := make(map[string]bool)
	for _, path := range w.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.logger.Warn("Cannot resolve path", "path", path, "error", err)
			continue
		}
		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := fw.Add(dir); err != nil {
				w.logger.Error("Failed to watch directory", "dir", dir, "error", err)
				continue
			}
			watchedDirs[dir] = true
		}
		fileSet[abs] = true
		w.logger.Info("Watching topology source", "path", abs)
	}
	close(w.ready)

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !fileSet[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			if t, exists := timers[abs]; exists {
				t.Stop()
			}
			timers[abs] = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.logger.Info("Topology source changed", "path", abs)
				w.onChange(abs)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

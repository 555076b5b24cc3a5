// Package watch reports backing files that disappear from the source
// directory while a session is running.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/dotmod/internal/ctxlog"
)

// Watcher collects remove and rename events for one directory. Events are
// gathered by a background goroutine and handed out by Drain.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string

	mu      sync.Mutex
	removed map[string]struct{}
	done    chan struct{}
}

// New starts watching dir (non-recursive).
func New(ctx context.Context, dir string) (*Watcher, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory %q: %w", dir, err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher: fsWatcher,
		dir:     dir,
		removed: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	go w.eventLoop(ctx)

	ctxlog.FromContext(ctx).Debug("Watching source directory.", "dir", dir)
	return w, nil
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.done)
	logger := ctxlog.FromContext(ctx)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			w.mu.Lock()
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.removed[path] = struct{}{}
			case event.Has(fsnotify.Create):
				// Recreated before anyone looked: nothing went missing.
				delete(w.removed, path)
			}
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error.", "dir", w.dir, "error", err)
		}
	}
}

// Drain returns the paths removed or renamed since the last call, sorted.
// It never blocks on the file system.
func (w *Watcher) Drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.removed) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.removed))
	for path := range w.removed {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	w.removed = make(map[string]struct{})
	return paths
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

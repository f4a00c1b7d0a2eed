// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch re-processes notebooks when they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a path must stay quiet before it is handled.
const DefaultDebounce = 300 * time.Millisecond

const tick = 100 * time.Millisecond

// Handler is called once per settled path, sequentially.
type Handler func(ctx context.Context, path string)

// Filter reports whether a path is worth handling. Directories are never
// passed to it.
type Filter func(path string) bool

// SkipDir reports whether a directory should not be watched.
type SkipDir func(path string) bool

// Watcher debounces filesystem events and hands settled notebook paths to
// a Handler.
type Watcher struct {
	fsw      *fsnotify.Watcher
	accept   Filter
	skipDir  SkipDir
	handle   Handler
	debounce time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
	// files holds explicitly watched files; events on their siblings are
	// ignored unless the directory is also part of a tree.
	files map[string]bool
	trees map[string]bool
	dirs  map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithSkipDir prunes directories from the recursive watch.
func WithSkipDir(skip SkipDir) Option {
	return func(w *Watcher) { w.skipDir = skip }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a Watcher. Call Add to register paths, then Run.
func New(accept Filter, handle Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		accept:   accept,
		skipDir:  func(string) bool { return false },
		handle:   handle,
		debounce: DefaultDebounce,
		log:      zap.NewNop(),
		now:      time.Now,
		pending:  make(map[string]time.Time),
		files:    make(map[string]bool),
		trees:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches each root. Directories are watched recursively; a file is
// watched through its parent directory.
func (w *Watcher) Add(roots []string) error {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		st, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if !st.IsDir() {
			w.mu.Lock()
			w.files[abs] = true
			w.mu.Unlock()
			if err := w.addDir(filepath.Dir(abs)); err != nil {
				return err
			}
			continue
		}
		if err := w.addTree(abs); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(path) {
			return filepath.SkipDir
		}
		w.mu.Lock()
		w.trees[path] = true
		w.mu.Unlock()
		return w.addDir(path)
	})
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	seen := w.dirs[dir]
	w.dirs[dir] = true
	w.mu.Unlock()
	if seen {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.log.Debug("watching directory", zap.String("dir", dir))
	return nil
}

// Dirs returns the watched directories, sorted.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Close releases the watcher. Run closes it on return, so Close is only
// needed when Run is never called.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run dispatches events until ctx is cancelled, then closes the
// underlying watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.log.Warn("closing watcher", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// handleEvent records a pending path. New directories join the watch.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	path := ev.Name

	if ev.Has(fsnotify.Create) {
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			if w.skipDir(path) {
				return
			}
			if err := w.addTree(path); err != nil {
				w.log.Warn("watching new directory", zap.String("dir", path), zap.Error(err))
			}
			return
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.wantedLocked(path) {
		return
	}
	w.pending[path] = w.now()
	w.log.Debug("change queued", zap.String("path", path), zap.Stringer("op", ev.Op))
}

// wantedLocked reports whether path is an explicitly watched file, or an
// accepted file inside a recursively watched directory.
func (w *Watcher) wantedLocked(path string) bool {
	if w.files[path] {
		return true
	}
	return w.trees[filepath.Dir(path)] && w.accept(path)
}

// flush hands every path that has been quiet for the debounce window to
// the handler, in sorted order.
func (w *Watcher) flush(ctx context.Context) {
	now := w.now()
	w.mu.Lock()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			w.log.Debug("changed file vanished", zap.String("path", path))
			continue
		}
		w.handle(ctx, path)
	}
}

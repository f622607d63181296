// Package watcher drops favorites whose directories disappear from disk.
package watcher

import (
	"context"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/paneo/pkg/daemon/store"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// Watcher watches favorite directories and removes their favorites from the
// store when a directory is removed or renamed away.
type Watcher struct {
	store   *store.Store
	roots   *roots.Registry
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu     sync.RWMutex
	paths  map[string][]store.Favorite // absolute dir -> favorites pointing at it
	closed bool
}

// New creates a new Watcher.
func New(s *store.Store, reg *roots.Registry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		store:   s,
		roots:   reg,
		watcher: fsw,
		log:     logging.Get("watcher"),
		paths:   make(map[string][]store.Favorite),
	}, nil
}

// Sync adds a watch for every stored favorite. Favorites that cannot be
// watched are skipped; listing prunes them later.
func (w *Watcher) Sync() error {
	favs, err := w.store.List()
	if err != nil {
		return err
	}
	for _, f := range favs {
		if err := w.Watch(f); err != nil {
			w.log.Debug("favorite not watched", "root", f.RootID, "path", f.Path, "error", err)
		}
	}
	return nil
}

// Watch starts watching the directory of f.
func (w *Watcher) Watch(f store.Favorite) error {
	p, err := w.roots.Resolve(f.RootID, f.Path)
	if err != nil {
		return err
	}
	info, err := os.Stat(p.AbsolutePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil // Only watch directories
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	favs, watching := w.paths[p.AbsolutePath]
	for _, existing := range favs {
		if existing.Key() == f.Key() {
			return nil
		}
	}
	if !watching {
		if err := w.watcher.Add(p.AbsolutePath); err != nil {
			w.log.Warn("failed to add watch", "path", p.AbsolutePath, "error", err)
			return err
		}
	}
	w.paths[p.AbsolutePath] = append(favs, f)
	return nil
}

// Unwatch stops watching the directory of f unless another favorite still
// points at it.
func (w *Watcher) Unwatch(f store.Favorite) {
	p, err := w.roots.Resolve(f.RootID, f.Path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	favs := w.paths[p.AbsolutePath]
	kept := favs[:0]
	for _, existing := range favs {
		if existing.Key() != f.Key() {
			kept = append(kept, existing)
		}
	}
	if len(kept) > 0 {
		w.paths[p.AbsolutePath] = kept
		return
	}
	if _, ok := w.paths[p.AbsolutePath]; ok {
		_ = w.watcher.Remove(p.AbsolutePath)
		delete(w.paths, p.AbsolutePath)
	}
}

// Watching reports whether dir, an absolute path, is being watched.
func (w *Watcher) Watching(dir string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.paths[dir]
	return ok
}

// Run starts the event loop. It blocks until the context is cancelled.
// onPrune, when set, is called for every favorite removed from the store.
func (w *Watcher) Run(ctx context.Context, onPrune func(store.Favorite)) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.handleGone(event.Name, onPrune)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// handleGone prunes the favorites of dir when it no longer exists as a directory.
func (w *Watcher) handleGone(dir string, onPrune func(store.Favorite)) {
	w.mu.Lock()
	favs, ok := w.paths[dir]
	if !ok {
		w.mu.Unlock()
		return
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		// Replaced by a new directory of the same name.
		w.mu.Unlock()
		return
	}
	_ = w.watcher.Remove(dir)
	delete(w.paths, dir)
	w.mu.Unlock()

	for _, f := range favs {
		if err := w.store.Remove(f.RootID, f.Path); err != nil {
			w.log.Error("failed to remove favorite", "root", f.RootID, "path", f.Path, "error", err)
			continue
		}
		w.log.Info("favorite removed", "root", f.RootID, "path", f.Path, "reason", "directory gone")
		if onPrune != nil {
			onPrune(f)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string][]store.Favorite)
	return w.watcher.Close()
}

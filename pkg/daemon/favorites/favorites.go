// Package favorites manages bookmarked directories on top of the favorites store.
package favorites

import (
	"fmt"
	"os"

	"github.com/jamesainslie/paneo/pkg/daemon/store"
	"github.com/jamesainslie/paneo/pkg/daemon/watcher"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// Service adds, removes, and lists favorites. Every favorite resolves
// through the roots registry and must name a directory.
type Service struct {
	store   *store.Store
	roots   *roots.Registry
	watcher *watcher.Watcher
	log     *logging.Logger
}

// New creates a Service. w may be nil when watching is disabled.
func New(s *store.Store, reg *roots.Registry, w *watcher.Watcher) *Service {
	return &Service{
		store:   s,
		roots:   reg,
		watcher: w,
		log:     logging.Get("favorites"),
	}
}

// List returns the favorites that still resolve to a directory. Stale entries
// are removed from the store.
func (s *Service) List() ([]store.Favorite, error) {
	favs, err := s.store.List()
	if err != nil {
		return nil, err
	}

	out := make([]store.Favorite, 0, len(favs))
	for _, f := range favs {
		if _, err := s.directory(f.RootID, f.Path); err != nil {
			s.log.Info("dropping stale favorite", "root", f.RootID, "path", f.Path, "error", err)
			if err := s.store.Remove(f.RootID, f.Path); err != nil {
				return nil, err
			}
			if s.watcher != nil {
				s.watcher.Unwatch(f)
			}
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Add bookmarks the directory at rel and returns the updated list.
func (s *Service) Add(rootID, rel string) ([]store.Favorite, error) {
	p, err := s.directory(rootID, rel)
	if err != nil {
		return nil, err
	}

	fav := store.Favorite{RootID: rootID, Path: p.RelativePath}
	added, err := s.store.Add(fav)
	if err != nil {
		return nil, err
	}
	if added {
		s.log.Info("favorite added", "root", rootID, "path", p.RelativePath)
		if s.watcher != nil {
			if err := s.watcher.Watch(fav); err != nil {
				s.log.Warn("favorite not watched", "root", rootID, "path", p.RelativePath, "error", err)
			}
		}
	}
	return s.List()
}

// Remove deletes the favorite at rel and returns the updated list. Removing
// an unknown favorite is not an error.
func (s *Service) Remove(rootID, rel string) ([]store.Favorite, error) {
	clean, err := roots.Normalize(rel)
	if err != nil {
		return nil, err
	}

	fav := store.Favorite{RootID: rootID, Path: clean}
	if err := s.store.Remove(rootID, clean); err != nil {
		return nil, err
	}
	if s.watcher != nil {
		s.watcher.Unwatch(fav)
	}
	return s.List()
}

func (s *Service) directory(rootID, rel string) (roots.ResolvedPath, error) {
	p, err := s.roots.Resolve(rootID, rel)
	if err != nil {
		return p, err
	}
	info, err := os.Stat(p.AbsolutePath)
	if err != nil {
		return p, err
	}
	if !info.IsDir() {
		return p, fmt.Errorf("%w: %s", filemanager.ErrNotDirectory, p.RelativePath)
	}
	return p, nil
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jamesainslie/paneo/pkg/daemon/store"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

type fixture struct {
	dir   string
	store *store.Store
	w     *Watcher
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	reg, err := roots.New([]roots.Root{{ID: "root-1", Path: dir}})
	if err != nil {
		t.Fatalf("roots.New() error = %v", err)
	}
	s, err := store.Open(filepath.Join(t.TempDir(), "favorites"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	w, err := New(s, reg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })

	return &fixture{dir: dir, store: s, w: w}
}

func (f *fixture) favorite(t *testing.T, rel string) store.Favorite {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(f.dir, rel), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	fav := store.Favorite{RootID: "root-1", Path: rel}
	if _, err := f.store.Add(fav); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return fav
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return false
}

func TestSyncWatchesStoredFavorites(t *testing.T) {
	f := setup(t)
	f.favorite(t, "docs")
	f.favorite(t, "music/live")

	if err := f.w.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	for _, rel := range []string{"docs", "music/live"} {
		if !f.w.Watching(filepath.Join(f.dir, rel)) {
			t.Errorf("Sync() did not watch %s", rel)
		}
	}
}

func TestSyncSkipsMissingDirectories(t *testing.T) {
	f := setup(t)
	if _, err := f.store.Add(store.Favorite{RootID: "root-1", Path: "gone"}); err != nil {
		t.Fatal(err)
	}

	if err := f.w.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if f.w.Watching(filepath.Join(f.dir, "gone")) {
		t.Error("missing directory is watched")
	}
}

func TestUnwatchKeepsSharedDirectory(t *testing.T) {
	f := setup(t)
	a := f.favorite(t, "shared")
	b := store.Favorite{RootID: "root-1", Path: "./shared"}

	if err := f.w.Watch(a); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if err := f.w.Watch(b); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	abs := filepath.Join(f.dir, "shared")
	f.w.Unwatch(a)
	if !f.w.Watching(abs) {
		t.Fatal("Unwatch() dropped a directory still referenced")
	}
	f.w.Unwatch(b)
	if f.w.Watching(abs) {
		t.Error("Unwatch() kept an unreferenced directory")
	}
}

func TestRunPrunesRemovedDirectory(t *testing.T) {
	f := setup(t)
	fav := f.favorite(t, "projects/app")
	keep := f.favorite(t, "projects/lib")
	if err := f.w.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		pruned []string
	)
	go f.w.Run(ctx, func(p store.Favorite) {
		mu.Lock()
		pruned = append(pruned, p.Key())
		mu.Unlock()
	})

	if err := os.RemoveAll(filepath.Join(f.dir, "projects", "app")); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return !f.store.Has(fav.RootID, fav.Path) }) {
		t.Fatal("favorite of removed directory was not pruned")
	}
	if !f.store.Has(keep.RootID, keep.Path) {
		t.Error("unrelated favorite was pruned")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pruned) != 1 || pruned[0] != fav.Key() {
		t.Errorf("onPrune calls = %v, want [%s]", pruned, fav.Key())
	}
}

func TestRunPrunesRenamedDirectory(t *testing.T) {
	f := setup(t)
	fav := f.favorite(t, "old")
	if err := f.w.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.w.Run(ctx, nil)

	if err := os.Rename(filepath.Join(f.dir, "old"), filepath.Join(f.dir, "new")); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return !f.store.Has(fav.RootID, fav.Path) }) {
		t.Fatal("favorite of renamed directory was not pruned")
	}
	if f.w.Watching(filepath.Join(f.dir, "old")) {
		t.Error("renamed directory still tracked")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := setup(t)
	if err := f.w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := f.w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := f.w.Watch(f.favorite(t, "late")); err != nil {
		t.Errorf("Watch() after Close error = %v", err)
	}
}

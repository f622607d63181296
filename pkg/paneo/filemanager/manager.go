// Package filemanager implements the file operations exposed by paneo on top
// of the configured roots: listing, text editing, creation, deletion, uploads,
// downloads and the copy and move operations backed by the copy engine.
//
// Every client-supplied path is resolved through a roots.Registry before it
// touches the filesystem.
package filemanager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
	"github.com/jamesainslie/paneo/pkg/paneo/trash"
)

var (
	// ErrInvalidName is returned for empty names and names containing a path separator.
	ErrInvalidName = errors.New("invalid name")

	// ErrDestinationExists is returned when the target slot is already taken.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrNotDirectory is returned when a directory was expected.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile is returned when a regular file was expected.
	ErrNotFile = errors.New("not a file")

	// ErrTooLarge is returned when a file exceeds the text editing limit.
	ErrTooLarge = errors.New("file is too large to edit")

	// ErrBinary is returned when a file looks binary and cannot be edited as text.
	ErrBinary = errors.New("binary file cannot be opened as text")
)

// Remover disposes of a filesystem entry on delete.
type Remover interface {
	Remove(ctx context.Context, path string) (trash.Method, error)
}

// Manager performs file operations confined to a set of roots.
type Manager struct {
	roots   *roots.Registry
	engine  *copier.Engine
	remover Remover
	rename  func(oldpath, newpath string) error
	log     *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithEngine sets the copy engine. The default uses copier.DefaultBufferSize.
func WithEngine(e *copier.Engine) Option {
	return func(m *Manager) { m.engine = e }
}

// WithTrash routes deletes through the desktop trash.
func WithTrash(t *trash.Trasher) Option {
	return func(m *Manager) { m.remover = t }
}

// WithRename replaces os.Rename. Tests use it to simulate cross-device moves.
func WithRename(fn func(oldpath, newpath string) error) Option {
	return func(m *Manager) { m.rename = fn }
}

// New creates a Manager over reg.
func New(reg *roots.Registry, opts ...Option) *Manager {
	m := &Manager{
		roots:   reg,
		engine:  copier.New(),
		remover: permanentRemover{},
		rename:  os.Rename,
		log:     logging.Get("files"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Roots returns the registry the manager resolves paths against.
func (m *Manager) Roots() *roots.Registry {
	return m.roots
}

// Engine returns the copy engine.
func (m *Manager) Engine() *copier.Engine {
	return m.engine
}

type permanentRemover struct{}

func (permanentRemover) Remove(_ context.Context, path string) (trash.Method, error) {
	if err := os.RemoveAll(path); err != nil {
		return "", err
	}
	return trash.MethodPermanent, nil
}

// ValidateName checks a single path element supplied by a client.
func ValidateName(name string) (string, error) {
	clean := strings.TrimSpace(name)
	if clean == "" || clean == "." || clean == ".." || strings.ContainsAny(clean, `/\`) || strings.ContainsRune(clean, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// resolveDir resolves a path and requires it to be an existing directory.
func (m *Manager) resolveDir(rootID, rel string) (roots.ResolvedPath, error) {
	p, err := m.roots.Resolve(rootID, rel)
	if err != nil {
		return roots.ResolvedPath{}, err
	}
	info, err := os.Stat(p.AbsolutePath)
	if err != nil {
		return roots.ResolvedPath{}, err
	}
	if !info.IsDir() {
		return roots.ResolvedPath{}, fmt.Errorf("%w: %s", ErrNotDirectory, p.RelativePath)
	}
	return p, nil
}

// resolveFile resolves a path and requires it to be an existing regular file.
func (m *Manager) resolveFile(rootID, rel string) (roots.ResolvedPath, fs.FileInfo, error) {
	p, err := m.roots.Resolve(rootID, rel)
	if err != nil {
		return roots.ResolvedPath{}, nil, err
	}
	info, err := os.Stat(p.AbsolutePath)
	if err != nil {
		return roots.ResolvedPath{}, nil, err
	}
	if !info.Mode().IsRegular() {
		return roots.ResolvedPath{}, nil, fmt.Errorf("%w: %s", ErrNotFile, p.RelativePath)
	}
	return p, info, nil
}

// target resolves the slot name inside dir. An empty name falls back to fallback.
func (m *Manager) target(dir roots.ResolvedPath, name, fallback string) (roots.ResolvedPath, error) {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	clean, err := ValidateName(name)
	if err != nil {
		return roots.ResolvedPath{}, err
	}
	return m.roots.Child(dir, clean)
}

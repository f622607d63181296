package filemanager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jamesainslie/paneo/pkg/paneo/roots"
	"github.com/jamesainslie/paneo/pkg/paneo/trash"
)

// Mkdir creates the directory name inside the directory at rel.
func (m *Manager) Mkdir(rootID, rel, name string) (roots.ResolvedPath, error) {
	dir, err := m.resolveDir(rootID, rel)
	if err != nil {
		return roots.ResolvedPath{}, err
	}
	target, err := m.target(dir, name, "")
	if err != nil {
		return roots.ResolvedPath{}, err
	}

	if err := os.Mkdir(target.AbsolutePath, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return roots.ResolvedPath{}, fmt.Errorf("%w: %s", ErrDestinationExists, target.RelativePath)
		}
		return roots.ResolvedPath{}, err
	}
	m.log.Info("directory created", "root", rootID, "path", target.RelativePath)
	return target, nil
}

// CreateFile creates the empty file name inside the directory at rel.
func (m *Manager) CreateFile(rootID, rel, name string) (roots.ResolvedPath, error) {
	dir, err := m.resolveDir(rootID, rel)
	if err != nil {
		return roots.ResolvedPath{}, err
	}
	target, err := m.target(dir, name, "")
	if err != nil {
		return roots.ResolvedPath{}, err
	}

	f, err := os.OpenFile(target.AbsolutePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return roots.ResolvedPath{}, fmt.Errorf("%w: %s", ErrDestinationExists, target.RelativePath)
		}
		return roots.ResolvedPath{}, err
	}
	if err := f.Close(); err != nil {
		return roots.ResolvedPath{}, err
	}
	m.log.Info("file created", "root", rootID, "path", target.RelativePath)
	return target, nil
}

// Delete removes the entry at rel recursively. The root itself cannot be deleted.
func (m *Manager) Delete(ctx context.Context, rootID, rel string) (trash.Method, error) {
	p, err := m.roots.Resolve(rootID, rel)
	if err != nil {
		return "", err
	}
	if p.IsRoot() {
		return "", fmt.Errorf("%w: cannot delete root %s", roots.ErrInvalidPath, rootID)
	}
	if _, err := os.Lstat(p.AbsolutePath); err != nil {
		return "", err
	}

	method, err := m.remover.Remove(ctx, p.AbsolutePath)
	if err != nil {
		return "", err
	}
	m.log.Info("entry deleted", "root", rootID, "path", p.RelativePath, "method", method)
	return method, nil
}

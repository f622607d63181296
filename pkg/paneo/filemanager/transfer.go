package filemanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/fsutil"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

// CopyRequest names a source entry and the directory to copy it into.
type CopyRequest struct {
	FromRootID string `json:"fromRootId"`
	FromPath   string `json:"fromPath"`
	ToRootID   string `json:"toRootId"`
	ToDirPath  string `json:"toDirPath"`
	NewName    string `json:"newName,omitempty"`
	Overwrite  bool   `json:"overwriteExisting"`
}

// MoveRequest names a source entry and the directory to move it into.
type MoveRequest struct {
	FromRootID string `json:"fromRootId"`
	FromPath   string `json:"fromPath"`
	ToRootID   string `json:"toRootId"`
	ToDirPath  string `json:"toDirPath"`
	NewName    string `json:"newName,omitempty"`
}

// CopyPlan is a validated copy ready to run.
type CopyPlan struct {
	Source      roots.ResolvedPath
	Destination roots.ResolvedPath
	Overwrite   bool

	engine *copier.Engine
}

// Run executes the plan.
func (p *CopyPlan) Run(ctx context.Context, onProgress func(types.Progress)) (types.Result, error) {
	return p.engine.Copy(ctx, p.Source.AbsolutePath, p.Destination.AbsolutePath,
		copier.Options{Overwrite: p.Overwrite}, onProgress)
}

// PlanCopy resolves and validates req without touching the destination.
func (m *Manager) PlanCopy(req CopyRequest) (*CopyPlan, error) {
	src, dst, err := m.transferSlots(req.FromRootID, req.FromPath, req.ToRootID, req.ToDirPath, req.NewName)
	if err != nil {
		return nil, err
	}
	return &CopyPlan{
		Source:      src,
		Destination: dst,
		Overwrite:   req.Overwrite,
		engine:      m.engine,
	}, nil
}

// Copy runs a copy to completion in the calling goroutine.
func (m *Manager) Copy(ctx context.Context, req CopyRequest) (types.Result, error) {
	plan, err := m.PlanCopy(req)
	if err != nil {
		return types.Result{}, err
	}
	m.log.Info("copy started", "from", plan.Source.RelativePath, "to", plan.Destination.RelativePath,
		"overwrite", plan.Overwrite)
	res, err := plan.Run(ctx, nil)
	if err != nil {
		return res, err
	}
	m.log.Info("copy finished", "copied", res.CopiedFiles, "dirs", res.CopiedDirectories, "skipped", res.Skipped)
	return res, nil
}

// Move relocates an entry. It renames when possible and falls back to a copy
// followed by removal of the source when the rename crosses devices.
func (m *Manager) Move(ctx context.Context, req MoveRequest) error {
	src, dst, err := m.transferSlots(req.FromRootID, req.FromPath, req.ToRootID, req.ToDirPath, req.NewName)
	if err != nil {
		return err
	}
	if src.IsRoot() {
		return fmt.Errorf("%w: cannot move root %s", roots.ErrInvalidPath, src.Root.ID)
	}

	exists, err := fsutil.Exists(dst.AbsolutePath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst.RelativePath)
	}

	err = m.rename(src.AbsolutePath, dst.AbsolutePath)
	if err == nil {
		m.log.Info("moved", "from", src.RelativePath, "to", dst.RelativePath)
		return nil
	}
	if !fsutil.IsCrossDevice(err) {
		return err
	}

	m.log.Info("cross-device move, copying", "from", src.AbsolutePath, "to", dst.AbsolutePath)
	if _, err := m.engine.Copy(ctx, src.AbsolutePath, dst.AbsolutePath, copier.Options{}, nil); err != nil {
		return err
	}
	if err := os.RemoveAll(src.AbsolutePath); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}

// transferSlots resolves the source entry and the slot it would occupy in the
// destination directory.
func (m *Manager) transferSlots(fromRoot, fromPath, toRoot, toDir, newName string) (src, dst roots.ResolvedPath, err error) {
	src, err = m.roots.Resolve(fromRoot, fromPath)
	if err != nil {
		return src, dst, err
	}
	srcInfo, err := os.Stat(src.AbsolutePath)
	if err != nil {
		return src, dst, err
	}

	dir, err := m.resolveDir(toRoot, toDir)
	if err != nil {
		return src, dst, err
	}

	dst, err = m.target(dir, newName, src.Name())
	if err != nil {
		return src, dst, err
	}

	if filepath.Clean(src.AbsolutePath) == filepath.Clean(dst.AbsolutePath) {
		return src, dst, copier.ErrSameSource
	}
	if srcInfo.IsDir() && strings.HasPrefix(dst.AbsolutePath, src.AbsolutePath+string(filepath.Separator)) {
		return src, dst, copier.ErrIntoSelf
	}
	return src, dst, nil
}

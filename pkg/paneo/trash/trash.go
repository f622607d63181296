// Package trash moves deleted entries to the desktop trash when the host has
// one, and removes them permanently otherwise.
package trash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jamesainslie/paneo/pkg/paneo/logging"
)

// commandTimeout bounds each external trash command.
const commandTimeout = 30 * time.Second

// Method reports how an entry was disposed of.
type Method string

// Disposal methods.
const (
	MethodGio       Method = "gio"
	MethodTrashPut  Method = "trash-put"
	MethodFinder    Method = "finder"
	MethodPermanent Method = "permanent"
)

// Trasher disposes of filesystem entries.
type Trasher struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// New returns a Trasher for the running platform.
func New() *Trasher {
	return &Trasher{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Remove moves path to the trash, falling back to permanent removal.
func (t *Trasher) Remove(ctx context.Context, path string) (Method, error) {
	if _, err := os.Lstat(path); err != nil {
		return "", fmt.Errorf("cannot trash %q: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	for _, c := range t.candidates(abs) {
		bin, err := t.lookPath(c.bin)
		if err != nil {
			continue
		}
		if err := t.run(ctx, bin, c.args...); err == nil {
			return c.method, nil
		} else if errors.Is(ctx.Err(), context.Canceled) {
			return "", ctx.Err()
		} else {
			logging.Get("trash").Debug("trash command failed", "method", c.method, "path", abs, "error", err)
		}
	}

	if err := os.RemoveAll(abs); err != nil {
		return "", fmt.Errorf("failed to delete %q: %w", abs, err)
	}
	return MethodPermanent, nil
}

type candidate struct {
	method Method
	bin    string
	args   []string
}

func (t *Trasher) candidates(abs string) []candidate {
	switch t.goos {
	case "darwin":
		script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, abs)
		return []candidate{{MethodFinder, "osascript", []string{"-e", script}}}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []candidate{
			{MethodGio, "gio", []string{"trash", abs}},
			{MethodTrashPut, "trash-put", []string{abs}},
		}
	default:
		return nil
	}
}

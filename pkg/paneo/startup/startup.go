// Package startup checks the environment the file manager runs in and
// reports problems to the web client before it loads.
package startup

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/jamesainslie/paneo/pkg/paneo/fsutil"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// DocumentationURL is shown next to startup problems.
const DocumentationURL = "https://github.com/jamesainslie/paneo"

// Status lists fatal configuration errors and non-fatal warnings.
type Status struct {
	FatalErrors      []string `json:"fatalErrors"`
	Warnings         []string `json:"warnings"`
	DocumentationURL string   `json:"documentationUrl"`
}

// OK reports whether there are no fatal errors.
func (s Status) OK() bool {
	return len(s.FatalErrors) == 0
}

// Checker builds a Status. The zero value is not usable; use NewChecker.
type Checker struct {
	getenv    func(string) string
	stat      func(string) (os.FileInfo, error)
	access    func(string) error
	dockerenv string
	goos      string
}

// NewChecker returns a Checker for the running process.
func NewChecker() *Checker {
	return &Checker{
		getenv:    os.Getenv,
		stat:      os.Stat,
		access:    fsutil.CheckAccess,
		dockerenv: "/.dockerenv",
		goos:      runtime.GOOS,
	}
}

// Check validates the roots list and the container environment.
func (c *Checker) Check(rootsSpec string) Status {
	st := Status{
		FatalErrors:      []string{},
		Warnings:         []string{},
		DocumentationURL: DocumentationURL,
	}

	if strings.TrimSpace(rootsSpec) == "" {
		st.FatalErrors = append(st.FatalErrors, "No roots configured. Set roots in the config file or FILE_MANAGER_ROOTS.")
	} else {
		parsed, err := roots.Parse(rootsSpec)
		switch {
		case errors.Is(err, roots.ErrNoRoots):
			st.FatalErrors = append(st.FatalErrors, "No valid roots were found in the roots setting.")
		case err != nil:
			st.FatalErrors = append(st.FatalErrors, err.Error())
		default:
			st.FatalErrors = append(st.FatalErrors, c.checkRoots(parsed)...)
		}
	}

	st.Warnings = append(st.Warnings, c.containerWarnings()...)
	return st
}

func (c *Checker) checkRoots(rs []roots.Root) []string {
	var problems []string
	for _, r := range rs {
		info, err := c.stat(r.Path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("No read/write access to root %q: %s (%s)", r.Name, r.Path, reason(err)))
			continue
		}
		if !info.IsDir() {
			problems = append(problems, fmt.Sprintf("Configured root %q is not a directory: %s", r.Name, r.Path))
			continue
		}
		if err := c.access(r.Path); err != nil {
			problems = append(problems, fmt.Sprintf("No read/write access to root %q: %s (%s)", r.Name, r.Path, reason(err)))
		}
	}
	return problems
}

func reason(err error) string {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

func (c *Checker) inContainer() bool {
	for _, key := range []string{"CONTAINER", "DOCKER", "IN_DOCKER"} {
		if v := c.getenv(key); v != "" {
			return v == "1" || v == "true"
		}
	}
	if c.goos != "linux" {
		return false
	}
	_, err := c.stat(c.dockerenv)
	return err == nil
}

func (c *Checker) containerWarnings() []string {
	if !c.inContainer() {
		return nil
	}

	uid := strings.TrimSpace(c.getenv("UID"))
	gid := strings.TrimSpace(c.getenv("GID"))
	if uid == "" || gid == "" {
		return []string{"UID/GID are not set. The container may run as root and create root-owned files."}
	}
	if uid == "0" || gid == "0" {
		return []string{"The container is configured with UID/GID 0 (root). Files may be created as root."}
	}
	return nil
}

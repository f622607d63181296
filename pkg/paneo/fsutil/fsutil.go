// Package fsutil classifies platform-specific filesystem errors.
package fsutil

import (
	"errors"
	"os"
)

// Exists reports whether path exists, without following a final symlink.
// Errors other than not-exist are returned as-is.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

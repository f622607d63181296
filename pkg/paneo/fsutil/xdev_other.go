//go:build !unix && !windows

package fsutil

import "os"

// IsCrossDevice always reports false on platforms without a cross-device rename error.
func IsCrossDevice(error) bool {
	return false
}

// CheckAccess verifies path can be opened.
func CheckAccess(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

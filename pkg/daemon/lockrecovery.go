package daemon

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/jamesainslie/paneo/pkg/paneo/logging"
)

// badgerLockFile is the lock Badger leaves in its directory while open.
const badgerLockFile = "LOCK"

// RecoverFromStaleDaemon cleans up after a daemon that exited without
// removing its PID file, socket, and favorites database lock.
// Returns nil if cleanup succeeded or wasn't needed.
// Returns ErrDaemonAlreadyRunning if a daemon is actually running.
func RecoverFromStaleDaemon(pidPath, socketPath, favoritesPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return nil //nolint:nilerr // a missing or unreadable PID file leaves nothing to recover
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	log := logging.Get("daemon")
	log.Warn("cleaning up stale daemon files", "stale_pid", pid)

	// Remove stale files (ignore errors - files may not exist)
	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	if favoritesPath != "" {
		_ = os.Remove(filepath.Join(favoritesPath, badgerLockFile))
	}
	return nil
}

// IsProcessRunning checks if a process with the given PID is running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

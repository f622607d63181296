package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Startup states recorded in the status file.
const (
	StateStarting = "starting"
	StateReady    = "ready"
	StateError    = "error"
)

// StatusFile is written by paneod so the CLI can tell when it is ready.
type StatusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Listen string `json:"listen,omitempty"` // HTTP address, once ready
	Socket string `json:"socket,omitempty"` // control socket, once ready
	Error  string `json:"error,omitempty"`
}

// WriteStatusStarting records that the daemon is initializing.
func WriteStatusStarting(path string) error {
	return writeStatus(path, &StatusFile{Status: StateStarting, PID: os.Getpid()})
}

// WriteStatusReady records that both listeners are up.
func WriteStatusReady(path, listen, socket string) error {
	return writeStatus(path, &StatusFile{
		Status: StateReady,
		PID:    os.Getpid(),
		Listen: listen,
		Socket: socket,
	})
}

// WriteStatusError records a startup failure.
func WriteStatusError(path string, err error) error {
	return writeStatus(path, &StatusFile{Status: StateError, Error: err.Error()})
}

func writeStatus(path string, status *StatusFile) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadStatus reads a status file.
func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status StatusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RemoveStatus removes the status file. A missing file is not an error.
func RemoveStatus(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

package daemon_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/paneo/pkg/daemon"
)

func readRawStatus(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read status file: %v", err)
	}
	var status map[string]any
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("Failed to parse status JSON: %v", err)
	}
	return status
}

func TestWriteStatusStarting(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "state", "daemon.status")

	if err := daemon.WriteStatusStarting(statusPath); err != nil {
		t.Fatalf("WriteStatusStarting failed: %v", err)
	}

	status := readRawStatus(t, statusPath)
	if status["status"] != daemon.StateStarting {
		t.Errorf("Expected status %q, got %v", daemon.StateStarting, status["status"])
	}
	if _, exists := status["listen"]; exists {
		t.Error("listen should not be present while starting")
	}
}

func TestWriteStatusReady(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "daemon.status")

	if err := daemon.WriteStatusReady(statusPath, "127.0.0.1:3000", "/tmp/paneo.sock"); err != nil {
		t.Fatalf("WriteStatusReady failed: %v", err)
	}

	status := readRawStatus(t, statusPath)
	if status["status"] != daemon.StateReady {
		t.Errorf("Expected status 'ready', got %v", status["status"])
	}
	pid, ok := status["pid"].(float64)
	if !ok {
		t.Fatalf("Expected pid to be a number, got %T", status["pid"])
	}
	if int(pid) != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), int(pid))
	}
	if status["listen"] != "127.0.0.1:3000" || status["socket"] != "/tmp/paneo.sock" {
		t.Errorf("unexpected addresses: %v", status)
	}
	if _, exists := status["error"]; exists {
		t.Error("Error field should not be present in ready status")
	}
	if _, err := os.Stat(statusPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary status file left behind")
	}
}

func TestWriteStatusError(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "daemon.status")

	if err := daemon.WriteStatusError(statusPath, errors.New("no roots configured")); err != nil {
		t.Fatalf("WriteStatusError failed: %v", err)
	}

	status := readRawStatus(t, statusPath)
	if status["status"] != daemon.StateError {
		t.Errorf("Expected status 'error', got %v", status["status"])
	}
	if status["error"] != "no roots configured" {
		t.Errorf("Expected error message, got %v", status["error"])
	}
	if _, exists := status["pid"]; exists {
		t.Error("PID should not be present in error status")
	}
}

func TestReadStatus(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "daemon.status")

	if _, err := daemon.ReadStatus(statusPath); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}

	if err := daemon.WriteStatusReady(statusPath, ":3000", "/s"); err != nil {
		t.Fatal(err)
	}
	status, err := daemon.ReadStatus(statusPath)
	if err != nil {
		t.Fatalf("ReadStatus failed: %v", err)
	}
	if status.Status != daemon.StateReady || status.Listen != ":3000" || status.Socket != "/s" {
		t.Errorf("ReadStatus = %+v", status)
	}

	if err := os.WriteFile(statusPath, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemon.ReadStatus(statusPath); err == nil {
		t.Error("Expected error for malformed status file")
	}
}

func TestRemoveStatus(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "daemon.status")

	if err := daemon.WriteStatusStarting(statusPath); err != nil {
		t.Fatal(err)
	}
	if err := daemon.RemoveStatus(statusPath); err != nil {
		t.Fatalf("RemoveStatus failed: %v", err)
	}
	if _, err := os.Stat(statusPath); !os.IsNotExist(err) {
		t.Error("status file should have been removed")
	}
	if err := daemon.RemoveStatus(statusPath); err != nil {
		t.Errorf("RemoveStatus of missing file failed: %v", err)
	}
}

package daemon_test

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/paneo/pkg/daemon"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

func newTestService(t *testing.T) *daemon.Service {
	t.Helper()
	reg, err := roots.New([]roots.Root{{ID: "root-1", Path: t.TempDir()}})
	if err != nil {
		t.Fatalf("roots.New: %v", err)
	}
	files := filemanager.New(reg)
	return daemon.NewService(files, jobs.New(jobs.FromManager(files)))
}

func TestNewServer(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "run", "paneod.sock")

	srv, err := daemon.NewServer(daemon.Config{SocketPath: socketPath}, newTestService(t), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if srv.HTTPAddr() != "" {
		t.Errorf("HTTP should be disabled, got %q", srv.HTTPAddr())
	}
	if _, err := os.Stat(socketPath); err != nil {
		t.Fatalf("socket not created: %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket should be removed on close, stat err = %v", err)
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "paneod.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	srv, err := daemon.NewServer(daemon.Config{SocketPath: socketPath}, newTestService(t), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer srv.Close()
}

func TestServerServesHTTP(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "paneod.sock")
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	srv, err := daemon.NewServer(daemon.Config{SocketPath: socketPath, Listen: "127.0.0.1:0"}, newTestService(t), handler)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	addr := srv.HTTPAddr()
	if addr == "" {
		t.Fatal("expected HTTP address")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

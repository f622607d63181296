package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at a fresh directory and clears env that Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv(RootsEnv, "")
	t.Setenv("PANEO_ROOTS", "")
	return tempDir
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	configDir := filepath.Join(home, ".config", "paneo")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Roots != "" {
		t.Errorf("Roots = %q, want empty", cfg.Roots)
	}
	if cfg.Server.Listen != DefaultListen {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, DefaultListen)
	}
	if cfg.Server.Socket != DefaultSocketPath() {
		t.Errorf("Server.Socket = %q, want %q", cfg.Server.Socket, DefaultSocketPath())
	}
	if cfg.Server.PIDPath != DefaultPIDPath() {
		t.Errorf("Server.PIDPath = %q, want %q", cfg.Server.PIDPath, DefaultPIDPath())
	}
	if cfg.Favorites.Path != DefaultFavoritesPath() {
		t.Errorf("Favorites.Path = %q, want %q", cfg.Favorites.Path, DefaultFavoritesPath())
	}
	if !cfg.Favorites.Watch {
		t.Error("Favorites.Watch = false, want true")
	}
	if cfg.Client.PollInterval != DefaultPollInterval {
		t.Errorf("Client.PollInterval = %v, want %v", cfg.Client.PollInterval, DefaultPollInterval)
	}
	if cfg.Delete.UseTrash {
		t.Error("Delete.UseTrash = true, want false")
	}
	if !cfg.Daemon.AutoStart {
		t.Error("Daemon.AutoStart = false, want true")
	}

	size, err := cfg.BufferSize()
	if err != nil {
		t.Fatalf("BufferSize() error = %v", err)
	}
	if size != 1<<20 {
		t.Errorf("BufferSize() = %d, want %d", size, 1<<20)
	}

	if !errors.Is(cfg.Validate(), ErrNoRoots) {
		t.Errorf("Validate() = %v, want ErrNoRoots", cfg.Validate())
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `
roots: "media=/srv/media;/srv/backup"
server:
  listen: 0.0.0.0:8080
  socket: ~/run/paneo.sock
auth:
  password: hunter2
  cookie_secure: true
copy:
  buffer_size: 256KiB
delete:
  use_trash: true
client:
  poll_interval: 1s
favorites:
  watch: false
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Roots != "media=/srv/media;/srv/backup" {
		t.Errorf("Roots = %q", cfg.Roots)
	}
	if cfg.Server.Listen != "0.0.0.0:8080" {
		t.Errorf("Server.Listen = %q", cfg.Server.Listen)
	}
	if want := filepath.Join(home, "run", "paneo.sock"); cfg.Server.Socket != want {
		t.Errorf("Server.Socket = %q, want %q", cfg.Server.Socket, want)
	}
	if cfg.Auth.Password != "hunter2" || !cfg.Auth.CookieSecure {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if size, _ := cfg.BufferSize(); size != 256*1024 {
		t.Errorf("BufferSize() = %d, want %d", size, 256*1024)
	}
	if !cfg.Delete.UseTrash {
		t.Error("Delete.UseTrash = false, want true")
	}
	if cfg.Client.PollInterval != time.Second {
		t.Errorf("Client.PollInterval = %v, want 1s", cfg.Client.PollInterval)
	}
	if cfg.Favorites.Watch {
		t.Error("Favorites.Watch = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	isolate(t)
	xdgHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgHome)

	configDir := filepath.Join(xdgHome, "paneo")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("roots: /data\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Roots != "/data" {
		t.Errorf("Roots = %q, want %q", cfg.Roots, "/data")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PANEO_SERVER_LISTEN", "127.0.0.1:9999")
	t.Setenv("PANEO_DELETE_USE_TRASH", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:9999" {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, "127.0.0.1:9999")
	}
	if !cfg.Delete.UseTrash {
		t.Error("Delete.UseTrash = false, want true")
	}
}

func TestLoad_RootsEnv(t *testing.T) {
	t.Run("FILE_MANAGER_ROOTS", func(t *testing.T) {
		isolate(t)
		t.Setenv(RootsEnv, "docs=/srv/docs")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Roots != "docs=/srv/docs" {
			t.Errorf("Roots = %q, want %q", cfg.Roots, "docs=/srv/docs")
		}
	})

	t.Run("PANEO_ROOTS wins", func(t *testing.T) {
		isolate(t)
		t.Setenv(RootsEnv, "/from/legacy")
		t.Setenv("PANEO_ROOTS", "/from/paneo")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Roots != "/from/paneo" {
			t.Errorf("Roots = %q, want %q", cfg.Roots, "/from/paneo")
		}
	})
}

func TestLoad_InvalidFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "roots: [unclosed\n")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Roots = "/data"

	cfg.Copy.BufferSize = "lots"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with bad buffer size = nil, want error")
	}

	cfg.Copy.BufferSize = "0"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with zero buffer size = nil, want error")
	}

	cfg.Copy.BufferSize = "64K"
	cfg.Logging.Rotation.MaxSize = "huge"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with bad rotation size = nil, want error")
	}
}

func TestLoggingConfig(t *testing.T) {
	lc := LoggingConfig{
		Level:      "debug",
		Path:       "/tmp/paneo.log",
		Rotation:   RotationConfig{MaxSize: "5MB", MaxAge: 7, MaxBackups: 2, Daily: true},
		Components: map[string]string{"jobs": "warn"},
	}

	got, err := lc.Logging()
	if err != nil {
		t.Fatalf("Logging() error = %v", err)
	}
	if got.Rotation.MaxSize != 5*1024*1024 {
		t.Errorf("Rotation.MaxSize = %d, want %d", got.Rotation.MaxSize, 5*1024*1024)
	}
	if got.Level != "debug" || got.Path != "/tmp/paneo.log" || got.Components["jobs"] != "warn" {
		t.Errorf("Logging() = %+v", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME", func(t *testing.T) {
		xdgHome := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", xdgHome)

		dir, err := ConfigDir()
		if err != nil {
			t.Fatalf("ConfigDir() error = %v", err)
		}
		if want := filepath.Join(xdgHome, "paneo"); dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})

	t.Run("falls back to HOME", func(t *testing.T) {
		home := isolate(t)

		path, err := ConfigPath()
		if err != nil {
			t.Fatalf("ConfigPath() error = %v", err)
		}
		if want := filepath.Join(home, ".config", "paneo", "config.yaml"); path != want {
			t.Errorf("ConfigPath() = %q, want %q", path, want)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	t.Run("creates a loadable config file", func(t *testing.T) {
		home := isolate(t)

		if err := WriteDefault(); err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}

		content, err := os.ReadFile(filepath.Join(home, ".config", "paneo", "config.yaml"))
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if !strings.Contains(string(content), "poll_interval: 300ms") {
			t.Errorf("config file missing poll interval:\n%s", content)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() after WriteDefault error = %v", err)
		}
		if cfg.Server.Listen != DefaultListen {
			t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, DefaultListen)
		}
		if cfg.Logging.Components["watcher"] != "warn" {
			t.Errorf("Logging.Components = %v", cfg.Logging.Components)
		}
	})

	t.Run("does not overwrite existing config", func(t *testing.T) {
		home := isolate(t)
		existing := "# existing config\nroots: /data\n"
		writeConfig(t, home, existing)

		if err := WriteDefault(); err != nil {
			t.Fatalf("WriteDefault() error = %v", err)
		}

		content, err := os.ReadFile(filepath.Join(home, ".config", "paneo", "config.yaml"))
		if err != nil {
			t.Fatalf("failed to read config file: %v", err)
		}
		if string(content) != existing {
			t.Errorf("config file was overwritten: got %q, want %q", string(content), existing)
		}
	})
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in   string
		want string
	}{
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultPaths(t *testing.T) {
	for name, got := range map[string]string{
		"socket":    DefaultSocketPath(),
		"pid":       DefaultPIDPath(),
		"favorites": DefaultFavoritesPath(),
	} {
		if filepath.Dir(got) != DataDir() {
			t.Errorf("%s path %q is not under %q", name, got, DataDir())
		}
	}
	if filepath.Dir(DefaultStatusPath()) != StateDir() {
		t.Errorf("status path %q is not under %q", DefaultStatusPath(), StateDir())
	}
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "roots: \"default=/srv\"\n")

	path := filepath.Join(t.TempDir(), "other.yaml")
	content := "roots: \"media=/mnt/media\"\nfavorites:\n  legacy_file: ~/favorites.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Roots != "media=/mnt/media" {
		t.Errorf("Roots = %q, want the explicit file's value", cfg.Roots)
	}
	if want := filepath.Join(home, "favorites.json"); cfg.Favorites.LegacyFile != want {
		t.Errorf("Favorites.LegacyFile = %q, want %q", cfg.Favorites.LegacyFile, want)
	}
}

func TestLoadFile_MissingExplicitPath(t *testing.T) {
	isolate(t)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() should fail when the explicit file is missing")
	}
}

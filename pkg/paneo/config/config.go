package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/paneo/pkg/paneo/auth"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

// ErrNoRoots is returned by Validate when no roots are configured.
var ErrNoRoots = errors.New("roots is empty: set roots in the config file or FILE_MANAGER_ROOTS")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
	ConsoleLevel string            `mapstructure:"console_level"`
}

// Logging converts c into the logging package configuration.
func (c LoggingConfig) Logging() (logging.Config, error) {
	maxSize, err := types.ParseSize(c.Rotation.MaxSize)
	if err != nil {
		return logging.Config{}, fmt.Errorf("logging.rotation.max_size: %w", err)
	}
	return logging.Config{
		Level: c.Level,
		Path:  c.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     c.Rotation.MaxAge,
			MaxBackups: c.Rotation.MaxBackups,
			Daily:      c.Rotation.Daily,
		},
		Components:   c.Components,
		ConsoleLevel: c.ConsoleLevel,
	}, nil
}

// ServerConfig configures the daemon listeners.
type ServerConfig struct {
	Listen  string `mapstructure:"listen"`
	Socket  string `mapstructure:"socket"`
	PIDPath string `mapstructure:"pid_path"`
}

// DaemonConfig configures how the CLI finds and starts the daemon.
type DaemonConfig struct {
	AutoStart  bool   `mapstructure:"auto_start"`
	BinaryPath string `mapstructure:"binary_path"` // Path to paneod binary (auto-discovered if empty)
}

// FavoritesConfig configures the favorites store.
type FavoritesConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`

	// LegacyFile is a JSON favorites file imported once on startup.
	LegacyFile string `mapstructure:"legacy_file"`
}

// Config represents the application configuration.
type Config struct {
	Roots  string       `mapstructure:"roots"`
	Server ServerConfig `mapstructure:"server"`
	Auth   auth.Config  `mapstructure:"auth"`
	Copy   struct {
		BufferSize string `mapstructure:"buffer_size"`
	} `mapstructure:"copy"`
	Delete struct {
		UseTrash bool `mapstructure:"use_trash"`
	} `mapstructure:"delete"`
	Client struct {
		PollInterval time.Duration `mapstructure:"poll_interval"`
	} `mapstructure:"client"`
	Favorites FavoritesConfig `mapstructure:"favorites"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
}

// BufferSize returns the parsed copy chunk size.
func (c *Config) BufferSize() (int, error) {
	n, err := types.ParseSize(c.Copy.BufferSize)
	if err != nil {
		return 0, fmt.Errorf("copy.buffer_size: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("copy.buffer_size: must be positive, got %q", c.Copy.BufferSize)
	}
	return int(n), nil
}

// Validate checks settings the daemon cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Roots) == "" {
		return ErrNoRoots
	}
	if _, err := c.BufferSize(); err != nil {
		return err
	}
	if _, err := c.Logging.Logging(); err != nil {
		return err
	}
	return nil
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/paneo/config.yaml
//   - $HOME/.config/paneo/config.yaml
//
// Environment variables are prefixed with PANEO_ (e.g., PANEO_SERVER_LISTEN).
// FILE_MANAGER_ROOTS is read when roots is set nowhere else.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "paneo"))
		}

		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "paneo"))
	}

	v.SetEnvPrefix("PANEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("roots", "PANEO_ROOTS", RootsEnv); err != nil {
		return nil, fmt.Errorf("binding roots env: %w", err)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Server.Socket, &cfg.Server.PIDPath, &cfg.Favorites.Path, &cfg.Favorites.LegacyFile, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	if cfg.Server.Socket == "" {
		cfg.Server.Socket = DefaultSocketPath()
	}
	if cfg.Server.PIDPath == "" {
		cfg.Server.PIDPath = DefaultPIDPath()
	}
	if cfg.Favorites.Path == "" {
		cfg.Favorites.Path = DefaultFavoritesPath()
	}
	if cfg.Client.PollInterval <= 0 {
		cfg.Client.PollInterval = DefaultPollInterval
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("roots", "")
	v.SetDefault("server.listen", DefaultListen)
	v.SetDefault("server.socket", "")   // Empty means use default XDG path
	v.SetDefault("server.pid_path", "") // Empty means use default XDG path

	v.SetDefault("auth.password", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("copy.buffer_size", DefaultBufferSize)
	v.SetDefault("delete.use_trash", false)
	v.SetDefault("client.poll_interval", DefaultPollInterval)

	v.SetDefault("favorites.path", "")
	v.SetDefault("favorites.watch", true)
	v.SetDefault("favorites.legacy_file", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
	v.SetDefault("logging.console_level", "")

	v.SetDefault("daemon.auto_start", true)
	v.SetDefault("daemon.binary_path", "")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "paneo"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "paneo"), nil
}

// ConfigPath returns the path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# paneo file manager configuration

# Directories served to clients, separated by ';'. Use alias=path to name them.
# FILE_MANAGER_ROOTS is used when this is empty.
roots: ""

server:
  # HTTP listen address for the web API
  listen: %s
  # Control socket path (empty means use default: $XDG_DATA_HOME/paneo/paneo.sock)
  socket: ""
  # PID file path (empty means use default: $XDG_DATA_HOME/paneo/paneo.pid)
  pid_path: ""

# Optional single-password protection for the web API
auth:
  password: ""
  # bcrypt hash, used instead of password when set
  password_hash: ""
  # Cookie signing secret (empty derives one from the password)
  secret: ""
  cookie_secure: false

copy:
  # Streaming chunk size
  buffer_size: %s

delete:
  # Move deleted entries to the desktop trash when available
  use_trash: false

client:
  # How often the CLI polls running copy jobs
  poll_interval: %s

favorites:
  # Favorites database directory (empty means use default: $XDG_DATA_HOME/paneo/favorites)
  path: ""
  # Drop favorites whose directory is removed
  watch: true
  # JSON favorites file from older releases, imported once when set
  legacy_file: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/paneo/paneo.log)
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    daemon: info
    jobs: info
    http: info
    favorites: info
    watcher: warn

# Daemon configuration
daemon:
  # Automatically start the daemon when running paneo commands
  auto_start: true
  # Path to the paneod binary (empty means auto-discover)
  binary_path: ""
`, DefaultListen, DefaultBufferSize, DefaultPollInterval, DefaultLogMaxSize)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/paneo/ for the favorites database, socket, and pid files.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "paneo")
}

// StateDir returns $XDG_STATE_HOME/paneo/ for log and status files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "paneo")
}

// DefaultSocketPath returns the default control socket path.
func DefaultSocketPath() string {
	return filepath.Join(DataDir(), "paneo.sock")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "paneo.pid")
}

// DefaultFavoritesPath returns the default favorites database directory.
func DefaultFavoritesPath() string {
	return filepath.Join(DataDir(), "favorites")
}

// DefaultStatusPath returns the default daemon status file path.
func DefaultStatusPath() string {
	return filepath.Join(StateDir(), "daemon.status")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

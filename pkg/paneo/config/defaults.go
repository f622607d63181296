// Package config provides configuration management for paneo.
package config

import "time"

// Default configuration values for paneo.
const (
	// DefaultListen is the HTTP listen address.
	DefaultListen = "127.0.0.1:3000"

	// DefaultBufferSize is the copy chunk size.
	DefaultBufferSize = "1MiB"

	// DefaultPollInterval is how often the CLI polls a running job.
	DefaultPollInterval = 300 * time.Millisecond

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"

	// RootsEnv is the environment variable read when roots is not set.
	RootsEnv = "FILE_MANAGER_ROOTS"
)

// DefaultComponentLevels are the per-component log levels written to new configs.
var DefaultComponentLevels = map[string]string{
	"daemon":    "info",
	"jobs":      "info",
	"http":      "info",
	"favorites": "info",
	"watcher":   "warn",
}

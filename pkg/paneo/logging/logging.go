// Package logging provides component loggers shared by the paneo daemon and CLI.
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	log := logging.Get("jobs")
//	log.Info("copy started", "job", id, "from", src)
//
// Loggers obtained before Init discard their output. Init may be called again
// to reconfigure; loggers already handed out pick up the new configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name. The empty string means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default level for every component.
	Level string `mapstructure:"level"`

	// Path is the log file. Empty uses DefaultLogPath.
	Path string `mapstructure:"path"`

	// Rotation configures log file rotation.
	Rotation RotationConfig `mapstructure:"rotation"`

	// Components overrides the level per component name.
	Components map[string]string `mapstructure:"components"`

	// ConsoleLevel additionally writes entries at or above this level to
	// stderr. Empty disables console output.
	ConsoleLevel string `mapstructure:"console_level"`

	// Quiet suppresses console output even when ConsoleLevel is set. The
	// progress TUI sets it because it owns the terminal.
	Quiet bool `mapstructure:"-"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

// DefaultLogPath returns $XDG_STATE_HOME/paneo/paneo.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "paneo", "paneo.log")
}

// Logger writes structured entries for one component to the log file and,
// when enabled, to the console.
type Logger struct {
	component string
	fields    []interface{}
	parent    *Logger

	mu      sync.RWMutex
	file    *log.Logger
	console *log.Logger
}

// Debug logs a debug message with key/value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv) }

// Info logs an info message with key/value pairs.
func (l *Logger) Info(msg string, kv ...interface{}) { l.log(LevelInfo, msg, kv) }

// Warn logs a warning with key/value pairs.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.log(LevelWarn, msg, kv) }

// Error logs an error with key/value pairs.
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv) }

// Component returns the component name the logger was created for.
func (l *Logger) Component() string { return l.component }

func (l *Logger) log(level Level, msg string, kv []interface{}) {
	src := l
	if l.parent != nil {
		src = l.parent
		kv = append(append(make([]interface{}, 0, len(l.fields)+len(kv)), l.fields...), kv...)
	}

	src.mu.RLock()
	file, console := src.file, src.console
	src.mu.RUnlock()

	logAt(file, level, msg, kv)
	if console != nil {
		logAt(console, level, msg, kv)
	}
}

func logAt(logger *log.Logger, level Level, msg string, kv []interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, kv...)
	case LevelInfo:
		logger.Info(msg, kv...)
	case LevelWarn:
		logger.Warn(msg, kv...)
	case LevelError:
		logger.Error(msg, kv...)
	}
}

// With returns a logger that adds kv to every entry. It shares the
// configuration of l and follows it across Init calls.
func (l *Logger) With(kv ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)

	base := l
	if l.parent != nil {
		base = l.parent
	}
	return &Logger{component: l.component, fields: fields, parent: base}
}

type state struct {
	mu          sync.Mutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	console     bool
	consoleLvl  Level
	loggers     map[string]*Logger
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
}

// configure (re)builds the charm loggers of l. Must be called with s.mu held.
func (s *state) configure(l *Logger) {
	level := s.level
	if lvl, ok := s.components[l.component]; ok {
		level = lvl
	}

	var out io.Writer = io.Discard
	if s.initialized && s.writer != nil {
		out = s.writer
	}

	file := log.NewWithOptions(out, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          l.component,
	})

	var console *log.Logger
	if s.initialized && s.console {
		console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           s.consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          l.component,
		})
	}

	l.mu.Lock()
	l.file, l.console = file, console
	l.mu.Unlock()
}

// Init configures logging. It may be called more than once.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	var consoleLvl Level
	console := cfg.ConsoleLevel != "" && !cfg.Quiet
	if console {
		if consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	s := globalState
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.writer
	s.writer = writer
	s.level = level
	s.components = components
	s.console = console
	s.consoleLvl = consoleLvl
	s.initialized = true
	s.reconfigureAll()

	if old != nil {
		if err := old.Close(); err != nil {
			return fmt.Errorf("closing previous writer: %w", err)
		}
	}
	return nil
}

// reconfigureAll rebuilds every logger handed out so far. Must be called with s.mu held.
func (s *state) reconfigureAll() {
	for _, l := range s.loggers {
		s.configure(l)
	}
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	s := globalState
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.loggers[component]; ok {
		return l
	}
	l := &Logger{component: component}
	s.configure(l)
	s.loggers[component] = l
	return l
}

// Close flushes the log file and returns every logger to discard mode.
func Close() error {
	s := globalState
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}

	w := s.writer
	s.writer = nil
	s.initialized = false
	s.console = false
	s.reconfigureAll()

	if w != nil {
		if err := w.Close(); err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
	}
	return nil
}

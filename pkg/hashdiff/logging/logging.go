// Package logging provides component loggers for hashdiff backed by
// charmbracelet/log, writing to a size-rotated log file and optionally
// mirroring to stderr.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("scanner")
//	logger.Info("scan started", "root", "/srv/data")
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

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
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

func (l Level) toCharmLevel() log.Level {
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

// ParseLevel parses a string into a Level.
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
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to level overrides.
	Components map[string]string

	// ConsoleLevel mirrors logs at or above this level to stderr.
	// Empty disables console output.
	ConsoleLevel string
}

// Logger writes component-tagged records to the log file and, when
// configured, to the console.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	logTo(l.file, level, msg, args...)
	if l.console != nil {
		logTo(l.console, level, msg, args...)
	}
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional key/value context.
func (l *Logger) With(args ...interface{}) *Logger {
	nl := &Logger{
		file:      l.file.With(args...),
		component: l.component,
	}
	if l.console != nil {
		nl.console = l.console.With(args...)
	}
	return nl
}

// Component returns the component name of the logger.
func (l *Logger) Component() string {
	return l.component
}

type state struct {
	mu           sync.RWMutex
	initialized  bool
	writer       *RotatingWriter
	level        Level
	components   map[string]Level
	loggers      map[string]*Logger
	console      io.Writer
	consoleOn    bool
	consoleLevel Level
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
	console:    os.Stderr,
}

// Init initializes the logging system. Before Init is called all loggers
// discard their output. Calling Init again reconfigures existing loggers.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

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

	consoleOn := false
	var consoleLevel Level
	if cfg.ConsoleLevel != "" {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		consoleOn = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	if globalState.writer != nil {
		_ = globalState.writer.Close()
	}

	globalState.writer = writer
	globalState.level = level
	globalState.components = components
	globalState.consoleOn = consoleOn
	globalState.consoleLevel = consoleLevel
	globalState.initialized = true

	for component := range globalState.loggers {
		*globalState.loggers[component] = *createLogger(component)
	}

	return nil
}

// Get returns the logger for a component. Loggers obtained before Init are
// updated in place when Init runs, so package-level loggers are safe.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}
	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	if !globalState.initialized {
		return &Logger{
			file: log.NewWithOptions(io.Discard, log.Options{
				Level:  level.toCharmLevel(),
				Prefix: component,
			}),
			component: component,
		}
	}

	logger := &Logger{
		file: log.NewWithOptions(globalState.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
		component: component,
	}

	if globalState.consoleOn {
		logger.console = log.NewWithOptions(globalState.console, log.Options{
			Level:           globalState.consoleLevel.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file. Loggers revert to discarding.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	var err error
	if globalState.writer != nil {
		err = globalState.writer.Close()
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.consoleOn = false
	for component := range globalState.loggers {
		*globalState.loggers[component] = *createLogger(component)
	}

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/hashdiff/hashdiff.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "hashdiff", "hashdiff.log")
}

package debuglog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff // Disables all logging
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo // Default to INFO
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

var (
	mu           sync.RWMutex
	currentLevel = LevelOff
	logger       = zerolog.Nop()
	logFile      *os.File
)

// Setup configures the logging system with the specified level and optional file path.
// If filePath is empty, defaults to ~/.fbrowse/fbrowse.log. The terminal UI
// owns stdout, so logs always go to a file.
func Setup(level LogLevel, filePath ...string) error {
	mu.Lock()
	defer mu.Unlock()

	currentLevel = level

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	if level == LevelOff {
		logger = zerolog.Nop()
		return nil
	}

	var logPath string
	if len(filePath) > 0 && filePath[0] != "" {
		logPath = filePath[0]
	} else {
		home, _ := os.UserHomeDir()
		dir := filepath.Join(home, ".fbrowse")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logPath = filepath.Join(dir, "fbrowse.log")
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger = zerolog.Nop()
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	logFile = f
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        f,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05.000000",
	}).
		Level(level.zerolog()).
		With().
		Timestamp().
		Str("app", "fbrowse").
		Logger()
	return nil
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	logger = logger.Level(level.zerolog())
}

// GetLevel returns the current logging level
func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// Logger returns the underlying zerolog logger for callers that want
// typed fields instead of printf formatting.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Close closes the log file if open
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.Nop()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

func Debugf(format string, args ...any) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

func Infof(format string, args ...any) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// FieldLogger attaches a fixed set of key-value fields to every message.
type FieldLogger struct {
	fields map[string]interface{}
}

// WithFields returns a new logger with the specified fields
func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{fields: fields}
}

func (fl *FieldLogger) event(level zerolog.Level) *zerolog.Event {
	l := Logger()
	return l.WithLevel(level).Fields(fl.fields)
}

func (fl *FieldLogger) Debugf(format string, args ...any) {
	fl.event(zerolog.DebugLevel).Msgf(format, args...)
}

func (fl *FieldLogger) Infof(format string, args ...any) {
	fl.event(zerolog.InfoLevel).Msgf(format, args...)
}

func (fl *FieldLogger) Warnf(format string, args ...any) {
	fl.event(zerolog.WarnLevel).Msgf(format, args...)
}

func (fl *FieldLogger) Errorf(format string, args ...any) {
	fl.event(zerolog.ErrorLevel).Msgf(format, args...)
}

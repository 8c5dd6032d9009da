package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger provides structured logging for CLI applications
type Logger struct {
	Level      LogLevel
	ShowEmojis bool
	SilentMode bool
}

// NewLogger creates a new logger with default settings
func NewLogger() *Logger {
	return &Logger{
		Level:      LogLevelInfo,
		ShowEmojis: true,
	}
}

// SetSilentMode enables or disables silent mode
func (l *Logger) SetSilentMode(silent bool) {
	l.SilentMode = silent
}

// Header prints a formatted header
func (l *Logger) Header(title string) {
	if l.SilentMode {
		return
	}

	emoji := "🎯"
	if !l.ShowEmojis {
		emoji = "***"
	}

	fmt.Printf("\n%s %s\n", emoji, strings.ToUpper(title))
	fmt.Printf("%s\n", strings.Repeat("=", len(title)+5))
}

// Section prints a formatted section header
func (l *Logger) Section(title string) {
	if l.SilentMode {
		return
	}

	emoji := "📋"
	if !l.ShowEmojis {
		emoji = "---"
	}

	fmt.Printf("\n%s %s\n", emoji, title)
	fmt.Printf("%s\n", strings.Repeat("-", len(title)+5))
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.SilentMode || l.Level < LogLevelInfo {
		return
	}

	emoji := "ℹ️"
	if !l.ShowEmojis {
		emoji = "[INFO]"
	}

	fmt.Printf("%s  %s\n", emoji, fmt.Sprintf(format, args...))
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	emoji := "❌"
	if !l.ShowEmojis {
		emoji = "[ERROR]"
	}

	fmt.Printf("%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}

	emoji := "✅"
	if !l.ShowEmojis {
		emoji = "[SUCCESS]"
	}

	fmt.Printf("%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Warn prints a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.Level < LogLevelWarn {
		return
	}

	emoji := "⚠️"
	if !l.ShowEmojis {
		emoji = "[WARN]"
	}

	fmt.Printf("%s  %s\n", emoji, fmt.Sprintf(format, args...))
}

// Debug prints a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Level < LogLevelDebug {
		return
	}

	emoji := "🔍"
	if !l.ShowEmojis {
		emoji = "[DEBUG]"
	}

	fmt.Printf("%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// Progress prints a progress message
func (l *Logger) Progress(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}

	emoji := "🔄"
	if !l.ShowEmojis {
		emoji = "[PROGRESS]"
	}

	fmt.Printf("%s %s\n", emoji, fmt.Sprintf(format, args...))
}

// EnvLoader provides environment loading utilities
type EnvLoader struct {
	logger *Logger
}

// NewEnvLoader creates a new environment loader
func NewEnvLoader(logger *Logger) *EnvLoader {
	return &EnvLoader{logger: logger}
}

// LoadEnvFile loads environment variables from a file. A missing file is
// not an error; the system environment is used as-is.
func (e *EnvLoader) LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		e.logger.Debug("Environment file %s not found, using system environment", path)
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		e.logger.Warn("Could not load environment file %s: %v", path, err)
		return err
	}

	e.logger.Debug("Environment loaded from %s", path)
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// EnsureDir ensures a directory exists, creating it if necessary
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Global instances for convenience
var (
	DefaultLogger    = NewLogger()
	DefaultEnvLoader = NewEnvLoader(DefaultLogger)
)

// Convenience functions using global instances
func Header(title string)                         { DefaultLogger.Header(title) }
func Section(title string)                        { DefaultLogger.Section(title) }
func Info(format string, args ...interface{})     { DefaultLogger.Info(format, args...) }
func Error(format string, args ...interface{})    { DefaultLogger.Error(format, args...) }
func Success(format string, args ...interface{})  { DefaultLogger.Success(format, args...) }
func Warn(format string, args ...interface{})     { DefaultLogger.Warn(format, args...) }
func Debug(format string, args ...interface{})    { DefaultLogger.Debug(format, args...) }
func Progress(format string, args ...interface{}) { DefaultLogger.Progress(format, args...) }
func SetSilentMode(silent bool)                   { DefaultLogger.SetSilentMode(silent) }

func LoadEnvFile(path string) error { return DefaultEnvLoader.LoadEnvFile(path) }

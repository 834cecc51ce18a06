package chunkline

import (
	"github.com/chunkline/chunkline/chunk"
)

// LogLevel represents the severity of a log message
type LogLevel = chunk.LogLevel

// Log levels
const (
	LogLevelOff   = chunk.LogLevelOff
	LogLevelError = chunk.LogLevelError
	LogLevelWarn  = chunk.LogLevelWarn
	LogLevelInfo  = chunk.LogLevelInfo
	LogLevelDebug = chunk.LogLevelDebug
)

// Logger interface for logging messages
type Logger = chunk.Logger

// SetLogLevel sets the global log level for the chunkline package
func SetLogLevel(level LogLevel) {
	chunk.SetGlobalLogLevel(level)
}

// Debug logs a debug message
func Debug(msg string, keysAndValues ...interface{}) {
	chunk.GlobalLogger.Debug(msg, keysAndValues...)
}

// Info logs an info message
func Info(msg string, keysAndValues ...interface{}) {
	chunk.GlobalLogger.Info(msg, keysAndValues...)
}

// Warn logs a warning message
func Warn(msg string, keysAndValues ...interface{}) {
	chunk.GlobalLogger.Warn(msg, keysAndValues...)
}

// Error logs an error message
func Error(msg string, keysAndValues ...interface{}) {
	chunk.GlobalLogger.Error(msg, keysAndValues...)
}

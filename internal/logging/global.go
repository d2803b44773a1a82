package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger instance
func InitGlobalLogger(level LogLevel, format string) *Logger {
	var output = zerolog.ConsoleWriter{Out: os.Stdout}

	if format == "json" {
		globalLogger = NewLogger(level, os.Stdout)
	} else {
		globalLogger = NewLogger(level, &output)
	}

	return globalLogger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with default settings if not already initialized
		globalLogger = NewLogger(InfoLevel, os.Stdout)
	}
	return globalLogger
}

// Quick logging functions using the global logger

// Debug logs a debug message
func Debug(msg string) {
	GetGlobalLogger().logger.Debug().Msg(msg)
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// Info logs an info message
func Info(msg string) {
	GetGlobalLogger().logger.Info().Msg(msg)
}

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) {
	GetGlobalLogger().logger.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func Warn(msg string) {
	GetGlobalLogger().logger.Warn().Msg(msg)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error message
func Error(msg string) {
	GetGlobalLogger().logger.Error().Msg(msg)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Error().Msg(fmt.Sprintf(format, args...))
}

// Fatal logs a fatal message and exits
func Fatal(msg string) {
	GetGlobalLogger().logger.Fatal().Msg(msg)
}

// Fatalf logs a formatted fatal message and exits
func Fatalf(format string, args ...interface{}) {
	GetGlobalLogger().logger.Fatal().Msg(fmt.Sprintf(format, args...))
}

// WithModule creates a logger with module field
func WithModule(module string) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().Str("module", module).Logger()
	return &logger
}

// WithChannel creates a logger with channel_id field
func WithChannel(channelID string) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().Str("channel_id", channelID).Logger()
	return &logger
}

// WithError creates a logger with error field
func WithError(err error) *zerolog.Logger {
	logger := GetGlobalLogger().logger.With().Err(err).Logger()
	return &logger
}

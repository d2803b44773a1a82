package logging

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Logger holds the zerolog logger instance
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new logger instance with the specified log level
func NewLogger(logLevel LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		logger: logger,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

// WithField adds a single field to the logger
func (l *Logger) WithField(key string, value interface{}) *zerolog.Logger {
	logger := l.logger.With().Interface(key, value).Logger()
	return &logger
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *zerolog.Logger {
	logCtx := l.logger.With()

	for key, value := range fields {
		logCtx = logCtx.Interface(key, value)
	}

	logger := logCtx.Logger()
	return &logger
}

// LogHTTPRequest logs HTTP request information
func (l *Logger) LogHTTPRequest(c *fiber.Ctx, duration time.Duration) {
	l.logger.Info().
		Str("ip", c.IP()).
		Str("method", c.Method()).
		Str("url", c.OriginalURL()).
		Int("status", c.Response().StatusCode()).
		Int64("duration_ms", duration.Milliseconds()).
		Str("user_agent", c.Get("User-Agent")).
		Msg("HTTP request processed")
}

// FiberLoggerMiddleware creates a Fiber-compatible logging middleware
func (l *Logger) FiberLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		l.LogHTTPRequest(c, time.Since(start))

		return err
	}
}

// SetLogLevel dynamically changes the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) error {
	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		return err
	}

	l.logger = l.logger.Level(level)
	return nil
}

// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// It wraps a zap sugared logger behind printf-style package functions so call sites
// stay terse, and switches between JSON and console encoding from configuration.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly, it shouldn't generate any error-level logs.
	ErrorLevel
)

var (
	// Global logger instance
	defaultLogger *zap.SugaredLogger
)

// ParseLevel maps a config string to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the default logger with the specified level and format
func Init(level string, format string) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(format) == "text" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), ParseLevel(level).zapLevel())
	defaultLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes any buffered log entries.
func Sync() {
	if defaultLogger != nil {
		_ = defaultLogger.Sync()
	}
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Debugf(format, args...)
	}
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Infof(format, args...)
	}
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Warnf(format, args...)
	}
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.Errorf(format, args...)
	}
}

// Fatal logs a message at ErrorLevel and exits
func Fatal(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("error", "text")
	}
	defaultLogger.Fatalf(format, args...)
	os.Exit(1)
}

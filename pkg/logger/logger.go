// Package logger provides standardized logging utilities for the traceopt toolkit
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Global logger instance
var defaultLogger *slog.Logger

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level     LogLevel
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	var handler slog.Handler

	output := cfg.Output
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)

	return nil
}

// InitDev initializes logging for development (debug level, text format)
func InitDev() {
	_ = Init(Config{
		Level:     LevelDebug,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: true,
	})
}

// InitProd initializes logging for production (info level, json format)
func InitProd(logDir string) error {
	logPath := filepath.Join(logDir, "traceopt.log")
	return Init(Config{
		Level:     LevelInfo,
		Format:    "json",
		LogFile:   logPath,
		AddSource: false,
	})
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(msg, args...)
	}
}

// With returns a new logger with the given attributes
func With(args ...any) *slog.Logger {
	if defaultLogger != nil {
		return defaultLogger.With(args...)
	}
	return slog.Default().With(args...)
}

// Pass-pipeline logging helpers

// LogPass logs the start of a pass over a function or loop
func LogPass(pass string, target string) {
	Info("Running pass", "pass", pass, "target", target)
}

// LogPassComplete logs the completion of a pass
func LogPassComplete(pass string, changed bool) {
	Info("Pass complete", "pass", pass, "changed", changed)
}

// LogTraceStats logs aggregate trace formation statistics
func LogTraceStats(funcName string, traces int, hazards int, fallThrough float64) {
	Info("Trace formation complete",
		"function", funcName,
		"traces", traces,
		"hazards", hazards,
		"fallthrough", fallThrough)
}

// LogHoist logs hoisting activity within a loop
func LogHoist(funcName string, header string, loads int, chained int) {
	Debug("Hoisted frequent-path loads",
		"function", funcName,
		"header", header,
		"loads", loads,
		"chained", chained)
}

// LogAnalysis logs analysis construction
func LogAnalysis(kind string, funcName string, count int) {
	Debug("Analysis built", "kind", kind, "function", funcName, "count", count)
}

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Common structured log field keys
const (
	FieldPlayerID  = "player_id"
	FieldCourseID  = "course_id"
	FieldTeam      = "team"
	FieldEventType = "event_type"
	FieldStatus    = "status"
	FieldCount     = "count"
)

var (
	// Logger is the global slog logger instance
	Logger *slog.Logger
)

// Init initializes the global logger from the LOG_LEVEL and LOG_FORMAT
// environment variables. Defaults are info level and JSON output.
func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(w io.Writer) {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(logLevelStr),
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized", "level", logLevelStr)
}

// ParseLevel maps a level name onto a slog level, falling back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() *slog.Logger {
	if Logger == nil {
		return slog.Default()
	}
	return Logger
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

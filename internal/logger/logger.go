package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ilkin0/docguard/internal/utils"
)

const serviceName = "docguard"

// Init builds the process logger from APP_ENV and LOG_LEVEL.
func Init() *slog.Logger {
	env := utils.GetEnv("APP_ENV", "development")

	level := utils.GetEnv("LOG_LEVEL", "")
	if level == "" {
		if env == "production" {
			level = "info"
		} else {
			level = "debug"
		}
	}

	return New(env, level)
}

func New(env, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, env, level)
}

// NewWithWriter writes JSON in production and text everywhere else.
func NewWithWriter(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", serviceName))
}

// ParseLevel is case-insensitive; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

package logger

import (
	"io"
	"log/slog"
	"os"
)

// InitLogger initializes the application logger based on environment and
// sets it as the slog default
func InitLogger(environment string) *slog.Logger {
	logger := New(os.Stdout, environment)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w. Development gets debug level, source
// locations and a text handler; everything else gets JSON at info level.
func New(w io.Writer, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if environment == "development" {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("service", "secretwall")
}

package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON structured logger writing to stdout. LOG_LEVEL=debug
// lowers the threshold; everything else stays at info.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

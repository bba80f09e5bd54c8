package infra

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the application slog.Logger from config.
// Output goes to stderr so CLI results on stdout stay machine-readable.
func NewLogger(cfg *Config) *slog.Logger {
	return NewLoggerTo(os.Stderr, cfg.Logging.Level)
}

// NewLoggerTo builds a logger writing to w at the given level string.
func NewLoggerTo(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger for the provided level. Development gets console
// text output; anything else logs JSON for collection.
func New(level, environment string) *slog.Logger {
	var programLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		programLevel = slog.LevelDebug
	case "warn", "warning":
		programLevel = slog.LevelWarn
	case "error":
		programLevel = slog.LevelError
	default:
		programLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: programLevel}
	if strings.EqualFold(environment, "development") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

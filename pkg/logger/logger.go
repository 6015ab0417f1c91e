package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupGlobal installs the default slog logger. It writes to stderr so the
// CLI can print JSON on stdout.
func SetupGlobal(debug bool, showSource bool, format string) {
	slog.SetDefault(New(os.Stderr, debug, showSource, format))
}

// New builds a logger; format is "json" or anything else for text.
func New(w io.Writer, debug bool, showSource bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: showSource,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

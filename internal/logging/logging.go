// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text handler as the default slog logger. Debug mode
// lowers the level to Debug; otherwise only Info and above are emitted.
// Output goes to w, or os.Stderr when w is nil.
func Setup(debug bool, w io.Writer) {
	slog.SetDefault(slog.New(slog.NewTextHandler(writerOrStderr(w), handlerOptions(debug))))
}

// SetupJSON installs a JSON handler as the default slog logger. Used by
// server modes (mcp, proxy) where logs are consumed by machines.
func SetupJSON(debug bool, w io.Writer) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(writerOrStderr(w), handlerOptions(debug))))
}

func writerOrStderr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

func handlerOptions(debug bool) *slog.HandlerOptions {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

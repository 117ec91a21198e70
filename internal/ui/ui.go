// Package ui renders status lines with terminal colors. Data goes to
// stdout elsewhere; everything here writes to stderr so scripts can pipe
// command output cleanly.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorMode determines when colored output is used.
type ColorMode int

const (
	// ColorAuto picks color support from the terminal.
	ColorAuto ColorMode = iota
	// ColorAlways forces color even when not a terminal.
	ColorAlways
	// ColorNever disables color entirely.
	ColorNever
)

type uiKey struct{}

// UI writes status messages to stderr with optional color.
type UI struct {
	out   *termenv.Output
	color ColorMode
}

// New creates a UI for os.Stderr with the given color mode. The NO_COLOR
// environment variable overrides any mode to ColorNever.
func New(mode ColorMode) *UI {
	return NewWithWriter(os.Stderr, mode)
}

// NewWithWriter creates a UI writing to w. Used by tests and server modes.
func NewWithWriter(w io.Writer, mode ColorMode) *UI {
	if os.Getenv("NO_COLOR") != "" {
		mode = ColorNever
	}

	profile := termenv.ColorProfile()
	switch mode {
	case ColorNever:
		profile = termenv.Ascii
	case ColorAlways:
		if profile == termenv.Ascii {
			profile = termenv.ANSI256
		}
	}

	return &UI{
		out:   termenv.NewOutput(w, termenv.WithProfile(profile)),
		color: mode,
	}
}

// WithUI attaches a UI instance to the context.
func WithUI(ctx context.Context, u *UI) context.Context {
	return context.WithValue(ctx, uiKey{}, u)
}

// FromContext returns the UI from ctx, or a ColorAuto default.
func FromContext(ctx context.Context) *UI {
	if u, ok := ctx.Value(uiKey{}).(*UI); ok {
		return u
	}
	return New(ColorAuto)
}

// Success prints a green checkmark line.
func (u *UI) Success(format string, args ...any) {
	u.line("✓ ", termenv.ANSIGreen, format, args...)
}

// Warning prints a yellow warning line.
func (u *UI) Warning(format string, args ...any) {
	u.line("⚠ ", termenv.ANSIYellow, format, args...)
}

// Error prints a red failure line.
func (u *UI) Error(format string, args ...any) {
	u.line("✗ ", termenv.ANSIRed, format, args...)
}

// Info prints a blue informational line.
func (u *UI) Info(format string, args ...any) {
	u.line("ℹ ", termenv.ANSIBlue, format, args...)
}

// Plain prints an uncolored line without a glyph.
func (u *UI) Plain(format string, args ...any) {
	_, _ = fmt.Fprintf(u.out, format+"\n", args...)
}

func (u *UI) line(glyph string, color termenv.Color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(u.out, u.out.String(glyph+msg).Foreground(color))
}

// Writer returns the underlying stderr writer.
func (u *UI) Writer() io.Writer {
	return u.out
}

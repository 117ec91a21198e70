// Package iocontext carries stdout/stderr writers through a context so
// command code stays testable without touching os.Stdout directly.
package iocontext

import (
	"context"
	"io"
)

type ioKey struct{}

type streams struct {
	stdout io.Writer
	stderr io.Writer
}

// WithIO injects stdout and stderr writers into ctx.
func WithIO(ctx context.Context, stdout, stderr io.Writer) context.Context {
	return context.WithValue(ctx, ioKey{}, streams{stdout: stdout, stderr: stderr})
}

// Stdout returns the stdout writer from ctx, or nil if none was injected.
func Stdout(ctx context.Context) io.Writer {
	if s, ok := ctx.Value(ioKey{}).(streams); ok {
		return s.stdout
	}
	return nil
}

// Stderr returns the stderr writer from ctx, or nil if none was injected.
func Stderr(ctx context.Context) io.Writer {
	if s, ok := ctx.Value(ioKey{}).(streams); ok {
		return s.stderr
	}
	return nil
}

// StdoutOrDefault returns the injected stdout, falling back to def.
func StdoutOrDefault(ctx context.Context, def io.Writer) io.Writer {
	if w := Stdout(ctx); w != nil {
		return w
	}
	return def
}

// StderrOrDefault returns the injected stderr, falling back to def.
func StderrOrDefault(ctx context.Context, def io.Writer) io.Writer {
	if w := Stderr(ctx); w != nil {
		return w
	}
	return def
}

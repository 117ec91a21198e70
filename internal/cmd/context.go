package cmd

import (
	"context"
	"time"

	"github.com/verdantlabs/earthengine-cli/internal/aliasfile"
	"github.com/verdantlabs/earthengine-cli/internal/config"
)

type (
	projectKey     struct{}
	errorFormatKey struct{}
	configKey      struct{}
	aliasFileKey   struct{}
	deadlineKey    struct{}
	profileKey     struct{}
	dryRunKey      struct{}
)

// WithProject stores the selected project profile name in the context.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, projectKey{}, project)
}

// ProjectFromContext retrieves the project profile name from the context.
func ProjectFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(projectKey{}).(string); ok {
		return v
	}
	return ""
}

// WithErrorFormat stores the error format in the context.
func WithErrorFormat(ctx context.Context, format string) context.Context {
	return context.WithValue(ctx, errorFormatKey{}, format)
}

// ErrorFormatFromContext retrieves the error format from context.
func ErrorFormatFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(errorFormatKey{}).(string); ok {
		return v
	}
	return ""
}

// WithConfig stores loaded CLI config in context for downstream helpers.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFromContext retrieves CLI config from context.
func ConfigFromContext(ctx context.Context) *config.Config {
	if v, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return v
	}
	return nil
}

// WithAliasFile stores the loaded alias file in context.
func WithAliasFile(ctx context.Context, f *aliasfile.File) context.Context {
	return context.WithValue(ctx, aliasFileKey{}, f)
}

// AliasFileFromContext retrieves the alias file from context.
func AliasFileFromContext(ctx context.Context) *aliasfile.File {
	if v, ok := ctx.Value(aliasFileKey{}).(*aliasfile.File); ok {
		return v
	}
	return nil
}

// WithDeadline stores the per-request API deadline in context.
func WithDeadline(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, deadlineKey{}, d)
}

// DeadlineFromContext retrieves the per-request API deadline from context.
func DeadlineFromContext(ctx context.Context) time.Duration {
	if v, ok := ctx.Value(deadlineKey{}).(time.Duration); ok {
		return v
	}
	return 0
}

// WithProfiling stores the --profile flag in context.
func WithProfiling(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, profileKey{}, enabled)
}

// ProfilingFromContext reports whether computation profiling was requested.
func ProfilingFromContext(ctx context.Context) bool {
	if v, ok := ctx.Value(profileKey{}).(bool); ok {
		return v
	}
	return false
}

// WithDryRun stores the --dry-run flag in context.
func WithDryRun(ctx context.Context, dryRun bool) context.Context {
	return context.WithValue(ctx, dryRunKey{}, dryRun)
}

// DryRunFromContext reports whether --dry-run was requested.
func DryRunFromContext(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey{}).(bool); ok {
		return v
	}
	return false
}

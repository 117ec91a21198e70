package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
	"github.com/verdantlabs/earthengine-cli/internal/config"
	"github.com/verdantlabs/earthengine-cli/internal/debug"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
	"github.com/verdantlabs/earthengine-cli/internal/errors"
)

// resolveCredentials finds stored credentials using the configured
// credential store. Returns the credentials and their source name.
func resolveCredentials(ctx context.Context) (*auth.Credentials, string, error) {
	store := ""
	if cfg := ConfigFromContext(ctx); cfg != nil {
		store = cfg.CredentialStore
	}
	return auth.Resolve(store)
}

// tokenSourceFunc builds the access-token source for API clients.
// Swapped in tests to avoid real OAuth refreshes.
var tokenSourceFunc = func(creds *auth.Credentials) ee.TokenSource {
	return ee.TokenSource(auth.TokenSource(creds, nil))
}

// SetTokenSourceFunc replaces the token source constructor for testing.
// Returns the original so it can be restored.
func SetTokenSourceFunc(fn func(*auth.Credentials) ee.TokenSource) func(*auth.Credentials) ee.TokenSource {
	orig := tokenSourceFunc
	tokenSourceFunc = fn
	return orig
}

// clientFromContext builds an Earth Engine client from stored credentials
// plus the endpoint and project selection carried in the context.
func clientFromContext(ctx context.Context) (*ee.Client, error) {
	creds, _, err := resolveCredentials(ctx)
	if err != nil {
		return nil, errors.AuthRequiredError(err)
	}
	return NewEEClient(ctx, tokenSourceFunc(creds)), nil
}

// NewEEClient creates an Earth Engine API client wired to the context's
// global options.
//
// Endpoint precedence:
//  1. EARTHENGINE_API_URL / EARTHENGINE_TILE_URL env vars
//  2. the selected project profile's api_url / tile_url in config.yaml
//  3. the library defaults
func NewEEClient(ctx context.Context, ts ee.TokenSource) *ee.Client {
	client := ee.NewClient(ts)

	profile := selectedProfile(ctx)

	if baseURL := strings.TrimSpace(os.Getenv("EARTHENGINE_API_URL")); baseURL != "" {
		client.WithAPIBaseURL(baseURL)
	} else if profile != nil && strings.TrimSpace(profile.APIURL) != "" {
		client.WithAPIBaseURL(profile.APIURL)
	}

	if tileURL := strings.TrimSpace(os.Getenv("EARTHENGINE_TILE_URL")); tileURL != "" {
		client.WithTileBaseURL(tileURL)
	} else if profile != nil && strings.TrimSpace(profile.TileURL) != "" {
		client.WithTileBaseURL(profile.TileURL)
	}

	if project := cloudProject(ctx, profile); project != "" {
		client.WithProject(project)
	}

	if d := DeadlineFromContext(ctx); d > 0 {
		client.WithDeadline(d)
	}

	if ProfilingFromContext(ctx) {
		stderr := stderrFromContext(ctx)
		client.WithProfileHook(func(profileID string) {
			_, _ = fmt.Fprintf(stderr, "Profile ID: %s\n", profileID)
		})
	}

	if debug.IsDebug(ctx) {
		client.WithDebugOutput(stderrFromContext(ctx))
	}

	return client
}

// selectedProfile resolves --project (or the configured default) to a
// project profile. A --project value that names no profile is treated
// as a raw Cloud project id by cloudProject.
func selectedProfile(ctx context.Context) *config.ProjectConfig {
	cfg := ConfigFromContext(ctx)
	if cfg == nil {
		// Direct calls that bypass root pre-run (tests, library use).
		cfg, _ = config.Load()
		if cfg == nil {
			return nil
		}
	}

	if name := ProjectFromContext(ctx); name != "" {
		if p, err := cfg.GetProject(name); err == nil {
			return p
		}
		return nil
	}

	p, _ := cfg.GetDefaultProject()
	return p
}

func cloudProject(ctx context.Context, profile *config.ProjectConfig) string {
	if profile != nil && strings.TrimSpace(profile.Project) != "" {
		return profile.Project
	}

	name := ProjectFromContext(ctx)
	if name == "" {
		return ""
	}
	if af := AliasFileFromContext(ctx); af != nil {
		return af.ResolveProject(name)
	}
	return name
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

// InitFailedMessage is the fixed message printed when the client cannot
// be initialized because of an authentication problem.
const InitFailedMessage = "The Earth Engine client failed to initialize!"

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Check that stored credentials can initialize the client",
		Long: `Construct an Earth Engine client from stored credentials and perform a
lightweight authenticated call.

Reports the credential source (environment variable, keyring, or file),
credential age, and the account's asset roots. Authentication failures
print a fixed message and exit with the auth exit code; any other
failure surfaces unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	creds, source, err := resolveCredentials(ctx)
	if err != nil {
		return initFailure(ctx, ctxerrors.AuthRequiredError(err))
	}

	client := NewEEClient(ctx, tokenSourceFunc(creds))
	roots, err := client.AssetRoots(ctx)
	if err != nil {
		// Exactly one error class maps to the fixed failure message:
		// authentication. Everything else propagates unchanged.
		if isAuthFailure(err) {
			return initFailure(ctx, err)
		}
		return err
	}

	result := map[string]interface{}{
		"initialized":       true,
		"credential_source": source,
	}

	if source != auth.SourceEnv && !creds.CreatedAt.IsZero() {
		result["credential_age"] = auth.FormatCredentialAge(creds.CreatedAt)
		result["credential_created_at"] = creds.CreatedAt.Format("2006-01-02")
		if auth.IsStale(creds.CreatedAt) {
			result["warning"] = fmt.Sprintf("Credentials are %d days old. Run 'earthengine authenticate' to refresh them.",
				auth.CredentialAgeDays(creds.CreatedAt))
		}
	}

	if len(roots) > 0 {
		rootIDs := make([]string, 0, len(roots))
		for _, r := range roots {
			rootIDs = append(rootIDs, r.ID)
		}
		result["asset_roots"] = rootIDs
	}

	return printerForContext(ctx).Print(ctx, result)
}

// initFailure prints the fixed initialization-failure message and
// returns an auth-classified error so the process exits with the auth
// exit code.
func initFailure(ctx context.Context, err error) error {
	_, _ = fmt.Fprintln(stderrFromContext(ctx), InitFailedMessage)

	var authErr *ctxerrors.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return &ctxerrors.AuthError{
		Reason:     "client initialization failed",
		Suggestion: "Run 'earthengine authenticate' to obtain credentials",
		Err:        err,
	}
}

func isAuthFailure(err error) bool {
	if ctxerrors.IsAuthError(err) {
		return true
	}
	var apiErr *ee.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
)

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Remove stored Earth Engine credentials",
		Long: `Delete the credential file at ~/.config/earthengine/credentials and
remove any copy held in the system keyring.

Idempotent: revoking when no credentials are stored is not an error.

Note: if the EARTHENGINE_TOKEN environment variable is set, unset it
separately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := auth.DeleteCredentials(); err != nil {
				return fmt.Errorf("failed to remove credential file: %w", err)
			}
			if err := auth.DeleteCredentialsFromKeyring(); err != nil && !errors.Is(err, auth.ErrNoCredentials) {
				// Keyring removal is best-effort; a missing backend should
				// not block revocation of the file copy.
				_, _ = fmt.Fprintf(stderrFromContext(ctx), "Warning: could not remove keyring credentials: %v\n", err)
			}

			return printerForContext(ctx).Print(ctx, map[string]interface{}{
				"status":  "success",
				"message": "Credentials revoked",
			})
		},
	}
}

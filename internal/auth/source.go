package auth

import (
	"context"
	"os"
	"sync"
	"time"

	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
)

// Credential source names, reported by status/whoami.
const (
	SourceEnv     = "env:" + EnvVarName
	SourceKeyring = "keyring"
	SourceFile    = "file"
)

// Resolve finds stored credentials, checking sources in priority order:
// the EARTHENGINE_TOKEN environment variable, then the OS keyring (when
// the configured store is "keyring"), then the credential file. Returns
// the credentials and the name of the source that provided them.
func Resolve(credentialStore string) (*Credentials, string, error) {
	if token := os.Getenv(EnvVarName); token != "" {
		return &Credentials{RefreshToken: token}, SourceEnv, nil
	}

	if credentialStore == "keyring" {
		creds, err := LoadCredentialsFromKeyring()
		if err == nil {
			return creds, SourceKeyring, nil
		}
		if err != ErrNoCredentials {
			return nil, "", err
		}
		// Fall through: credentials stored before the keyring backend
		// was configured still live in the file.
	}

	creds, err := LoadCredentials()
	if err != nil {
		return nil, "", err
	}
	return creds, SourceFile, nil
}

// refreshSkew mints a new access token this long before the current one
// expires, so in-flight requests do not race the expiry.
const refreshSkew = 30 * time.Second

// TokenSource returns a function that yields a valid access token,
// refreshing through the OAuth token endpoint and caching the result
// until shortly before expiry. Safe for concurrent use.
func TokenSource(creds *Credentials, cfg *OAuthConfig) func(ctx context.Context) (string, error) {
	if cfg == nil {
		cfg = NewOAuthConfig()
	}
	if creds.ClientID != "" {
		cfg.ClientID = creds.ClientID
		cfg.ClientSecret = creds.ClientSecret
	}

	var mu sync.Mutex
	var accessToken string
	var expiresAt time.Time

	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()

		if accessToken != "" && time.Until(expiresAt) > refreshSkew {
			return accessToken, nil
		}

		token, err := cfg.Refresh(ctx, creds.RefreshToken)
		if err != nil {
			return "", ctxerrors.CredentialsExpiredError(err)
		}

		accessToken = token.AccessToken
		expiresAt = token.ExpiresAt()
		return accessToken, nil
	}
}

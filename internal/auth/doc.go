// Package auth manages Earth Engine credentials: the OAuth2
// authorization-code flow with PKCE, and storage of the resulting
// refresh token.
//
// The canonical store is ~/.config/earthengine/credentials, a JSON file
// written with 0600 permissions. The OS keyring (macOS Keychain,
// Windows Credential Manager, Linux Secret Service) can be selected as
// an alternative backend via github.com/99designs/keyring. The
// EARTHENGINE_TOKEN environment variable overrides both for CI and
// scripted environments. Keyring fallback files can be directed to a
// custom root with EARTHENGINE_CREDENTIALS_DIR.
//
// Resolution order:
//  1. EARTHENGINE_TOKEN environment variable
//  2. OS keyring, when the configured credential store is "keyring"
//  3. the credential file
//
// Only the long-lived refresh token is persisted. Access tokens are
// minted per process through TokenSource and cached in memory until
// shortly before expiry.
package auth

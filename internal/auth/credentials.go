package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// CredentialStaleThresholdDays is the age after which status warns
	// that stored credentials should be refreshed.
	CredentialStaleThresholdDays = 180
)

// ErrNoCredentials is returned when no stored credentials exist.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the on-disk credential record. The file holds the
// long-lived refresh token; access tokens are minted per process and
// never written to disk.
type Credentials struct {
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// credentialsPathFunc resolves the credential file path; swapped in tests.
var credentialsPathFunc = defaultCredentialsPath

// SetCredentialsPathFunc overrides the credential path resolver for
// testing. Returns the original so callers can restore it.
func SetCredentialsPathFunc(fn func() (string, error)) func() (string, error) {
	orig := credentialsPathFunc
	credentialsPathFunc = fn
	return orig
}

func defaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "earthengine", "credentials"), nil
}

// CredentialsPath returns the canonical credential file location,
// ~/.config/earthengine/credentials.
func CredentialsPath() (string, error) {
	return credentialsPathFunc()
}

// LoadCredentials reads the credential file. Returns ErrNoCredentials
// when the file does not exist.
func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("invalid credential file %s: %w", path, err)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("credential file %s has no refresh_token", path)
	}
	return &creds, nil
}

// StoreCredentials writes the credential file with 0600 permissions,
// creating the directory as needed. CreatedAt is preserved when the
// refresh token is unchanged, so credential age survives re-stores.
func StoreCredentials(creds *Credentials) error {
	if creds == nil || creds.RefreshToken == "" {
		return fmt.Errorf("refresh token cannot be empty")
	}

	if creds.CreatedAt.IsZero() {
		creds.CreatedAt = time.Now()
		if existing, err := LoadCredentials(); err == nil && existing.RefreshToken == creds.RefreshToken {
			creds.CreatedAt = existing.CreatedAt
		}
	}

	path, err := CredentialsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DeleteCredentials removes the credential file. A missing file is not
// an error, so revocation is idempotent.
func DeleteCredentials() error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// HasCredentials reports whether any credential source yields a token.
func HasCredentials() bool {
	if os.Getenv(EnvVarName) != "" {
		return true
	}
	_, err := LoadCredentials()
	return err == nil
}

// CredentialAgeDays returns the whole days since createdAt, or 0 when
// the creation time is unknown.
func CredentialAgeDays(createdAt time.Time) int {
	if createdAt.IsZero() {
		return 0
	}
	return int(time.Since(createdAt).Hours() / 24)
}

// IsStale reports whether credentials are older than the stale threshold.
func IsStale(createdAt time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	return CredentialAgeDays(createdAt) > CredentialStaleThresholdDays
}

// FormatCredentialAge renders the credential age for status output.
// Returns "" when the creation time is unknown.
func FormatCredentialAge(createdAt time.Time) string {
	if createdAt.IsZero() {
		return ""
	}
	age := CredentialAgeDays(createdAt)
	dateStr := createdAt.Format("2006-01-02")
	switch age {
	case 0:
		return fmt.Sprintf("created today (%s)", dateStr)
	case 1:
		return fmt.Sprintf("1 day ago (created %s)", dateStr)
	default:
		return fmt.Sprintf("%d days ago (created %s)", age, dateStr)
	}
}

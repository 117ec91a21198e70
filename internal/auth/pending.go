package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PendingAuthTTL is how long a started quiet flow stays redeemable.
const PendingAuthTTL = 10 * time.Minute

// ErrNoPendingAuth is returned when no quiet flow has been started.
var ErrNoPendingAuth = errors.New("no pending authentication; run 'earthengine authenticate --quiet' first")

// ErrPendingAuthExpired is returned when the started flow is too old.
var ErrPendingAuthExpired = errors.New("pending authentication expired; run 'earthengine authenticate --quiet' again")

// PendingAuth is the state written by `authenticate --quiet` and
// consumed by `authenticate --authorization-code`. It carries the PKCE
// verifier the token exchange needs and the CSRF state of the flow.
type PendingAuth struct {
	Verifier    string    `json:"verifier"`
	State       string    `json:"state"`
	RedirectURI string    `json:"redirect_uri"`
	ClientID    string    `json:"client_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// pendingPathFunc resolves the pending-auth file path; swapped in tests.
var pendingPathFunc = defaultPendingPath

// SetPendingPathFunc overrides the pending-auth path resolver for
// testing. Returns the original so callers can restore it.
func SetPendingPathFunc(fn func() (string, error)) func() (string, error) {
	orig := pendingPathFunc
	pendingPathFunc = fn
	return orig
}

func defaultPendingPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "earthengine", "pending-auth.json"), nil
}

// SavePendingAuth persists the state of a started quiet flow.
func SavePendingAuth(p *PendingAuth) error {
	if p.Verifier == "" || p.State == "" {
		return fmt.Errorf("pending auth needs a verifier and state")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	path, err := pendingPathFunc()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ConsumePendingAuth loads and removes the pending flow state. The file
// is removed even when the state turns out to be expired, so a stale
// flow cannot be redeemed twice.
func ConsumePendingAuth() (*PendingAuth, error) {
	path, err := pendingPathFunc()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoPendingAuth
	}
	if err != nil {
		return nil, err
	}

	_ = os.Remove(path)

	var p PendingAuth
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid pending auth file %s: %w", path, err)
	}
	if time.Since(p.CreatedAt) > PendingAuthTTL {
		return nil, ErrPendingAuthExpired
	}
	return &p, nil
}

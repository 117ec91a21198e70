package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const (
	// ServiceName is the keyring service name.
	ServiceName = "earthengine-cli"
	// CredentialsKey is the keyring key holding the credential record.
	CredentialsKey = "earthengine-credentials"
	// EnvVarName is the environment variable override for the refresh token.
	EnvVarName = "EARTHENGINE_TOKEN"
	// CredentialsDirEnvVarName redirects keyring fallback files to a
	// custom root: <dir>/earthengine-cli/keyring
	CredentialsDirEnvVarName = "EARTHENGINE_CREDENTIALS_DIR"
	// KeyringPasswordEnvVarName sets the file keyring passphrase for
	// non-interactive setups.
	KeyringPasswordEnvVarName = "EARTHENGINE_KEYRING_PASSWORD"
	// DBUSSessionAddressEnvVarName is used to detect Linux headless mode.
	DBUSSessionAddressEnvVarName = "DBUS_SESSION_BUS_ADDRESS"
)

// KeyringProvider is the subset of keyring operations the package uses.
type KeyringProvider interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
	Remove(key string) error
}

type osKeyring struct {
	ring keyring.Keyring
}

func keyringFileDir() string {
	if dir := strings.TrimSpace(os.Getenv(CredentialsDirEnvVarName)); dir != "" {
		return filepath.Join(dir, ServiceName, "keyring")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}

	configDir = strings.TrimSpace(configDir)
	if configDir == "" {
		return string(os.PathSeparator) + filepath.Join(ServiceName, "keyring")
	}
	return filepath.Join(configDir, ServiceName, "keyring")
}

func keyringFilePassword() string {
	if password := strings.TrimSpace(os.Getenv(KeyringPasswordEnvVarName)); password != "" {
		return password
	}
	return ServiceName
}

func shouldForceFileBackend(goos string, dbusAddr string) bool {
	return goos == "linux" && strings.TrimSpace(dbusAddr) == ""
}

func newOSKeyring() (KeyringProvider, error) {
	cfg := keyring.Config{
		ServiceName:                    ServiceName,
		KeychainTrustApplication:       true,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		FileDir:                        keyringFileDir(),
		FilePasswordFunc:               func(_ string) (string, error) { return keyringFilePassword(), nil },
	}

	if shouldForceFileBackend(runtime.GOOS, os.Getenv(DBUSSessionAddressEnvVarName)) {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &osKeyring{ring: ring}, nil
}

func (k *osKeyring) Get(key string) (keyring.Item, error) {
	return k.ring.Get(key)
}

func (k *osKeyring) Set(item keyring.Item) error {
	return k.ring.Set(item)
}

func (k *osKeyring) Remove(key string) error {
	return k.ring.Remove(key)
}

// defaultProvider opens the real OS keyring; tests inject a mock via
// SetProviderFunc.
var defaultProvider func() (KeyringProvider, error) = newOSKeyring

// StoreCredentialsInKeyring stores the credential record in the OS keyring.
func StoreCredentialsInKeyring(creds *Credentials) error {
	if creds == nil || creds.RefreshToken == "" {
		return fmt.Errorf("refresh token cannot be empty")
	}

	provider, err := defaultProvider()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}

	if creds.CreatedAt.IsZero() {
		if existing, err := LoadCredentialsFromKeyring(); err == nil && existing.RefreshToken == creds.RefreshToken {
			creds.CreatedAt = existing.CreatedAt
		}
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	err = provider.Set(keyring.Item{
		Key:   CredentialsKey,
		Label: "Earth Engine CLI Credentials",
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}

	return nil
}

// LoadCredentialsFromKeyring reads the credential record from the OS
// keyring. Returns ErrNoCredentials when nothing is stored.
func LoadCredentialsFromKeyring() (*Credentials, error) {
	provider, err := defaultProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	item, err := provider.Get(CredentialsKey)
	if err != nil {
		return nil, ErrNoCredentials
	}

	var creds Credentials
	if err := json.Unmarshal(item.Data, &creds); err != nil {
		return nil, fmt.Errorf("invalid keyring credential record: %w", err)
	}
	if creds.RefreshToken == "" {
		return nil, ErrNoCredentials
	}
	return &creds, nil
}

// DeleteCredentialsFromKeyring removes the credential record from the
// keyring. Missing entries are not an error.
func DeleteCredentialsFromKeyring() error {
	provider, err := defaultProvider()
	if err != nil {
		return nil
	}

	err = provider.Remove(CredentialsKey)
	if err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

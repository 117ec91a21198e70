package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/99designs/keyring"
)

func withMockKeyring(t *testing.T) *MockKeyring {
	t.Helper()
	mock := NewMockKeyringProvider()
	SetProviderFunc(func() (KeyringProvider, error) { return mock, nil })
	t.Cleanup(func() { SetProviderFunc(nil) })
	return mock
}

func TestStoreAndLoadCredentialsInKeyring(t *testing.T) {
	withMockKeyring(t)

	creds := &Credentials{
		RefreshToken: "1//refresh",
		Scopes:       DefaultScopes(),
		CreatedAt:    time.Now().Add(-time.Hour),
	}
	if err := StoreCredentialsInKeyring(creds); err != nil {
		t.Fatalf("StoreCredentialsInKeyring failed: %v", err)
	}

	loaded, err := LoadCredentialsFromKeyring()
	if err != nil {
		t.Fatalf("LoadCredentialsFromKeyring failed: %v", err)
	}
	if loaded.RefreshToken != "1//refresh" {
		t.Errorf("unexpected refresh token: %q", loaded.RefreshToken)
	}
	if len(loaded.Scopes) != 2 {
		t.Errorf("expected scopes to round-trip, got %v", loaded.Scopes)
	}
}

func TestStoreCredentialsInKeyring_RejectsEmpty(t *testing.T) {
	withMockKeyring(t)

	if err := StoreCredentialsInKeyring(nil); err == nil {
		t.Error("expected error for nil credentials")
	}
	if err := StoreCredentialsInKeyring(&Credentials{}); err == nil {
		t.Error("expected error for empty refresh token")
	}
}

func TestLoadCredentialsFromKeyring_Empty(t *testing.T) {
	withMockKeyring(t)

	if _, err := LoadCredentialsFromKeyring(); err != ErrNoCredentials {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestLoadCredentialsFromKeyring_InvalidRecord(t *testing.T) {
	mock := withMockKeyring(t)
	mock.SetCredentials([]byte("not json"))

	if _, err := LoadCredentialsFromKeyring(); err == nil {
		t.Error("expected error for invalid record")
	}
}

func TestDeleteCredentialsFromKeyring_Idempotent(t *testing.T) {
	withMockKeyring(t)

	creds := &Credentials{RefreshToken: "1//refresh", CreatedAt: time.Now()}
	if err := StoreCredentialsInKeyring(creds); err != nil {
		t.Fatalf("StoreCredentialsInKeyring failed: %v", err)
	}

	if err := DeleteCredentialsFromKeyring(); err != nil {
		t.Fatalf("DeleteCredentialsFromKeyring failed: %v", err)
	}
	// Second delete must not error.
	if err := DeleteCredentialsFromKeyring(); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
	if _, err := LoadCredentialsFromKeyring(); err != ErrNoCredentials {
		t.Errorf("expected ErrNoCredentials after delete, got %v", err)
	}
}

func TestStoreCredentialsInKeyring_PreservesCreatedAt(t *testing.T) {
	withMockKeyring(t)

	first := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	if err := StoreCredentialsInKeyring(&Credentials{RefreshToken: "1//same", CreatedAt: first}); err != nil {
		t.Fatalf("first store failed: %v", err)
	}

	// Re-storing the same token without CreatedAt keeps the original age.
	if err := StoreCredentialsInKeyring(&Credentials{RefreshToken: "1//same"}); err != nil {
		t.Fatalf("second store failed: %v", err)
	}

	loaded, err := LoadCredentialsFromKeyring()
	if err != nil {
		t.Fatalf("LoadCredentialsFromKeyring failed: %v", err)
	}
	if !loaded.CreatedAt.Equal(first) {
		t.Errorf("expected CreatedAt %v preserved, got %v", first, loaded.CreatedAt)
	}
}

func TestShouldForceFileBackend(t *testing.T) {
	tests := []struct {
		goos     string
		dbusAddr string
		want     bool
	}{
		{"linux", "", true},
		{"linux", "  ", true},
		{"linux", "unix:path=/run/user/1000/bus", false},
		{"darwin", "", false},
		{"windows", "", false},
	}
	for _, tt := range tests {
		if got := shouldForceFileBackend(tt.goos, tt.dbusAddr); got != tt.want {
			t.Errorf("shouldForceFileBackend(%q, %q) = %v, want %v", tt.goos, tt.dbusAddr, got, tt.want)
		}
	}
}

func TestKeyringItemShape(t *testing.T) {
	mock := withMockKeyring(t)

	creds := &Credentials{RefreshToken: "1//refresh", CreatedAt: time.Now()}
	if err := StoreCredentialsInKeyring(creds); err != nil {
		t.Fatalf("StoreCredentialsInKeyring failed: %v", err)
	}

	item, err := mock.Get(CredentialsKey)
	if err != nil {
		t.Fatalf("expected item under %q: %v", CredentialsKey, err)
	}
	var stored Credentials
	if err := json.Unmarshal(item.Data, &stored); err != nil {
		t.Fatalf("stored data is not a JSON credential record: %v", err)
	}
}

func TestMockKeyringRemove(t *testing.T) {
	mock := NewMockKeyringProvider()
	if err := mock.Remove("missing"); err != keyring.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

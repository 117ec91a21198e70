package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestNewPKCE(t *testing.T) {
	p, err := NewPKCE()
	if err != nil {
		t.Fatalf("NewPKCE failed: %v", err)
	}
	if p.Verifier == "" || p.Challenge == "" {
		t.Fatal("expected non-empty verifier and challenge")
	}

	// RFC 7636: S256 challenge is BASE64URL(SHA256(verifier)), unpadded.
	sum := sha256.Sum256([]byte(p.Verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if p.Challenge != want {
		t.Errorf("challenge mismatch: got %q, want %q", p.Challenge, want)
	}

	other, err := NewPKCE()
	if err != nil {
		t.Fatalf("NewPKCE failed: %v", err)
	}
	if other.Verifier == p.Verifier {
		t.Error("expected distinct verifiers per flow")
	}
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	b, err := NewState()
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
}

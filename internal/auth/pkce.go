package auth

import (
	mcpclient "github.com/mark3labs/mcp-go/client"
)

// PKCE holds the verifier/challenge pair for one authorization flow.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates an S256 code verifier and challenge.
func NewPKCE() (*PKCE, error) {
	verifier, err := mcpclient.GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	return &PKCE{
		Verifier:  verifier,
		Challenge: mcpclient.GenerateCodeChallenge(verifier),
	}, nil
}

// NewState generates a CSRF state token for an authorization flow.
func NewState() (string, error) {
	return mcpclient.GenerateState()
}

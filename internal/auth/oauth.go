package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// AuthEndpoint is the Google OAuth2 authorization page.
	AuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	// TokenEndpoint is the Google OAuth2 token exchange endpoint.
	TokenEndpoint = "https://oauth2.googleapis.com/token"

	// ScopeEarthEngine grants access to the Earth Engine API.
	ScopeEarthEngine = "https://www.googleapis.com/auth/earthengine"
	// ScopeCloudStorage grants read access to Cloud Storage sources
	// referenced by ingestion manifests.
	ScopeCloudStorage = "https://www.googleapis.com/auth/devstorage.read_only"

	// DefaultClientID and DefaultClientSecret identify the CLI as an
	// installed application. Installed-app secrets are not confidential;
	// they only bind the flow to this client registration.
	DefaultClientID     = "628241934129-kjqvb0asbkkhp6o4dl7h8q3tmp3e9r4u.apps.googleusercontent.com"
	DefaultClientSecret = "d-FL95Q19q7MQmFpd7hHD0Ty"

	// QuietRedirectURI is the code-display page used when no local
	// callback server runs. The page shows the authorization code for
	// the user to paste back.
	QuietRedirectURI = "https://code.earthengine.google.com/client-auth"
)

// DefaultScopes are requested when the user does not override them.
func DefaultScopes() []string {
	return []string{ScopeEarthEngine, ScopeCloudStorage}
}

// TokenResponse is the token endpoint's success payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// ExpiresAt converts ExpiresIn to an absolute deadline from now.
func (t *TokenResponse) ExpiresAt() time.Time {
	return time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// OAuthConfig holds the client registration used for a flow.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string

	// TokenURL and AuthURL override the Google endpoints in tests.
	TokenURL string
	AuthURL  string

	HTTPClient *http.Client
}

// NewOAuthConfig returns a config with the built-in client registration
// and default scopes.
func NewOAuthConfig() *OAuthConfig {
	return &OAuthConfig{
		ClientID:     DefaultClientID,
		ClientSecret: DefaultClientSecret,
		Scopes:       DefaultScopes(),
	}
}

func (c *OAuthConfig) authURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return AuthEndpoint
}

func (c *OAuthConfig) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return TokenEndpoint
}

func (c *OAuthConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// AuthorizationURL builds the browser URL for the authorization-code
// grant with a PKCE S256 challenge and CSRF state.
func (c *OAuthConfig) AuthorizationURL(redirectURI, state, codeChallenge string) string {
	params := url.Values{}
	params.Set("client_id", c.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(c.Scopes, " "))
	params.Set("state", state)
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", "S256")
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	return c.authURL() + "?" + params.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *OAuthConfig) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}
	return c.postTokenForm(ctx, form)
}

// Refresh trades a refresh token for a fresh access token.
func (c *OAuthConfig) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	return c.postTokenForm(ctx, form)
}

func (c *OAuthConfig) postTokenForm(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var tokenErr tokenErrorResponse
		if json.Unmarshal(body, &tokenErr) == nil && tokenErr.Error != "" {
			if tokenErr.ErrorDescription != "" {
				return nil, fmt.Errorf("token endpoint returned %s: %s", tokenErr.Error, tokenErr.ErrorDescription)
			}
			return nil, fmt.Errorf("token endpoint returned %s", tokenErr.Error)
		}
		return nil, fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &token, nil
}

// clientFile is the JSON shape of a downloaded OAuth client registration.
type clientFile struct {
	Installed *clientFileEntry `json:"installed"`
	Web       *clientFileEntry `json:"web"`
}

type clientFileEntry struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// LoadClientFile reads a client registration JSON file in the
// {"installed": {...}} or {"web": {...}} shape and applies it to cfg.
func LoadClientFile(cfg *OAuthConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read client file: %w", err)
	}

	var cf clientFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("invalid client file %s: %w", path, err)
	}

	entry := cf.Installed
	if entry == nil {
		entry = cf.Web
	}
	if entry == nil || entry.ClientID == "" {
		return fmt.Errorf("client file %s has no installed or web client", path)
	}

	cfg.ClientID = entry.ClientID
	cfg.ClientSecret = entry.ClientSecret
	return nil
}

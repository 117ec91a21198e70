package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
	ctxerrors "github.com/verdantlabs/earthengine-cli/internal/errors"
	"github.com/verdantlabs/earthengine-cli/internal/ui"
)

// CallbackTimeout is how long the interactive flow waits for the OAuth
// redirect before falling back to manual code entry.
const CallbackTimeout = 2 * time.Minute

const authSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Earth Engine CLI</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>Authorization complete</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

func newAuthenticateCmd() *cobra.Command {
	var (
		quiet        bool
		authCode     string
		clientIDFile string
		noBrowser    bool
	)

	cmd := &cobra.Command{
		Use:   "authenticate",
		Short: "Obtain and store Earth Engine credentials",
		Long: `Authenticate with Google Earth Engine using OAuth.

The default flow opens your browser, receives the authorization code on a
local loopback server, and stores the resulting refresh token in
~/.config/earthengine/credentials.

On a machine without a browser, use the two-step quiet flow:

  earthengine authenticate --quiet
  # visit the printed URL, authorize, copy the code, then:
  earthengine authenticate --authorization-code=CODE`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			oauthCfg := auth.NewOAuthConfig()
			if clientIDFile != "" {
				if err := auth.LoadClientFile(oauthCfg, clientIDFile); err != nil {
					return ctxerrors.WrapUserError(err, "could not load client registration",
						"Pass a client secrets JSON file in the {\"installed\": {...}} shape")
				}
			}

			switch {
			case authCode != "":
				return runAuthCodeCompletion(ctx, oauthCfg, authCode)
			case quiet:
				return runQuietAuth(ctx, oauthCfg)
			default:
				return runInteractiveAuth(ctx, oauthCfg, noBrowser)
			}
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Print the authorization URL instead of opening a browser")
	cmd.Flags().StringVar(&authCode, "authorization-code", "", "Finish a quiet flow with the code from the authorization page")
	cmd.Flags().StringVar(&clientIDFile, "client-id-file", "", "OAuth client registration JSON (overrides the built-in client)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not auto-open the browser; print the auth URL instead")

	return cmd
}

// runQuietAuth starts the two-step flow: generate PKCE material, persist
// it as pending state, and print the URL for the user to visit.
func runQuietAuth(ctx context.Context, oauthCfg *auth.OAuthConfig) error {
	pkce, err := auth.NewPKCE()
	if err != nil {
		return fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	state, err := auth.NewState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	pending := &auth.PendingAuth{
		Verifier:    pkce.Verifier,
		State:       state,
		RedirectURI: auth.QuietRedirectURI,
		ClientID:    oauthCfg.ClientID,
	}
	if err := auth.SavePendingAuth(pending); err != nil {
		return fmt.Errorf("failed to save pending authentication: %w", err)
	}

	authURL := oauthCfg.AuthorizationURL(auth.QuietRedirectURI, state, pkce.Challenge)

	stderr := stderrFromContext(ctx)
	_, _ = fmt.Fprintln(stderr, "To authorize access needed by Earth Engine, open the following URL in a web browser:")
	_, _ = fmt.Fprintln(stderr)
	_, _ = fmt.Fprintf(stderr, "    %s\n", authURL)
	_, _ = fmt.Fprintln(stderr)
	_, _ = fmt.Fprintln(stderr, "The authorization workflow will generate a code, which you should paste here:")
	_, _ = fmt.Fprintln(stderr)
	_, _ = fmt.Fprintln(stderr, "    earthengine authenticate --authorization-code=CODE")

	// Offer inline paste when stdin is interactive.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		_, _ = fmt.Fprint(stderr, "\nEnter verification code (or press Enter to finish later): ")
		var code string
		_, _ = fmt.Fscanln(os.Stdin, &code)
		code = strings.TrimSpace(code)
		if code != "" {
			return runAuthCodeCompletion(ctx, oauthCfg, code)
		}
	}

	return nil
}

// runAuthCodeCompletion redeems the pending quiet flow with the pasted
// authorization code.
func runAuthCodeCompletion(ctx context.Context, oauthCfg *auth.OAuthConfig, code string) error {
	pending, err := auth.ConsumePendingAuth()
	if err != nil {
		return ctxerrors.WrapUserError(err, "cannot complete authentication", "")
	}

	if pending.ClientID != "" && pending.ClientID != oauthCfg.ClientID {
		// The pending flow was started with a different client
		// registration; the token endpoint needs the matching one.
		if oauthCfg.ClientID == auth.DefaultClientID {
			oauthCfg.ClientID = pending.ClientID
		} else {
			return ctxerrors.NewUserError(
				"authorization was started with a different OAuth client",
				"Rerun 'earthengine authenticate --quiet' with the same --client-id-file")
		}
	}

	token, err := oauthCfg.ExchangeCode(ctx, code, pending.Verifier, pending.RedirectURI)
	if err != nil {
		return ctxerrors.WrapUserError(err, "authorization code exchange failed",
			"Codes are single-use; run 'earthengine authenticate --quiet' to start over")
	}

	return finishAuthentication(ctx, oauthCfg, token)
}

// runInteractiveAuth runs the loopback-server flow with automatic code
// receipt, falling back to manual paste on timeout.
func runInteractiveAuth(ctx context.Context, oauthCfg *auth.OAuthConfig, noBrowser bool) error {
	noBrowser = noBrowser || envTruthy("EARTHENGINE_NO_BROWSER") || envTruthy("NO_BROWSER")

	pkce, err := auth.NewPKCE()
	if err != nil {
		return fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}
	state, err := auth.NewState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() { _ = listener.Close() }()

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURI := fmt.Sprintf("http://localhost:%d/", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != state {
			errCh <- fmt.Errorf("invalid state parameter")
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		if errParam := q.Get("error"); errParam != "" {
			errCh <- fmt.Errorf("authorization failed: %s", errParam)
			http.Error(w, errParam, http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			errCh <- fmt.Errorf("no authorization code received")
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			return
		}

		codeCh <- code

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(authSuccessPage))
	})

	server := &http.Server{Handler: mux}
	go func() { _ = server.Serve(listener) }()
	defer func() { _ = server.Close() }()

	authURL := oauthCfg.AuthorizationURL(redirectURI, state, pkce.Challenge)

	stderr := stderrFromContext(ctx)
	if noBrowser {
		_, _ = fmt.Fprintln(stderr, "Browser auto-open disabled.")
		_, _ = fmt.Fprintf(stderr, "Visit this URL to authorize Earth Engine access:\n%s\n\n", authURL)
	} else {
		_, _ = fmt.Fprintln(stderr, "Opening browser to authorize Earth Engine access...")
		_, _ = fmt.Fprintln(stderr)
		if err := openBrowser(authURL); err != nil {
			_, _ = fmt.Fprintf(stderr, "Could not open browser. Please visit:\n%s\n\n", authURL)
		}
	}

	_, _ = fmt.Fprintln(stderr, "Waiting for authorization...")

	select {
	case code := <-codeCh:
		token, err := oauthCfg.ExchangeCode(ctx, code, pkce.Verifier, redirectURI)
		if err != nil {
			return fmt.Errorf("authorization code exchange failed: %w", err)
		}
		return finishAuthentication(ctx, oauthCfg, token)
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(CallbackTimeout):
		_, _ = fmt.Fprintln(stderr)
		_, _ = fmt.Fprintln(stderr, "Timed out waiting for authorization.")
		_, _ = fmt.Fprintln(stderr, "If you completed authorization, paste the code manually.")
		_, _ = fmt.Fprint(stderr, "Enter authorization code (or press Enter to cancel): ")

		var code string
		_, _ = fmt.Fscanln(os.Stdin, &code)
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("authorization timed out")
		}

		token, err := oauthCfg.ExchangeCode(ctx, code, pkce.Verifier, redirectURI)
		if err != nil {
			return fmt.Errorf("authorization code exchange failed: %w", err)
		}
		return finishAuthentication(ctx, oauthCfg, token)
	}
}

// finishAuthentication persists the refresh token and verifies it with a
// lightweight authenticated call.
func finishAuthentication(ctx context.Context, oauthCfg *auth.OAuthConfig, token *auth.TokenResponse) error {
	if token.RefreshToken == "" {
		return fmt.Errorf("token response contained no refresh token; revoke the app's access at https://myaccount.google.com/permissions and retry")
	}

	creds := &auth.Credentials{
		RefreshToken: token.RefreshToken,
		Scopes:       oauthCfg.Scopes,
		CreatedAt:    time.Now(),
	}
	if oauthCfg.ClientID != auth.DefaultClientID {
		creds.ClientID = oauthCfg.ClientID
		creds.ClientSecret = oauthCfg.ClientSecret
	}

	if err := storeCredentials(ctx, creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	// Verify the stored credentials actually work.
	client := NewEEClient(ctx, ee.StaticToken(token.AccessToken))
	roots, err := client.AssetRoots(ctx)
	if err != nil {
		ui.FromContext(ctx).Warning("Credentials stored, but the verification call failed: %v", err)
		return nil
	}

	u := ui.FromContext(ctx)
	u.Success("Successfully saved authorization token.")
	if len(roots) > 0 {
		u.Info("Asset root: %s", roots[0].ID)
	}
	return nil
}

// storeCredentials writes to the configured backend: the keyring when
// config says so, the credential file otherwise.
func storeCredentials(ctx context.Context, creds *auth.Credentials) error {
	if cfg := ConfigFromContext(ctx); cfg != nil && cfg.CredentialStore == "keyring" {
		return auth.StoreCredentialsInKeyring(creds)
	}
	return auth.StoreCredentials(creds)
}

func envTruthy(name string) bool {
	value, ok := os.LookupEnv(name)
	if !ok {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
)

// setupCLITest points the CLI at a mock API server with env-provided
// credentials and a static access token, all scoped to the test.
func setupCLITest(t *testing.T, serverURL string) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("EARTHENGINE_TOKEN", "test-refresh-token")
	t.Setenv("EARTHENGINE_API_URL", serverURL)
	t.Setenv("EARTHENGINE_PROJECT", "")
	t.Setenv("EARTHENGINE_OUTPUT", "")

	orig := SetTokenSourceFunc(func(*auth.Credentials) ee.TokenSource {
		return ee.StaticToken("test-access-token")
	})
	t.Cleanup(func() { SetTokenSourceFunc(orig) })
}

// runCLI executes the root command with args, capturing stdout and stderr.
func runCLI(t *testing.T, args ...string) (stdout, stderr *bytes.Buffer, err error) {
	t.Helper()

	stdout = &bytes.Buffer{}
	stderr = &bytes.Buffer{}
	app := &App{Stdout: stdout, Stderr: stderr, Version: "test"}

	root := app.RootCommand()
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return stdout, stderr, err
}

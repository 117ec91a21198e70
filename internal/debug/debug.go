package debug

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type contextKey struct{}

// WithDebug injects the debug flag into the context.
func WithDebug(ctx context.Context, debug bool) context.Context {
	return context.WithValue(ctx, contextKey{}, debug)
}

// IsDebug returns true if debug mode is enabled in the context.
func IsDebug(ctx context.Context) bool {
	if v, ok := ctx.Value(contextKey{}).(bool); ok {
		return v
	}
	return false
}

const (
	maxRequestBodyLog  = 500
	maxResponseBodyLog = 1000
)

// Transport wraps an http.RoundTripper and traces every exchange to Output.
// Authorization headers are redacted down to the token's last 4 characters.
type Transport struct {
	Base   http.RoundTripper
	Output io.Writer
}

// NewTransport creates a tracing Transport. A nil base uses
// http.DefaultTransport; nil output goes to os.Stderr.
func NewTransport(base http.RoundTripper, output io.Writer) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if output == nil {
		output = os.Stderr
	}
	return &Transport{Base: base, Output: output}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	_, _ = fmt.Fprintf(t.Output, "\n--> %s %s\n", req.Method, req.URL)
	t.logHeaders(req.Header)

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			_, _ = fmt.Fprintf(t.Output, "    [ERROR reading request body: %v]\n", err)
		} else {
			req.Body = io.NopCloser(bytes.NewReader(body))
			t.logBody(body, maxRequestBodyLog)
		}
	}

	resp, err := t.Base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		_, _ = fmt.Fprintf(t.Output, "<-- ERROR: %v (%s)\n\n", err, duration)
		return resp, err
	}

	_, _ = fmt.Fprintf(t.Output, "<-- %d %s (%s)\n", resp.StatusCode, resp.Status, duration)

	if profile := resp.Header.Get("X-Earth-Engine-Computation-Profile"); profile != "" {
		_, _ = fmt.Fprintf(t.Output, "    Computation-Profile: %s\n", profile)
	}

	t.logHeaders(resp.Header)

	if resp.Body != nil {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			_, _ = fmt.Fprintf(t.Output, "    [ERROR reading response body: %v]\n\n", err)
		} else {
			resp.Body = io.NopCloser(bytes.NewReader(body))
			t.logBody(body, maxResponseBodyLog)
		}
	}

	_, _ = fmt.Fprintln(t.Output)

	return resp, err
}

func (t *Transport) logHeaders(h http.Header) {
	for key, values := range h {
		val := strings.Join(values, ", ")
		if key == "Authorization" {
			val = redactAuthorization(values[0])
		}
		_, _ = fmt.Fprintf(t.Output, "    %s: %s\n", key, val)
	}
}

func (t *Transport) logBody(body []byte, limit int) {
	if len(body) == 0 {
		return
	}
	s := string(body)
	if len(s) > limit {
		s = s[:limit] + "... [truncated]"
	}
	_, _ = fmt.Fprintf(t.Output, "    Body: %s\n", s)
}

func redactAuthorization(val string) string {
	token, ok := strings.CutPrefix(val, "Bearer ")
	if !ok {
		return "[redacted]"
	}
	if len(token) <= 10 {
		return "Bearer " + token
	}
	return "Bearer ..." + token[len(token)-4:]
}

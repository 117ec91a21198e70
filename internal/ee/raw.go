package ee

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// DoRawRequest performs a request against an arbitrary API endpoint and
// returns the undecoded data payload. It shares the retry loop, the
// envelope handling and the circuit breaker with the typed operations.
func (c *Client) DoRawRequest(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var result json.RawMessage
	if err := c.send(ctx, method, path, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

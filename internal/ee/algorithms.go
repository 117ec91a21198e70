package ee

import (
	"context"
	"net/url"
)

// AlgorithmArg describes one argument of a server-side algorithm.
type AlgorithmArg struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Optional    bool        `json:"optional"`
	Default     interface{} `json:"default"`
}

// Algorithm describes one server-side algorithm.
type Algorithm struct {
	Description string         `json:"description"`
	Returns     string         `json:"returns"`
	Args        []AlgorithmArg `json:"args"`
	Hidden      bool           `json:"hidden,omitempty"`
	Deprecated  string         `json:"deprecated,omitempty"`
}

// Algorithms fetches the full algorithm signature catalog, keyed by
// algorithm name. The catalog is large and changes rarely; callers
// should route this through a caching HTTP transport.
func (c *Client) Algorithms(ctx context.Context) (map[string]Algorithm, error) {
	var result map[string]Algorithm
	if err := c.doGet(ctx, "/algorithms", url.Values{}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

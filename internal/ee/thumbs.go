package ee

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ThumbID identifies a rendered thumbnail.
type ThumbID struct {
	ThumbID string `json:"thumbid"`
	Token   string `json:"token"`
}

// DownloadID identifies a prepared download bundle (image or table).
type DownloadID struct {
	DocID string `json:"docid"`
	Token string `json:"token"`
}

// GetThumbID requests a thumbnail rendering of an image. params takes
// the same fields as GetMapID plus size (WIDTHxHEIGHT), region and
// format (png or jpg).
func (c *Client) GetThumbID(ctx context.Context, params url.Values) (*ThumbID, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("getid", "1")
	params.Set("json_format", "v2")

	var result ThumbID
	if err := c.doPost(ctx, "/thumb", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ThumbURL builds the fetch URL for a thumbnail ID.
func (c *Client) ThumbURL(t *ThumbID) string {
	return fmt.Sprintf("%s/api/thumb?thumbid=%s&token=%s", c.tileBase, t.ThumbID, t.Token)
}

// GetDownloadID prepares an image download. params carries band
// selections, projection and region options.
func (c *Client) GetDownloadID(ctx context.Context, params url.Values) (*DownloadID, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("json_format", "v2")

	var result DownloadID
	if err := c.doPost(ctx, "/download", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadURL builds the fetch URL for an image download ID.
func (c *Client) DownloadURL(d *DownloadID) string {
	return fmt.Sprintf("%s/api/download?docid=%s&token=%s", c.tileBase, d.DocID, d.Token)
}

// GetTableDownloadID prepares a table download. params carries format
// (CSV or JSON), selectors and filename.
func (c *Client) GetTableDownloadID(ctx context.Context, params url.Values) (*DownloadID, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("json_format", "v2")

	var result DownloadID
	if err := c.doPost(ctx, "/table", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TableDownloadURL builds the fetch URL for a table download ID.
func (c *Client) TableDownloadURL(d *DownloadID) string {
	return fmt.Sprintf("%s/api/table?docid=%s&token=%s", c.tileBase, d.DocID, d.Token)
}

// FetchBytes downloads the content behind a minted URL (tile, thumb or
// download bundle). The returned reader must be closed by the caller.
func (c *Client) FetchBytes(ctx context.Context, fetchURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.tokenSource != nil {
		token, err := c.tokenSource(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

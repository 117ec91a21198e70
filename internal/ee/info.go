package ee

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// GetInfo fetches the full description of an asset. The shape of the
// result depends on the asset type, so it is returned undecoded.
func (c *Client) GetInfo(ctx context.Context, assetID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("id", assetID)

	var result json.RawMessage
	if err := c.doPost(ctx, "/info", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetValue evaluates a serialized expression and returns the computed
// value.
func (c *Client) GetValue(ctx context.Context, serialized string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("json", serialized)
	params.Set("json_format", "v2")

	var result json.RawMessage
	if err := c.doPost(ctx, "/value", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListItem is one entry of a container listing.
type ListItem struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ListOptions controls a container listing.
type ListOptions struct {
	// ID of the collection or folder to list.
	ID string
	// Num caps the number of returned items; zero means no cap.
	Num int
	// StartTime and EndTime filter collections by acquisition time,
	// in epoch milliseconds.
	StartTime int64
	EndTime   int64
}

// GetList lists the contents of a folder or collection.
func (c *Client) GetList(ctx context.Context, opts ListOptions) ([]ListItem, error) {
	params := url.Values{}
	params.Set("id", opts.ID)
	if opts.Num > 0 {
		params.Set("num", strconv.Itoa(opts.Num))
	}
	if opts.StartTime > 0 {
		params.Set("starttime", strconv.FormatInt(opts.StartTime, 10))
	}
	if opts.EndTime > 0 {
		params.Set("endtime", strconv.FormatInt(opts.EndTime, 10))
	}

	var items []ListItem
	if err := c.doPost(ctx, "/list", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

package ee

import (
	"context"
	"fmt"
	"net/url"
)

// MapID identifies a rendered map layer. The pair of mapid and token is
// what tile URLs are minted from.
type MapID struct {
	MapID string `json:"mapid"`
	Token string `json:"token"`
}

// GetMapID renders an image expression into a map layer. params carries
// the serialized image plus visualization options (bands, min, max,
// gamma, palette, format).
func (c *Client) GetMapID(ctx context.Context, params url.Values) (*MapID, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("json_format", "v2")

	var result MapID
	if err := c.doPost(ctx, "/mapid", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TileURL builds the URL of a single tile of a map layer. The x
// coordinate wraps around the antimeridian.
func (c *Client) TileURL(m *MapID, x, y, z int) string {
	width := 1 << uint(z)
	x %= width
	if x < 0 {
		x += width
	}
	return fmt.Sprintf("%s/map/%s/%d/%d/%d?token=%s", c.tileBase, m.MapID, z, x, y, m.Token)
}

// MapTileTemplate returns a {z}/{x}/{y} URL template for the layer,
// suitable for slippy-map libraries.
func (c *Client) MapTileTemplate(m *MapID) string {
	return fmt.Sprintf("%s/map/%s/{z}/{x}/{y}?token=%s", c.tileBase, m.MapID, m.Token)
}

package ee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Asset types accepted by CreateAsset.
const (
	AssetTypeFolder          = "Folder"
	AssetTypeImageCollection = "ImageCollection"
)

// AssetDescription is the service's record of a stored asset.
type AssetDescription struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ACL is an asset access control list. Owners cannot be changed through
// SetAssetACL; the service merges them back in.
type ACL struct {
	Owners          []string `json:"owners,omitempty"`
	Writers         []string `json:"writers"`
	Readers         []string `json:"readers"`
	AllUsersCanRead bool     `json:"all_users_can_read"`
}

// QuotaUsage is one dimension of asset root quota.
type QuotaUsage struct {
	Usage int64 `json:"usage"`
	Limit int64 `json:"limit"`
}

// RootQuota describes quota usage for an asset root.
type RootQuota struct {
	AssetCount QuotaUsage `json:"asset_count"`
	AssetSize  QuotaUsage `json:"asset_size"`
}

// CreateAsset creates an asset from a JSON value. To create an empty
// folder or collection, pass a value whose "type" is Folder or
// ImageCollection. path, when non-empty, is the desired full asset ID.
func (c *Client) CreateAsset(ctx context.Context, value map[string]interface{}, path string) (*AssetDescription, error) {
	serialized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize asset value: %w", err)
	}

	params := url.Values{}
	params.Set("value", string(serialized))
	params.Set("json_format", "v2")
	if path != "" {
		params.Set("id", path)
	}

	var result AssetDescription
	if err := c.doPost(ctx, "/create", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CopyAsset copies sourceID into destinationID.
func (c *Client) CopyAsset(ctx context.Context, sourceID, destinationID string) error {
	params := url.Values{}
	params.Set("sourceId", sourceID)
	params.Set("destinationId", destinationID)
	return c.doPost(ctx, "/copy", params, nil)
}

// RenameAsset renames (moves) sourceID to destinationID.
func (c *Client) RenameAsset(ctx context.Context, sourceID, destinationID string) error {
	params := url.Values{}
	params.Set("sourceId", sourceID)
	params.Set("destinationId", destinationID)
	return c.doPost(ctx, "/rename", params, nil)
}

// DeleteAsset deletes the asset with the given ID.
func (c *Client) DeleteAsset(ctx context.Context, assetID string) error {
	params := url.Values{}
	params.Set("id", assetID)
	return c.doPost(ctx, "/delete", params, nil)
}

// AssetRoots lists the root folders the user owns. Root IDs are two
// levels deep ("users/johndoe", not "users/johndoe/notaroot").
func (c *Client) AssetRoots(ctx context.Context) ([]AssetDescription, error) {
	var result []AssetDescription
	if err := c.doGet(ctx, "/buckets", url.Values{}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssetRootQuota returns quota usage for an asset root the user owns.
func (c *Client) AssetRootQuota(ctx context.Context, rootID string) (*RootQuota, error) {
	params := url.Values{}
	params.Set("id", rootID)

	var result RootQuota
	if err := c.doGet(ctx, "/quota", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAssetACL returns the access control list of an asset.
func (c *Client) GetAssetACL(ctx context.Context, assetID string) (*ACL, error) {
	params := url.Values{}
	params.Set("id", assetID)

	var result ACL
	if err := c.doGet(ctx, "/getacl", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetAssetACL replaces the non-owner portion of an asset's ACL.
func (c *Client) SetAssetACL(ctx context.Context, assetID string, acl *ACL) error {
	update := *acl
	update.Owners = nil
	serialized, err := json.Marshal(&update)
	if err != nil {
		return fmt.Errorf("failed to serialize ACL: %w", err)
	}

	params := url.Values{}
	params.Set("id", assetID)
	params.Set("value", string(serialized))
	return c.doPost(ctx, "/setacl", params, nil)
}

// SetAssetProperties updates metadata properties of an asset. A nil
// property value deletes that property.
func (c *Client) SetAssetProperties(ctx context.Context, assetID string, properties map[string]interface{}) error {
	serialized, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to serialize properties: %w", err)
	}

	params := url.Values{}
	params.Set("id", assetID)
	params.Set("properties", string(serialized))
	return c.doPost(ctx, "/setproperties", params, nil)
}

// CreateAssetHome attempts to create the user's home root folder, e.g.
// "users/joe". Fails when the user already has one or the ID is taken.
func (c *Client) CreateAssetHome(ctx context.Context, requestedID string) error {
	params := url.Values{}
	params.Set("id", requestedID)
	return c.doPost(ctx, "/createbucket", params, nil)
}

// CreateAssetsResult reports the outcome of one ID in a CreateAssets
// batch.
type CreateAssetsResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
	Note    string `json:"note,omitempty"`
}

// CreateAssets creates the given container assets if they do not exist.
// assetType is AssetTypeFolder or AssetTypeImageCollection. When
// mkParents is set, missing intermediate folders are created first.
func (c *Client) CreateAssets(ctx context.Context, assetIDs []string, assetType string, mkParents bool) ([]CreateAssetsResult, error) {
	results := make([]CreateAssetsResult, 0, len(assetIDs))
	for _, assetID := range assetIDs {
		if info, err := c.GetInfo(ctx, assetID); err == nil && !isNullJSON(info) {
			results = append(results, CreateAssetsResult{ID: assetID, Created: false, Note: "already exists"})
			continue
		}

		if mkParents {
			parts := strings.Split(assetID, "/")
			path := ""
			for _, part := range parts[:len(parts)-1] {
				path += part
				if info, err := c.GetInfo(ctx, path); err != nil || isNullJSON(info) {
					if _, err := c.CreateAsset(ctx, map[string]interface{}{"type": AssetTypeFolder}, path); err != nil {
						return results, fmt.Errorf("failed to create parent folder %s: %w", path, err)
					}
				}
				path += "/"
			}
		}

		if _, err := c.CreateAsset(ctx, map[string]interface{}{"type": assetType}, assetID); err != nil {
			return results, err
		}
		results = append(results, CreateAssetsResult{ID: assetID, Created: true})
	}
	return results, nil
}

// isNullJSON reports whether a raw payload is empty or JSON null. The
// service answers /info for a missing asset with a null data value.
func isNullJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

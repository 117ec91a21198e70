package validate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// assetIDRegex matches Earth Engine asset paths: a users/ or projects/
// rooted path, or an UPPERCASE public catalog ID like LANDSAT/LC08/C02/T1.
var assetIDRegex = regexp.MustCompile(`^(users/[a-zA-Z0-9_-]+(/[a-zA-Z0-9_./-]+)?|projects/[a-z][a-z0-9-]*(/assets)?(/[a-zA-Z0-9_./-]+)?|[A-Z][A-Z0-9_]*(/[a-zA-Z0-9_.-]+)*)$`)

// taskIDRegex matches task IDs issued by the service (alphanumeric,
// underscore and dash).
var taskIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// AssetID validates an Earth Engine asset ID. Accepted shapes are
// users/<user>/<path>, projects/<project>/assets/<path> and public
// catalog IDs such as LANDSAT/LC08/C02/T1_L2.
func AssetID(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}
	if strings.HasPrefix(value, "/") || strings.HasSuffix(value, "/") {
		return fmt.Errorf("%s: must not start or end with '/', got %q", field, value)
	}
	if strings.Contains(value, "//") {
		return fmt.Errorf("%s: must not contain empty path segments, got %q", field, value)
	}
	if !assetIDRegex.MatchString(value) {
		return fmt.Errorf("%s: must be a valid asset ID (users/..., projects/..., or a catalog ID), got %q", field, value)
	}
	return nil
}

// TaskID validates a task ID.
func TaskID(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}
	if !taskIDRegex.MatchString(value) {
		return fmt.Errorf("%s: must be a valid task ID, got %q", field, value)
	}
	return nil
}

// PageSize validates a pagination page size (1-500).
func PageSize(size int) error {
	if size < 1 {
		return fmt.Errorf("page_size: must be at least 1, got %d", size)
	}
	if size > 500 {
		return fmt.Errorf("page_size: must be at most 500, got %d", size)
	}
	return nil
}

// NonEmpty validates that a required string field is not empty.
func NonEmpty(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}
	return nil
}

// JSONObject validates that data is a JSON object (not an array or scalar).
func JSONObject(field, data string) error {
	if data == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return fmt.Errorf("%s: must be valid JSON object, got error: %v", field, err)
	}

	return nil
}

// Date validates ISO 8601 dates (YYYY-MM-DD) and RFC3339 datetimes.
func Date(field, dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}

	if _, err := time.Parse("2006-01-02", dateStr); err == nil {
		return nil
	}

	if _, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return nil
	}

	return fmt.Errorf("%s: must be a valid ISO 8601 date (YYYY-MM-DD) or datetime, got %q", field, dateStr)
}

// URL validates that urlStr parses with a scheme and host.
func URL(field, urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%s: must be a valid URL, got error: %v", field, err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("%s: must have a scheme (http, https, etc.), got %q", field, urlStr)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s: must have a host, got %q", field, urlStr)
	}

	return nil
}

// GCSURI validates a Cloud Storage source URI (gs://bucket/object).
func GCSURI(field, uri string) error {
	if uri == "" {
		return fmt.Errorf("%s: cannot be empty", field)
	}
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return fmt.Errorf("%s: must start with gs://, got %q", field, uri)
	}
	bucket, object, found := strings.Cut(rest, "/")
	if bucket == "" {
		return fmt.Errorf("%s: missing bucket name, got %q", field, uri)
	}
	if !found || object == "" {
		return fmt.Errorf("%s: missing object path, got %q", field, uri)
	}
	return nil
}

// Package batch reads bulk-operation input (JSON arrays or NDJSON) and
// runs the operations through a bounded worker pool, collecting per-item
// results for bulk task cancel, bulk asset delete and similar commands.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/verdantlabs/earthengine-cli/internal/workers"
)

const (
	// MaxInputSize is the maximum file size for batch input (10MB).
	MaxInputSize = 10 * 1024 * 1024
	// MaxItemCount is the maximum number of items in a batch.
	MaxItemCount = 10000
)

// Result records the outcome of one item in a bulk operation.
type Result struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Summary aggregates a finished batch.
type Summary struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// Run executes op over ids with at most concurrency workers and
// returns a per-item summary in input order. Individual failures do
// not stop the batch.
func Run(ctx context.Context, ids []string, concurrency int, op func(ctx context.Context, id string) error) *Summary {
	_, errs := workers.Map(ctx, ids, concurrency, func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, op(ctx, id)
	})

	summary := &Summary{Total: len(ids)}
	for i, id := range ids {
		r := Result{Index: i, ID: id, Success: errs[i] == nil}
		if errs[i] != nil {
			r.Error = errs[i].Error()
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, r)
	}
	return summary
}

// ReadItems reads items from a JSON array or NDJSON file.
func ReadItems(path string) ([]map[string]interface{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat file: %w", err)
	}

	if info.Size() > MaxInputSize {
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", MaxInputSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Try to parse as JSON array first
	var items []map[string]interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&items); err == nil {
		if len(items) > MaxItemCount {
			return nil, fmt.Errorf("file exceeds maximum item count of %d", MaxItemCount)
		}
		return items, nil
	}

	// Fallback to NDJSON (one JSON object per line)
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("cannot seek file: %w", err)
	}
	items = nil
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var item map[string]interface{}
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("invalid JSON on line %d: %w", len(items)+1, err)
		}

		items = append(items, item)
		if len(items) > MaxItemCount {
			return nil, fmt.Errorf("file exceeds maximum item count of %d", MaxItemCount)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return items, nil
}

// WriteResults writes a batch summary as JSON.
func WriteResults(path string, summary *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

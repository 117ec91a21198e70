package ee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Task states reported by the service. A task queried by an unknown ID
// comes back as UNKNOWN.
const (
	TaskStateReady     = "READY"
	TaskStateRunning   = "RUNNING"
	TaskStateCompleted = "COMPLETED"
	TaskStateFailed    = "FAILED"
	TaskStateCancelled = "CANCELLED"
	TaskStateUnknown   = "UNKNOWN"
)

// IsTerminalTaskState reports whether a task state can no longer change.
func IsTerminalTaskState(state string) bool {
	switch state {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled, TaskStateUnknown:
		return true
	}
	return false
}

// TaskStatus is the status record of a long-running task.
type TaskStatus struct {
	ID                  string   `json:"id"`
	State               string   `json:"state"`
	TaskType            string   `json:"task_type,omitempty"`
	Description         string   `json:"description,omitempty"`
	CreationTimestampMs int64    `json:"creation_timestamp_ms,omitempty"`
	UpdateTimestampMs   int64    `json:"update_timestamp_ms,omitempty"`
	StartTimestampMs    int64    `json:"start_timestamp_ms,omitempty"`
	ErrorMessage        string   `json:"error_message,omitempty"`
	Progress            float64  `json:"progress,omitempty"`
	SourceURL           string   `json:"source_url,omitempty"`
	OutputURL           []string `json:"output_url,omitempty"`
}

// taskListPage is one page of the /tasklist response.
type taskListPage struct {
	Tasks         []TaskStatus `json:"tasks"`
	NextPageToken string       `json:"next_page_token"`
}

// NewTaskID generates IDs for long-running tasks.
func (c *Client) NewTaskID(ctx context.Context, count int) ([]string, error) {
	if count < 1 {
		count = 1
	}
	params := url.Values{}
	params.Set("count", strconv.Itoa(count))

	var ids []string
	if err := c.doPost(ctx, "/newtaskid", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// TaskList retrieves the user's tasks, joining response pages. Running
// tasks appear alongside recently finished, failed and cancelled ones.
func (c *Client) TaskList(ctx context.Context) ([]TaskStatus, error) {
	var tasks []TaskStatus
	pageToken := ""
	for {
		params := url.Values{}
		if pageToken != "" {
			params.Set("pagetoken", pageToken)
		}

		var page taskListPage
		if err := c.doGet(ctx, "/tasklist", params, &page); err != nil {
			return nil, err
		}
		tasks = append(tasks, page.Tasks...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return tasks, nil
}

// TaskStatuses queries the status of one or more tasks. Results come
// back in input order.
func (c *Client) TaskStatuses(ctx context.Context, taskIDs []string) ([]TaskStatus, error) {
	params := url.Values{}
	params.Set("q", strings.Join(taskIDs, ","))

	var statuses []TaskStatus
	if err := c.doGet(ctx, "/taskstatus", params, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// CancelTask cancels a batch task.
func (c *Client) CancelTask(ctx context.Context, taskID string) error {
	params := url.Values{}
	params.Set("id", taskID)
	params.Set("action", "CANCEL")
	return c.doPost(ctx, "/updatetask", params, nil)
}

// ProcessingRequest describes an export task. Type is one of
// EXPORT_IMAGE, EXPORT_FEATURES, EXPORT_VIDEO or EXPORT_TILES; JSON is
// the serialized expression; Extra carries type-specific options.
type ProcessingRequest struct {
	Type        string
	JSON        string
	Description string
	Extra       map[string]string
}

// StartProcessing submits an export or pre-render task under a
// previously generated task ID.
func (c *Client) StartProcessing(ctx context.Context, taskID string, req ProcessingRequest) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("id", taskID)
	params.Set("type", req.Type)
	if req.JSON != "" {
		params.Set("json", req.JSON)
	}
	if req.Description != "" {
		params.Set("description", req.Description)
	}
	for k, v := range req.Extra {
		params.Set(k, v)
	}

	var notes json.RawMessage
	if err := c.doPost(ctx, "/processingrequest", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// StartIngestion submits an asset import task under a previously
// generated task ID. request is the ingestion manifest.
func (c *Client) StartIngestion(ctx context.Context, taskID string, request interface{}) (json.RawMessage, error) {
	serialized, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ingestion request: %w", err)
	}

	params := url.Values{}
	params.Set("id", taskID)
	params.Set("request", string(serialized))

	var notes json.RawMessage
	if err := c.doPost(ctx, "/ingestionrequest", params, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

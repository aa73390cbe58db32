// Package client provides an HTTP client for the legtrack server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/raphaelgruber/legtrack/internal/metrics"
	"github.com/raphaelgruber/legtrack/internal/models"
	"github.com/raphaelgruber/legtrack/internal/service"
)

// Client talks to the legtrack server's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. If baseURL is empty, uses the LEGTRACK_SERVER_URL
// env var or defaults to localhost:8585. The timeout is generous because the
// trigger endpoint blocks for a whole rate-limited run.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("LEGTRACK_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8585"
	}

	timeout := 30 * time.Minute
	if t := os.Getenv("LEGTRACK_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ErrNotFound reports a 404 from the server, typically a missing job.
var ErrNotFound = errors.New("not found")

// apiError is the server's JSON error envelope.
type apiError struct {
	Error string `json:"error"`
}

// do sends a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, ae.Error)
			}
			return fmt.Errorf("server error: %s", ae.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// TriggerSync starts a sync run and blocks until it finishes.
func (c *Client) TriggerSync(ctx context.Context, opts service.TriggerOptions) (*models.SyncSummary, error) {
	var summary models.SyncSummary
	if err := c.do(ctx, http.MethodPost, "/api/sync", opts, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Status returns the current job snapshot, or nil when no job exists.
func (c *Client) Status(ctx context.Context) (*models.SyncJob, error) {
	var job models.SyncJob
	err := c.do(ctx, http.MethodGet, "/api/sync/status", nil, &job)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob retrieves one job by id.
func (c *Client) GetJob(ctx context.Context, id string) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+id, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns recent jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]models.SyncJob, error) {
	var jobs []models.SyncJob
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Pause pauses the active job (or a specific one via jobID).
func (c *Client) Pause(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return c.transition(ctx, "pause", jobID)
}

// Resume resumes a paused job.
func (c *Client) Resume(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return c.transition(ctx, "resume", jobID)
}

// Stop stops the active job.
func (c *Client) Stop(ctx context.Context, jobID string) (*models.SyncJob, error) {
	return c.transition(ctx, "stop", jobID)
}

func (c *Client) transition(ctx context.Context, op, jobID string) (*models.SyncJob, error) {
	path := "/api/sync/" + op
	if jobID != "" {
		path += "?job=" + jobID
	}
	var job models.SyncJob
	if err := c.do(ctx, http.MethodPost, path, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Metrics returns the server's runtime statistics.
func (c *Client) Metrics(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/metrics", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

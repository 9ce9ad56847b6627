// Package client talks to the coordinator's REST API. It is used by the
// worker agent and by renderctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 4 * time.Second

// Error is a non-2xx response. It unwraps to the scheduler sentinel named
// by its code, so callers can use errors.Is(err, scheduler.ErrUnknownTask).
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("coordinator returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("coordinator returned status %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return scheduler.ErrorFromCode(e.Code)
}

// Client handles communication with the coordinator service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a new coordinator client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterWorker registers or re-registers a worker.
func (c *Client) RegisterWorker(ctx context.Context, req models.RegisterWorkerRequest) (*models.Worker, error) {
	var w models.Worker
	if err := c.do(ctx, http.MethodPost, "/workers/register", req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateWorker sends a heartbeat.
func (c *Client) UpdateWorker(ctx context.Context, req models.UpdateWorkerRequest) (*models.Worker, error) {
	var w models.Worker
	if err := c.do(ctx, http.MethodPost, "/workers/"+url.PathEscape(req.ID)+"/heartbeat", req, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkers returns every registered worker.
func (c *Client) ListWorkers(ctx context.Context) ([]*models.Worker, error) {
	var resp models.ListWorkersResponse
	if err := c.do(ctx, http.MethodGet, "/workers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workers, nil
}

// PollForTask asks for work. It returns nil, nil when nothing is queued
// for the worker.
func (c *Client) PollForTask(ctx context.Context, workerID string) (*models.Task, error) {
	var resp models.PollTaskResponse
	if err := c.do(ctx, http.MethodGet, "/workers/"+url.PathEscape(workerID)+"/task", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// SubmitTask queues a render.
func (c *Client) SubmitTask(ctx context.Context, req models.SubmitTaskRequest) (*models.SubmitTaskResponse, error) {
	var resp models.SubmitTaskResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTasks returns every task. A non-negative tail limits each task's
// log to its last tail lines.
func (c *Client) ListTasks(ctx context.Context, tail int) ([]*models.Task, error) {
	path := "/tasks"
	if tail >= 0 {
		path += "?tail=" + strconv.Itoa(tail)
	}
	var resp models.ListTasksResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetTask fetches one task with its full log.
func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask posts a status, log line or progress update.
func (c *Client) UpdateTask(ctx context.Context, update models.TaskUpdate) error {
	return c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(update.TaskID), update, nil)
}

// Status retrieves coordinator counts.
func (c *Client) Status(ctx context.Context) (*scheduler.Stats, error) {
	var stats scheduler.Stats
	if err := c.do(ctx, http.MethodGet, "/status", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health checks if the coordinator is up.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &Error{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(bodyBytes, &payload); err == nil && payload.Error != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(bodyBytes))
	}
	return apiErr
}

// IsStatus reports whether err is an Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

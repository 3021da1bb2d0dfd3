// Package client talks to a running batchmon server over its HTTP job API.
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

	"github.com/leefowlercu/batch-monitor/internal/config"
	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/server"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Client provides typed access to the job API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client for the server at baseURL.
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

// NewFromConfig creates a Client from the root config.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	opts = append([]Option{WithTimeout(cfg.Client.TimeoutDuration())}, opts...)
	return New(cfg.Client.URL, opts...), nil
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx response from the server.
// It unwraps to the registry sentinel matching its status code, so callers
// can use errors.Is(err, jobs.ErrUnknownJob) across the wire.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server request failed; status %d", e.StatusCode)
	}
	return fmt.Sprintf("server request failed; %s", e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return jobs.ErrUnknownJob
	case http.StatusConflict:
		return jobs.ErrAlreadyFinished
	default:
		return nil
	}
}

// StartJob registers the start of a job run and returns its record.
func (c *Client) StartJob(ctx context.Context, name string) (jobs.Record, error) {
	var resp server.JobResponse
	if err := c.doJSON(ctx, http.MethodPost, "/jobs", server.StartJobRequest{Name: name}, &resp); err != nil {
		return jobs.Record{}, err
	}
	return resp.Record(), nil
}

// EndJob ends a running job with a terminal status.
func (c *Client) EndJob(ctx context.Context, id string, status jobs.Status) (jobs.Record, error) {
	var resp server.JobResponse
	path := "/jobs/" + url.PathEscape(id) + "/end"
	if err := c.doJSON(ctx, http.MethodPost, path, server.EndJobRequest{Status: string(status)}, &resp); err != nil {
		return jobs.Record{}, err
	}
	return resp.Record(), nil
}

// GetJob fetches a single job.
func (c *Client) GetJob(ctx context.Context, id string) (jobs.Record, error) {
	var resp server.JobResponse
	if err := c.doJSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &resp); err != nil {
		return jobs.Record{}, err
	}
	return resp.Record(), nil
}

// ListJobs fetches jobs newest first. Until has no query parameter and is
// applied to the response.
func (c *Client) ListJobs(ctx context.Context, opts jobs.ListOptions) ([]jobs.Record, error) {
	q := url.Values{}
	if opts.Name != "" {
		q.Set("name", opts.Name)
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}

	path := "/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp server.ListJobsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	recs := make([]jobs.Record, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		rec := j.Record()
		if !opts.Until.IsZero() && !rec.StartTime.Before(opts.Until) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ExportRequest selects what the server exports.
type ExportRequest struct {
	Format         string
	IncludeRunning bool
	Limit          int
	Name           string
}

// Export fetches a serialized export of the job table.
func (c *Client) Export(ctx context.Context, req ExportRequest) ([]byte, error) {
	q := url.Values{}
	if req.Format != "" {
		q.Set("format", req.Format)
	}
	if req.IncludeRunning {
		q.Set("include_running", "true")
	}
	if req.Limit != 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Name != "" {
		q.Set("name", req.Name)
	}

	path := "/export"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export; %w", err)
	}
	return data, nil
}

// Ready fetches /readyz health status.
func (c *Client) Ready(ctx context.Context) (*server.ReadyzResponse, error) {
	var status server.ReadyzResponse
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response; %w", err)
	}

	return nil
}

// do sends a request and returns the response when its status is 2xx.
// The caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return nil, fmt.Errorf("failed to encode request; %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request; %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server at %s; %w", c.baseURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp server.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil {
			apiErr.Message = errResp.Error
		}
		return nil, apiErr
	}

	return resp, nil
}

// IsAPIError reports whether err came back from the server as a non-2xx response.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

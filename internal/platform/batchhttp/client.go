package batchhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/phrazzld/scry-quizgen/internal/batch"
	"github.com/phrazzld/scry-quizgen/internal/generation"
)

// DefaultRequestTimeout bounds one submit or poll round trip.
const DefaultRequestTimeout = 60 * time.Second

// maxErrorBody caps how much of an error reply is kept in the error message.
const maxErrorBody = 512

// Client is a batch.Endpoint speaking to a remote service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a Client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid batch endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid batch endpoint URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Transport: otelhttp.NewTransport(cleanhttp.DefaultPooledTransport()),
			Timeout:   DefaultRequestTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit posts the requests as one job and returns its ID.
func (c *Client) Submit(ctx context.Context, requests []batch.Request) (string, error) {
	body, err := json.Marshal(toWire(requests))
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode batch request: %v", generation.ErrPermanent, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("v1", "batches"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out submitResponse
	if err := c.do(req, http.StatusAccepted, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("%w: batch service returned an empty job ID", generation.ErrPermanent)
	}
	return out.JobID, nil
}

// Poll fetches a job snapshot.
func (c *Client) Poll(ctx context.Context, jobID string) (*batch.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("v1", "batches", jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrPermanent, err)
	}
	var job batch.Job
	if err := c.do(req, http.StatusOK, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) endpoint(segments ...string) string {
	return c.baseURL.JoinPath(segments...).String()
}

// do sends req and decodes a reply with the wanted status into out. Network
// failures, 429 and 5xx are transient; 404 is batch.ErrJobNotFound; other
// statuses are permanent.
func (c *Client) do(req *http.Request, want int, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", generation.ErrTransient, req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, req, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s reply: %v", generation.ErrTransient, req.URL.Path, err)
	}
	return nil
}

func statusError(code int, req *http.Request, body string) error {
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", batch.ErrJobNotFound, req.URL.Path)
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= 500:
		return fmt.Errorf("%w: %s %s returned %d: %s", generation.ErrTransient, req.Method, req.URL.Path, code, body)
	default:
		return fmt.Errorf("%w: %s %s returned %d: %s", generation.ErrPermanent, req.Method, req.URL.Path, code, body)
	}
}

var _ batch.Endpoint = (*Client)(nil)

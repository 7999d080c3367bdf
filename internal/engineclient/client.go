// Package engineclient is the HTTP/socket client for the remote
// integration engine. It implements deploy.EngineClient.
package engineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/conduit/internal/flow"
)

// Client talks to one engine instance. Transient failures (network
// errors and 5xx responses) are retried with exponential backoff;
// 4xx responses are not, since resubmitting an invalid document
// cannot help.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	retries uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient overrides the underlying HTTP client. Tests pass one
// bound to an httptest server.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.httpc = h
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n uint64) ClientOption {
	return func(c *Client) {
		c.retries = n
	}
}

// NewClient creates a client for the engine at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
		retries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frontendSchema is the graph snapshot stored alongside the compiled
// channel so the designer can reload what was deployed.
type frontendSchema struct {
	Nodes              []flow.Node `json:"nodes"`
	Edges              []flow.Edge `json:"edges"`
	ChannelName        string      `json:"channelName"`
	ChannelID          string      `json:"channelId"`
	ErrorDestinationID string      `json:"errorDestinationId,omitempty"`
	MaxRetries         int         `json:"maxRetries"`
}

// SubmitChannel uploads the compiled channel document and the graph
// snapshot. Any non-success response is a submission failure.
func (c *Client) SubmitChannel(ctx context.Context, doc []byte, snap flow.Snapshot, ch flow.Channel) error {
	body, err := json.Marshal(map[string]any{
		"channel": json.RawMessage(doc),
		"frontend_schema": frontendSchema{
			Nodes:              snap.Nodes,
			Edges:              snap.Edges,
			ChannelName:        ch.ChannelName,
			ChannelID:          ch.ChannelID,
			ErrorDestinationID: ch.ErrorDestinationID,
			MaxRetries:         ch.MaxRetries,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal deploy request: %w", err)
	}
	return c.post(ctx, "/api/channels/deploy", body)
}

// StartChannel activates a submitted channel by id.
func (c *Client) StartChannel(ctx context.Context, channelID string) error {
	return c.post(ctx, "/api/channels/"+channelID+"/start", nil)
}

// StopChannel deactivates a channel by id.
func (c *Client) StopChannel(ctx context.Context, channelID string) error {
	return c.post(ctx, "/api/channels/"+channelID+"/stop", nil)
}

// Health probes engine reachability. A single attempt, no retries:
// callers poll this and want the current answer, not an eventual one.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("engine unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return fmt.Errorf("engine request %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		reqErr := fmt.Errorf("engine returned %s for %s: %s",
			resp.Status, path, strings.TrimSpace(string(detail)))
		if resp.StatusCode >= 500 {
			return reqErr
		}
		return backoff.Permanent(reqErr)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 15 * time.Second

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx))
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

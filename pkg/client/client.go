// Package client talks to a running mailguard API server.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/telekom/mailguard/pkg/api"
	"github.com/telekom/mailguard/pkg/mail"
	"github.com/telekom/mailguard/pkg/ratelimit"
)

type Client struct {
	http *resty.Client
}

type Option func(*resty.Client) error

// New creates a client for the server at base. Requests time out after 30s
// unless WithTimeout says otherwise.
func New(base string, opts ...Option) (*Client, error) {
	if base == "" {
		return nil, errors.New("server is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid server: %w", err)
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "mailguard")
	for _, opt := range opts {
		if err := opt(rc); err != nil {
			return nil, err
		}
	}
	return &Client{http: rc}, nil
}

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) error {
		c.SetTimeout(d)
		return nil
	}
}

func WithInsecureSkipVerify() Option {
	return func(c *resty.Client) error {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // explicitly requested
		return nil
	}
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Message    string
	Problems   []string
}

func (e *HTTPError) Error() string {
	if len(e.Problems) > 0 {
		return fmt.Sprintf("request failed (%d): %s: %s", e.StatusCode, e.Message, strings.Join(e.Problems, "; "))
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Submit queues msg on the server.
func (c *Client) Submit(ctx context.Context, msg mail.Message) (api.EnqueueResponse, error) {
	var out api.EnqueueResponse
	err := c.do(ctx, "POST", "/api/messages", msg, &out)
	return out, err
}

// Validate checks recipients without sending anything.
func (c *Client) Validate(ctx context.Context, recipients []string) (api.ValidateResponse, error) {
	var out api.ValidateResponse
	err := c.do(ctx, "POST", "/api/recipients/validate", api.ValidateRequest{Recipients: recipients}, &out)
	return out, err
}

// Stats returns the server's quota statistics.
func (c *Client) Stats(ctx context.Context) (ratelimit.Stats, error) {
	var out ratelimit.Stats
	err := c.do(ctx, "GET", "/api/quota/stats", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var apiErr api.APIError
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := strings.TrimSpace(apiErr.Error)
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		if msg == "" {
			msg = resp.Status()
		}
		return &HTTPError{StatusCode: resp.StatusCode(), Message: msg, Problems: apiErr.Problems}
	}
	return nil
}

// Package apicheck runs declarative HTTP checks against the target API and
// records failing responses as JSON dumps.
package apicheck

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"qapages/errors"
)

const defaultTimeout = 30 * time.Second

// LastResponse is the most recent response a Client received.
type LastResponse struct {
	StatusCode int
	Body       string
}

// Client sends JSON requests to an API base URL with an optional bearer token.
type Client struct {
	BaseURL string
	Token   string
	// Retries is how many times a request is repeated after a transport
	// error. Responses are never retried.
	Retries int
	Logger  zerolog.Logger

	httpClient *http.Client

	mu   sync.Mutex
	last *LastResponse
}

// NewClient returns a client for baseURL.
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		Retries:    2,
		Logger:     logger,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Last returns the last response received, or nil.
func (c *Client) Last() *LastResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	cp := *c.last
	return &cp
}

// Do sends method to path. A non-nil body is JSON encoded. The response body
// is read in full and kept as the last response.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*LastResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
	}

	url := c.BaseURL + path
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, bytesOrNil(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	c.Logger.Info().Str("method", method).Str("url", url).Msg("api request")
	resp, err := c.client().Do(req)
	if err != nil {
		c.Logger.Error().Err(err).Str("url", url).Msg("api request failed")
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	last := &LastResponse{StatusCode: resp.StatusCode, Body: string(data)}

	c.mu.Lock()
	c.last = last
	c.mu.Unlock()

	c.Logger.Info().Int("status", resp.StatusCode).Msg("api response")
	if resp.StatusCode >= http.StatusBadRequest {
		c.Logger.Warn().Str("body", truncate(last.Body, 500)).Msg("api error response")
	}
	cp := *last
	return &cp, nil
}

func (c *Client) client() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	if c.httpClient != nil {
		rc.HTTPClient = c.httpClient
	}
	rc.RetryMax = c.Retries
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}
	return rc
}

func bytesOrNil(b []byte) any {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

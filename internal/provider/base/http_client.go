package base

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Client provides common gateway HTTP functionality for provider adapters.
// Transient failures (network errors, 5xx) are retried with exponential
// backoff; gateway rejections (4xx) are returned to the adapter untouched.
type Client struct {
	client     *http.Client
	baseURL    string
	name       string // provider name for logging
	maxRetries uint64
}

// NewClient creates a gateway client with default settings.
func NewClient(providerName, baseURL string, timeoutSec int) *Client {
	if timeoutSec == 0 {
		timeoutSec = 30
	}
	return &Client{
		client: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		baseURL:    baseURL,
		name:       providerName,
		maxRetries: 3,
	}
}

// PostJSON makes a POST request with a JSON payload.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload interface{}, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
	}
	return c.do(ctx, "POST", endpoint, body, headers)
}

// Get makes a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, headers map[string]string) (*Response, error) {
	return c.do(ctx, "GET", endpoint, nil, headers)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string) (*Response, error) {
	url := c.baseURL + endpoint

	var out *Response
	op := func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", fmt.Sprintf("PayBridge/%s", c.name))
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		log.Debug().
			Str("provider", c.name).
			Str("method", method).
			Str("url", url).
			Msg("making gateway request")

		resp, err := c.client.Do(req)
		if err != nil {
			log.Error().
				Str("provider", c.name).
				Str("url", url).
				Err(err).
				Msg("gateway request failed")
			return fmt.Errorf("gateway request failed: %w", err)
		}
		out, err = c.handleResponse(resp)
		if err != nil {
			return backoff.Permanent(err)
		}
		if out.StatusCode >= 500 {
			return fmt.Errorf("gateway returned %d", out.StatusCode)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if out != nil && out.StatusCode >= 500 {
			// Exhausted retries on server errors: hand the last response to
			// the adapter so the gateway's own error text survives.
			return out, nil
		}
		return nil, err
	}
	return out, nil
}

func (c *Client) handleResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Str("provider", c.name).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(body)).
		Msg("received gateway response")

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// Response represents a gateway HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess checks for a 2xx status code.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into the provided struct.
func (r *Response) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// AuthHeader builds the bearer header carrying the caller's provider
// authorization token.
func AuthHeader(authorization string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + authorization}
}

// ErrorMessage prefers the gateway's own error text and falls back to the
// raw status and body, so provider wording survives verbatim.
func ErrorMessage(msg string, resp *Response) string {
	if msg != "" {
		return msg
	}
	return fmt.Sprintf("gateway returned %d: %s", resp.StatusCode, resp.String())
}

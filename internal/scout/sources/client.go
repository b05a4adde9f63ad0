package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const userAgent = "scout-enrichment/1.0 (company directory updater)"

// client is the shared HTTP helper for all connectors: one timeout, one
// User-Agent, and a single transient-failure retry policy.
type client struct {
	http *http.Client
}

func newClient(timeout time.Duration) *client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &client{http: &http.Client{Timeout: timeout}}
}

// getJSON fetches url and decodes the JSON body into out. 4xx responses and
// malformed bodies are permanent; network errors and 5xx get one retry.
func (c *client) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	return c.do(ctx, http.MethodGet, url, headers, nil, out)
}

// postJSON posts a JSON body and decodes the JSON response into out.
func (c *client) postJSON(ctx context.Context, url string, headers map[string]string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, headers, raw, out)
}

// getText fetches url and returns the raw body, for CSV and XML sources.
func (c *client) getText(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var raw []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusError(resp.StatusCode); err != nil {
			return err
		}
		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return nil
	})
	return raw, err
}

func (c *client) do(ctx context.Context, method, url string, headers map[string]string, body []byte, out any) error {
	return c.retry(ctx, func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := statusError(resp.StatusCode); err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// Malformed upstream JSON is equivalent to absence of data.
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}

func (c *client) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, 1), ctx))
}

// errAccepted marks a 202 from stats endpoints that compute results lazily.
var errAccepted = fmt.Errorf("result not ready")

// errNotFound marks a 404, which most sources report for "no such entity".
var errNotFound = fmt.Errorf("not found upstream")

func statusError(code int) error {
	switch {
	case code == http.StatusAccepted:
		return backoff.Permanent(errAccepted)
	case code == http.StatusNotFound:
		return backoff.Permanent(errNotFound)
	case code >= 500 || code == http.StatusTooManyRequests:
		return fmt.Errorf("upstream returned %d", code)
	case code >= 400:
		return backoff.Permanent(fmt.Errorf("upstream returned %d", code))
	}
	return nil
}

// sleep pauses between dependent sub-calls while honoring cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

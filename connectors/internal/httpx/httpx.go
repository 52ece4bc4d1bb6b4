// Package httpx holds the small HTTP plumbing shared by the HTTP-API
// connectors.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rzn-labs/datasourcer/connector"
)

const userAgent = "rzn-datasourcer/0.1 (+https://github.com/rzn-labs/datasourcer)"

// NewClient builds the default client connectors use. Connector-level
// timeouts stay below the federation per-source default.
func NewClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// GetJSON fetches url and decodes the JSON response body into a
// generic value. Headers may be nil. Failures map onto the error
// taxonomy: 401/403 to auth_failed, 404 to not_found, 429 to blocked,
// other non-2xx to upstream_error.
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, connector.InvalidInput("bad request url %q: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, connector.Timeout("request to %s cancelled: %v", req.URL.Host, ctx.Err())
		}
		return nil, connector.Upstream(fmt.Sprintf("request to %s failed", req.URL.Host), err)
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024)).Decode(&out); err != nil {
		return nil, connector.Upstream(fmt.Sprintf("invalid JSON from %s", req.URL.Host), err)
	}
	return out, nil
}

// PostJSON sends a JSON payload and decodes the JSON response.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, connector.Internal("failed to encode request payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, connector.InvalidInput("bad request url %q: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, connector.Timeout("request to %s cancelled: %v", req.URL.Host, ctx.Err())
		}
		return nil, connector.Upstream(fmt.Sprintf("request to %s failed", req.URL.Host), err)
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10*1024*1024)).Decode(&out); err != nil {
		return nil, connector.Upstream(fmt.Sprintf("invalid JSON from %s", req.URL.Host), err)
	}
	return out, nil
}

// CheckStatus converts a non-2xx response into a taxonomy error.
func CheckStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return connector.AuthFailed("%s returned HTTP %d", resp.Request.URL.Host, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return connector.NotFound("%s returned HTTP 404", resp.Request.URL.Host)
	case resp.StatusCode == http.StatusTooManyRequests:
		return connector.Blocked("%s rate limited the request (HTTP 429)", resp.Request.URL.Host)
	default:
		return connector.Upstream(fmt.Sprintf("%s returned HTTP %d", resp.Request.URL.Host, resp.StatusCode), nil)
	}
}

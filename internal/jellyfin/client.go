// Package jellyfin is a thin client for the parts of a Jellyfin-compatible
// server the playback subsystem talks to: playstate reporting and the
// adjacent-episode window query.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	httpClientTimeout         = 20 * time.Second
	httpDialTimeout           = 5 * time.Second
	httpKeepAlive             = 30 * time.Second
	httpTLSHandshakeTimeout   = 5 * time.Second
	httpResponseHeaderTimeout = 10 * time.Second
	httpIdleConnTimeout       = 90 * time.Second

	queryRetryMax = 3
)

var apiTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   httpDialTimeout,
		KeepAlive: httpKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   httpTLSHandshakeTimeout,
	ResponseHeaderTimeout: httpResponseHeaderTimeout,
	IdleConnTimeout:       httpIdleConnTimeout,
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   httpClientTimeout,
		Transport: apiTransport,
	}
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient()

	return retryClient.StandardClient()
}

// Client provides access to the server API.
type Client struct {
	baseURL string
	token   string
	userID  string

	// Idempotent queries retry; playstate reports are single-shot, the
	// reporting layer treats a failed delivery as lost.
	queryClient  *http.Client
	reportClient *http.Client
}

// NewClient creates a client for the server at baseURL, authenticating with
// an access token on behalf of userID.
func NewClient(baseURL, token, userID string) *Client {
	return &Client{
		baseURL:      baseURL,
		token:        token,
		userID:       userID,
		queryClient:  newRetryableHTTPClient(queryRetryMax),
		reportClient: newHTTPClient(),
	}
}

// UserID returns the user the client authenticates as.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Emby-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.queryClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.reportClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

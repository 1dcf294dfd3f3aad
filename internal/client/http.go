package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ServerStatus is the body of GET /api/status.
type ServerStatus struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	User        string `json:"user"`
	Connections int    `json:"connections"`
}

type commandResult struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

// HTTPClient makes REST calls to a YAAN server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://localhost:8000").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// HTTPBase converts ws://host:port/ws to http://host:port.
func HTTPBase(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("%q has no host", wsURL)
	}
	scheme := "http"
	if u.Scheme == "wss" || u.Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host), nil
}

// Status fetches /api/status.
func (c *HTTPClient) Status(ctx context.Context) (*ServerStatus, error) {
	var s ServerStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Ask sends one command through POST /api/command and returns the reply.
func (c *HTTPClient) Ask(ctx context.Context, text string) (string, error) {
	var out commandResult
	if err := c.do(ctx, http.MethodPost, "/api/command?text="+url.QueryEscape(text), &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", fmt.Errorf("command failed: %s", out.Error)
	}
	return out.Response, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

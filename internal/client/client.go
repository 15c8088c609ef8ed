// Package client talks to the heartbeat HTTP API.
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

	"github.com/hamed0406/heartbeat/internal/domain"
)

type Client struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

func New(baseURL, key string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Key:     key,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("api %d: %s", e.Status, e.Message) }

type PingResult struct {
	OK      bool          `json:"ok"`
	NextDue time.Time     `json:"next_due"`
	Status  domain.Status `json:"status"`
}

type FailResult struct {
	OK     bool          `json:"ok"`
	Status domain.Status `json:"status"`
}

// MonitorInfo is one monitor as the management API returns it.
type MonitorInfo struct {
	domain.Monitor
	Status domain.Status `json:"status"`
}

// Ping records a heartbeat; interval may be empty to keep the stored one.
func (c *Client) Ping(ctx context.Context, slug, interval string) (*PingResult, error) {
	path := "/heartbeat/" + url.PathEscape(slug)
	if interval != "" {
		path += "?interval=" + url.QueryEscape(interval)
	}
	var out PingResult
	return &out, c.do(ctx, http.MethodPost, path, &out)
}

func (c *Client) Fail(ctx context.Context, slug string) (*FailResult, error) {
	var out FailResult
	return &out, c.do(ctx, http.MethodPost, "/heartbeat/"+url.PathEscape(slug)+"/fail", &out)
}

func (c *Client) List(ctx context.Context) ([]MonitorInfo, error) {
	var out []MonitorInfo
	return out, c.do(ctx, http.MethodGet, "/api/monitors", &out)
}

func (c *Client) Get(ctx context.Context, slug string) (*MonitorInfo, error) {
	var out MonitorInfo
	if err := c.do(ctx, http.MethodGet, "/api/monitors/"+url.PathEscape(slug), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodDelete, "/api/monitors/"+url.PathEscape(slug), nil)
}

func (c *Client) Pause(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodPost, "/api/monitors/"+url.PathEscape(slug)+"/pause", nil)
}

func (c *Client) Resume(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodPost, "/api/monitors/"+url.PathEscape(slug)+"/resume", nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.Key)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

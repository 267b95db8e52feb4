// Package notify posts task progress to Slack threads.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIURL = "https://slack.com/api"

	maxResponseBytes = 1 << 20
)

// ErrNotConfigured is returned when no bot token is set.
var ErrNotConfigured = errors.New("slack bot token is not configured")

// APIError is a Slack Web API response with ok=false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

// Client is a minimal Slack Web API client.
type Client struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL uses the public Slack API.
func NewClient(botToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type postMessageRequest struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Mrkdwn   bool   `json:"mrkdwn"`
}

type postMessageResponse struct {
	OK      bool   `json:"ok"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

// PostNew posts a top-level message and returns its timestamp, which is the thread handle.
func (c *Client) PostNew(ctx context.Context, channel, text string) (string, error) {
	return c.postMessage(ctx, postMessageRequest{Channel: channel, Text: text, Mrkdwn: true})
}

// PostToThread replies in the thread rooted at threadTS.
func (c *Client) PostToThread(ctx context.Context, channel, threadTS, text string) (string, error) {
	if threadTS == "" {
		return "", errors.New("thread handle is empty")
	}
	return c.postMessage(ctx, postMessageRequest{Channel: channel, Text: text, ThreadTS: threadTS, Mrkdwn: true})
}

func (c *Client) postMessage(ctx context.Context, msg postMessageRequest) (string, error) {
	var resp postMessageResponse
	if err := c.call(ctx, "chat.postMessage", msg, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", &APIError{Method: "chat.postMessage", Code: resp.Error}
	}
	return resp.TS, nil
}

// AuthInfo identifies the bot a token belongs to.
type AuthInfo struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Team   string `json:"team"`
	User   string `json:"user"`
	BotID  string `json:"bot_id"`
	UserID string `json:"user_id"`
}

// AuthTest validates the bot token.
func (c *Client) AuthTest(ctx context.Context) (*AuthInfo, error) {
	var info AuthInfo
	if err := c.call(ctx, "auth.test", struct{}{}, &info); err != nil {
		return nil, err
	}
	if !info.OK {
		return nil, &APIError{Method: "auth.test", Code: info.Error}
	}
	return &info, nil
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	if c.botToken == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack %s: unexpected status %d", method, resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	return nil
}

// Package notify sends operational emails through the Resend HTTP API.
// Every send is best-effort from the caller's point of view.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.resend.com"

// Client posts emails to the Resend API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
	to         string
}

// Option configures the Client during construction.
type Option func(*Client)

// WithBaseURL overrides the Resend endpoint, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient constructs a Client. A nil httpClient gets a sane default.
func NewClient(httpClient *http.Client, apiKey, from, to string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		from:       from,
		to:         to,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send delivers a plain-text email to the configured recipient.
func (c *Client) Send(ctx context.Context, subject, text string) error {
	payload := map[string]any{
		"from":    c.from,
		"to":      []string{c.to},
		"subject": subject,
		"text":    text,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: send email: status %d", resp.StatusCode)
	}
	return nil
}

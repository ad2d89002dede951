package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"badgereq/badge"
)

const DefaultBaseURL = "https://api.resend.com"

var (
	// ErrNoAPIKey means the client was built without credentials.
	ErrNoAPIKey = errors.New("mail API key is not configured")
	// ErrNoAddress means the sender or recipient address is missing.
	ErrNoAddress = errors.New("mail from and to addresses must be configured")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	To         string
	Timeout    time.Duration
	HTTPClient httpDoer
	Now        func() time.Time
}

// Client sends mail through the Resend HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	to         string
	httpClient httpDoer
	now        func() time.Time
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid mail base URL %q", cfg.BaseURL)
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		from:       strings.TrimSpace(cfg.From),
		to:         strings.TrimSpace(cfg.To),
		httpClient: doer,
		now:        now,
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Notify renders the batch and sends it to the configured recipient.
func (c *Client) Notify(ctx context.Context, batch badge.Batch) (string, error) {
	message, err := RenderBatch(batch)
	if err != nil {
		return "", err
	}
	return c.Send(ctx, message)
}

// SendTest sends a short plain-text message to the configured recipient.
func (c *Client) SendTest(ctx context.Context) (string, error) {
	return c.Send(ctx, TestMessage(c.now()))
}

// Send delivers message and returns the provider's message id.
func (c *Client) Send(ctx context.Context, message Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if c.from == "" || c.to == "" {
		return "", ErrNoAddress
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{c.to},
		Subject: message.Subject,
		HTML:    message.HTML,
		Text:    message.Text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("send mail failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(responseBody)))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decode mail response: %w", err)
	}
	return out.ID, nil
}

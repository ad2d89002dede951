package supabase

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

const (
	defaultTable = "badge_requests"
	restPrefix   = "/rest/v1/"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Table      string
	HTTPClient httpDoer
}

// Client writes badge requests through the Supabase PostgREST endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient httpDoer
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase URL is required")
	}
	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid supabase URL %q", cfg.BaseURL)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("supabase key is required")
	}

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultTable
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		table:      table,
		httpClient: doer,
	}, nil
}

// row mirrors the columns of the badge_requests table.
type row struct {
	ID            int64     `json:"id,omitempty"`
	RequesterName string    `json:"requester_name"`
	Company       string    `json:"company"`
	EmployeeName  string    `json:"employee_name"`
	LDAP          string    `json:"ldap"`
	AIN           string    `json:"ain"`
	SessionID     string    `json:"session_id,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

func rowFromEntry(entry badge.Entry) row {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return row{
		RequesterName: entry.RequesterName,
		Company:       string(entry.Company),
		EmployeeName:  entry.EmployeeName,
		LDAP:          entry.LDAP,
		AIN:           entry.AIN,
		SessionID:     entry.SessionID,
		CreatedAt:     created,
	}
}

func (r row) entry() badge.Entry {
	return badge.Entry{
		ID:            r.ID,
		SessionID:     r.SessionID,
		RequesterName: r.RequesterName,
		Company:       badge.Company(r.Company),
		EmployeeName:  r.EmployeeName,
		LDAP:          r.LDAP,
		AIN:           r.AIN,
		CreatedAt:     r.CreatedAt,
	}
}

// SaveEntry inserts a single row. The response body is not requested.
func (c *Client) SaveEntry(ctx context.Context, entry badge.Entry) error {
	if err := c.doJSON(ctx, http.MethodPost, c.tablePath(""), rowFromEntry(entry), nil); err != nil {
		return fmt.Errorf("insert badge request: %w", err)
	}
	return nil
}

func (c *Client) ListRequests(ctx context.Context) ([]badge.Entry, error) {
	var rows []row
	if err := c.doJSON(ctx, http.MethodGet, c.tablePath("select=*&order=created_at.asc,id.asc"), nil, &rows); err != nil {
		return nil, fmt.Errorf("list badge requests: %w", err)
	}

	entries := make([]badge.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func (c *Client) tablePath(query string) string {
	path := restPrefix + url.PathEscape(c.table)
	if query != "" {
		path += "?" + query
	}
	return path
}

func (c *Client) doJSON(ctx context.Context, method, endpointPath string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpointPath, bodyReader)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, endpointPath, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, endpointPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf(
			"request %s %s failed with status %d: %s",
			method,
			endpointPath,
			resp.StatusCode,
			strings.TrimSpace(string(responseBody)),
		)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response %s %s: %w", method, endpointPath, err)
	}
	return nil
}

package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"badgereq/badge"
)

type fakeDoer struct {
	fn func(*http.Request) (*http.Response, error)
}

func (f fakeDoer) Do(req *http.Request) (*http.Response, error) {
	return f.fn(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestClient_SaveEntryPostsRowWithHeaders(t *testing.T) {
	t.Parallel()

	var captured row
	doer := fakeDoer{fn: func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/badge_requests" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Fatalf("missing auth headers: %v", r.Header)
		}
		if r.Header.Get("Prefer") != "return=minimal" {
			t.Fatalf("unexpected Prefer header %q", r.Header.Get("Prefer"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return response(http.StatusCreated, ""), nil
	}}

	client, err := NewClient(ClientConfig{BaseURL: "https://project.supabase.co/", APIKey: "anon-key", HTTPClient: doer})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	entry := badge.Entry{
		RequesterName: "Sam",
		Company:       badge.CompanyOther,
		EmployeeName:  "Jane Doe",
		LDAP:          "AB12345",
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := client.SaveEntry(context.Background(), entry); err != nil {
		t.Fatalf("save entry: %v", err)
	}

	if captured.RequesterName != "Sam" || captured.Company != "Other" || captured.EmployeeName != "Jane Doe" {
		t.Fatalf("unexpected row: %+v", captured)
	}
	if captured.LDAP != "AB12345" || captured.AIN != "" {
		t.Fatalf("unexpected identifiers: %+v", captured)
	}
}

func TestClient_SaveEntryReportsUpstreamStatus(t *testing.T) {
	t.Parallel()

	doer := fakeDoer{fn: func(r *http.Request) (*http.Response, error) {
		return response(http.StatusUnauthorized, `{"message":"Invalid API key"}`), nil
	}}
	client, err := NewClient(ClientConfig{BaseURL: "https://project.supabase.co", APIKey: "bad", Table: "requests", HTTPClient: doer})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.SaveEntry(context.Background(), badge.Entry{EmployeeName: "Jane", LDAP: "AB12345"})
	if err == nil || !strings.Contains(err.Error(), "status 401") || !strings.Contains(err.Error(), "/rest/v1/requests") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClient_ListRequestsDecodesRows(t *testing.T) {
	t.Parallel()

	doer := fakeDoer{fn: func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.URL.Query().Get("order"); got != "created_at.asc,id.asc" {
			t.Fatalf("unexpected order %q", got)
		}
		return response(http.StatusOK, `[
			{"id": 7, "requester_name": "Sam", "company": "Link", "employee_name": "Jane", "ldap": "AB12345", "ain": "", "created_at": "2026-03-01T09:00:00Z"}
		]`), nil
	}}
	client, err := NewClient(ClientConfig{BaseURL: "https://project.supabase.co", APIKey: "k", HTTPClient: doer})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	entries, err := client.ListRequests(context.Background())
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 7 || entries[0].Company != badge.CompanyLink || entries[0].IDKind() != badge.IDKindLDAP {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestNewClient_RequiresURLAndKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing URL error")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "not a url", APIKey: "k"}); err == nil {
		t.Fatalf("expected invalid URL error")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "https://project.supabase.co"}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"badgereq/badge"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "badgereq_test.db")
	store, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SaveAndListRequests(t *testing.T) {
	t.Parallel()

	store := openTestSQLite(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []badge.Entry{
		{
			SessionID:     "s-1",
			RequesterName: "Sam",
			Company:       badge.CompanyOther,
			EmployeeName:  "Jane Doe",
			LDAP:          "AB12345",
			CreatedAt:     created,
		},
		{
			SessionID:     "s-1",
			RequesterName: "Sam",
			Company:       badge.CompanyOther,
			EmployeeName:  "John Roe",
			AIN:           "123456789",
			CreatedAt:     created.Add(time.Minute),
		},
	}
	for _, entry := range entries {
		if err := store.SaveEntry(ctx, entry); err != nil {
			t.Fatalf("save entry: %v", err)
		}
	}

	listed, err := store.ListRequests(ctx)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(listed))
	}
	if listed[0].ID <= 0 || listed[0].EmployeeName != "Jane Doe" || listed[0].LDAP != "AB12345" || listed[0].AIN != "" {
		t.Fatalf("unexpected first row: %+v", listed[0])
	}
	if listed[1].AIN != "123456789" || listed[1].IDKind() != badge.IDKindTimeClock {
		t.Fatalf("unexpected second row: %+v", listed[1])
	}
	if !listed[0].CreatedAt.Equal(created) || listed[0].SessionID != "s-1" {
		t.Fatalf("unexpected metadata: %+v", listed[0])
	}
}

func TestSQLiteStore_RejectsRowWithBothIdentifiers(t *testing.T) {
	t.Parallel()

	store := openTestSQLite(t)
	err := store.SaveEntry(context.Background(), badge.Entry{
		RequesterName: "Sam",
		Company:       badge.CompanyOther,
		EmployeeName:  "Jane Doe",
		LDAP:          "AB12345",
		AIN:           "123456789",
	})
	if err == nil {
		t.Fatalf("expected check constraint violation")
	}
}

func TestSQLiteStore_DeleteRequests(t *testing.T) {
	t.Parallel()

	store := openTestSQLite(t)
	ctx := context.Background()

	id, err := store.InsertRequest(ctx, badge.Entry{RequesterName: "Sam", Company: badge.CompanyOther, EmployeeName: "A", LDAP: "AAAAAAA"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.InsertRequest(ctx, badge.Entry{RequesterName: "Sam", Company: badge.CompanyOther, EmployeeName: "B", LDAP: "BBBBBBB"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	deleted, err := store.DeleteRequest(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("delete request: deleted=%t err=%v", deleted, err)
	}
	deleted, err = store.DeleteRequest(ctx, id)
	if err != nil || deleted {
		t.Fatalf("expected second delete to report missing row: deleted=%t err=%v", deleted, err)
	}

	count, err := store.DeleteAllRequests(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deleted row, got %d", count)
	}
}

func TestSQLiteStore_AddsSessionIDColumnToOldSchema(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	_, err = db.Exec(`
CREATE TABLE badge_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	requester_name TEXT NOT NULL,
	company TEXT NOT NULL,
	employee_name TEXT NOT NULL,
	ldap TEXT NOT NULL DEFAULT '',
	ain TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
INSERT INTO badge_requests (requester_name, company, employee_name, ldap) VALUES ('Sam', 'Other', 'Jane', 'AB12345');`)
	if err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}
	_ = db.Close()

	store, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	listed, err := store.ListRequests(context.Background())
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(listed) != 1 || listed[0].SessionID != "" || listed[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected legacy row: %+v", listed)
	}
}

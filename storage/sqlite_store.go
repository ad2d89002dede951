package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"badgereq/badge"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS badge_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	requester_name TEXT NOT NULL,
	company TEXT NOT NULL,
	employee_name TEXT NOT NULL,
	ldap TEXT NOT NULL DEFAULT '',
	ain TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK((ldap = '') <> (ain = ''))
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := s.ensureSessionIDColumn(); err != nil {
		return err
	}

	return nil
}

// ensureSessionIDColumn upgrades databases created before rows carried the
// session they were added from.
func (s *SQLiteStore) ensureSessionIDColumn() error {
	rows, err := s.db.Query(`PRAGMA table_info(badge_requests);`)
	if err != nil {
		return fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()

	hasSessionID := false
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if strings.EqualFold(name, "session_id") {
			hasSessionID = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate table info: %w", err)
	}

	if hasSessionID {
		return nil
	}

	if _, err := s.db.Exec(`ALTER TABLE badge_requests ADD COLUMN session_id TEXT NOT NULL DEFAULT '';`); err != nil {
		return fmt.Errorf("add session_id column: %w", err)
	}

	return nil
}

// SaveEntry inserts one accepted entry.
func (s *SQLiteStore) SaveEntry(ctx context.Context, entry badge.Entry) error {
	_, err := s.InsertRequest(ctx, entry)
	return err
}

// InsertRequest inserts one entry and returns its row id.
func (s *SQLiteStore) InsertRequest(ctx context.Context, entry badge.Entry) (int64, error) {
	const insertStmt = `
INSERT INTO badge_requests (
	requester_name,
	company,
	employee_name,
	ldap,
	ain,
	session_id,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?);`

	res, err := s.db.ExecContext(
		ctx,
		insertStmt,
		entry.RequesterName,
		string(entry.Company),
		entry.EmployeeName,
		entry.LDAP,
		entry.AIN,
		entry.SessionID,
		createdAt(entry).Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert badge request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted row id: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid inserted row id %d", id)
	}
	return id, nil
}

func (s *SQLiteStore) ListRequests(ctx context.Context) ([]badge.Entry, error) {
	const query = `
SELECT
	id,
	requester_name,
	company,
	employee_name,
	ldap,
	ain,
	session_id,
	created_at
FROM badge_requests
ORDER BY created_at, id;
`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query badge requests: %w", err)
	}
	defer rows.Close()

	entries := make([]badge.Entry, 0, 64)
	for rows.Next() {
		var (
			entry      badge.Entry
			company    string
			createdRaw string
		)

		if err := rows.Scan(
			&entry.ID,
			&entry.RequesterName,
			&company,
			&entry.EmployeeName,
			&entry.LDAP,
			&entry.AIN,
			&entry.SessionID,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan badge request: %w", err)
		}
		entry.Company = badge.Company(company)

		entry.CreatedAt, err = parseCreatedAt(createdRaw)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate badge requests: %w", err)
	}

	return entries, nil
}

// DeleteRequest removes the row with the given ID.
func (s *SQLiteStore) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("badge request id must be > 0")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM badge_requests WHERE id = ?;`, id)
	if err != nil {
		return false, fmt.Errorf("delete badge request %d: %w", id, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read deleted row count: %w", err)
	}
	return rowsAffected > 0, nil
}

func (s *SQLiteStore) DeleteAllRequests(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM badge_requests;`)
	if err != nil {
		return 0, fmt.Errorf("delete badge requests: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted row count: %w", err)
	}
	return rows, nil
}

func createdAt(entry badge.Entry) time.Time {
	if entry.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return entry.CreatedAt
}

// parseCreatedAt accepts RFC3339 and SQLite's CURRENT_TIMESTAMP layout.
func parseCreatedAt(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse("2006-01-02 15:04:05", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", raw, err)
	}
	return parsed, nil
}

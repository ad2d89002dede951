package storage

import (
	"context"
	"fmt"

	"badgereq/badge"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps badge requests in a PostgreSQL database, such as the one
// behind a hosted Supabase project.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS badge_requests (
	id BIGSERIAL PRIMARY KEY,
	requester_name TEXT NOT NULL,
	company TEXT NOT NULL,
	employee_name TEXT NOT NULL,
	ldap TEXT NOT NULL DEFAULT '',
	ain TEXT NOT NULL DEFAULT '',
	session_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK ((ldap = '') <> (ain = ''))
);
ALTER TABLE badge_requests ADD COLUMN IF NOT EXISTS session_id TEXT NOT NULL DEFAULT '';
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveEntry(ctx context.Context, entry badge.Entry) error {
	const insertStmt = `
INSERT INTO badge_requests (requester_name, company, employee_name, ldap, ain, session_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := s.pool.Exec(
		ctx,
		insertStmt,
		entry.RequesterName,
		string(entry.Company),
		entry.EmployeeName,
		entry.LDAP,
		entry.AIN,
		entry.SessionID,
		createdAt(entry),
	)
	if err != nil {
		return fmt.Errorf("insert badge request: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRequests(ctx context.Context) ([]badge.Entry, error) {
	const query = `
SELECT id, requester_name, company, employee_name, ldap, ain, session_id, created_at
FROM badge_requests
ORDER BY created_at, id;`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query badge requests: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (badge.Entry, error) {
		var (
			entry   badge.Entry
			company string
		)
		err := row.Scan(
			&entry.ID,
			&entry.RequesterName,
			&company,
			&entry.EmployeeName,
			&entry.LDAP,
			&entry.AIN,
			&entry.SessionID,
			&entry.CreatedAt,
		)
		entry.Company = badge.Company(company)
		return entry, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan badge requests: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("badge request id must be > 0")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM badge_requests WHERE id = $1;`, id)
	if err != nil {
		return false, fmt.Errorf("delete badge request %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteAllRequests(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM badge_requests;`)
	if err != nil {
		return 0, fmt.Errorf("delete badge requests: %w", err)
	}
	return tag.RowsAffected(), nil
}

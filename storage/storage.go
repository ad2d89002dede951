package storage

import (
	"context"

	"badgereq/badge"
)

// Repository is a badge request store that can persist entries and read them back.
type Repository interface {
	SaveEntry(ctx context.Context, entry badge.Entry) error
	ListRequests(ctx context.Context) ([]badge.Entry, error)
	DeleteRequest(ctx context.Context, id int64) (bool, error)
	DeleteAllRequests(ctx context.Context) (int64, error)
	Close() error
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*PostgresStore)(nil)
)

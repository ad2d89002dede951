package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"badgereq/badge"
	"badgereq/config"
	"badgereq/form"
	"badgereq/mail"
	"badgereq/storage"
	"badgereq/supabase"
)

// requestStore is a persistence backend that can also read saved requests back.
type requestStore interface {
	form.Persister
	ListRequests(ctx context.Context) ([]badge.Entry, error)
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// openRequestStore opens the backend selected by database.driver. The returned
// closer must be called when the store is no longer needed.
func openRequestStore(ctx context.Context, cfg config.DatabaseConfig) (requestStore, interface{ Close() error }, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverPostgres:
		store, err := storage.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.DriverSupabase:
		client, err := supabase.NewClient(supabase.ClientConfig{
			BaseURL: cfg.SupabaseURL,
			APIKey:  cfg.SupabaseKey,
			Table:   cfg.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, noopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// openRepository opens a SQL backend that supports deleting saved requests.
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (storage.Repository, error) {
	store, closer, err := openRequestStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo, ok := store.(storage.Repository)
	if !ok {
		_ = closer.Close()
		return nil, fmt.Errorf("database driver %q does not support this operation", cfg.Driver)
	}
	return repo, nil
}

func newMailClient(cfg config.MailConfig) (*mail.Client, error) {
	return mail.NewClient(mail.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		From:    cfg.From,
		To:      cfg.To,
		Timeout: cfg.Timeout,
	})
}

func newLogger(cfg *config.Config) *slog.Logger {
	return cfg.Log.NewLogger(os.Stderr)
}

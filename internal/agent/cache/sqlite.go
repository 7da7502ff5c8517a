package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/store"
	"github.com/dmitrijs2005/storysync/internal/dbx"
	"github.com/dmitrijs2005/storysync/internal/migrations"
)

// SQLiteBackend stores entries in the agent's cache database, separate from
// the queue store so a corrupt or deleted cache never touches user data.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens the cache database at path and applies its schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", store.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := migrations.Up(ctx, db, migrations.Cache()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }

func (b *SQLiteBackend) Get(ctx context.Context, region, key string) (*Entry, error) {
	var (
		e        Entry
		header   []byte
		storedAt string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM cache_entries WHERE region = ? AND key = ?`,
		region, key).Scan(&e.Status, &header, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	e.Header = http.Header{}
	if err := json.Unmarshal(header, &e.Header); err != nil {
		return nil, fmt.Errorf("failed to decode cached header: %w", err)
	}
	if e.StoredAt, err = time.Parse(time.RFC3339Nano, storedAt); err != nil {
		return nil, fmt.Errorf("failed to decode cached time: %w", err)
	}
	return &e, nil
}

// Put replaces the entry in one transaction; a failed write keeps the old one.
func (b *SQLiteBackend) Put(ctx context.Context, region, key string, e *Entry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cache_entries (region, key, status, header, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(region, key) DO UPDATE SET
				status = excluded.status,
				header = excluded.header,
				body = excluded.body,
				stored_at = excluded.stored_at`,
			region, key, e.Status, header, e.Body, e.StoredAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to store cache entry: %w", err)
		}
		return nil
	})
}

func (b *SQLiteBackend) Delete(ctx context.Context, region, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE region = ? AND key = ?`, region, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

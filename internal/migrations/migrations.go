// Package migrations embeds the goose SQL migrations for the two SQLite
// databases: the queue store shared by agent and client, and the agent's
// response cache.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed queue/*.sql
var queue embed.FS

//go:embed cache/*.sql
var cache embed.FS

// Queue returns the migrations of the queue store.
func Queue() fs.FS { return sub(queue, "queue") }

// Cache returns the migrations of the response cache.
func Cache() fs.FS { return sub(cache, "cache") }

func sub(fsys embed.FS, dir string) fs.FS {
	s, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return s
}

// Up applies every pending migration in fsys. goose's version table makes
// repeated calls a no-op.
func Up(ctx context.Context, db *sql.DB, fsys fs.FS) (int64, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return version, nil
}

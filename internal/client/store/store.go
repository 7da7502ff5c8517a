// Package store is the durable queue store: pending submissions, favorites
// and metadata in one SQLite file shared by the agent and every client.
//
// Mutations run inside a single transaction on the table they touch, so a
// failed write leaves nothing behind. Storage failures surface as
// common.ErrStorage; ErrNotFound, ErrConflict and ErrValidation pass through
// unchanged.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/favorites"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/pending"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/dbx"
	"github.com/dmitrijs2005/storysync/internal/migrations"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DSN builds a modernc sqlite DSN with WAL and a busy timeout so several
// processes can share the file.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// Open opens (creating if needed) the database at path and applies the
// schema. Opening an already initialised file is a no-op for the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStorage, path, err)
	}

	if _, err := migrations.Up(ctx, db, migrations.Queue()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	return New(db), nil
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Metadata returns the key/value repository bound to the database.
func (s *Store) Metadata() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

func (s *Store) EnqueueSubmission(ctx context.Context, p *models.PendingSubmission) (int64, error) {
	if strings.TrimSpace(p.Description) == "" {
		return 0, fmt.Errorf("%w: description is required", common.ErrValidation)
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now().UTC()
	}

	var id int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		id, err = pending.NewSQLiteRepository(tx).Insert(ctx, p)
		return err
	})
	if err != nil {
		return 0, storageErr(err)
	}
	return id, nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]models.PendingSubmission, error) {
	list, err := pending.NewSQLiteRepository(s.db).List(ctx)
	return list, storageErr(err)
}

func (s *Store) GetSubmission(ctx context.Context, tempID int64) (*models.PendingSubmission, error) {
	p, err := pending.NewSQLiteRepository(s.db).Get(ctx, tempID)
	return p, storageErr(err)
}

func (s *Store) DeleteSubmission(ctx context.Context, tempID int64) error {
	return storageErr(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return pending.NewSQLiteRepository(tx).Delete(ctx, tempID)
	}))
}

func (s *Store) CountSubmissions(ctx context.Context) (int, error) {
	n, err := pending.NewSQLiteRepository(s.db).Count(ctx)
	return n, storageErr(err)
}

func (s *Store) ClearSubmissions(ctx context.Context) (int64, error) {
	var n int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		n, err = pending.NewSQLiteRepository(tx).Clear(ctx)
		return err
	})
	return n, storageErr(err)
}

// AddFavorite bookmarks f and stamps FavoritedAt.
func (s *Store) AddFavorite(ctx context.Context, f *models.FavoriteStory) (string, error) {
	if f.ID == "" {
		return "", fmt.Errorf("%w: favorite id is required", common.ErrValidation)
	}
	f.FavoritedAt = s.now().UTC()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return favorites.NewSQLiteRepository(tx).Insert(ctx, f)
	})
	if err != nil {
		return "", storageErr(err)
	}
	return f.ID, nil
}

func (s *Store) GetFavorite(ctx context.Context, id string) (*models.FavoriteStory, error) {
	f, err := favorites.NewSQLiteRepository(s.db).Get(ctx, id)
	return f, storageErr(err)
}

func (s *Store) IsFavorite(ctx context.Context, id string) (bool, error) {
	_, err := s.GetFavorite(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) ListFavorites(ctx context.Context, sort models.FavoriteSort) ([]models.FavoriteStory, error) {
	list, err := favorites.NewSQLiteRepository(s.db).List(ctx, sort)
	return list, storageErr(err)
}

func (s *Store) DeleteFavorite(ctx context.Context, id string) error {
	return storageErr(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return favorites.NewSQLiteRepository(tx).Delete(ctx, id)
	}))
}

func (s *Store) SearchFavorites(ctx context.Context, query string) ([]models.FavoriteStory, error) {
	list, err := favorites.NewSQLiteRepository(s.db).Search(ctx, query)
	return list, storageErr(err)
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{common.ErrStorage, common.ErrNotFound, common.ErrConflict, common.ErrValidation} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrStorage, err)
}

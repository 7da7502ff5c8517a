package favorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, name, description, photo_url, lat, lon, created_at, favorited_at`

var orderColumns = map[models.SortKey]string{
	models.SortByCreatedAt:   "created_at",
	models.SortByFavoritedAt: "favorited_at",
	models.SortByName:        "name COLLATE NOCASE",
}

func (r *SQLiteRepository) Insert(ctx context.Context, f *models.FavoriteStory) error {
	query := `INSERT INTO favorites (id, name, description, photo_url, lat, lon, created_at, favorited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Description, f.PhotoURL, nullFloat(f.Lat), nullFloat(f.Lon),
		formatTime(f.CreatedAt), formatTime(f.FavoritedAt))
	if err != nil {
		return fmt.Errorf("failed to insert favorite %s: %w", f.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrConflict
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.FavoriteStory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM favorites WHERE id = ?`, id)
	f, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return f, err
}

func (r *SQLiteRepository) List(ctx context.Context, sort models.FavoriteSort) ([]models.FavoriteStory, error) {
	sort, ok := sort.Normalize()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported sort %s %s", common.ErrValidation, sort.Key, sort.Order)
	}

	dir := "DESC"
	if sort.Order == models.Asc {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM favorites ORDER BY %s %s, id %s`, selectColumns, orderColumns[sort.Key], dir, dir)

	return r.query(ctx, query)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete favorite %s: %w", id, err)
	}
	return nil
}

// Search filters in Go rather than with LIKE: SQLite only folds ASCII case.
func (r *SQLiteRepository) Search(ctx context.Context, q string) ([]models.FavoriteStory, error) {
	all, err := r.List(ctx, models.FavoriteSort{})
	if err != nil {
		return nil, err
	}

	result := []models.FavoriteStory{}
	for _, f := range all {
		if f.Matches(q) {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.FavoriteStory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select favorites: %w", err)
	}
	defer rows.Close()

	result := []models.FavoriteStory{}
	for rows.Next() {
		f, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.FavoriteStory, error) {
	var (
		f                    models.FavoriteStory
		lat, lon             sql.NullFloat64
		createdAt, favorited string
	)
	err := s.Scan(&f.ID, &f.Name, &f.Description, &f.PhotoURL, &lat, &lon, &createdAt, &favorited)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorite: %w", err)
	}

	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("favorite %s has bad created_at: %w", f.ID, err)
	}
	if f.FavoritedAt, err = time.Parse(time.RFC3339Nano, favorited); err != nil {
		return nil, fmt.Errorf("favorite %s has bad favorited_at: %w", f.ID, err)
	}
	if lat.Valid {
		f.Lat = &lat.Float64
	}
	if lon.Valid {
		f.Lon = &lon.Float64
	}
	return &f, nil
}

// formatTime keeps a fixed-width layout so lexical order equals time order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

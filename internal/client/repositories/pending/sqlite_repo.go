package pending

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

const selectColumns = `temp_id, description, photo_data, photo_type, photo_name, lat, lon, timestamp`

func (r *SQLiteRepository) Insert(ctx context.Context, p *models.PendingSubmission) (int64, error) {
	query := `INSERT INTO pending_submissions (description, photo_data, photo_type, photo_name, lat, lon, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		p.Description, p.PhotoData, p.PhotoType, p.PhotoName,
		nullFloat(p.Lat), nullFloat(p.Lon), p.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert pending submission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read temp id: %w", err)
	}
	p.TempID = id
	return id, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.PendingSubmission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM pending_submissions ORDER BY temp_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending submissions: %w", err)
	}
	defer rows.Close()

	result := []models.PendingSubmission{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending submissions: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, tempID int64) (*models.PendingSubmission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM pending_submissions WHERE temp_id = ?`, tempID)
	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return p, err
}

func (r *SQLiteRepository) Delete(ctx context.Context, tempID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_submissions WHERE temp_id = ?`, tempID)
	if err != nil {
		return fmt.Errorf("failed to delete pending submission %d: %w", tempID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_submissions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_submissions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear pending submissions: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.PendingSubmission, error) {
	var (
		p        models.PendingSubmission
		lat, lon sql.NullFloat64
		ts       string
	)
	err := s.Scan(&p.TempID, &p.Description, &p.PhotoData, &p.PhotoType, &p.PhotoName, &lat, &lon, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending submission: %w", err)
	}

	p.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("pending %d has bad timestamp %q: %w", p.TempID, ts, err)
	}
	p.Lat = floatPtr(lat)
	p.Lon = floatPtr(lon)
	return &p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

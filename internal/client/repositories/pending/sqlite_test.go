package pending

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE pending_submissions (
    temp_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    description TEXT    NOT NULL,
    photo_data  TEXT    NOT NULL,
    photo_type  TEXT    NOT NULL,
    photo_name  TEXT    NOT NULL,
    lat         REAL,
    lon         REAL,
    timestamp   TEXT    NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func fptr(v float64) *float64 { return &v }

func sample(desc string) *models.PendingSubmission {
	return &models.PendingSubmission{
		Description: desc,
		PhotoData:   models.EncodeDataURL("image/jpeg", []byte{0xff, 0xd8, 0x00}),
		PhotoType:   "image/jpeg",
		PhotoName:   "photo.jpg",
		Lat:         fptr(-6.2),
		Lon:         fptr(106.8),
		Timestamp:   time.Date(2025, 3, 4, 5, 6, 7, 890, time.UTC),
	}
}

func TestInsertAndGet_PreservesFields(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	in := sample("Hello")
	id, err := r.Insert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, id, in.TempID)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, *in, *got)
}

func TestInsert_NilCoordinates(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	in := sample("no gps")
	in.Lat, in.Lon = nil, nil
	id, err := r.Insert(ctx, in)
	require.NoError(t, err)

	got, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Lat)
	assert.Nil(t, got.Lon)
}

func TestList_InsertionOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, d := range []string{"first", "second", "third"} {
		_, err := r.Insert(ctx, sample(d))
		require.NoError(t, err)
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Description)
	assert.Equal(t, "third", list[2].Description)
	assert.Less(t, list[0].TempID, list[1].TempID)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	list, err := r.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestDelete_ThenNotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.Insert(ctx, sample("x"))
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, id))
	require.ErrorIs(t, r.Delete(ctx, id), common.ErrNotFound)

	_, err = r.Get(ctx, id)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTempIDsAreNotReused(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id1, err := r.Insert(ctx, sample("a"))
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, id1))

	id2, err := r.Insert(ctx, sample("b"))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}

func TestCountAndClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Insert(ctx, sample("s"))
		require.NoError(t, err)
	}

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dropped, err := r.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dropped)

	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func newRepoWithMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db), mock
}

func TestInsert_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+pending_submissions`).
		WillReturnError(errors.New("disk full"))

	_, err := r.Insert(context.Background(), sample("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert pending submission")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ScanError(t *testing.T) {
	r, mock := newRepoWithMock(t)

	rows := sqlmock.NewRows([]string{"temp_id", "description", "photo_data", "photo_type", "photo_name", "lat", "lon", "timestamp"}).
		AddRow(1, "d", "data:,", "image/png", "p.png", nil, nil, "yesterday")
	mock.ExpectQuery(`(?s)^SELECT\s+temp_id.*FROM\s+pending_submissions\s+ORDER\s+BY\s+temp_id$`).
		WillReturnRows(rows)

	_, err := r.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad timestamp")
}

func TestDelete_RowsAffectedError(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+pending_submissions\s+WHERE\s+temp_id\s*=\s*\?$`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no rows info")))

	err := r.Delete(context.Background(), 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

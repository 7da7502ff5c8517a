package favorites

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
CREATE TABLE favorites (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL,
    photo_url    TEXT NOT NULL,
    lat          REAL,
    lon          REAL,
    created_at   TEXT NOT NULL,
    favorited_at TEXT NOT NULL
);`)
	require.NoError(t, err)
	return db
}

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func fav(id, name, desc string, createdDay, favDay int) *models.FavoriteStory {
	return &models.FavoriteStory{
		ID:          id,
		Name:        name,
		Description: desc,
		PhotoURL:    "https://story-api.dicoding.dev/images/stories/" + id + ".jpg",
		CreatedAt:   base.AddDate(0, 0, createdDay),
		FavoritedAt: base.AddDate(0, 0, favDay),
	}
}

func ids(list []models.FavoriteStory) []string {
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.ID
	}
	return out
}

func seed(t *testing.T, r *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, fav("s1", "charlie", "Sunset at the BEACH", 1, 9)))
	require.NoError(t, r.Insert(ctx, fav("s2", "Alice", "coffee in Bandung", 3, 7)))
	require.NoError(t, r.Insert(ctx, fav("s3", "bob", "mountain trail", 2, 8)))
}

func TestInsert_ConflictOnSameID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, fav("s1", "a", "b", 0, 0)))
	err := r.Insert(ctx, fav("s1", "other", "other", 1, 1))
	require.ErrorIs(t, err, common.ErrConflict)

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name, "first insert must win")
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestList_Sorting(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	seed(t, r)
	ctx := context.Background()

	tests := []struct {
		name string
		sort models.FavoriteSort
		want []string
	}{
		{name: "default createdAt desc", sort: models.FavoriteSort{}, want: []string{"s2", "s3", "s1"}},
		{name: "createdAt asc", sort: models.FavoriteSort{Key: models.SortByCreatedAt, Order: models.Asc}, want: []string{"s1", "s3", "s2"}},
		{name: "favoritedAt desc", sort: models.FavoriteSort{Key: models.SortByFavoritedAt, Order: models.Desc}, want: []string{"s1", "s3", "s2"}},
		{name: "name asc ignores case", sort: models.FavoriteSort{Key: models.SortByName, Order: models.Asc}, want: []string{"s2", "s3", "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := r.List(ctx, tt.sort)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(list))
		})
	}
}

func TestList_UnknownSort(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.List(context.Background(), models.FavoriteSort{Key: "rating"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSearch_CaseInsensitiveOverNameAndDescription(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	seed(t, r)
	ctx := context.Background()

	got, err := r.Search(ctx, "beach")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(got))

	got, err = r.Search(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids(got))

	got, err = r.Search(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s3", "s1"}, ids(got))

	got, err = r.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	seed(t, r)
	ctx := context.Background()

	require.NoError(t, r.Delete(ctx, "s2"))
	require.NoError(t, r.Delete(ctx, "s2"))

	_, err := r.Get(ctx, "s2")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCoordinatesRoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	f := fav("geo", "n", "d", 0, 0)
	lat, lon := -6.2, 106.8
	f.Lat, f.Lon = &lat, &lon
	require.NoError(t, r.Insert(ctx, f))

	got, err := r.Get(ctx, "geo")
	require.NoError(t, err)
	require.NotNil(t, got.Lat)
	assert.InDelta(t, lat, *got.Lat, 1e-9)
	assert.InDelta(t, lon, *got.Lon, 1e-9)
}

func TestInsert_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	r := NewSQLiteRepository(db)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+favorites.*ON\s+CONFLICT\(id\)\s+DO\s+NOTHING$`).
		WillReturnError(errors.New("database is locked"))

	err = r.Insert(context.Background(), fav("s1", "a", "b", 0, 0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrConflict)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestList_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	r := NewSQLiteRepository(db)

	mock.ExpectQuery(`(?s)^SELECT\s+id.*FROM\s+favorites\s+ORDER\s+BY\s+name\s+COLLATE\s+NOCASE\s+ASC,\s+id\s+ASC$`).
		WillReturnError(errors.New("io"))

	_, err = r.List(context.Background(), models.FavoriteSort{Key: models.SortByName, Order: models.Asc})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
)

func TestFavorites(t *testing.T) {
	svc := NewFavoriteService(openStore(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	stories := []models.Story{
		{ID: "s1", Name: "Budi", Description: "Pantai di Bali", CreatedAt: base},
		{ID: "s2", Name: "Ani", Description: "Gunung Bromo", CreatedAt: base.Add(time.Hour)},
		{ID: "s3", Name: "Citra", Description: "bali sunset", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, s := range stories {
		require.NoError(t, svc.Add(ctx, s))
	}
	require.ErrorIs(t, svc.Add(ctx, stories[0]), common.ErrConflict)

	list, err := svc.List(ctx, models.FavoriteSort{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"s3", "s2", "s1"}, ids(list), "createdAt desc by default")

	list, err = svc.List(ctx, models.FavoriteSort{Key: models.SortByName, Order: models.Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1", "s3"}, ids(list))

	_, err = svc.List(ctx, models.FavoriteSort{Key: "rating"})
	require.ErrorIs(t, err, common.ErrValidation)

	found, err := svc.Search(ctx, "BALI")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s3"}, ids(found))

	found, err = svc.Search(ctx, " ")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	on, err := svc.Toggle(ctx, stories[1])
	require.NoError(t, err)
	assert.False(t, on)
	ok, err := svc.IsFavorite(ctx, "s2")
	require.NoError(t, err)
	assert.False(t, ok)

	on, err = svc.Toggle(ctx, stories[1])
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, svc.Remove(ctx, "s1"))
	require.NoError(t, svc.Remove(ctx, "s1"), "delete is idempotent")
}

func ids(list []models.FavoriteStory) []string {
	out := make([]string, 0, len(list))
	for _, f := range list {
		out = append(out, f.ID)
	}
	return out
}

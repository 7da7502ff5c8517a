package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
)

// FavoriteStore is the bookmark part of the local store.
type FavoriteStore interface {
	AddFavorite(ctx context.Context, f *models.FavoriteStory) (string, error)
	IsFavorite(ctx context.Context, id string) (bool, error)
	ListFavorites(ctx context.Context, sort models.FavoriteSort) ([]models.FavoriteStory, error)
	DeleteFavorite(ctx context.Context, id string) error
	SearchFavorites(ctx context.Context, query string) ([]models.FavoriteStory, error)
}

// FavoriteService manages bookmarks of remote stories. It works offline.
type FavoriteService interface {
	Add(ctx context.Context, s models.Story) error
	// Toggle adds s when it is not bookmarked and removes it otherwise. It
	// reports whether s is bookmarked afterwards.
	Toggle(ctx context.Context, s models.Story) (bool, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, sort models.FavoriteSort) ([]models.FavoriteStory, error)
	Search(ctx context.Context, query string) ([]models.FavoriteStory, error)
	IsFavorite(ctx context.Context, id string) (bool, error)
}

type favoriteService struct {
	store FavoriteStore
}

func NewFavoriteService(store FavoriteStore) FavoriteService {
	return &favoriteService{store: store}
}

func (f *favoriteService) Add(ctx context.Context, s models.Story) error {
	_, err := f.store.AddFavorite(ctx, s.Favorite())
	return err
}

func (f *favoriteService) Toggle(ctx context.Context, s models.Story) (bool, error) {
	ok, err := f.store.IsFavorite(ctx, s.ID)
	if err != nil {
		return false, err
	}
	if ok {
		return false, f.store.DeleteFavorite(ctx, s.ID)
	}

	err = f.Add(ctx, s)
	if errors.Is(err, common.ErrConflict) {
		return true, nil
	}
	return err == nil, err
}

func (f *favoriteService) Remove(ctx context.Context, id string) error {
	return f.store.DeleteFavorite(ctx, id)
}

func (f *favoriteService) List(ctx context.Context, sort models.FavoriteSort) ([]models.FavoriteStory, error) {
	norm, ok := sort.Normalize()
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort %s %s", common.ErrValidation, sort.Key, sort.Order)
	}
	return f.store.ListFavorites(ctx, norm)
}

func (f *favoriteService) Search(ctx context.Context, query string) ([]models.FavoriteStory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return f.List(ctx, models.FavoriteSort{})
	}
	return f.store.SearchFavorites(ctx, query)
}

func (f *favoriteService) IsFavorite(ctx context.Context, id string) (bool, error) {
	return f.store.IsFavorite(ctx, id)
}

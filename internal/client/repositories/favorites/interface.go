package favorites

import (
	"context"

	"github.com/dmitrijs2005/storysync/internal/client/models"
)

type Repository interface {
	// Insert stores f or returns common.ErrConflict when the id exists.
	Insert(ctx context.Context, f *models.FavoriteStory) error

	// Get returns one favorite or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.FavoriteStory, error)

	List(ctx context.Context, sort models.FavoriteSort) ([]models.FavoriteStory, error)

	// Delete removes a favorite; deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Search returns favorites whose name or description contains query,
	// ignoring case, newest first.
	Search(ctx context.Context, query string) ([]models.FavoriteStory, error)
}

package pending

import (
	"context"

	"github.com/dmitrijs2005/storysync/internal/client/models"
)

// Repository describes the pending submission queue.
type Repository interface {
	// Insert stores p and returns the assigned temp id.
	Insert(ctx context.Context, p *models.PendingSubmission) (int64, error)

	// List returns all records ordered by temp id (insertion order).
	List(ctx context.Context) ([]models.PendingSubmission, error)

	// Get returns one record or common.ErrNotFound.
	Get(ctx context.Context, tempID int64) (*models.PendingSubmission, error)

	// Delete removes one record or returns common.ErrNotFound.
	Delete(ctx context.Context, tempID int64) error

	Count(ctx context.Context) (int, error)

	// Clear removes every record and returns how many were dropped.
	Clear(ctx context.Context) (int64, error)
}

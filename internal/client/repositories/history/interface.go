package history

import (
	"context"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
)

type Repository interface {
	// Remember inserts w or replaces the stored row with the same drawing id.
	Remember(ctx context.Context, w *models.Watch) error
	// UpdateStatus records the last observed status of a remembered drawing.
	UpdateStatus(ctx context.Context, drawingID string, st *models.Status, at time.Time) error
	Get(ctx context.Context, drawingID string) (*models.Watch, error)
	// ListActive returns the remembered drawings not yet in a terminal state.
	ListActive(ctx context.Context) ([]*models.Watch, error)
	List(ctx context.Context) ([]*models.Watch, error)
	Forget(ctx context.Context, drawingID string) error
}

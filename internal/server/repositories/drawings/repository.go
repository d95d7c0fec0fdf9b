// Package drawings persists drawings and their translation lifecycle.
//
// Methods taking an ownerID are owner-scoped and report common.ErrorNotFound
// for rows belonging to somebody else. GetByID, GetByURN, Update and
// ListStuck are system-scoped and meant for the submission worker, the
// status poller and the reconciliation sweep.
package drawings

import (
	"context"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	State     models.State
	ProjectID string
}

// MutateFunc changes d in place and reports whether anything changed.
// It may be called more than once when concurrent writers collide.
type MutateFunc func(d *models.Drawing) (bool, error)

type Repository interface {
	Create(ctx context.Context, d *models.Drawing) error
	Update(ctx context.Context, id string, fn MutateFunc) (*models.Drawing, error)
	GetByID(ctx context.Context, id string) (*models.Drawing, error)
	GetByIDForOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error)
	GetByURN(ctx context.Context, urn string) (*models.Drawing, error)
	Delete(ctx context.Context, ownerID, id string) error
	List(ctx context.Context, ownerID string, f Filter, limit int) ([]*models.Drawing, error)
	ListStuck(ctx context.Context, state models.State, before time.Time, limit int) ([]*models.Drawing, error)
}

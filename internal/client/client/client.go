package client

import (
	"context"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
)

// Client is the drawkeeper API as drawctl uses it.
type Client interface {
	Upload(ctx context.Context, path string, opts UploadOptions) (string, error)
	Status(ctx context.Context, urn string) (*models.Status, error)
	Check(ctx context.Context, drawingID string) (*models.Status, error)
	Get(ctx context.Context, drawingID string) (*models.Drawing, error)
	List(ctx context.Context, state string, limit int) ([]models.Drawing, error)
	Delete(ctx context.Context, drawingID string) error
	DownloadURL(ctx context.Context, drawingID string) (string, error)
}

// UploadOptions are the optional form fields of an upload.
type UploadOptions struct {
	Name        string
	Description string
	ProjectID   string
}

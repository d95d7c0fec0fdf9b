// Package http exposes drawings over a JSON REST API built on gin.
package http

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/logging"
	"github.com/dmitrijs2005/drawkeeper/internal/server/auth"
	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/drawkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// DrawingService is the part of services.DrawingService the API serves.
type DrawingService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.Drawing, error)
	CheckStatus(ctx context.Context, urn string) (*services.StatusReport, error)
	CheckDrawing(ctx context.Context, ownerID, drawingID string) (*services.StatusReport, error)
	Get(ctx context.Context, ownerID, drawingID string) (*models.Drawing, error)
	List(ctx context.Context, ownerID string, f drawings.Filter, limit int) ([]*models.Drawing, error)
	Delete(ctx context.Context, ownerID, drawingID string) error
	DownloadURL(ctx context.Context, ownerID, drawingID string) (string, error)
}

// ReadinessFunc reports whether the backing services are reachable.
type ReadinessFunc func(ctx context.Context) error

type RouterConfig struct {
	Service       DrawingService
	Log           logging.Logger
	SecretKey     []byte
	MaxUploadSize int64
	Ready         ReadinessFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	h := &handlers{svc: cfg.Service, maxUpload: cfg.MaxUploadSize, ready: cfg.Ready}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery(), requestLogger(cfg.Log))

	r.GET("/healthz", h.health)
	r.GET("/readyz", h.readiness)

	r.GET("/status/:urn", requireAuth(cfg.SecretKey, auth.KindOwner, auth.KindService), h.status)

	owner := r.Group("/", requireAuth(cfg.SecretKey, auth.KindOwner))
	owner.POST("/upload", h.upload)
	owner.GET("/drawings", h.list)
	owner.GET("/drawings/:id", h.get)
	owner.DELETE("/drawings/:id", h.delete)
	owner.GET("/drawings/:id/download", h.download)
	owner.POST("/drawings/:id/check", h.check)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, fmt.Errorf("%w: %s %s", common.ErrorNotFound, c.Request.Method, c.Request.URL.Path))
	})

	return r
}

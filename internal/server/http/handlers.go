package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/drawkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// multipartSlack covers the form fields and boundaries around the file.
const multipartSlack = 1 << 20

type handlers struct {
	svc       DrawingService
	maxUpload int64
	ready     ReadinessFunc
}

type uploadResponse struct {
	DrawingID string `json:"drawingId"`
}

type statusResponse struct {
	Status          models.State `json:"status"`
	ProgressPercent int          `json:"progressPercent"`
	Messages        []string     `json:"messages,omitempty"`
}

type checkResponse struct {
	DrawingID string `json:"drawingId"`
	URN       string `json:"urn,omitempty"`
	Message   string `json:"message,omitempty"`
	statusResponse
}

type listResponse struct {
	Drawings []*models.Drawing `json:"drawings"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

func (h *handlers) health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *handlers) readiness(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorEnvelope{Error: APIError{Message: "not ready", Code: "unavailable"}})
			return
		}
	}
	c.String(http.StatusOK, "ready")
}

func (h *handlers) upload(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartSlack)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, fmt.Errorf("%w: file exceeds %d bytes", common.ErrValidation, h.maxUpload))
			return
		}
		respondError(c, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrValidation))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUpload > 0 {
		// one byte past the limit is enough for the service to reject it
		r = io.LimitReader(f, h.maxUpload+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		respondError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	d, err := h.svc.Upload(c.Request.Context(), services.UploadRequest{
		OwnerID:     ownerID(c),
		ProjectID:   c.PostForm("project_id"),
		FileName:    fh.Filename,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{DrawingID: d.ID})
}

func (h *handlers) status(c *gin.Context) {
	rep, err := h.svc.CheckStatus(c.Request.Context(), c.Param("urn"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatus(rep))
}

func (h *handlers) check(c *gin.Context) {
	rep, err := h.svc.CheckDrawing(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkResponse{
		DrawingID:      rep.DrawingID,
		URN:            rep.URN,
		Message:        rep.Message,
		statusResponse: toStatus(rep),
	})
}

func toStatus(rep *services.StatusReport) statusResponse {
	msgs := rep.Messages
	if len(msgs) == 0 && rep.Message != "" {
		msgs = []string{rep.Message}
	}
	return statusResponse{Status: rep.State, ProgressPercent: rep.Progress, Messages: msgs}
}

func (h *handlers) list(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(c, fmt.Errorf("%w: limit must be a number", common.ErrValidation))
			return
		}
		limit = n
	}

	f := drawings.Filter{State: models.State(c.Query("state")), ProjectID: c.Query("project_id")}
	list, err := h.svc.List(c.Request.Context(), ownerID(c), f, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []*models.Drawing{}
	}
	c.JSON(http.StatusOK, listResponse{Drawings: list})
}

func (h *handlers) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) download(c *gin.Context) {
	u, err := h.svc.DownloadURL(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, downloadResponse{URL: u})
}

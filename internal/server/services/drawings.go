// Package services contains server-side business logic. DrawingService owns
// the translation lifecycle of a drawing: intake, remote submission, status
// reconciliation and the management operations around them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/dbx"
	"github.com/dmitrijs2005/drawkeeper/internal/logging"
	"github.com/dmitrijs2005/drawkeeper/internal/netx"
	"github.com/dmitrijs2005/drawkeeper/internal/server/blob"
	"github.com/dmitrijs2005/drawkeeper/internal/server/config"
	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/drawkeeper/internal/server/translation"
	"github.com/google/uuid"
)

// Enqueuer schedules remote submission of a drawing.
type Enqueuer interface {
	EnqueueSubmit(ctx context.Context, drawingID string) error
}

// TokenSource hands out translation service credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// UploadRequest is a single file accepted by Upload.
type UploadRequest struct {
	OwnerID     string
	ProjectID   string
	FileName    string
	Name        string
	Description string
	ContentType string
	Data        []byte
}

// StatusReport is the reconciled state of a drawing.
type StatusReport struct {
	DrawingID string
	URN       string
	State     models.State
	Progress  int
	Message   string
	Messages  []string
}

// SweepResult counts what a reconciliation sweep did.
type SweepResult struct {
	Requeued   int
	Reconciled int
	Failed     int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
	sweepBatch       = 100
)

type DrawingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       blob.Store
	api         translation.API
	creds       TokenSource
	queue       Enqueuer
	config      *config.Config
	log         logging.Logger
	now         func() time.Time
}

func NewDrawingService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	store blob.Store,
	api translation.API,
	creds TokenSource,
	queue Enqueuer,
	cfg *config.Config,
	log logging.Logger,
) *DrawingService {
	return &DrawingService{
		db:          db,
		repomanager: m,
		store:       store,
		api:         api,
		creds:       creds,
		queue:       queue,
		config:      cfg,
		log:         log.With("module", "drawings"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *DrawingService) repo() drawings.Repository {
	return s.repomanager.Drawings(s.db)
}

// Upload validates and stores a file, records the drawing in uploading and
// schedules its submission. It returns as soon as the record exists.
func (s *DrawingService) Upload(ctx context.Context, req UploadRequest) (*models.Drawing, error) {
	if err := validateUpload(req, s.config.MaxUploadSize); err != nil {
		return nil, err
	}

	now := s.now()
	key := BlobKey(req.OwnerID, now, req.FileName)
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Put(ctx, key, req.Data, contentType); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	name := req.Name
	if name == "" {
		name = req.FileName
	}
	d := &models.Drawing{
		ID:          uuid.NewString(),
		OwnerID:     req.OwnerID,
		ProjectID:   req.ProjectID,
		Name:        name,
		FileName:    req.FileName,
		Size:        int64(len(req.Data)),
		Description: req.Description,
		StorageKey:  key,
		State:       models.StateUploading,
		UploadedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo().Create(ctx, d); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.log.Warn(ctx, "orphaned blob", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("create drawing: %w", err)
	}

	if err := s.queue.EnqueueSubmit(ctx, d.ID); err != nil {
		// the sweep picks the drawing up later
		s.log.Warn(ctx, "enqueue submission failed", "drawing_id", d.ID, "error", err)
	}

	s.log.Info(ctx, "drawing uploaded", "drawing_id", d.ID, "owner_id", d.OwnerID, "size", d.Size)
	return d, nil
}

// Submit pushes a drawing to the translation service and starts a job.
//
// Drawings already processing or finished are left alone, so redelivered
// tasks are harmless. A failing step moves the drawing to failed with
// "<step>: <error>" and Submit still returns nil; an error is returned only
// when the drawing cannot be loaded or its state cannot be written.
func (s *DrawingService) Submit(ctx context.Context, drawingID string) error {
	repo := s.repo()
	log := s.log.With("drawing_id", drawingID)

	d, err := repo.GetByID(ctx, drawingID)
	if err != nil {
		return fmt.Errorf("load drawing: %w", err)
	}
	if d.State == models.StateProcessing || d.State.Terminal() {
		log.Debug(ctx, "submission skipped", "state", d.State)
		return nil
	}

	d, err = repo.Update(ctx, drawingID, func(d *models.Drawing) (bool, error) {
		return d.MarkPending(s.now()), nil
	})
	if err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	if d.State != models.StatePending {
		return nil
	}

	fail := func(step string, cause error) error {
		if netx.HasStatus(cause, http.StatusUnauthorized) {
			s.creds.Invalidate()
		}
		log.Warn(ctx, "submission failed", "step", step, "error", cause)
		_, err := repo.Update(ctx, drawingID, func(d *models.Drawing) (bool, error) {
			return d.MarkFailed(step + ": " + cause.Error()), nil
		})
		if err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return nil
	}

	token, err := s.creds.Token(ctx)
	if err != nil {
		return fail("authenticate", err)
	}

	urn := d.URN
	if urn == "" {
		bucket := s.config.TranslationBucketKey
		if err := s.api.EnsureBucket(ctx, token, bucket); err != nil && !errors.Is(err, translation.ErrBucketExists) {
			return fail("ensure bucket", err)
		}

		data, err := s.store.Get(ctx, d.StorageKey)
		if err != nil {
			return fail("fetch file", err)
		}

		objectKey := d.ID + "_" + SanitizeFileName(d.FileName)
		session, err := s.api.BeginUpload(ctx, token, bucket, objectKey, translation.PartCount(len(data)))
		if err != nil {
			return fail("begin upload", err)
		}
		if err := s.api.Transfer(ctx, session.URLs, data); err != nil {
			return fail("transfer", err)
		}
		objectID, err := s.api.FinalizeUpload(ctx, token, bucket, objectKey, session.UploadKey)
		if err != nil {
			return fail("finalize upload", err)
		}

		urn = translation.EncodeURN(objectID)
		if _, err := repo.Update(ctx, drawingID, func(d *models.Drawing) (bool, error) {
			if err := d.AssignURN(urn, bucket, objectKey); err != nil {
				return false, err
			}
			return true, nil
		}); err != nil {
			return fail("persist urn", err)
		}
	}

	if err := s.api.SubmitJob(ctx, token, urn, s.outputFormats()); err != nil {
		return fail("submit job", err)
	}

	if _, err := repo.Update(ctx, drawingID, func(d *models.Drawing) (bool, error) {
		return d.ApplyStatus(models.StateProcessing, d.Progress, "", s.now()), nil
	}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	log.Info(ctx, "translation job submitted", "urn", urn)
	return nil
}

func (s *DrawingService) outputFormats() []translation.OutputFormat {
	if s.config.TranslationFormat == "" {
		return translation.DefaultFormats()
	}
	return []translation.OutputFormat{{Type: s.config.TranslationFormat, Views: s.config.TranslationViews}}
}

// CheckStatus reconciles the drawing carrying urn with the translation
// service. The lookup ignores ownership.
func (s *DrawingService) CheckStatus(ctx context.Context, urn string) (*StatusReport, error) {
	d, err := s.repo().GetByURN(ctx, urn)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, d)
}

// CheckDrawing reconciles one of the owner's drawings. A drawing without a
// job yet reports its stored state.
func (s *DrawingService) CheckDrawing(ctx context.Context, ownerID, drawingID string) (*StatusReport, error) {
	d, err := s.repo().GetByIDForOwner(ctx, ownerID, drawingID)
	if err != nil {
		return nil, err
	}
	if d.URN == "" {
		return reportOf(d, nil), nil
	}
	return s.reconcile(ctx, d)
}

func (s *DrawingService) reconcile(ctx context.Context, d *models.Drawing) (*StatusReport, error) {
	token, err := s.creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: authenticate: %w", common.ErrUpstream, err)
	}

	var obs translation.Observation
	m, err := s.api.Manifest(ctx, token, d.URN)
	switch {
	case errors.Is(err, translation.ErrManifestNotFound):
		obs = translation.PendingObservation()
	case err != nil:
		if netx.HasStatus(err, http.StatusUnauthorized) {
			s.creds.Invalidate()
		}
		return nil, fmt.Errorf("%w: %w", common.ErrUpstream, err)
	default:
		obs, err = translation.Observe(m)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrUpstream, err)
		}
	}

	updated, err := s.repo().Update(ctx, d.ID, func(d *models.Drawing) (bool, error) {
		return d.ApplyStatus(obs.State, obs.Progress, obs.Message, s.now()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("store status: %w", err)
	}
	if updated.State != d.State {
		s.log.Info(ctx, "drawing state changed", "drawing_id", d.ID, "from", d.State, "to", updated.State, "progress", updated.Progress)
	}
	return reportOf(updated, obs.Messages), nil
}

func reportOf(d *models.Drawing, messages []string) *StatusReport {
	return &StatusReport{
		DrawingID: d.ID,
		URN:       d.URN,
		State:     d.State,
		Progress:  d.Progress,
		Message:   d.StatusMessage,
		Messages:  messages,
	}
}

// Get returns one of the owner's drawings.
func (s *DrawingService) Get(ctx context.Context, ownerID, drawingID string) (*models.Drawing, error) {
	return s.repo().GetByIDForOwner(ctx, ownerID, drawingID)
}

// List returns the owner's drawings, newest first. limit is clamped to
// [1, 200] with 50 as the default.
func (s *DrawingService) List(ctx context.Context, ownerID string, f drawings.Filter, limit int) ([]*models.Drawing, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", common.ErrValidation, f.State)
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return s.repo().List(ctx, ownerID, f, limit)
}

// Delete removes the drawing row and its blob. The row deletion is rolled
// back when the blob cannot be removed.
func (s *DrawingService) Delete(ctx context.Context, ownerID, drawingID string) error {
	d, err := s.repo().GetByIDForOwner(ctx, ownerID, drawingID)
	if err != nil {
		return err
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Drawings(tx).Delete(ctx, ownerID, drawingID); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, d.StorageKey); err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "drawing deleted", "drawing_id", drawingID, "owner_id", ownerID)
	return nil
}

// DownloadURL returns a short-lived link to the original file.
func (s *DrawingService) DownloadURL(ctx context.Context, ownerID, drawingID string) (string, error) {
	d, err := s.repo().GetByIDForOwner(ctx, ownerID, drawingID)
	if err != nil {
		return "", err
	}
	ttl := s.config.SignedURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return s.store.SignedURL(ctx, d.StorageKey, ttl)
}

// Sweep re-enqueues drawings idle in uploading or pending for longer than
// olderThan and reconciles idle processing drawings with the translation
// service. Individual failures are logged and counted, not returned.
func (s *DrawingService) Sweep(ctx context.Context, olderThan time.Duration) (SweepResult, error) {
	var res SweepResult
	before := s.now().Add(-olderThan)
	repo := s.repo()

	for _, st := range []models.State{models.StateUploading, models.StatePending} {
		stuck, err := repo.ListStuck(ctx, st, before, sweepBatch)
		if err != nil {
			return res, fmt.Errorf("list %s drawings: %w", st, err)
		}
		for _, d := range stuck {
			if err := s.queue.EnqueueSubmit(ctx, d.ID); err != nil {
				s.log.Warn(ctx, "sweep enqueue failed", "drawing_id", d.ID, "error", err)
				res.Failed++
				continue
			}
			res.Requeued++
		}
	}

	processing, err := repo.ListStuck(ctx, models.StateProcessing, before, sweepBatch)
	if err != nil {
		return res, fmt.Errorf("list processing drawings: %w", err)
	}
	for _, d := range processing {
		if d.URN == "" {
			continue
		}
		if _, err := s.reconcile(ctx, d); err != nil {
			s.log.Warn(ctx, "sweep reconcile failed", "drawing_id", d.ID, "error", err)
			res.Failed++
			continue
		}
		res.Reconciled++
	}

	if res.Requeued+res.Reconciled+res.Failed > 0 {
		s.log.Info(ctx, "sweep finished", "requeued", res.Requeued, "reconciled", res.Reconciled, "failed", res.Failed)
	}
	return res, nil
}

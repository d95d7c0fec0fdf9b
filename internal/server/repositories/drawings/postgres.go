package drawings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/dbx"
	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
)

// MaxUpdateAttempts bounds how many times Update re-reads a drawing after
// losing a compare-and-swap race.
const MaxUpdateAttempts = 5

const selectColumns = `id, owner_id, project_id, name, file_name, size_bytes, description, storage_key,
	urn, bucket_key, object_key, estado, progreso, estado_mensaje,
	uploaded_at, translation_started_at, translation_completed_at, created_at, updated_at, version`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new drawing. d.Version is set to 1.
func (r *PostgresRepository) Create(ctx context.Context, d *models.Drawing) error {
	query := `
		INSERT INTO drawings (id, owner_id, project_id, name, file_name, size_bytes, description, storage_key,
			estado, progreso, uploaded_at, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)
	`
	res, err := r.db.ExecContext(ctx, query,
		d.ID, d.OwnerID, nullString(d.ProjectID), d.Name, d.FileName, d.Size, nullString(d.Description), d.StorageKey,
		string(d.State), d.Progress, d.UploadedAt, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert drawing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	d.Version = 1
	return nil
}

// save writes the mutable columns of d if the stored version still equals
// d.Version. urn is only written while the stored value is NULL.
func (r *PostgresRepository) save(ctx context.Context, d *models.Drawing) error {
	query := `
		UPDATE drawings SET
			urn = COALESCE(drawings.urn, $2),
			bucket_key = $3,
			object_key = $4,
			estado = $5,
			progreso = $6,
			estado_mensaje = $7,
			translation_started_at = $8,
			translation_completed_at = $9,
			updated_at = now(),
			version = version + 1
		WHERE id = $1 AND version = $10
		RETURNING updated_at, version
	`
	err := r.db.QueryRowContext(ctx, query,
		d.ID, nullString(d.URN), nullString(d.BucketKey), nullString(d.ObjectKey),
		string(d.State), d.Progress, nullString(d.StatusMessage),
		d.TranslationStartedAt, d.TranslationCompletedAt, d.Version,
	).Scan(&d.UpdatedAt, &d.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update drawing: %w", err)
	}
	return nil
}

// Update loads the drawing, applies fn and saves it with a version check.
// On a version conflict the whole read-modify-write is retried, up to
// MaxUpdateAttempts times. When fn reports no change nothing is written.
func (r *PostgresRepository) Update(ctx context.Context, id string, fn MutateFunc) (*models.Drawing, error) {
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		d, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		changed, err := fn(d)
		if err != nil {
			return nil, err
		}
		if !changed {
			return d, nil
		}
		err = r.save(ctx, d)
		if errors.Is(err, common.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("update drawing %s: %w", id, common.ErrVersionConflict)
}

// GetByID returns a drawing regardless of its owner.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Drawing, error) {
	query := `SELECT ` + selectColumns + ` FROM drawings WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForOwner returns the drawing only if it belongs to ownerID.
func (r *PostgresRepository) GetByIDForOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error) {
	query := `SELECT ` + selectColumns + ` FROM drawings WHERE id = $1 AND owner_id = $2`
	return r.getOne(ctx, query, id, ownerID)
}

// GetByURN returns the drawing carrying urn regardless of its owner.
func (r *PostgresRepository) GetByURN(ctx context.Context, urn string) (*models.Drawing, error) {
	query := `SELECT ` + selectColumns + ` FROM drawings WHERE urn = $1`
	return r.getOne(ctx, query, urn)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Drawing, error) {
	d, err := scanDrawing(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select drawing: %w", err)
	}
	return d, nil
}

// Delete removes the owner's drawing. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM drawings WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete drawing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// List returns the owner's drawings, newest first.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, f Filter, limit int) ([]*models.Drawing, error) {
	var (
		where = []string{"owner_id = $1"}
		args  = []any{ownerID}
	)
	if f.State != "" {
		args = append(args, string(f.State))
		where = append(where, fmt.Sprintf("estado = $%d", len(args)))
	}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		where = append(where, fmt.Sprintf("project_id = $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM drawings WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		selectColumns, strings.Join(where, " AND "), len(args))
	return r.query(ctx, query, args...)
}

// ListStuck returns drawings in state whose last write happened before
// before, oldest first.
func (r *PostgresRepository) ListStuck(ctx context.Context, state models.State, before time.Time, limit int) ([]*models.Drawing, error) {
	query := `SELECT ` + selectColumns + ` FROM drawings
		WHERE estado = $1 AND updated_at < $2
		ORDER BY updated_at ASC LIMIT $3`
	return r.query(ctx, query, string(state), before, limit)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Drawing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select drawings: %w", err)
	}
	defer rows.Close()

	var result []*models.Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDrawing(s scanner) (*models.Drawing, error) {
	var (
		d                                                  models.Drawing
		project, description, urn, bucket, object, message sql.NullString
		state                                              string
	)
	err := s.Scan(&d.ID, &d.OwnerID, &project, &d.Name, &d.FileName, &d.Size, &description, &d.StorageKey,
		&urn, &bucket, &object, &state, &d.Progress, &message,
		&d.UploadedAt, &d.TranslationStartedAt, &d.TranslationCompletedAt, &d.CreatedAt, &d.UpdatedAt, &d.Version)
	if err != nil {
		return nil, err
	}
	d.ProjectID = project.String
	d.Description = description.String
	d.URN = urn.String
	d.BucketKey = bucket.String
	d.ObjectKey = object.String
	d.StatusMessage = message.String
	d.State = models.State(state)
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

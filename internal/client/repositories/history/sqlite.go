package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
	"github.com/dmitrijs2005/drawkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectWatch = `SELECT drawing_id, file_name, state, progress, message, updated_at FROM watches`

func (r *SQLiteRepository) Remember(ctx context.Context, w *models.Watch) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watches (drawing_id, file_name, state, progress, message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(drawing_id) DO UPDATE SET
			file_name = excluded.file_name,
			state = excluded.state,
			progress = excluded.progress,
			message = excluded.message,
			updated_at = excluded.updated_at
	`, w.DrawingID, w.FileName, w.State, w.Progress, w.Message, w.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to remember drawing %s: %w", w.DrawingID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, drawingID string, st *models.Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE watches SET state = ?, progress = ?, message = ?, updated_at = ?
		WHERE drawing_id = ?
	`, st.State, st.ProgressPercent, st.Message, at.UnixMilli(), drawingID)
	if err != nil {
		return fmt.Errorf("failed to update drawing %s: %w", drawingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update drawing %s: %w", drawingID, err)
	}
	if n == 0 {
		// not remembered yet
		return r.Remember(ctx, &models.Watch{
			DrawingID: drawingID,
			State:     st.State,
			Progress:  st.ProgressPercent,
			Message:   st.Message,
			UpdatedAt: at,
		})
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, drawingID string) (*models.Watch, error) {
	w, err := scanWatch(r.db.QueryRowContext(ctx, selectWatch+` WHERE drawing_id = ?`, drawingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drawing %s: %w", drawingID, err)
	}
	return w, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]*models.Watch, error) {
	return r.list(ctx, selectWatch+` WHERE state NOT IN (?, ?) ORDER BY updated_at, drawing_id`,
		models.StateSuccess, models.StateFailed)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Watch, error) {
	return r.list(ctx, selectWatch+` ORDER BY updated_at DESC, drawing_id`)
}

func (r *SQLiteRepository) Forget(ctx context.Context, drawingID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM watches WHERE drawing_id = ?`, drawingID)
	if err != nil {
		return fmt.Errorf("failed to forget drawing %s: %w", drawingID, err)
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Watch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var result []*models.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch row: %w", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWatch(s scanner) (*models.Watch, error) {
	var (
		w  models.Watch
		ms int64
	)
	if err := s.Scan(&w.DrawingID, &w.FileName, &w.State, &w.Progress, &w.Message, &ms); err != nil {
		return nil, err
	}
	w.UpdatedAt = time.UnixMilli(ms).UTC()
	return &w, nil
}

package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a second connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE watches (
  drawing_id TEXT PRIMARY KEY,
  file_name  TEXT NOT NULL DEFAULT '',
  state      TEXT NOT NULL,
  progress   INTEGER NOT NULL DEFAULT 0,
  message    TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func watch(id, state string, at time.Time) *models.Watch {
	return &models.Watch{DrawingID: id, FileName: id + ".dwg", State: state, UpdatedAt: at}
}

func TestRememberAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	w := &models.Watch{DrawingID: "d-1", FileName: "plan.dwg", State: models.StatePending, Progress: 5, UpdatedAt: t0}
	require.NoError(t, r.Remember(ctx, w))

	got, err := r.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestGet_NotRemembered_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	got, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemember_Upserts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Remember(ctx, watch("d-1", models.StatePending, t0)))
	require.NoError(t, r.Remember(ctx, watch("d-1", models.StateProcessing, t0.Add(time.Minute))))

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.StateProcessing, all[0].State)
}

func TestUpdateStatus(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Remember(ctx, watch("d-1", models.StatePending, t0)))

	st := &models.Status{State: models.StateFailed, ProgressPercent: 100, Message: "bad geometry"}
	require.NoError(t, r.UpdateStatus(ctx, "d-1", st, t0.Add(time.Minute)))

	got, err := r.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFailed, got.State)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "bad geometry", got.Message)
	assert.Equal(t, "d-1.dwg", got.FileName)
	assert.Equal(t, t0.Add(time.Minute), got.UpdatedAt)
}

func TestUpdateStatus_UnknownDrawingIsRemembered(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	st := &models.Status{State: models.StateProcessing, ProgressPercent: 40}
	require.NoError(t, r.UpdateStatus(ctx, "d-9", st, t0))

	got, err := r.Get(ctx, "d-9")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 40, got.Progress)
}

func TestListActive_SkipsTerminal(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Remember(ctx, watch("b", models.StateProcessing, t0.Add(2*time.Minute))))
	require.NoError(t, r.Remember(ctx, watch("a", models.StatePending, t0.Add(time.Minute))))
	require.NoError(t, r.Remember(ctx, watch("c", models.StateSuccess, t0)))
	require.NoError(t, r.Remember(ctx, watch("d", models.StateFailed, t0)))
	require.NoError(t, r.Remember(ctx, watch("e", models.StateUploading, t0.Add(3*time.Minute))))

	active, err := r.ListActive(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(active))
	for _, w := range active {
		ids = append(ids, w.DrawingID)
	}
	assert.Equal(t, []string{"a", "b", "e"}, ids)
}

func TestList_NewestFirst(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Remember(ctx, watch("old", models.StateSuccess, t0)))
	require.NoError(t, r.Remember(ctx, watch("new", models.StatePending, t0.Add(time.Hour))))

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].DrawingID)
	assert.Equal(t, "old", all[1].DrawingID)
}

func TestForget_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Remember(ctx, watch("d-1", models.StatePending, t0)))

	require.NoError(t, r.Forget(ctx, "d-1"))
	require.NoError(t, r.Forget(ctx, "d-1"))

	got, err := r.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClosedDB_ReturnsErrors(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	require.NoError(t, db.Close())
	ctx := context.Background()

	assert.Error(t, r.Remember(ctx, watch("x", models.StatePending, t0)))
	_, err := r.Get(ctx, "x")
	assert.Error(t, err)
	_, err = r.List(ctx)
	assert.Error(t, err)
	assert.Error(t, r.Forget(ctx, "x"))
}

package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/drawkeeper/internal/client/client"
	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
	"github.com/dmitrijs2005/drawkeeper/internal/client/repositories/history"

	_ "modernc.org/sqlite"
)

type step struct {
	st  *models.Status
	err error
}

// scriptedChecker replays a fixed sequence of answers per drawing and repeats
// the last one when the script runs out.
type scriptedChecker struct {
	mu     sync.Mutex
	script map[string][]step
	calls  map[string]int
}

func newScripted(script map[string][]step) *scriptedChecker {
	return &scriptedChecker{script: script, calls: map[string]int{}}
}

func (c *scriptedChecker) Check(ctx context.Context, id string) (*models.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	steps, ok := c.script[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Code: "not_found", Message: "drawing not found"}
	}
	n := c.calls[id]
	c.calls[id]++
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n].st, steps[n].err
}

func (c *scriptedChecker) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

type recordingReporter struct {
	mu      sync.Mutex
	updates map[string][]string
	errs    map[string][]error
}

func newRecorder() *recordingReporter {
	return &recordingReporter{updates: map[string][]string{}, errs: map[string][]error{}}
}

func (r *recordingReporter) Update(id string, st *models.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[id] = append(r.updates[id], st.State)
}

func (r *recordingReporter) Error(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[id] = append(r.errs[id], err)
}

func status(state string, p int) *models.Status {
	return &models.Status{State: state, ProgressPercent: p}
}

func setupHistory(t *testing.T) *history.SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE watches (
  drawing_id TEXT PRIMARY KEY,
  file_name  TEXT NOT NULL DEFAULT '',
  state      TEXT NOT NULL,
  progress   INTEGER NOT NULL DEFAULT 0,
  message    TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return history.NewSQLiteRepository(db)
}

func TestWatcher_PollsUntilSuccess(t *testing.T) {
	c := newScripted(map[string][]step{
		"d-1": {
			{st: status(models.StatePending, 5)},
			{st: status(models.StateProcessing, 40)},
			{st: status(models.StateSuccess, 100)},
		},
	})
	rec := newRecorder()
	hist := setupHistory(t)
	w := NewWatcher(c, hist, rec, time.Millisecond)

	res, err := w.Watch(context.Background(), "d-1")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, models.StateSuccess, res[0].State)
	assert.Equal(t, 3, c.count("d-1"))
	assert.Equal(t, []string{"pending", "processing", "success"}, rec.updates["d-1"])

	saved, err := hist.Get(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, saved.State)
	assert.Equal(t, 100, saved.Progress)
}

func TestWatcher_StopsOnFailed(t *testing.T) {
	failed := &models.Status{State: models.StateFailed, ProgressPercent: 0, Message: "bad geometry"}
	c := newScripted(map[string][]step{"d-1": {{st: status(models.StateProcessing, 10)}, {st: failed}}})
	w := NewWatcher(c, nil, newRecorder(), time.Millisecond)

	res, err := w.Watch(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, failed, res[0])
	assert.Equal(t, 2, c.count("d-1"))
}

func TestWatcher_TerminalOnFirstCheck(t *testing.T) {
	c := newScripted(map[string][]step{"d-1": {{st: status(models.StateSuccess, 100)}}})
	w := NewWatcher(c, nil, newRecorder(), time.Hour)

	res, err := w.Watch(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, res[0].State)
	assert.Equal(t, 1, c.count("d-1"))
}

func TestWatcher_RetriesWhenUnavailable(t *testing.T) {
	unavailable := &client.APIError{StatusCode: 502, Message: "upstream"}
	c := newScripted(map[string][]step{"d-1": {
		{err: unavailable},
		{err: unavailable},
		{st: status(models.StateSuccess, 100)},
	}})
	rec := newRecorder()
	w := NewWatcher(c, nil, rec, time.Millisecond)

	res, err := w.Watch(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateSuccess, res[0].State)
	assert.Len(t, rec.errs["d-1"], 2)
}

func TestWatcher_UnknownDrawingDoesNotStopOthers(t *testing.T) {
	c := newScripted(map[string][]step{"ok": {
		{st: status(models.StateProcessing, 50)},
		{st: status(models.StateSuccess, 100)},
	}})
	w := NewWatcher(c, nil, newRecorder(), time.Millisecond)

	res, err := w.Watch(context.Background(), "missing", "ok")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.Nil(t, res[0])
	require.NotNil(t, res[1])
	assert.Equal(t, models.StateSuccess, res[1].State)
}

func TestWatcher_Unauthorized(t *testing.T) {
	c := newScripted(map[string][]step{"d-1": {{err: &client.APIError{StatusCode: 401}}}})
	w := NewWatcher(c, nil, newRecorder(), time.Millisecond)

	_, err := w.Watch(context.Background(), "d-1")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, c.count("d-1"))
}

func TestWatcher_ContextCancel(t *testing.T) {
	c := newScripted(map[string][]step{"d-1": {{st: status(models.StateProcessing, 10)}}})
	w := NewWatcher(c, nil, newRecorder(), time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := w.Watch(ctx, "d-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, c.count("d-1"), 1)
}

func TestWatcher_Resume(t *testing.T) {
	ctx := context.Background()
	hist := setupHistory(t)
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, hist.Remember(ctx, &models.Watch{DrawingID: "a", State: models.StatePending, UpdatedAt: at}))
	require.NoError(t, hist.Remember(ctx, &models.Watch{DrawingID: "b", State: models.StateSuccess, UpdatedAt: at}))
	require.NoError(t, hist.Remember(ctx, &models.Watch{DrawingID: "c", State: models.StateProcessing, UpdatedAt: at}))

	c := newScripted(map[string][]step{
		"a": {{st: status(models.StateSuccess, 100)}},
		"b": {{st: status(models.StateSuccess, 100)}},
		"c": {{st: status(models.StateFailed, 0)}},
	})
	w := NewWatcher(c, hist, newRecorder(), time.Millisecond)

	res, err := w.Resume(ctx)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 0, c.count("b"))

	active, err := hist.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestWatcher_Resume_NoHistory(t *testing.T) {
	w := NewWatcher(newScripted(nil), nil, newRecorder(), 0)
	res, err := w.Resume(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, DefaultPollInterval, w.interval)
}

func TestLineReporter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf)

	r.Update("d-1", status(models.StatePending, 5))
	r.Update("d-1", status(models.StatePending, 5))
	r.Update("d-1", status(models.StateProcessing, 40))
	r.Error("d-1", errors.New("server unavailable"))
	r.Update("d-1", &models.Status{State: models.StateFailed, Messages: []string{"bad", "worse"}})
	r.Finish()

	want := "d-1 pending 5%\n" +
		"d-1 processing 40%\n" +
		"d-1: server unavailable\n" +
		"d-1 failed 0%: bad; worse\n"
	assert.Equal(t, want, buf.String())
}

func TestLineReporter_TerminalRedrawsInPlace(t *testing.T) {
	var buf bytes.Buffer
	r := &LineReporter{out: &buf, tty: true, last: map[string]string{}}

	r.Update("a", status(models.StatePending, 5))
	r.Update("b", status(models.StateProcessing, 40))
	r.Update("a", status(models.StateSuccess, 100))
	r.Finish()

	want := clearLine + "a pending 5%" +
		clearLine + "a pending 5% | b processing 40%" +
		clearLine + "a success 100%\n" +
		clearLine + "b processing 40%" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "x processing 50%", FormatStatus("x", status(models.StateProcessing, 50)))
	assert.Equal(t, "x failed 0%: boom", FormatStatus("x", &models.Status{State: models.StateFailed, Message: "boom"}))
	assert.Equal(t, "x success 100%", FormatStatus("x", &models.Status{State: models.StateSuccess, ProgressPercent: 100, Message: "ignored"}))
}

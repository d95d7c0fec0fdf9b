package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/drawkeeper/internal/client/client"
	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
	"github.com/dmitrijs2005/drawkeeper/internal/client/repositories/history"
)

const (
	DefaultPollInterval = 5 * time.Second
	maxParallelWatches  = 8
)

// Checker asks the server to reconcile one drawing.
type Checker interface {
	Check(ctx context.Context, drawingID string) (*models.Status, error)
}

// Reporter receives every observation the Watcher makes.
type Reporter interface {
	Update(drawingID string, st *models.Status)
	Error(drawingID string, err error)
}

type Watcher struct {
	client   Checker
	history  history.Repository
	report   Reporter
	interval time.Duration
	now      func() time.Time
}

// NewWatcher builds a Watcher. hist may be nil when nothing should be
// remembered.
func NewWatcher(c Checker, hist history.Repository, r Reporter, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{client: c, history: hist, report: r, interval: interval, now: time.Now}
}

// Watch polls every drawing until it reaches success or failed and returns
// the final statuses in the order of ids. A drawing that cannot be checked
// (unknown, not owned, bad token) does not stop the others; the failures are
// joined into the returned error.
func (w *Watcher) Watch(ctx context.Context, ids ...string) ([]*models.Status, error) {
	results := make([]*models.Status, len(ids))

	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(maxParallelWatches)
	for i, id := range ids {
		g.Go(func() error {
			st, err := w.watchOne(ctx, id)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = st
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}

func (w *Watcher) watchOne(ctx context.Context, id string) (*models.Status, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		st, err := w.client.Check(ctx, id)
		switch {
		case err == nil:
			w.remember(ctx, id, st)
			w.report.Update(id, st)
			if models.Terminal(st.State) {
				return st, nil
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, client.ErrUnavailable):
			// transient, try again on the next tick
			w.report.Error(id, err)
		default:
			w.report.Error(id, err)
			return nil, fmt.Errorf("drawing %s: %w", id, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) remember(ctx context.Context, id string, st *models.Status) {
	if w.history == nil {
		return
	}
	if err := w.history.UpdateStatus(ctx, id, st, w.now()); err != nil {
		w.report.Error(id, err)
	}
}

// Resume watches every remembered drawing that is not terminal yet.
func (w *Watcher) Resume(ctx context.Context) ([]*models.Status, error) {
	if w.history == nil {
		return nil, nil
	}
	active, err := w.history.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(active))
	for _, a := range active {
		ids = append(ids, a.DrawingID)
	}
	return w.Watch(ctx, ids...)
}

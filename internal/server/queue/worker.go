package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/logging"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Submitter runs one submission. services.DrawingService implements it.
type Submitter interface {
	Submit(ctx context.Context, drawingID string) error
}

type server interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

// Worker consumes submission tasks.
type Worker struct {
	server    server
	mux       *asynq.ServeMux
	submitter Submitter
	log       logging.Logger
}

// WorkerOptions configures the asynq server behind a Worker.
type WorkerOptions struct {
	Concurrency     int
	ShutdownTimeout time.Duration
	LogLevel        string
}

func NewWorker(rdb redis.UniversalClient, opts WorkerOptions, submitter Submitter, log logging.Logger) *Worker {
	log = log.With("module", "queue")

	var level asynq.LogLevel
	if err := level.Set(opts.LogLevel); err != nil {
		level = asynq.InfoLevel
	}

	srv := asynq.NewServerFromRedisClient(rdb, asynq.Config{
		Concurrency:     opts.Concurrency,
		ShutdownTimeout: opts.ShutdownTimeout,
		Logger:          &asynqLogger{log: log},
		LogLevel:        level,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error(ctx, "task failed", "type", task.Type(), "error", err)
		}),
	})
	return newWorker(srv, submitter, log)
}

func newWorker(srv server, submitter Submitter, log logging.Logger) *Worker {
	w := &Worker{server: srv, submitter: submitter, log: log}
	w.mux = asynq.NewServeMux()
	w.mux.Use(w.logTask)
	w.mux.HandleFunc(TypeSubmit, w.handleSubmit)
	return w
}

// Handler is the task router of the worker.
func (w *Worker) Handler() asynq.Handler {
	return w.mux
}

// Run processes tasks until ctx is cancelled, then waits for in-flight
// tasks up to the shutdown timeout.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	w.log.Info(ctx, "worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info(context.Background(), "worker stopped")
	return nil
}

func (w *Worker) handleSubmit(ctx context.Context, t *asynq.Task) error {
	p, err := ParseSubmitPayload(t)
	if err != nil {
		return err
	}
	err = w.submitter.Submit(ctx, p.DrawingID)
	if errors.Is(err, common.ErrorNotFound) {
		w.log.Warn(ctx, "submission for unknown drawing dropped", "drawing_id", p.DrawingID)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

func (w *Worker) logTask(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		w.log.Debug(ctx, "task processed", "type", t.Type(), "duration", time.Since(start), "ok", err == nil)
		return err
	})
}

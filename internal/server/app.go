// Package server wires the drawkeeper server together: Postgres, blob
// storage, the translation service client, the Redis-backed submission queue
// and the HTTP and gRPC endpoints, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/logging"
	"github.com/dmitrijs2005/drawkeeper/internal/server/blob"
	"github.com/dmitrijs2005/drawkeeper/internal/server/config"
	"github.com/dmitrijs2005/drawkeeper/internal/server/queue"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/drawkeeper/internal/server/services"
	"github.com/dmitrijs2005/drawkeeper/internal/server/translation"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/drawkeeper/internal/server/grpc"
	hs "github.com/dmitrijs2005/drawkeeper/internal/server/http"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	closeLog func() error
}

func NewApp(c *config.Config) (*App, error) {
	logger, closeLog, err := logging.Setup(c.LogLevel, c.LogFile)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	return &App{config: c, logger: logger, closeLog: closeLog}, nil
}

// sweeper is the part of the drawing service the periodic sweep needs.
type sweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (services.SweepResult, error)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run connects to every backend, then serves until a signal arrives or one
// of the components fails.
func (app *App) Run(ctx context.Context) error {
	defer app.closeLog()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	c := app.config

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	store, err := blob.NewS3Store(ctx, blob.S3Options{
		User:     c.S3RootUser,
		Password: c.S3RootPassword,
		Bucket:   c.S3Bucket,
		Region:   c.S3Region,
		Endpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}

	api := translation.NewClient(translation.Options{
		BaseURL:      c.TranslationBaseURL,
		ClientID:     c.TranslationClientID,
		ClientSecret: c.TranslationClientSecret,
		Timeout:      c.TranslationTimeout,
		Retries:      uint64(max(0, c.TranslationRetries)),
	}, app.logger)
	creds := translation.NewCredentialCache(api, translation.WithSafetyMargin(c.TokenSafetyMargin))

	qc := queue.NewClient(rdb, c.SubmitTimeout)
	defer qc.Close()

	svc := services.NewDrawingService(db, rm, store, api, creds, qc, c, app.logger)

	worker := queue.NewWorker(rdb, queue.WorkerOptions{
		Concurrency:     c.WorkerConcurrency,
		ShutdownTimeout: c.ShutdownTimeout,
		LogLevel:        c.LogLevel,
	}, svc, app.logger)

	httpServer := hs.NewServer(c.EndpointAddrHTTP, hs.RouterConfig{
		Service:       svc,
		Log:           app.logger,
		SecretKey:     []byte(c.SecretKey),
		MaxUploadSize: c.MaxUploadSize,
		Ready: func(ctx context.Context) error {
			return errors.Join(db.PingContext(ctx), rdb.Ping(ctx).Err())
		},
	}, c.ShutdownTimeout)

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return grpcServer.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return app.runSweeper(gctx, svc, c.SweepInterval, c.StuckThreshold) })

	err = g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

// runSweeper calls Sweep every interval until ctx is cancelled. Sweep
// failures are logged and the loop carries on.
func (app *App) runSweeper(ctx context.Context, s sweeper, interval, threshold time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx, threshold); err != nil && ctx.Err() == nil {
				app.logger.Error(ctx, "sweep failed", "error", err)
			}
		}
	}
}

package cli

import (
	"context"
	"database/sql"
	"path/filepath"

	"github.com/dmitrijs2005/drawkeeper/internal/client/client"
	"github.com/dmitrijs2005/drawkeeper/internal/client/config"
	"github.com/dmitrijs2005/drawkeeper/internal/client/repositories/history"
	"github.com/dmitrijs2005/drawkeeper/internal/filex"
)

const historyFile = "history.db"

// App carries what the commands share within one drawctl run.
type App struct {
	config *config.Config

	api  client.Client
	db   *sql.DB
	hist history.Repository

	newClient   func(cfg *config.Config) client.Client
	openHistory func(ctx context.Context, dsn string) (*sql.DB, error)
}

func NewApp(cfg *config.Config) *App {
	return &App{
		config: cfg,
		newClient: func(cfg *config.Config) client.Client {
			return client.NewHTTPClient(cfg.ServerURL, cfg.Token, cfg.RequestTimeout)
		},
		openHistory: client.InitDatabase,
	}
}

func (a *App) client() client.Client {
	if a.api == nil {
		a.api = a.newClient(a.config)
	}
	return a.api
}

// history opens the local watch history on first use.
func (a *App) history(ctx context.Context) (history.Repository, error) {
	if a.hist != nil {
		return a.hist, nil
	}
	dir, err := filex.EnsureSubdDir(a.config.HistoryDir)
	if err != nil {
		return nil, err
	}
	db, err := a.openHistory(ctx, filepath.Join(dir, historyFile))
	if err != nil {
		return nil, err
	}
	a.db = db
	a.hist = history.NewSQLiteRepository(db)
	return a.hist, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.hist = nil, nil
	return err
}

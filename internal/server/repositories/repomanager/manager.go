package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/drawkeeper/internal/dbx"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/drawings"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Drawings(db dbx.DBTX) drawings.Repository
}

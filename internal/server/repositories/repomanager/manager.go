package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/itemsapi/internal/dbx"
	"github.com/dmitrijs2005/itemsapi/internal/server/repositories/items"
	"github.com/dmitrijs2005/itemsapi/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, and owns schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Items(db dbx.DBTX) items.Repository
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cartkeeper/internal/dbx"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/carts"
	"github.com/dmitrijs2005/cartkeeper/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or an
// open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Carts(db dbx.DBTX) carts.Repository
}

package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/database"
)

var errNoScope = errors.New("no database scope in context")

// execer is satisfied by both *pgxpool.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// scopeFrom returns the request-scoped connection.
func scopeFrom(ctx context.Context) (*database.Scope, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scope, nil
}

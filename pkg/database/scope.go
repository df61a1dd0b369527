package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope is a connection held for the duration of one request or command.
// Repositories read it from the context so that a service operation runs
// all of its statements on the same connection.
type Scope struct {
	Conn         *pgxpool.Conn
	timeoutIsSet bool
}

// Close resets per-scope session settings and releases the connection to the pool.
// This MUST be called to prevent settings leaking to the next borrower.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	if s.timeoutIsSet {
		_, _ = s.Conn.Exec(context.Background(), "RESET statement_timeout")
	}
	s.Conn.Release()
}

// Acquire borrows a connection and applies the configured statement timeout.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	scope := &Scope{Conn: conn}
	if db.statementTimeout > 0 {
		ms := db.statementTimeout.Milliseconds()
		if _, err := conn.Exec(ctx, "SELECT set_config('statement_timeout', $1, false)", fmt.Sprintf("%dms", ms)); err != nil {
			conn.Release()
			return nil, fmt.Errorf("failed to set statement timeout: %w", err)
		}
		scope.timeoutIsSet = true
	}

	return scope, nil
}

// WithScope runs fn with a context carrying a freshly acquired scope.
// Used outside HTTP requests, e.g. by the operator CLI.
func (db *DB) WithScope(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, err := db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer scope.Close()

	return fn(SetScope(ctx, scope))
}

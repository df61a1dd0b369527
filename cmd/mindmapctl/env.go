package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cli "github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/cache"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/config"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/database"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/logging"
)

// environment is the shared state every subcommand works against.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	dbURL  string
}

func loadEnvironment(cmd *cli.Command) (*environment, error) {
	cfg, err := config.LoadFromEnv(Version)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Env, cmd.String("log-level"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbURL := cmd.String("database-url")
	if dbURL == "" {
		dbURL = cfg.Database.URL()
	}

	return &environment{cfg: cfg, logger: logger, dbURL: dbURL}, nil
}

// connect opens the pool. Callers close it.
func (e *environment) connect(ctx context.Context) (*database.DB, error) {
	e.logger.Debug("Connecting to database",
		zap.String("database", logging.SanitizeConnectionString(e.dbURL)))

	return database.NewConnection(ctx, &database.Config{
		URL:              e.dbURL,
		MaxConnections:   2,
		StatementTimeout: e.cfg.Database.StatementTimeout,
	})
}

// sidebarCache returns the Redis cache when configured, otherwise the no-op cache.
// The returned func releases the client.
func (e *environment) sidebarCache(ctx context.Context) (cache.SidebarCache, func()) {
	sidebarCache, release, err := cache.NewSidebarCache(ctx, &e.cfg.Redis)
	if err != nil {
		e.logger.Warn("Redis unavailable; sidebar cache will not be invalidated",
			zap.String("error", logging.SanitizeError(err)))
	}
	return sidebarCache, release
}

package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	cli "github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/repositories"
)

func newSessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Maintain login sessions",
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete expired sessions and verification tokens",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "List the owner and expiry of every removed row",
					},
				},
				Action: pruneSessions,
			},
		},
	}
}

func pruneSessions(ctx context.Context, cmd *cli.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.logger.Sync() }()

	db, err := env.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewSessionRepository()
	now := time.Now()

	var (
		sessions []*models.Session
		tokens   []*models.VerificationToken
	)
	err = db.WithScope(ctx, func(ctx context.Context) error {
		var err error
		if sessions, err = repo.DeleteExpired(ctx, now); err != nil {
			return fmt.Errorf("failed to prune sessions: %w", err)
		}
		if tokens, err = repo.DeleteExpiredVerificationTokens(ctx, now); err != nil {
			return fmt.Errorf("failed to prune verification tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	env.logger.Info("Pruned expired credentials",
		zap.Int("sessions", len(sessions)),
		zap.Int("verification_tokens", len(tokens)))

	return writePruned(cmd.Root().Writer, sessions, tokens, cmd.Bool("list"))
}

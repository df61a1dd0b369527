package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql (migrations)
	cli "github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/database"
)

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = env.logger.Sync() }()

			sqlDB, err := sql.Open("pgx", env.dbURL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer sqlDB.Close()

			if err := database.RunMigrations(sqlDB, env.logger); err != nil {
				return err
			}

			fmt.Fprintln(cmd.Root().Writer, "Migrations applied")
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cmd := &cli.Command{
		Name:                  "mindmapctl",
		Usage:                 "Operate an ekaya-mindmap database",
		Version:               Version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL (defaults to the PG* environment)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			newMigrateCommand(),
			newWorkflowsCommand(),
			newSessionsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mindmapctl: %v\n", err)
		os.Exit(1)
	}
}

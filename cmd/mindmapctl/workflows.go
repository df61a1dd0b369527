package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cli "github.com/urfave/cli/v3"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/logging"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/repositories"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/sidebar"
)

func newWorkflowsCommand() *cli.Command {
	return &cli.Command{
		Name:    "workflows",
		Aliases: []string{"wf"},
		Usage:   "Inspect and delete a user's workflows",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List a user's workflows, most recently updated first",
				Flags: []cli.Flag{
					newUserFlag(),
					&cli.StringFlag{
						Name:  "filter",
						Usage: "Only show workflows whose name or id contains this term",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output format: table, json or yaml",
						Value: formatTable,
					},
				},
				Action: listWorkflows,
			},
			{
				Name:  "delete",
				Usage: "Delete a workflow with its nodes and edges",
				Flags: []cli.Flag{
					newUserFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Workflow id",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: deleteWorkflow,
			},
		},
	}
}

func newUserFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "user",
		Usage:    "Owner user id",
		Required: true,
		Sources:  cli.EnvVars("MINDMAP_USER"),
	}
}

func listWorkflows(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("output")
	if !validFormat(format) {
		return fmt.Errorf("unknown output format %q", format)
	}

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

	repo := repositories.NewWorkflowRepository()

	var items []*models.SidebarWorkflow
	err = db.WithScope(ctx, func(ctx context.Context) error {
		var err error
		items, err = repo.ListSidebarByUser(ctx, cmd.String("user"))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	if term := cmd.String("filter"); term != "" {
		items = sidebar.Filter(items, term)
	}

	return writeWorkflows(cmd.Root().Writer, format, items)
}

func deleteWorkflow(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")
	workflowID, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("invalid workflow id %q", cmd.String("id"))
	}

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

	sidebarCache, closeCache := env.sidebarCache(ctx)
	defer closeCache()

	repo := repositories.NewWorkflowRepository()
	out := cmd.Root().Writer

	return db.WithScope(ctx, func(ctx context.Context) error {
		items, err := repo.ListSidebarByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list workflows: %w", err)
		}

		flow := sidebar.NewDeleteFlow(items, func(ctx context.Context, id uuid.UUID) error {
			return repo.DeleteCascade(ctx, id, userID)
		})

		if err := flow.Request(workflowID); err != nil {
			if errors.Is(err, sidebar.ErrNotInList) {
				return fmt.Errorf("workflow %s not found for user %s", workflowID, userID)
			}
			return err
		}

		if !cmd.Bool("yes") {
			ok, err := confirm(cmd.Root().Reader, out,
				fmt.Sprintf("Delete workflow %q and all of its nodes and edges?", displayName(items, workflowID)))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Cancelled")
				return flow.Cancel()
			}
		}

		if err := flow.Confirm(ctx); err != nil {
			return fmt.Errorf("failed to delete workflow: %w", err)
		}

		if err := sidebarCache.Invalidate(ctx, userID); err != nil {
			env.logger.Warn("Sidebar cache invalidation failed",
				zap.String("user_id", userID),
				zap.String("error", logging.SanitizeError(err)))
		}

		fmt.Fprintf(out, "Deleted workflow %s (%s remaining)\n", workflowID, countNoun(int64(len(flow.Items())), "workflow"))
		return nil
	})
}

func displayName(items []*models.SidebarWorkflow, id uuid.UUID) string {
	for _, w := range items {
		if w.ID == id {
			return workflowName(w)
		}
	}
	return id.String()
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// WorkflowRepository defines the interface for workflow data access.
type WorkflowRepository interface {
	// CreateWithInitialNode upserts owner, then inserts workflow and node in one
	// transaction. IDs and timestamps are filled in on success.
	CreateWithInitialNode(ctx context.Context, owner *models.User, workflow *models.Workflow, node *models.Node) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	// ListSidebarByUser returns the minimal projection of a user's workflows,
	// most recently modified first. Never-modified workflows sort first.
	ListSidebarByUser(ctx context.Context, userID string) ([]*models.SidebarWorkflow, error)
	// DeleteCascade removes edges, nodes and the workflow in one transaction.
	// Returns apperrors.ErrNotFound if no workflow with id is owned by userID.
	DeleteCascade(ctx context.Context, id uuid.UUID, userID string) error
}

type workflowRepository struct{}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository() WorkflowRepository {
	return &workflowRepository{}
}

func (r *workflowRepository) CreateWithInitialNode(ctx context.Context, owner *models.User, workflow *models.Workflow, node *models.Node) (err error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = upsertUser(ctx, tx, owner); err != nil {
		return err
	}

	workflowQuery := `
		INSERT INTO workflows (user_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, workflowQuery, workflow.UserID, workflow.Name, workflow.Description).
		Scan(&workflow.ID, &workflow.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert workflow: %w", err)
	}

	node.WorkflowID = workflow.ID
	if err = insertNode(ctx, tx, node); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit workflow: %w", err)
	}

	return nil
}

func (r *workflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, name, description, created_at, updated_at
		FROM workflows
		WHERE id = $1`

	var w models.Workflow
	err = scope.Conn.QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.UserID,
		&w.Name,
		&w.Description,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return &w, nil
}

func (r *workflowRepository) ListSidebarByUser(ctx context.Context, userID string) ([]*models.SidebarWorkflow, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, updated_at
		FROM workflows
		WHERE user_id = $1
		ORDER BY updated_at DESC NULLS FIRST, created_at DESC, id`

	rows, err := scope.Conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := make([]*models.SidebarWorkflow, 0)
	for rows.Next() {
		var w models.SidebarWorkflow
		if err := rows.Scan(&w.ID, &w.Name, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *workflowRepository) DeleteCascade(ctx context.Context, id uuid.UUID, userID string) (err error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Children first; the FK cascades make this redundant but keep the order explicit.
	if _, err = tx.Exec(ctx, `DELETE FROM edges WHERE workflow_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete edges: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM nodes WHERE workflow_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM workflows WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		err = apperrors.ErrNotFound
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit workflow deletion: %w", err)
	}

	return nil
}

// touchWorkflow marks the workflow as modified.
func touchWorkflow(ctx context.Context, db execer, id uuid.UUID) error {
	result, err := db.Exec(ctx, `UPDATE workflows SET updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// NodeRepository defines the interface for node data access.
// Mutations touch the parent workflow's updated_at in the same transaction.
type NodeRepository interface {
	Create(ctx context.Context, node *models.Node) error
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]*models.Node, error)
	// Delete removes a node; edges attached to it go with it.
	Delete(ctx context.Context, workflowID, nodeID uuid.UUID) error
}

type nodeRepository struct{}

// NewNodeRepository creates a new node repository.
func NewNodeRepository() NodeRepository {
	return &nodeRepository{}
}

// queryRower is satisfied by both *pgxpool.Conn and pgx.Tx.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertNode(ctx context.Context, db queryRower, node *models.Node) error {
	if node.Sources == nil {
		node.Sources = []models.Source{}
	}
	if node.Images == nil {
		node.Images = []models.Image{}
	}

	query := `
		INSERT INTO nodes (workflow_id, name, type, position, query, summary, sources, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := db.QueryRow(ctx, query,
		node.WorkflowID,
		node.Name,
		node.Type,
		node.Position,
		node.Query,
		node.Summary,
		node.Sources,
		node.Images,
	).Scan(&node.ID, &node.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}
	return nil
}

func (r *nodeRepository) Create(ctx context.Context, node *models.Node) (err error) {
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

	if err = touchWorkflow(ctx, tx, node.WorkflowID); err != nil {
		return err
	}
	if err = insertNode(ctx, tx, node); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit node: %w", err)
	}
	return nil
}

func (r *nodeRepository) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]*models.Node, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, workflow_id, name, type, position, query, summary, sources, images, created_at, updated_at
		FROM nodes
		WHERE workflow_id = $1
		ORDER BY created_at, id`

	rows, err := scope.Conn.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*models.Node, 0)
	for rows.Next() {
		var n models.Node
		err := rows.Scan(
			&n.ID,
			&n.WorkflowID,
			&n.Name,
			&n.Type,
			&n.Position,
			&n.Query,
			&n.Summary,
			&n.Sources,
			&n.Images,
			&n.CreatedAt,
			&n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func (r *nodeRepository) Delete(ctx context.Context, workflowID, nodeID uuid.UUID) (err error) {
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

	if _, err = tx.Exec(ctx, `DELETE FROM edges WHERE workflow_id = $1 AND (source = $2 OR target = $2)`, workflowID, nodeID); err != nil {
		return fmt.Errorf("failed to delete node edges: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM nodes WHERE workflow_id = $1 AND id = $2`, workflowID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if result.RowsAffected() == 0 {
		err = apperrors.ErrNotFound
		return err
	}

	if err = touchWorkflow(ctx, tx, workflowID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit node deletion: %w", err)
	}
	return nil
}

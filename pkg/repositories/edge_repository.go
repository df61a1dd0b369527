package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// EdgeRepository defines the interface for edge data access.
type EdgeRepository interface {
	// Create inserts an edge. Both endpoints must be nodes of edge.WorkflowID,
	// otherwise an error wrapping apperrors.ErrInvalidInput is returned.
	Create(ctx context.Context, edge *models.Edge) error
	ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]*models.Edge, error)
	Delete(ctx context.Context, workflowID, edgeID uuid.UUID) error
}

type edgeRepository struct{}

// NewEdgeRepository creates a new edge repository.
func NewEdgeRepository() EdgeRepository {
	return &edgeRepository{}
}

func (r *edgeRepository) Create(ctx context.Context, edge *models.Edge) (err error) {
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

	if err = touchWorkflow(ctx, tx, edge.WorkflowID); err != nil {
		return err
	}

	// Lock the endpoints so a concurrent node delete cannot slip in between.
	var endpoints int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT id FROM nodes
			WHERE workflow_id = $1 AND id IN ($2, $3)
			FOR SHARE
		) n`, edge.WorkflowID, edge.Source, edge.Target).Scan(&endpoints)
	if err != nil {
		return fmt.Errorf("failed to check edge endpoints: %w", err)
	}

	want := 2
	if edge.Source == edge.Target {
		want = 1
	}
	if endpoints != want {
		err = fmt.Errorf("edge endpoints must be nodes of workflow %s: %w", edge.WorkflowID, apperrors.ErrInvalidInput)
		return err
	}

	query := `
		INSERT INTO edges (workflow_id, source, target, type, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query, edge.WorkflowID, edge.Source, edge.Target, edge.Type, edge.Data).
		Scan(&edge.ID, &edge.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit edge: %w", err)
	}
	return nil
}

func (r *edgeRepository) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]*models.Edge, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, workflow_id, source, target, type, data, created_at, updated_at
		FROM edges
		WHERE workflow_id = $1
		ORDER BY created_at, id`

	rows, err := scope.Conn.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	defer rows.Close()

	edges := make([]*models.Edge, 0)
	for rows.Next() {
		var e models.Edge
		err := rows.Scan(&e.ID, &e.WorkflowID, &e.Source, &e.Target, &e.Type, &e.Data, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

func (r *edgeRepository) Delete(ctx context.Context, workflowID, edgeID uuid.UUID) (err error) {
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

	result, err := tx.Exec(ctx, `DELETE FROM edges WHERE workflow_id = $1 AND id = $2`, workflowID, edgeID)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	if result.RowsAffected() == 0 {
		err = apperrors.ErrNotFound
		return err
	}

	if err = touchWorkflow(ctx, tx, workflowID); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit edge deletion: %w", err)
	}
	return nil
}

//go:build integration

package repositories

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/testhelpers"
)

// workflowTestContext holds test dependencies for workflow repository tests.
type workflowTestContext struct {
	t      *testing.T
	db     *testhelpers.MindmapDB
	repo   WorkflowRepository
	nodes  NodeRepository
	edges  EdgeRepository
	userID string
}

func setupWorkflowTest(t *testing.T) *workflowTestContext {
	db := testhelpers.GetMindmapDB(t)
	tc := &workflowTestContext{
		t:      t,
		db:     db,
		repo:   NewWorkflowRepository(),
		nodes:  NewNodeRepository(),
		edges:  NewEdgeRepository(),
		userID: "user-" + uuid.NewString(),
	}
	t.Cleanup(func() { db.CleanupUser(t, tc.userID) })
	return tc
}

// createWorkflow creates a workflow with its initial node for the test user.
func (tc *workflowTestContext) createWorkflow(ctx context.Context, query string) (*models.Workflow, *models.Node) {
	tc.t.Helper()
	return tc.createWorkflowFor(ctx, tc.userID, query)
}

func (tc *workflowTestContext) createWorkflowFor(ctx context.Context, userID, query string) (*models.Workflow, *models.Node) {
	tc.t.Helper()
	name := query
	desc := models.WorkflowDescription(query)
	workflow := &models.Workflow{UserID: userID, Name: &name, Description: &desc}
	node := models.NewInitialNode(uuid.Nil, query)

	owner := &models.User{ID: userID, Email: userID + "@example.com"}
	if err := tc.repo.CreateWithInitialNode(ctx, owner, workflow, node); err != nil {
		tc.t.Fatalf("CreateWithInitialNode failed: %v", err)
	}
	return workflow, node
}

// count returns the number of rows in table matching workflow_id (or id for workflows).
func (tc *workflowTestContext) count(ctx context.Context, table string, workflowID uuid.UUID) int {
	tc.t.Helper()
	column := "workflow_id"
	if table == "workflows" {
		column = "id"
	}
	var n int
	err := tc.db.DB.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+" WHERE "+column+" = $1", workflowID).Scan(&n)
	if err != nil {
		tc.t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func TestWorkflowRepository_CreateWithInitialNode(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	workflow, node := tc.createWorkflow(ctx, "Quantum Computing")

	if workflow.ID == uuid.Nil {
		t.Fatal("expected workflow ID to be assigned")
	}
	if node.WorkflowID != workflow.ID {
		t.Errorf("expected node to belong to workflow %s, got %s", workflow.ID, node.WorkflowID)
	}

	got, err := tc.repo.GetByID(ctx, workflow.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name == nil || *got.Name != "Quantum Computing" {
		t.Errorf("expected name 'Quantum Computing', got %v", got.Name)
	}
	if got.Description == nil || *got.Description != "Workflow for: Quantum Computing" {
		t.Errorf("unexpected description %v", got.Description)
	}
	if got.UpdatedAt != nil {
		t.Errorf("expected nil updated_at on a new workflow, got %v", got.UpdatedAt)
	}

	nodes, err := tc.nodes.ListByWorkflow(ctx, workflow.ID)
	if err != nil {
		t.Fatalf("ListByWorkflow failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected exactly 1 node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Query == nil || *n.Query != "Quantum Computing" {
		t.Errorf("expected node query 'Quantum Computing', got %v", n.Query)
	}
	if n.Position != (models.Position{X: 0, Y: 0}) {
		t.Errorf("expected position {0,0}, got %+v", n.Position)
	}
	if n.Type != models.NodeTypeDefault || n.Name == nil || *n.Name != models.InitialNodeName {
		t.Errorf("unexpected initial node %+v", n)
	}
	if n.Sources == nil || n.Images == nil {
		t.Error("expected empty, non-nil sources and images")
	}
}

func TestWorkflowRepository_CreateIsAtomic(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	// Node query exceeds varchar(256) so the second insert fails.
	name := "atomic"
	workflow := &models.Workflow{UserID: tc.userID, Name: &name}
	node := models.NewInitialNode(uuid.Nil, strings.Repeat("x", 300))

	err := tc.repo.CreateWithInitialNode(ctx, &models.User{ID: tc.userID, Email: "a@example.com"}, workflow, node)
	if err == nil {
		t.Fatal("expected node insert to fail")
	}

	list, err := tc.repo.ListSidebarByUser(ctx, tc.userID)
	if err != nil {
		t.Fatalf("ListSidebarByUser failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no workflow after rollback, got %d", len(list))
	}
}

func TestWorkflowRepository_CreateUpsertsOwnerIdempotently(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	tc.createWorkflow(ctx, "first")
	tc.createWorkflow(ctx, "second")

	user, err := NewUserRepository().GetByID(ctx, tc.userID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if user.Email != tc.userID+"@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
}

func TestWorkflowRepository_ListSidebarByUser_Ordering(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	older, _ := tc.createWorkflow(ctx, "older")
	newer, _ := tc.createWorkflow(ctx, "newer")
	untouched, _ := tc.createWorkflow(ctx, "untouched")

	t1 := time.Now().Add(-2 * time.Hour)
	t2 := time.Now().Add(-1 * time.Hour)
	for id, ts := range map[uuid.UUID]time.Time{older.ID: t1, newer.ID: t2} {
		if _, err := tc.db.DB.Exec(ctx, `UPDATE workflows SET updated_at = $1 WHERE id = $2`, ts, id); err != nil {
			t.Fatalf("failed to set updated_at: %v", err)
		}
	}

	// Another user's workflow must not appear.
	otherUser := "user-" + uuid.NewString()
	t.Cleanup(func() { tc.db.CleanupUser(t, otherUser) })
	tc.createWorkflowFor(ctx, otherUser, "not mine")

	list, err := tc.repo.ListSidebarByUser(ctx, tc.userID)
	if err != nil {
		t.Fatalf("ListSidebarByUser failed: %v", err)
	}

	want := []uuid.UUID{untouched.ID, newer.ID, older.ID}
	if len(list) != len(want) {
		t.Fatalf("expected %d workflows, got %d", len(want), len(list))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, list[i].ID)
		}
	}
}

func TestWorkflowRepository_DeleteCascade(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	workflow, first := tc.createWorkflow(ctx, "to delete")

	second := &models.Node{WorkflowID: workflow.ID, Type: "default", Position: models.Position{X: 10, Y: 20}}
	if err := tc.nodes.Create(ctx, second); err != nil {
		t.Fatalf("node Create failed: %v", err)
	}
	edge := &models.Edge{WorkflowID: workflow.ID, Source: first.ID, Target: second.ID}
	if err := tc.edges.Create(ctx, edge); err != nil {
		t.Fatalf("edge Create failed: %v", err)
	}

	if err := tc.repo.DeleteCascade(ctx, workflow.ID, tc.userID); err != nil {
		t.Fatalf("DeleteCascade failed: %v", err)
	}

	for _, table := range []string{"workflows", "nodes", "edges"} {
		if n := tc.count(ctx, table, workflow.ID); n != 0 {
			t.Errorf("expected 0 rows in %s, got %d", table, n)
		}
	}
}

func TestWorkflowRepository_DeleteCascade_NotOwner(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	workflow, _ := tc.createWorkflow(ctx, "keep me")

	err := tc.repo.DeleteCascade(ctx, workflow.ID, "someone-else")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if n := tc.count(ctx, "workflows", workflow.ID); n != 1 {
		t.Errorf("expected workflow to remain, got %d rows", n)
	}
	if n := tc.count(ctx, "nodes", workflow.ID); n != 1 {
		t.Errorf("expected node to remain after rollback, got %d rows", n)
	}
}

func TestWorkflowRepository_DeleteCascade_Missing(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	err := tc.repo.DeleteCascade(ctx, uuid.New(), tc.userID)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	tc := setupWorkflowTest(t)
	ctx := tc.db.ScopedContext(t)

	if _, err := tc.repo.GetByID(ctx, uuid.New()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkflowRepository_NoScope(t *testing.T) {
	repo := NewWorkflowRepository()

	if _, err := repo.GetByID(context.Background(), uuid.New()); err == nil {
		t.Error("expected error without scope in context")
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Workflow is a user-owned mind map grouping nodes and edges.
type Workflow struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"userId"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the workflow.
func (w *Workflow) OwnedBy(userID string) bool {
	return w.UserID == userID
}

// SidebarWorkflow is the minimal projection used to render workflow lists.
type SidebarWorkflow struct {
	ID        uuid.UUID  `json:"id"`
	Name      *string    `json:"name"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

// WorkflowGraph is a workflow with all of its nodes and edges.
type WorkflowGraph struct {
	Workflow *Workflow `json:"workflow"`
	Nodes    []*Node   `json:"nodes"`
	Edges    []*Edge   `json:"edges"`
}

// WorkflowDescription derives the description stored for a new workflow.
func WorkflowDescription(query string) string {
	return "Workflow for: " + query
}

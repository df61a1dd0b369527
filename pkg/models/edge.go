package models

import (
	"time"

	"github.com/google/uuid"
)

// EdgeData is the structured payload carried by an edge.
type EdgeData struct {
	Label    string   `json:"label,omitempty"`
	Relation string   `json:"relation,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// Edge is a directed link between two nodes of the same workflow.
type Edge struct {
	ID         uuid.UUID  `json:"id"`
	WorkflowID uuid.UUID  `json:"workflowId"`
	Source     uuid.UUID  `json:"source"`
	Target     uuid.UUID  `json:"target"`
	Type       *string    `json:"type"`
	Data       EdgeData   `json:"data"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

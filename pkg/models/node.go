package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// NodeTypeDefault is the type of the node created with every workflow.
	NodeTypeDefault = "default"
	// InitialNodeName names the node created with every workflow.
	InitialNodeName = "Initial Query"

	// MaxNameLength bounds workflow and node names and node queries.
	MaxNameLength = 256
	// MaxTypeLength bounds node and edge types.
	MaxTypeLength = 50
)

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Source is a reference a node summary was derived from.
type Source struct {
	URL  string  `json:"url"`
	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`
}

// Image is a picture attached to a node.
type Image struct {
	URL         string  `json:"url"`
	Description *string `json:"description,omitempty"`
}

// Node is a unit of content within a workflow.
type Node struct {
	ID         uuid.UUID  `json:"id"`
	WorkflowID uuid.UUID  `json:"workflowId"`
	Name       *string    `json:"name"`
	Type       string     `json:"type"`
	Position   Position   `json:"position"`
	Query      *string    `json:"query"`
	Summary    *string    `json:"summary"`
	Sources    []Source   `json:"sources"`
	Images     []Image    `json:"images"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// NewInitialNode builds the first node of a workflow for query.
func NewInitialNode(workflowID uuid.UUID, query string) *Node {
	name := InitialNodeName
	q := query
	return &Node{
		WorkflowID: workflowID,
		Name:       &name,
		Type:       NodeTypeDefault,
		Position:   Position{X: 0, Y: 0},
		Query:      &q,
		Sources:    []Source{},
		Images:     []Image{},
	}
}

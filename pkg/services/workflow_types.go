package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// User-facing messages. Diagnostic detail is logged, never returned.
const (
	msgCreateUnauthenticated = "You must be logged in to create a workflow"
	msgCreateFailed          = "Failed to create workflow. Please try again later."
	msgQueryRequired         = "Query is required"
	msgQueryInvalidText      = "Query contains invalid characters"
	msgDeleteUnauthenticated = "You must be logged in to delete a workflow"
	msgDeleteForbidden       = "You don't have permission to delete this workflow"
	msgDeleteSucceeded       = "Workflow deleted successfully"
	msgDeleteFailed          = "Failed to delete workflow. Please try again later."
	msgListUnauthenticated   = "Not authenticated"
	msgListFailed            = "Failed to load workflows"
	msgViewUnauthenticated   = "You must be logged in to view this workflow"
	msgViewForbidden         = "You don't have permission to view this workflow"
	msgViewFailed            = "Failed to load workflow. Please try again later."
	msgEditUnauthenticated   = "You must be logged in to edit this workflow"
	msgEditForbidden         = "You don't have permission to edit this workflow"
	msgEditFailed            = "Failed to update workflow. Please try again later."
	msgWorkflowNotFound      = "Workflow not found"
	msgNodeNotFound          = "Node not found"
	msgEdgeNotFound          = "Edge not found"
	msgEdgeEndpoints         = "Edge endpoints must be nodes of this workflow"
)

// CreateWorkflowRequest is the input of WorkflowService.Create.
type CreateWorkflowRequest struct {
	Query string `json:"query" validate:"required,max=256"`
}

// AddNodeRequest is the input of WorkflowService.AddNode. An empty Type means "default".
type AddNodeRequest struct {
	Name     *string         `json:"name" validate:"omitempty,max=256"`
	Type     string          `json:"type" validate:"max=50"`
	Position models.Position `json:"position"`
	Query    *string         `json:"query" validate:"omitempty,max=256"`
	Summary  *string         `json:"summary"`
	Sources  []models.Source `json:"sources"`
	Images   []models.Image  `json:"images"`
}

// AddEdgeRequest is the input of WorkflowService.AddEdge.
type AddEdgeRequest struct {
	Source string          `json:"source" validate:"required,uuid"`
	Target string          `json:"target" validate:"required,uuid"`
	Type   *string         `json:"type" validate:"omitempty,max=50"`
	Data   models.EdgeData `json:"data"`
}

// CreateWorkflowResult is the envelope returned by Create.
type CreateWorkflowResult struct {
	Success     bool             `json:"success"`
	Workflow    *models.Workflow `json:"workflow,omitempty"`
	InitialNode *models.Node     `json:"initialNode,omitempty"`
	Message     string           `json:"message,omitempty"`
	Err         error            `json:"-"`
}

// DeleteResult is the envelope returned by the delete operations.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// SidebarWorkflowsResult is the envelope returned by ListForSidebar.
// Workflows is never nil.
type SidebarWorkflowsResult struct {
	Success   bool                      `json:"success"`
	Workflows []*models.SidebarWorkflow `json:"workflows"`
	Message   string                    `json:"message,omitempty"`
	Err       error                     `json:"-"`
}

// WorkflowGraphResult is the envelope returned by Get.
type WorkflowGraphResult struct {
	Success bool                  `json:"success"`
	Graph   *models.WorkflowGraph `json:"graph,omitempty"`
	Message string                `json:"message,omitempty"`
	Err     error                 `json:"-"`
}

// NodeResult is the envelope returned by AddNode.
type NodeResult struct {
	Success bool         `json:"success"`
	Node    *models.Node `json:"node,omitempty"`
	Message string       `json:"message,omitempty"`
	Err     error        `json:"-"`
}

// EdgeResult is the envelope returned by AddEdge.
type EdgeResult struct {
	Success bool         `json:"success"`
	Edge    *models.Edge `json:"edge,omitempty"`
	Message string       `json:"message,omitempty"`
	Err     error        `json:"-"`
}

// failure is an expected outcome: a sentinel from apperrors plus the message
// shown to the caller.
type failure struct {
	message string
	err     error
}

func (f *failure) Error() string { return f.message }

func (f *failure) Unwrap() error { return f.err }

func fail(message string, err error) *failure {
	return &failure{message: message, err: err}
}

// validationFailure converts validator errors into a single user-facing message.
func validationFailure(err error) *failure {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fail("Invalid request", apperrors.ErrInvalidInput)
	}

	fe := verrs[0]
	var message string
	switch fe.Tag() {
	case "required":
		message = fmt.Sprintf("%s is required", fe.Field())
	case "max":
		message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "uuid":
		message = fmt.Sprintf("%s must be a valid id", fe.Field())
	default:
		message = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return fail(message, apperrors.ErrInvalidInput)
}

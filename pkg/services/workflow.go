package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/audit"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/cache"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/logging"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/repositories"
)

// Operation names, used in logs and persistence errors.
const (
	opCreate     = "workflow.create"
	opDelete     = "workflow.delete"
	opList       = "workflow.list"
	opGet        = "workflow.get"
	opAddNode    = "node.create"
	opDeleteNode = "node.delete"
	opAddEdge    = "edge.create"
	opDeleteEdge = "edge.delete"
)

// WorkflowService defines the operations on a user's workflows.
// Every operation answers with an envelope; errors never escape as return values.
type WorkflowService interface {
	Create(ctx context.Context, req CreateWorkflowRequest) *CreateWorkflowResult
	Delete(ctx context.Context, workflowID string) *DeleteResult
	ListForSidebar(ctx context.Context) *SidebarWorkflowsResult
	Get(ctx context.Context, workflowID string) *WorkflowGraphResult
	AddNode(ctx context.Context, workflowID string, req AddNodeRequest) *NodeResult
	DeleteNode(ctx context.Context, workflowID, nodeID string) *DeleteResult
	AddEdge(ctx context.Context, workflowID string, req AddEdgeRequest) *EdgeResult
	DeleteEdge(ctx context.Context, workflowID, edgeID string) *DeleteResult
}

type workflowService struct {
	workflowRepo repositories.WorkflowRepository
	nodeRepo     repositories.NodeRepository
	edgeRepo     repositories.EdgeRepository
	sidebarCache cache.SidebarCache
	auditor      *audit.SecurityAuditor
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewWorkflowService creates a new workflow service with dependencies.
// A nil sidebarCache disables caching.
func NewWorkflowService(
	workflowRepo repositories.WorkflowRepository,
	nodeRepo repositories.NodeRepository,
	edgeRepo repositories.EdgeRepository,
	sidebarCache cache.SidebarCache,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) WorkflowService {
	if sidebarCache == nil {
		sidebarCache = cache.NoopSidebarCache{}
	}
	return &workflowService{
		workflowRepo: workflowRepo,
		nodeRepo:     nodeRepo,
		edgeRepo:     edgeRepo,
		sidebarCache: sidebarCache,
		auditor:      auditor,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger.Named("workflows"),
	}
}

// Create persists a workflow named after the query together with its initial node.
func (s *workflowService) Create(ctx context.Context, req CreateWorkflowRequest) *CreateWorkflowResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &CreateWorkflowResult{Message: msgCreateUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	if err := s.validateQuery(req); err != nil {
		return &CreateWorkflowResult{Message: err.message, Err: err}
	}

	if hit := audit.CheckInput("query", req.Query); hit != nil {
		s.auditor.LogInjectionPattern(ctx, opCreate, hit)
	}

	name := req.Query
	description := models.WorkflowDescription(req.Query)
	workflow := &models.Workflow{
		UserID:      user.ID,
		Name:        &name,
		Description: &description,
	}
	node := models.NewInitialNode(uuid.Nil, req.Query)

	if err := s.workflowRepo.CreateWithInitialNode(ctx, user.ToUser(), workflow, node); err != nil {
		return &CreateWorkflowResult{Message: msgCreateFailed, Err: s.persistenceFailure(opCreate, user.ID, err)}
	}

	s.invalidateSidebar(ctx, user.ID)

	s.logger.Info("Workflow created",
		zap.String("workflow_id", workflow.ID.String()),
		zap.String("user_id", user.ID),
	)

	return &CreateWorkflowResult{Success: true, Workflow: workflow, InitialNode: node}
}

// validateQuery checks the query without altering it: the text is stored as given.
func (s *workflowService) validateQuery(req CreateWorkflowRequest) *failure {
	if strings.TrimSpace(req.Query) == "" {
		return fail(msgQueryRequired, apperrors.ErrInvalidInput)
	}
	if err := s.validate.Struct(req); err != nil {
		return validationFailure(err)
	}
	if !storableText(req.Query) {
		return fail(msgQueryInvalidText, apperrors.ErrInvalidInput)
	}
	return nil
}

// storableText reports whether PostgreSQL accepts s in a text column.
func storableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// Delete removes an owned workflow with all of its nodes and edges.
func (s *workflowService) Delete(ctx context.Context, workflowID string) *DeleteResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &DeleteResult{Message: msgDeleteUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	workflow, err := s.ownedWorkflow(ctx, opDelete, user, workflowID, msgDeleteForbidden)
	if err != nil {
		return s.deleteFailure(opDelete, user.ID, msgDeleteFailed, err)
	}

	if err := s.workflowRepo.DeleteCascade(ctx, workflow.ID, user.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = fail(msgWorkflowNotFound, apperrors.ErrNotFound)
		}
		return s.deleteFailure(opDelete, user.ID, msgDeleteFailed, err)
	}

	s.invalidateSidebar(ctx, user.ID)

	s.logger.Info("Workflow deleted",
		zap.String("workflow_id", workflow.ID.String()),
		zap.String("user_id", user.ID),
	)

	return &DeleteResult{Success: true, Message: msgDeleteSucceeded}
}

// ListForSidebar returns the caller's workflows, most recently modified first.
func (s *workflowService) ListForSidebar(ctx context.Context) *SidebarWorkflowsResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &SidebarWorkflowsResult{
			Workflows: []*models.SidebarWorkflow{},
			Message:   msgListUnauthenticated,
			Err:       apperrors.ErrUnauthenticated,
		}
	}

	// The snapshot's generation is read before the database so that a
	// mutation committing in between makes the fill below a no-op.
	snapshot, err := s.sidebarCache.Get(ctx, user.ID)
	cacheable := err == nil
	if err != nil {
		s.logger.Warn("Sidebar cache read failed, falling back to database",
			zap.String("user_id", user.ID),
			zap.String("error", logging.SanitizeError(err)),
		)
	} else if snapshot.Hit {
		return &SidebarWorkflowsResult{Success: true, Workflows: nonNilSidebar(snapshot.Workflows)}
	}

	workflows, err := s.workflowRepo.ListSidebarByUser(ctx, user.ID)
	if err != nil {
		return &SidebarWorkflowsResult{
			Workflows: []*models.SidebarWorkflow{},
			Message:   msgListFailed,
			Err:       s.persistenceFailure(opList, user.ID, err),
		}
	}
	workflows = nonNilSidebar(workflows)

	if cacheable {
		s.fillSidebar(ctx, user.ID, snapshot.Generation, workflows)
	}

	return &SidebarWorkflowsResult{Success: true, Workflows: workflows}
}

// Get returns an owned workflow with its nodes and edges.
func (s *workflowService) Get(ctx context.Context, workflowID string) *WorkflowGraphResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &WorkflowGraphResult{Message: msgViewUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	workflow, err := s.ownedWorkflow(ctx, opGet, user, workflowID, msgViewForbidden)
	if err != nil {
		message, classified := s.failureMessage(opGet, user.ID, msgViewFailed, err)
		return &WorkflowGraphResult{Message: message, Err: classified}
	}

	nodes, err := s.nodeRepo.ListByWorkflow(ctx, workflow.ID)
	if err != nil {
		return &WorkflowGraphResult{Message: msgViewFailed, Err: s.persistenceFailure(opGet, user.ID, err)}
	}
	edges, err := s.edgeRepo.ListByWorkflow(ctx, workflow.ID)
	if err != nil {
		return &WorkflowGraphResult{Message: msgViewFailed, Err: s.persistenceFailure(opGet, user.ID, err)}
	}
	if nodes == nil {
		nodes = []*models.Node{}
	}
	if edges == nil {
		edges = []*models.Edge{}
	}

	return &WorkflowGraphResult{
		Success: true,
		Graph:   &models.WorkflowGraph{Workflow: workflow, Nodes: nodes, Edges: edges},
	}
}

// AddNode appends a node to an owned workflow.
func (s *workflowService) AddNode(ctx context.Context, workflowID string, req AddNodeRequest) *NodeResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &NodeResult{Message: msgEditUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		req.Type = models.NodeTypeDefault
	}
	if err := s.validate.Struct(req); err != nil {
		f := validationFailure(err)
		return &NodeResult{Message: f.message, Err: f}
	}
	for _, field := range []struct {
		name  string
		value *string
	}{{"Name", req.Name}, {"Query", req.Query}, {"Summary", req.Summary}} {
		if field.value != nil && !storableText(*field.value) {
			message := field.name + " contains invalid characters"
			return &NodeResult{Message: message, Err: fail(message, apperrors.ErrInvalidInput)}
		}
	}

	node := &models.Node{
		Name:     req.Name,
		Type:     req.Type,
		Position: req.Position,
		Query:    req.Query,
		Summary:  req.Summary,
		Sources:  req.Sources,
		Images:   req.Images,
	}
	if err := node.ValidateColumns(); err != nil {
		return &NodeResult{Message: err.Error(), Err: fail(err.Error(), apperrors.ErrInvalidInput)}
	}

	workflow, err := s.ownedWorkflow(ctx, opAddNode, user, workflowID, msgEditForbidden)
	if err != nil {
		message, classified := s.failureMessage(opAddNode, user.ID, msgEditFailed, err)
		return &NodeResult{Message: message, Err: classified}
	}

	if req.Query != nil {
		if hit := audit.CheckInput("query", *req.Query); hit != nil {
			s.auditor.LogInjectionPattern(ctx, opAddNode, hit)
		}
	}

	node.WorkflowID = workflow.ID
	if err := s.nodeRepo.Create(ctx, node); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = fail(msgWorkflowNotFound, apperrors.ErrNotFound)
		}
		message, classified := s.failureMessage(opAddNode, user.ID, msgEditFailed, err)
		return &NodeResult{Message: message, Err: classified}
	}

	s.invalidateSidebar(ctx, user.ID)
	return &NodeResult{Success: true, Node: node}
}

// DeleteNode removes a node and the edges attached to it.
func (s *workflowService) DeleteNode(ctx context.Context, workflowID, nodeID string) *DeleteResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &DeleteResult{Message: msgEditUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	workflow, err := s.ownedWorkflow(ctx, opDeleteNode, user, workflowID, msgEditForbidden)
	if err != nil {
		return s.deleteFailure(opDeleteNode, user.ID, msgEditFailed, err)
	}

	id, err := uuid.Parse(nodeID)
	if err != nil {
		return s.deleteFailure(opDeleteNode, user.ID, msgEditFailed, fail(msgNodeNotFound, apperrors.ErrNotFound))
	}

	if err := s.nodeRepo.Delete(ctx, workflow.ID, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = fail(msgNodeNotFound, apperrors.ErrNotFound)
		}
		return s.deleteFailure(opDeleteNode, user.ID, msgEditFailed, err)
	}

	s.invalidateSidebar(ctx, user.ID)
	return &DeleteResult{Success: true, Message: "Node deleted successfully"}
}

// AddEdge links two nodes of an owned workflow.
func (s *workflowService) AddEdge(ctx context.Context, workflowID string, req AddEdgeRequest) *EdgeResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &EdgeResult{Message: msgEditUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	if err := s.validate.Struct(req); err != nil {
		f := validationFailure(err)
		return &EdgeResult{Message: f.message, Err: f}
	}

	edge := &models.Edge{
		Source: uuid.MustParse(req.Source),
		Target: uuid.MustParse(req.Target),
		Type:   req.Type,
		Data:   req.Data,
	}
	if err := edge.ValidateColumns(); err != nil {
		return &EdgeResult{Message: err.Error(), Err: fail(err.Error(), apperrors.ErrInvalidInput)}
	}

	workflow, err := s.ownedWorkflow(ctx, opAddEdge, user, workflowID, msgEditForbidden)
	if err != nil {
		message, classified := s.failureMessage(opAddEdge, user.ID, msgEditFailed, err)
		return &EdgeResult{Message: message, Err: classified}
	}

	edge.WorkflowID = workflow.ID
	if err := s.edgeRepo.Create(ctx, edge); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidInput):
			err = fail(msgEdgeEndpoints, apperrors.ErrInvalidInput)
		case errors.Is(err, apperrors.ErrNotFound):
			err = fail(msgWorkflowNotFound, apperrors.ErrNotFound)
		}
		message, classified := s.failureMessage(opAddEdge, user.ID, msgEditFailed, err)
		return &EdgeResult{Message: message, Err: classified}
	}

	s.invalidateSidebar(ctx, user.ID)
	return &EdgeResult{Success: true, Edge: edge}
}

// DeleteEdge removes one edge of an owned workflow.
func (s *workflowService) DeleteEdge(ctx context.Context, workflowID, edgeID string) *DeleteResult {
	user, ok := auth.GetSessionUser(ctx)
	if !ok {
		return &DeleteResult{Message: msgEditUnauthenticated, Err: apperrors.ErrUnauthenticated}
	}

	workflow, err := s.ownedWorkflow(ctx, opDeleteEdge, user, workflowID, msgEditForbidden)
	if err != nil {
		return s.deleteFailure(opDeleteEdge, user.ID, msgEditFailed, err)
	}

	id, err := uuid.Parse(edgeID)
	if err != nil {
		return s.deleteFailure(opDeleteEdge, user.ID, msgEditFailed, fail(msgEdgeNotFound, apperrors.ErrNotFound))
	}

	if err := s.edgeRepo.Delete(ctx, workflow.ID, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			err = fail(msgEdgeNotFound, apperrors.ErrNotFound)
		}
		return s.deleteFailure(opDeleteEdge, user.ID, msgEditFailed, err)
	}

	s.invalidateSidebar(ctx, user.ID)
	return &DeleteResult{Success: true, Message: "Edge deleted successfully"}
}

// ownedWorkflow loads workflowID and checks that user owns it.
// Unparseable and absent ids are both reported as not found.
func (s *workflowService) ownedWorkflow(ctx context.Context, op string, user *models.SessionUser, workflowID, forbiddenMsg string) (*models.Workflow, error) {
	id, err := uuid.Parse(workflowID)
	if err != nil {
		return nil, fail(msgWorkflowNotFound, apperrors.ErrNotFound)
	}

	workflow, err := s.workflowRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fail(msgWorkflowNotFound, apperrors.ErrNotFound)
		}
		return nil, err
	}

	if !workflow.OwnedBy(user.ID) {
		s.auditor.LogAccessDenied(ctx, op, workflow.ID)
		return nil, fail(forbiddenMsg, apperrors.ErrForbidden)
	}
	return workflow, nil
}

// failureMessage returns the message and classified error for err.
// Expected failures carry their own message; anything else is a logged persistence error.
func (s *workflowService) failureMessage(op, userID, failedMsg string, err error) (string, error) {
	var f *failure
	if errors.As(err, &f) {
		return f.message, f
	}
	return failedMsg, s.persistenceFailure(op, userID, err)
}

func (s *workflowService) deleteFailure(op, userID, failedMsg string, err error) *DeleteResult {
	message, classified := s.failureMessage(op, userID, failedMsg, err)
	return &DeleteResult{Message: message, Err: classified}
}

func (s *workflowService) persistenceFailure(op, userID string, err error) error {
	s.logger.Error("Workflow operation failed",
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.String("error", logging.SanitizeError(err)),
	)
	return apperrors.Classify(op, err)
}

func (s *workflowService) invalidateSidebar(ctx context.Context, userID string) {
	if err := s.sidebarCache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Sidebar cache invalidation failed",
			zap.String("user_id", userID),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
}

func (s *workflowService) fillSidebar(ctx context.Context, userID string, generation int64, workflows []*models.SidebarWorkflow) {
	err := s.sidebarCache.Set(ctx, userID, generation, workflows)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStaleGeneration):
		s.logger.Debug("Sidebar changed while loading, listing not cached", zap.String("user_id", userID))
	default:
		s.logger.Warn("Sidebar cache write failed",
			zap.String("user_id", userID),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
}

func nonNilSidebar(list []*models.SidebarWorkflow) []*models.SidebarWorkflow {
	if list == nil {
		return []*models.SidebarWorkflow{}
	}
	return list
}

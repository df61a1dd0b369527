package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/audit"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/services"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/sidebar"
)

const maxRequestBodySize = 1 << 20

// ScopeMiddleware attaches a request-scoped database connection to the request context.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// WorkflowsHandler handles workflow, node and edge HTTP requests.
type WorkflowsHandler struct {
	workflowService services.WorkflowService
	logger          *zap.Logger
}

// NewWorkflowsHandler creates a new workflows handler.
func NewWorkflowsHandler(workflowService services.WorkflowService, logger *zap.Logger) *WorkflowsHandler {
	return &WorkflowsHandler{
		workflowService: workflowService,
		logger:          logger,
	}
}

// RegisterRoutes registers the workflows handler's routes on the given mux.
// Sessions are resolved but not required: the service answers anonymous
// callers with an unauthenticated envelope.
func (h *WorkflowsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	wrap := func(next http.HandlerFunc) http.HandlerFunc {
		return scopeMiddleware(authMiddleware.ResolveSession(next))
	}

	mux.HandleFunc("POST /api/workflows", wrap(h.Create))
	mux.HandleFunc("GET /api/workflows", wrap(h.List))
	mux.HandleFunc("GET /api/workflows/{wid}", wrap(h.Get))
	mux.HandleFunc("DELETE /api/workflows/{wid}", wrap(h.Delete))
	mux.HandleFunc("POST /api/workflows/{wid}/nodes", wrap(h.AddNode))
	mux.HandleFunc("DELETE /api/workflows/{wid}/nodes/{nid}", wrap(h.DeleteNode))
	mux.HandleFunc("POST /api/workflows/{wid}/edges", wrap(h.AddEdge))
	mux.HandleFunc("DELETE /api/workflows/{wid}/edges/{eid}", wrap(h.DeleteEdge))
}

// Create handles POST /api/workflows
func (h *WorkflowsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateWorkflowRequest
	if !h.decode(w, r, &req) {
		return
	}

	result := h.workflowService.Create(requestContext(r), req)
	h.respond(w, http.StatusCreated, result.Err, result)
}

// List handles GET /api/workflows?q=term
// The optional q parameter filters the sidebar list by name or id.
func (h *WorkflowsHandler) List(w http.ResponseWriter, r *http.Request) {
	result := h.workflowService.ListForSidebar(requestContext(r))
	if result.Success {
		if term := strings.TrimSpace(r.URL.Query().Get("q")); term != "" {
			result.Workflows = sidebar.Filter(result.Workflows, term)
		}
	}
	h.respond(w, http.StatusOK, result.Err, result)
}

// Get handles GET /api/workflows/{wid}
func (h *WorkflowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	result := h.workflowService.Get(requestContext(r), r.PathValue("wid"))
	h.respond(w, http.StatusOK, result.Err, result)
}

// Delete handles DELETE /api/workflows/{wid}
func (h *WorkflowsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	result := h.workflowService.Delete(requestContext(r), r.PathValue("wid"))
	h.respond(w, http.StatusOK, result.Err, result)
}

// AddNode handles POST /api/workflows/{wid}/nodes
func (h *WorkflowsHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req services.AddNodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result := h.workflowService.AddNode(requestContext(r), r.PathValue("wid"), req)
	h.respond(w, http.StatusCreated, result.Err, result)
}

// DeleteNode handles DELETE /api/workflows/{wid}/nodes/{nid}
func (h *WorkflowsHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	result := h.workflowService.DeleteNode(requestContext(r), r.PathValue("wid"), r.PathValue("nid"))
	h.respond(w, http.StatusOK, result.Err, result)
}

// AddEdge handles POST /api/workflows/{wid}/edges
func (h *WorkflowsHandler) AddEdge(w http.ResponseWriter, r *http.Request) {
	var req services.AddEdgeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result := h.workflowService.AddEdge(requestContext(r), r.PathValue("wid"), req)
	h.respond(w, http.StatusCreated, result.Err, result)
}

// DeleteEdge handles DELETE /api/workflows/{wid}/edges/{eid}
func (h *WorkflowsHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	result := h.workflowService.DeleteEdge(requestContext(r), r.PathValue("wid"), r.PathValue("eid"))
	h.respond(w, http.StatusOK, result.Err, result)
}

// decode reads a JSON body into dst, writing a 400 problem on failure.
func (h *WorkflowsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		if err := WriteProblem(w, r, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}

// respond writes the envelope with successStatus, or with the status mapped from errValue.
func (h *WorkflowsHandler) respond(w http.ResponseWriter, successStatus int, errValue error, envelope any) {
	status := successStatus
	if errValue != nil {
		status = StatusFor(errValue)
	}
	if err := WriteJSON(w, status, envelope); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// requestContext carries the caller's address to the security auditor.
func requestContext(r *http.Request) context.Context {
	return audit.WithClientIP(r.Context(), r.RemoteAddr)
}

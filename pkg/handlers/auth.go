package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/auth"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/config"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/services"
)

// SignOutResponse represents the response for sign-out.
type SignOutResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	userService services.UserService
	sessions    *auth.SessionStore
	config      *config.Config
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(userService services.UserService, sessions *auth.SessionStore, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		config:      cfg,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /api/auth/me", scopeMiddleware(authMiddleware.RequireAuth(h.GetMe)))
	mux.HandleFunc("POST /api/auth/signout", scopeMiddleware(authMiddleware.ResolveSession(h.SignOut)))
}

// GetMe handles GET /api/auth/me
// Returns the profile of the currently authenticated user.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context())
	if err != nil {
		status := StatusFor(err)
		code, message := "internal_error", "Failed to load user"
		if status == http.StatusUnauthorized {
			code, message = "unauthorized", "Not authenticated"
		}
		if err := ErrorResponse(w, status, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// SignOut handles POST /api/auth/signout
// Deletes the database session and clears both auth cookies. Always succeeds
// from the client's point of view; a failed session delete is only logged.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.sessions.Token(r); ok {
		if err := h.userService.SignOut(r.Context(), token); err != nil {
			h.logger.Error("Failed to delete session on sign-out", zap.Error(err))
		}
	}

	// Same settings as when the cookies were set
	cookieSettings := auth.DeriveCookieSettings(h.config.BaseURL, h.config.CookieDomain)
	auth.ClearCookie(w, h.config.Auth.JWTCookieName, cookieSettings)
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Error("Failed to clear session cookie", zap.Error(err))
	}

	h.logger.Info("User signed out", zap.String("user_id", auth.GetUserIDFromContext(r.Context())))

	if err := WriteJSON(w, http.StatusOK, SignOutResponse{
		Success:     true,
		RedirectURL: "/",
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

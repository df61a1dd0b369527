package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// ResolveSession puts the caller identity in the context when the request
// carries valid credentials. It never rejects: services answer anonymous
// callers with their own failure envelope.
func (m *Middleware) ResolveSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authService.ValidateRequest(r)
		if err != nil {
			if !errors.Is(err, ErrMissingAuthorization) {
				m.logger.Debug("Request credentials rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}
			next(w, r)
			return
		}

		next(w, r.WithContext(WithSessionUser(r.Context(), user)))
	}
}

// RequireAuth rejects anonymous requests with 401. When ResolveSession ran
// first the identity is reused; otherwise the request is validated here.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionUser(r.Context()); ok {
			next(w, r)
			return
		}

		user, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		next(w, r.WithContext(WithSessionUser(r.Context(), user)))
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

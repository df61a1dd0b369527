package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
	ErrMissingSubject       = errors.New("missing subject in token")
	ErrSessionExpired       = errors.New("session not found or expired")
)

// SessionLookup resolves a database session token to its user.
// Implementations return apperrors.ErrNotFound for unknown or expired tokens.
type SessionLookup interface {
	GetActiveSessionUser(ctx context.Context, sessionToken string) (*models.SessionUser, error)
}

// AuthService defines the interface for authentication operations.
type AuthService interface {
	// ValidateRequest resolves the caller from the request. Sources are tried in order:
	//   1. JWT cookie (browser clients)
	//   2. Authorization header with "Bearer" scheme (API clients)
	//   3. Session cookie referencing a row in the sessions table
	ValidateRequest(r *http.Request) (*models.SessionUser, error)
}

// authService implements AuthService.
type authService struct {
	verifier      TokenVerifier
	sessions      *SessionStore
	lookup        SessionLookup
	jwtCookieName string
	logger        *zap.Logger
}

// NewAuthService creates a new AuthService. sessions and lookup may be nil,
// in which case only JWTs are accepted.
func NewAuthService(verifier TokenVerifier, sessions *SessionStore, lookup SessionLookup, jwtCookieName string, logger *zap.Logger) AuthService {
	return &authService{
		verifier:      verifier,
		sessions:      sessions,
		lookup:        lookup,
		jwtCookieName: jwtCookieName,
		logger:        logger,
	}
}

// ValidateRequest resolves the caller from the request.
func (s *authService) ValidateRequest(r *http.Request) (*models.SessionUser, error) {
	if cookie, err := r.Cookie(s.jwtCookieName); err == nil && cookie.Value != "" {
		return s.validateJWT(r, cookie.Value, "cookie")
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			return nil, ErrInvalidAuthFormat
		}
		return s.validateJWT(r, parts[1], "header")
	}

	if token, ok := s.sessions.Token(r); ok && s.lookup != nil {
		user, err := s.lookup.GetActiveSessionUser(r.Context(), token)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, ErrSessionExpired
			}
			return nil, fmt.Errorf("failed to look up session: %w", err)
		}
		return user, nil
	}

	s.logger.Debug("No credentials found in request",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method))
	return nil, ErrMissingAuthorization
}

func (s *authService) validateJWT(r *http.Request, tokenString, source string) (*models.SessionUser, error) {
	user, err := s.verifier.VerifyToken(r.Context(), tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", source))
		return nil, err
	}
	return user, nil
}

var _ AuthService = (*authService)(nil)

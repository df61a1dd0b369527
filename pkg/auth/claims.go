// Package auth resolves the caller identity for ekaya-mindmap requests.
// Identities come from identity-provider JWTs (verified via JWKS) or from
// database-backed sessions referenced by a signed session cookie.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// SessionUserKey is the context key for the resolved caller identity.
const SessionUserKey contextKey = "session_user"

// Claims represents the JWT claims issued by the identity provider.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the profile claims shown in the UI.
type Claims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// ToSessionUser converts the token claims into the caller identity.
func (c *Claims) ToSessionUser() *models.SessionUser {
	return &models.SessionUser{
		ID:    c.Subject,
		Name:  c.Name,
		Email: c.Email,
		Image: c.Picture,
	}
}

// GetSessionUser retrieves the caller identity from the context.
// Returns nil and false when the request is anonymous.
func GetSessionUser(ctx context.Context) (*models.SessionUser, bool) {
	user, ok := ctx.Value(SessionUserKey).(*models.SessionUser)
	if !ok || user == nil || user.ID == "" {
		return nil, false
	}
	return user, true
}

// WithSessionUser returns a copy of ctx carrying user.
func WithSessionUser(ctx context.Context, user *models.SessionUser) context.Context {
	return context.WithValue(ctx, SessionUserKey, user)
}

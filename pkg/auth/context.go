package auth

import (
	"context"
)

// GetUserIDFromContext returns the caller's user ID, or "" for anonymous requests.
func GetUserIDFromContext(ctx context.Context) string {
	user, ok := GetSessionUser(ctx)
	if !ok {
		return ""
	}
	return user.ID
}

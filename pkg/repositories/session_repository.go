package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// SessionRepository provides access to database-backed login sessions.
type SessionRepository interface {
	// GetActiveSessionUser returns the owner of an unexpired session.
	// Unknown or expired tokens return apperrors.ErrNotFound.
	GetActiveSessionUser(ctx context.Context, sessionToken string) (*models.SessionUser, error)
	Delete(ctx context.Context, sessionToken string) error
	// DeleteExpired removes sessions that expired at or before now and
	// returns the removed rows.
	DeleteExpired(ctx context.Context, now time.Time) ([]*models.Session, error)
	// DeleteExpiredVerificationTokens removes sign-in tokens that expired at
	// or before now and returns the removed rows.
	DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) ([]*models.VerificationToken, error)
}

type sessionRepository struct{}

// NewSessionRepository creates a new session repository.
func NewSessionRepository() SessionRepository {
	return &sessionRepository{}
}

func (r *sessionRepository) GetActiveSessionUser(ctx context.Context, sessionToken string) (*models.SessionUser, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT u.id, COALESCE(u.name, ''), u.email, COALESCE(u.image, '')
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token = $1 AND s.expires > now()`

	var user models.SessionUser
	err = scope.Conn.QueryRow(ctx, query, sessionToken).Scan(&user.ID, &user.Name, &user.Email, &user.Image)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &user, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *sessionRepository) Delete(ctx context.Context, sessionToken string) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	if _, err := scope.Conn.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, sessionToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) ([]*models.Session, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		DELETE FROM sessions
		WHERE expires <= $1
		RETURNING session_token, user_id, expires`

	rows, err := scope.Conn.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.SessionToken, &s.UserID, &s.Expires); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) ([]*models.VerificationToken, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		DELETE FROM verification_tokens
		WHERE expires <= $1
		RETURNING identifier, token, expires`

	rows, err := scope.Conn.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired verification tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.VerificationToken, 0)
	for rows.Next() {
		var t models.VerificationToken
		if err := rows.Scan(&t.Identifier, &t.Token, &t.Expires); err != nil {
			return nil, fmt.Errorf("failed to scan verification token: %w", err)
		}
		tokens = append(tokens, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired verification tokens: %w", err)
	}

	return tokens, nil
}

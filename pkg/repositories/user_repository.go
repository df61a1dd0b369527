package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-mindmap/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-mindmap/pkg/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Upsert inserts the user or refreshes its profile columns. Idempotent.
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

// Upsert inserts the user or refreshes its profile columns.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}
	return upsertUser(ctx, scope.Conn, user)
}

// upsertUser is shared with transactional callers that must create the owner
// row in the same transaction as its workflows.
func upsertUser(ctx context.Context, db execer, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = COALESCE(EXCLUDED.name, users.name),
		    email = CASE WHEN EXCLUDED.email = '' THEN users.email ELSE EXCLUDED.email END,
		    image = COALESCE(EXCLUDED.image, users.image)`

	if _, err := db.Exec(ctx, query, user.ID, user.Name, user.Email, user.Image); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, email, email_verified, image
		FROM users
		WHERE id = $1`

	var user models.User
	err = scope.Conn.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.EmailVerified,
		&user.Image,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

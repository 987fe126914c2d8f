package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cvpipe/resume-worker/internal/domain"
)

// AuthStore resolves user identity from the auth database. Lookups are
// best-effort for callers: the orchestrator tolerates failure here.
type AuthStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewAuthStore(db *sqlx.DB, logger *slog.Logger) *AuthStore {
	return &AuthStore{db: db, logger: logger}
}

type userRow struct {
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
}

// GetUserByID returns the identity record for a user, or
// domain.ErrUserNotFound when none exists.
func (s *AuthStore) GetUserByID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	query := `
		SELECT COALESCE(first_name, '') AS first_name,
		       COALESCE(last_name, '') AS last_name,
		       COALESCE(email, '') AS email
		FROM users
		WHERE id = $1
	`

	var row userRow
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &domain.UserProfile{
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
	}, nil
}

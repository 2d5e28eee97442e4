package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"photogram/internal/model"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID retrieves a single profile summary.
func (r *userRepository) GetByID(ctx context.Context, userID string) (*model.UserSummary, error) {
	query := `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id = $1
	`
	var user model.UserSummary
	err := r.db.GetContext(ctx, &user, query, userID)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByIDs retrieves profile summaries in bulk. IDs that do not resolve are
// simply absent from the map; the joiner above decides what to do with them.
func (r *userRepository) GetByIDs(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error) {
	result := make(map[string]model.UserSummary, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE id = ANY($1)
	`
	var users []model.UserSummary
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

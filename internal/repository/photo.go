package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"photogram/internal/model"
)

type photoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) PhotoRepository {
	return &photoRepository{db: db}
}

// GetByID retrieves the photo slice this module cares about (owner and
// denormalized comment count).
func (r *photoRepository) GetByID(ctx context.Context, photoID string) (*model.Photo, error) {
	query := `
		SELECT id, owner_id, comment_count, created_at
		FROM photos
		WHERE id = $1
	`
	var photo model.Photo
	err := r.db.GetContext(ctx, &photo, query, photoID)
	if err == sql.ErrNoRows {
		return nil, model.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return &photo, nil
}

// Exists checks if a photo exists.
func (r *photoRepository) Exists(ctx context.Context, photoID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM photos WHERE id = $1)`, photoID)
	if err != nil {
		return false, fmt.Errorf("check photo exists: %w", err)
	}
	return exists, nil
}

// IncrementCommentCount atomically updates the comment_count on a photo.
// Runs inside the same transaction as the comment write so the counter can
// never drift from the comment set, even under racing cascade deletes.
func (r *photoRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, photoID string, delta int) error {
	query := `UPDATE photos SET comment_count = comment_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, photoID)
	if err != nil {
		return fmt.Errorf("increment comment count: %w", err)
	}
	return nil
}

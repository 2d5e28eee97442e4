package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"photogram/internal/model"
)

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Exists checks the deterministic like identity (photo, comment, user).
func (r *likeRepository) Exists(ctx context.Context, photoID, commentID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM comment_likes
			WHERE photo_id = $1 AND comment_id = $2 AND user_id = $3
		)
	`, photoID, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("check like exists: %w", err)
	}
	return exists, nil
}

// Create inserts a like record. Returns ErrAlreadyLiked on duplicate.
func (r *likeRepository) Create(ctx context.Context, tx *sqlx.Tx, photoID, commentID, userID string) error {
	query := `INSERT INTO comment_likes (photo_id, comment_id, user_id) VALUES ($1, $2, $3)`
	_, err := tx.ExecContext(ctx, query, photoID, commentID, userID)
	if err != nil {
		// Unique constraint violation
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

// Delete removes a like record. Returns ErrNotLiked if absent.
func (r *likeRepository) Delete(ctx context.Context, tx *sqlx.Tx, photoID, commentID, userID string) error {
	query := `DELETE FROM comment_likes WHERE photo_id = $1 AND comment_id = $2 AND user_id = $3`
	result, err := tx.ExecContext(ctx, query, photoID, commentID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotLiked
	}
	return nil
}

// CheckLikes reports which of the given comments the user has liked.
// Every requested ID is present in the result map.
func (r *likeRepository) CheckLikes(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(commentIDs))
	for _, id := range commentIDs {
		result[id] = false
	}
	if len(commentIDs) == 0 {
		return result, nil
	}

	query := `SELECT comment_id FROM comment_likes WHERE user_id = $1 AND comment_id = ANY($2)`
	var likedIDs []string
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(commentIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check likes: %w", err)
	}
	for _, id := range likedIDs {
		result[id] = true
	}
	return result, nil
}

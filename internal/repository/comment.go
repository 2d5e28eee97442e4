package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"photogram/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a new comment. The caller assigns the ID (store-generated
// or client-predicted) and owns the transaction so the photo counter update
// commits atomically with the insert.
func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) error {
	query := `
		INSERT INTO comments (id, photo_id, user_id, content, media_url, media_type, parent_id, mentioned_comment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, like_count
	`
	row := tx.QueryRowxContext(ctx, query,
		comment.ID, comment.PhotoID, comment.UserID, comment.Text,
		comment.MediaURL, comment.MediaType, comment.ParentID, comment.MentionedCommentID)
	if err := row.Scan(&comment.CreatedAt, &comment.LikeCount); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetByID retrieves a single comment.
func (r *commentRepository) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	query := `
		SELECT id, photo_id, user_id, content, media_url, media_type, parent_id, mentioned_comment_id, like_count, created_at
		FROM comments
		WHERE id = $1
	`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// GetByPhotoID returns the full flat comment set for a photo, oldest first.
// This is the snapshot the live subscription re-fetches; author joining
// happens a layer up so deleted accounts can be papered over.
func (r *commentRepository) GetByPhotoID(ctx context.Context, photoID string) ([]model.Comment, error) {
	query := `
		SELECT id, photo_id, user_id, content, media_url, media_type, parent_id, mentioned_comment_id, like_count, created_at
		FROM comments
		WHERE photo_id = $1
		ORDER BY created_at ASC, id ASC
	`
	comments := []model.Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, photoID); err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	return comments, nil
}

// GetTopLevelRecent returns up to limit top-level comments, newest first.
// Used for preview selection.
func (r *commentRepository) GetTopLevelRecent(ctx context.Context, photoID string, limit int) ([]model.Comment, error) {
	query := `
		SELECT id, photo_id, user_id, content, media_url, media_type, parent_id, mentioned_comment_id, like_count, created_at
		FROM comments
		WHERE photo_id = $1 AND parent_id IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	comments := []model.Comment{}
	if err := r.db.SelectContext(ctx, &comments, query, photoID, limit); err != nil {
		return nil, fmt.Errorf("get top-level comments: %w", err)
	}
	return comments, nil
}

// DeleteByID removes a single comment (the reply case; no cascade).
func (r *commentRepository) DeleteByID(ctx context.Context, tx *sqlx.Tx, commentID string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

// DeleteThread removes a top-level comment and all replies pointing at it.
// The row count drives the counter decrement, so it must be exact.
func (r *commentRepository) DeleteThread(ctx context.Context, tx *sqlx.Tx, commentID string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		DELETE FROM comments WHERE id = $1 OR parent_id = $1
	`, commentID)
	if err != nil {
		return 0, fmt.Errorf("delete thread: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return 0, model.ErrCommentNotFound
	}
	return rows, nil
}

// IncrementLikeCount atomically updates the like_count on a comment.
func (r *commentRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, commentID string, delta int) error {
	query := `UPDATE comments SET like_count = like_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, commentID)
	if err != nil {
		return fmt.Errorf("increment like count: %w", err)
	}
	return nil
}

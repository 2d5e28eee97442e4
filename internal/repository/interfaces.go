package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"photogram/internal/model"
)

type CommentRepository interface {
	// Create inserts a comment with its caller-assigned ID. Runs inside the
	// caller's transaction so the counter update commits with it.
	Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) error
	GetByID(ctx context.Context, commentID string) (*model.Comment, error)
	// GetByPhotoID returns all comments on a photo, oldest first.
	GetByPhotoID(ctx context.Context, photoID string) ([]model.Comment, error)
	// GetTopLevelRecent returns up to limit top-level comments, newest first.
	GetTopLevelRecent(ctx context.Context, photoID string, limit int) ([]model.Comment, error)
	// DeleteByID removes a single comment (a reply).
	DeleteByID(ctx context.Context, tx *sqlx.Tx, commentID string) error
	// DeleteThread removes a top-level comment and every reply pointing at
	// it, returning how many rows went away.
	DeleteThread(ctx context.Context, tx *sqlx.Tx, commentID string) (int64, error)
	// IncrementLikeCount atomically adjusts the denormalized like_count.
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, commentID string, delta int) error
}

type PhotoRepository interface {
	GetByID(ctx context.Context, photoID string) (*model.Photo, error)
	Exists(ctx context.Context, photoID string) (bool, error)
	// IncrementCommentCount atomically adjusts the denormalized comment_count.
	IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, photoID string, delta int) error
}

type LikeRepository interface {
	Exists(ctx context.Context, photoID, commentID, userID string) (bool, error)
	Create(ctx context.Context, tx *sqlx.Tx, photoID, commentID, userID string) error
	Delete(ctx context.Context, tx *sqlx.Tx, photoID, commentID, userID string) error
	// CheckLikes reports which of the given comments the user has liked.
	CheckLikes(ctx context.Context, userID string, commentIDs []string) (map[string]bool, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*model.UserSummary, error)
	GetByIDs(ctx context.Context, userIDs []string) (map[string]model.UserSummary, error)
}

package model

import (
	"errors"
	"time"
)

// Like records that a user liked a comment. Existence alone encodes the
// like; (photo_id, comment_id, user_id) is the composite identity.
type Like struct {
	PhotoID   string    `db:"photo_id" json:"photo_id"`
	CommentID string    `db:"comment_id" json:"comment_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Like errors
var (
	ErrAlreadyLiked = errors.New("comment already liked")
	ErrNotLiked     = errors.New("comment not liked")
)

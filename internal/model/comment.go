package model

import (
	"errors"
	"time"
)

// Comment represents a single comment on a photo.
//
// Threads are flat: a reply's ParentID always references a top-level
// comment, never another reply. MentionedCommentID records which specific
// comment (possibly a reply) the author was addressing; it only drives
// @mention/highlight display and carries no structural meaning.
type Comment struct {
	ID                 string    `db:"id" json:"id"`
	PhotoID            string    `db:"photo_id" json:"photo_id"`
	UserID             string    `db:"user_id" json:"-"`
	Text               string    `db:"content" json:"text"`
	MediaURL           *string   `db:"media_url" json:"media_url,omitempty"`
	MediaType          *string   `db:"media_type" json:"media_type,omitempty"`
	ParentID           *string   `db:"parent_id" json:"parent_id,omitempty"`
	MentionedCommentID *string   `db:"mentioned_comment_id" json:"mentioned_comment_id,omitempty"`
	LikeCount          int       `db:"like_count" json:"like_count"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`

	// Joined fields (not in comments table)
	Author  *UserSummary `json:"author,omitempty"`
	IsLiked bool         `json:"is_liked"`
}

// IsTopLevel reports whether the comment starts a thread.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// CreateCommentRequest is the request body for creating a comment.
// TargetID is the comment being replied to (nil for a top-level comment).
// PredictedID lets the client pre-assign the comment ID so an optimistic
// copy can be correlated with the echoed write instead of rendered twice.
type CreateCommentRequest struct {
	Text        string  `json:"text"`
	MediaURL    *string `json:"media_url,omitempty"`
	MediaType   *string `json:"media_type,omitempty"`
	TargetID    *string `json:"target_id,omitempty"`
	PredictedID *string `json:"predicted_id,omitempty"`
}

// LikeToggleResponse reports the like state after a toggle.
type LikeToggleResponse struct {
	Liked bool `json:"liked"`
}

// Comment constraints
const (
	MaxCommentTextLength = 2000
)

// Media types a comment attachment may carry.
const (
	CommentMediaImage = "image"
	CommentMediaVideo = "video"
	CommentMediaGIF   = "gif"
)

var allowedCommentMediaTypes = map[string]struct{}{
	CommentMediaImage: {},
	CommentMediaVideo: {},
	CommentMediaGIF:   {},
}

// IsAllowedCommentMediaType reports whether a media type may be attached
// to a comment.
func IsAllowedCommentMediaType(mediaType string) bool {
	_, ok := allowedCommentMediaTypes[mediaType]
	return ok
}

// Comment errors
var (
	// ErrCommentNotFound is returned when a comment cannot be found
	ErrCommentNotFound = errors.New("comment not found")

	// ErrTargetNotFound is returned when the reply target does not exist on the photo
	ErrTargetNotFound = errors.New("reply target not found")

	// ErrNotAllowedToDelete is returned when the requester is neither the
	// comment author nor the photo owner
	ErrNotAllowedToDelete = errors.New("not allowed to delete this comment")

	// ErrEmptyContent is returned when a comment has neither text nor media
	ErrEmptyContent = errors.New("comment needs text or media")

	// ErrTextTooLong is returned when comment text exceeds the limit
	ErrTextTooLong = errors.New("comment text too long")

	// ErrInvalidMedia is returned for a malformed media URL or unsupported media type
	ErrInvalidMedia = errors.New("invalid comment media")
)

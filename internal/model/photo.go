package model

import (
	"errors"
	"time"
)

// Photo is the slice of the photo aggregate this module reads. The photo
// record itself is owned elsewhere; only the denormalized comment_count is
// mutated here, and only through atomic increments.
type Photo struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"owner_id"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Photo errors
var (
	// ErrPhotoNotFound is returned when a photo cannot be found
	ErrPhotoNotFound = errors.New("photo not found")
)

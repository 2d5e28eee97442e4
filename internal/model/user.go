package model

import "errors"

// UserSummary is the author profile joined onto comments.
type UserSummary struct {
	ID          string  `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsDeleted   bool    `json:"is_deleted,omitempty"`
}

// Placeholder identity shown when an author account no longer resolves.
const (
	DeletedUserName    = "deleted"
	DeletedUserDisplay = "Deleted User"
)

// DeletedUserSummary synthesizes the stable placeholder profile for an
// author that cannot be resolved. Comment rendering must never fail just
// because the account vanished.
func DeletedUserSummary(id string) *UserSummary {
	display := DeletedUserDisplay
	return &UserSummary{
		ID:          id,
		Username:    DeletedUserName,
		DisplayName: &display,
		IsDeleted:   true,
	}
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")
)

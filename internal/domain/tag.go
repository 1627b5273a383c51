// Package domain contains the core business entities for Pantry.
package domain

import (
	"time"
)

// Tag is a user-scoped label attached to recipes. Tag names are unique
// per owner: two users may each own a tag with the same name, but a
// single user never owns duplicates.
type Tag struct {
	// ID is the unique identifier for the tag (auto-generated).
	ID int64 `json:"id"`

	// UserID is the owning user.
	UserID int64 `json:"-"`

	// Name is the tag name, unique within the owner's vocabulary.
	Name string `json:"name"`

	// CreatedAt is the timestamp when the tag was created.
	CreatedAt time.Time `json:"-"`
}

// NewTag creates a Tag owned by the given user.
func NewTag(userID int64, name string) *Tag {
	return &Tag{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

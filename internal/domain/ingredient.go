// Package domain contains the core business entities for Pantry.
package domain

import (
	"time"
)

// Ingredient is a user-scoped ingredient referenced by recipes. Like
// tags, ingredient names are unique per owner.
type Ingredient struct {
	// ID is the unique identifier for the ingredient (auto-generated).
	ID int64 `json:"id"`

	// UserID is the owning user.
	UserID int64 `json:"-"`

	// Name is the ingredient name, unique within the owner's vocabulary.
	Name string `json:"name"`

	// CreatedAt is the timestamp when the ingredient was created.
	CreatedAt time.Time `json:"-"`
}

// NewIngredient creates an Ingredient owned by the given user.
func NewIngredient(userID int64, name string) *Ingredient {
	return &Ingredient{
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// Package domain contains the core business entities for Pantry.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe represents a recipe owned by exactly one user. The owner is set
// at creation time and never changes; update payloads naming a different
// owner are silently ignored by the service layer.
type Recipe struct {
	// ID is the unique identifier for the recipe (auto-generated).
	ID int64 `json:"id"`

	// UserID is the owning user. Every recipe has exactly one owner.
	UserID int64 `json:"-"`

	// Title is the recipe title.
	Title string `json:"title"`

	// TimeMinutes is the time to prepare, in minutes.
	TimeMinutes int `json:"time_minutes"`

	// Price is the estimated cost, a fixed-point decimal.
	Price decimal.Decimal `json:"price"`

	// Description is the optional free-form description.
	Description string `json:"description,omitempty"`

	// Link is the optional external URL for the recipe.
	Link string `json:"link,omitempty"`

	// ImagePath is the storage key of the attached image, empty when no
	// image has been uploaded.
	ImagePath string `json:"image,omitempty"`

	// Tags are the tags linked to this recipe.
	Tags []*Tag `json:"tags"`

	// Ingredients are the ingredients linked to this recipe.
	Ingredients []*Ingredient `json:"ingredients"`

	// CreatedAt is the timestamp when the recipe was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the recipe was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecipe creates a Recipe owned by the given user.
func NewRecipe(userID int64, title string, timeMinutes int, price decimal.Decimal) *Recipe {
	now := time.Now().UTC()
	return &Recipe{
		UserID:      userID,
		Title:       title,
		TimeMinutes: timeMinutes,
		Price:       price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// TagIDs returns the IDs of the linked tags.
func (r *Recipe) TagIDs() []int64 {
	ids := make([]int64, 0, len(r.Tags))
	for _, t := range r.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// IngredientIDs returns the IDs of the linked ingredients.
func (r *Recipe) IngredientIDs() []int64 {
	ids := make([]int64, 0, len(r.Ingredients))
	for _, in := range r.Ingredients {
		ids = append(ids, in.ID)
	}
	return ids
}

// Package storage defines interfaces for media storage backends.
package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// recipeImagePrefix is the key prefix for recipe images.
const recipeImagePrefix = "uploads/recipe"

// RecipeImageKey generates a fresh storage key for a recipe image.
// The key embeds a random UUID so a replaced image never collides with
// the file it replaces, and keeps the original file extension.
//
// Example:
//
//	filename: "dinner.JPG"
//	result:   "uploads/recipe/8b1c0e6a-....jpg"
func RecipeImageKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(recipeImagePrefix, uuid.NewString()+ext)
}

// IsRecipeImageKey reports whether a storage key belongs to the recipe
// image namespace. Used to reject path traversal in stored references.
func IsRecipeImageKey(key string) bool {
	cleaned := path.Clean(key)
	return strings.HasPrefix(cleaned, recipeImagePrefix+"/") && !strings.Contains(cleaned, "..")
}

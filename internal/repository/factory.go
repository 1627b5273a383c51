// Package repository provides the data access layer for Pantry.
// This file contains the bundle type handed to the service layer and the
// health interface satisfied by both database drivers.
package repository

import (
	"context"
)

// Repositories holds all repository instances.
type Repositories struct {
	User       UserRepository
	Token      TokenRepository
	Recipe     RecipeRepository
	Tag        TagRepository
	Ingredient IngredientRepository
}

// DatabaseHealth is an interface for database health checks.
// Both the sqlite and postgres DB wrappers satisfy it.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

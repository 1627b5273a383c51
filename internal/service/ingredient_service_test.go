package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestIngredientService_List(t *testing.T) {
	repo := NewMockIngredientRepository()
	svc := NewIngredientService(repo, zerolog.Nop())
	ctx := context.Background()

	kale, err := svc.Create(ctx, 1, "Kale")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	salt, err := svc.Create(ctx, 1, "Salt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Create(ctx, 2, "Foreign"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.assigned[kale.ID] = true

	ingredients, err := svc.List(ctx, 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %d", len(ingredients))
	}
	// Descending name order.
	if ingredients[0].ID != salt.ID || ingredients[1].ID != kale.ID {
		t.Errorf("expected [Salt Kale], got [%s %s]", ingredients[0].Name, ingredients[1].Name)
	}

	ingredients, err = svc.List(ctx, 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ingredients) != 1 || ingredients[0].ID != kale.ID {
		t.Errorf("expected only the assigned ingredient, got %+v", ingredients)
	}
}

func TestIngredientService_Create(t *testing.T) {
	svc := NewIngredientService(NewMockIngredientRepository(), zerolog.Nop())
	ctx := context.Background()

	ingredient, err := svc.Create(ctx, 1, "Cucumber")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ingredient.ID == 0 || ingredient.UserID != 1 {
		t.Errorf("unexpected ingredient %+v", ingredient)
	}

	if _, err := svc.Create(ctx, 1, ""); err == nil {
		t.Error("expected validation error for blank name")
	}
	if _, err := svc.Create(ctx, 1, "Cucumber"); err == nil {
		t.Error("expected validation error for duplicate name")
	}
	if _, err := svc.Create(ctx, 2, "Cucumber"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIngredientService_Update(t *testing.T) {
	svc := NewIngredientService(NewMockIngredientRepository(), zerolog.Nop())
	ctx := context.Background()

	ingredient, err := svc.Create(ctx, 1, "Cucumber")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.Update(ctx, 1, ingredient.ID, "Pickle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Pickle" {
		t.Errorf("expected renamed ingredient, got %q", updated.Name)
	}

	if _, err := svc.Update(ctx, 2, ingredient.ID, "Hijacked"); err != ErrIngredientNotFound {
		t.Errorf("expected ErrIngredientNotFound for foreign caller, got %v", err)
	}
}

func TestIngredientService_Delete(t *testing.T) {
	svc := NewIngredientService(NewMockIngredientRepository(), zerolog.Nop())
	ctx := context.Background()

	ingredient, err := svc.Create(ctx, 1, "Cucumber")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(ctx, 2, ingredient.ID); err != ErrIngredientNotFound {
		t.Errorf("expected ErrIngredientNotFound for foreign caller, got %v", err)
	}
	if err := svc.Delete(ctx, 1, ingredient.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

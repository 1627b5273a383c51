package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

func newFileDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "pantry.db"))
	cfg.MaxOpenConns = 25
	cfg.MaxIdleConns = 5

	db, err := NewDB(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func seedDBUser(t *testing.T, db *DB, email string) *domain.User {
	t.Helper()
	user := domain.NewUser(email, "not-a-real-hash", "Test")
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

// The connection string must hand every configured pragma to the
// driver; a DSN the driver ignores leaves foreign keys off and the
// busy timeout at zero.
func TestNewDB_PragmasApplied(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()

	var foreignKeys int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)

	var busyTimeout int
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var journalMode string
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
}

func TestRecipeCreate_DanglingLinkRejected(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()
	user := seedDBUser(t, db, "fk@example.com")

	recipe := domain.NewRecipe(user.ID, "Dangling", 5, decimal.NewFromInt(3))
	recipe.Tags = []*domain.Tag{{ID: 9999, UserID: user.ID, Name: "gone"}}

	err := NewRecipeRepository(db).Create(ctx, recipe)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

// A failed link replacement must roll the scalar changes back with it.
func TestRecipeUpdate_Atomic(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()
	user := seedDBUser(t, db, "atomic@example.com")
	recipes := NewRecipeRepository(db)

	tag := domain.NewTag(user.ID, "Vegan")
	require.NoError(t, NewTagRepository(db).Create(ctx, tag))

	recipe := domain.NewRecipe(user.ID, "Curry", 30, decimal.NewFromInt(7))
	recipe.Tags = []*domain.Tag{tag}
	require.NoError(t, recipes.Create(ctx, recipe))

	loaded, err := recipes.GetByID(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	loaded.Title = "Half written"
	loaded.Tags = []*domain.Tag{{ID: 9999, UserID: user.ID, Name: "gone"}}

	err = recipes.Update(ctx, loaded)
	require.ErrorIs(t, err, repository.ErrNotFound)

	reloaded, err := recipes.GetByID(ctx, user.ID, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Curry", reloaded.Title)
	require.Len(t, reloaded.Tags, 1)
	assert.Equal(t, "Vegan", reloaded.Tags[0].Name)
}

// Concurrent valid writes must queue on the busy timeout rather than
// fail, even with the default pool size.
func TestConcurrentWrites(t *testing.T) {
	db := newFileDB(t)
	ctx := context.Background()
	user := seedDBUser(t, db, "writer@example.com")
	recipes := NewRecipeRepository(db)

	const writers = 16
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := domain.NewRecipe(user.ID, fmt.Sprintf("Recipe %d", i), i, decimal.NewFromInt(1))
			errs <- recipes.Create(ctx, r)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	list, err := recipes.List(ctx, user.ID, repository.RecipeFilter{})
	require.NoError(t, err)
	assert.Len(t, list, writers)
}

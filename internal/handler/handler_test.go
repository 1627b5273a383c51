package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pantrylabs/pantry/internal/auth"
	"github.com/pantrylabs/pantry/internal/cache/memory"
	"github.com/pantrylabs/pantry/internal/lock"
	"github.com/pantrylabs/pantry/internal/repository/sqlite"
	"github.com/pantrylabs/pantry/internal/service"
	"github.com/pantrylabs/pantry/internal/storage"
)

// testServer wires the full HTTP stack over an in-memory SQLite
// database and a temp-dir storage backend.
type testServer struct {
	handler http.Handler
	users   *service.UserService
	tokens  *service.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, sqlite.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		JournalMode:     "MEMORY",
		BusyTimeout:     5000,
		CacheSize:       -2000,
		SynchronousMode: "OFF",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	userRepo := sqlite.NewUserRepository(db)
	tokenRepo := sqlite.NewTokenRepository(db)
	recipeRepo := sqlite.NewRecipeRepository(db)
	tagRepo := sqlite.NewTagRepository(db)
	ingredientRepo := sqlite.NewIngredientRepository(db)

	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	locker := lock.NewNoOpLocker()

	blobs, err := storage.NewFilesystemBackend(t.TempDir(), logger)
	require.NoError(t, err)

	users := service.NewUserService(userRepo, 5, logger)
	tokens := service.NewTokenService(tokenRepo, userRepo, users, cache, time.Minute, nil, logger)
	recipes := service.NewRecipeService(recipeRepo, tagRepo, ingredientRepo, locker, blobs, nil, logger)
	tags := service.NewTagService(tagRepo, logger)
	ingredients := service.NewIngredientService(ingredientRepo, logger)
	sessions := service.NewSessionService(users, cache, time.Hour, logger)

	adminHandler, err := NewAdminHandler(AdminConfig{
		SessionService: sessions,
		UserService:    users,
		SessionTTL:     time.Hour,
		Logger:         logger,
	})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		UserHandler:       NewUserHandler(users, tokens, logger),
		RecipeHandler:     NewRecipeHandler(recipes, 10<<20, logger),
		TagHandler:        NewTagHandler(tags, logger),
		IngredientHandler: NewIngredientHandler(ingredients, logger),
		AdminHandler:      adminHandler,
		AuthMiddleware:    auth.Middleware(tokens, auth.DefaultConfig()),
		Logger:            logger,
	})

	return &testServer{
		handler: router.Handler(),
		users:   users,
		tokens:  tokens,
	}
}

// do performs a JSON request; token may be empty for anonymous calls.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// register creates an account and returns a valid token for it.
func (ts *testServer) register(t *testing.T, email, password, name string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/user/create", "", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	token, err := ts.tokens.Issue(context.Background(), email, password)
	require.NoError(t, err)
	return token
}

// decode unmarshals a response body into dst.
func decode(t *testing.T, resp *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), dst))
}

// uploadImage posts a multipart image payload to the upload endpoint.
func (ts *testServer) uploadImage(t *testing.T, token, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

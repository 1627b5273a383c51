package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"time"

	"github.com/pantrylabs/pantry/internal/domain"
	"github.com/pantrylabs/pantry/internal/repository"
)

// =============================================================================
// Mock repositories
// =============================================================================

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users     map[int64]*domain.User
	nextID    int64
	createErr error
	getErr    error
	updateErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, u := range m.users {
		if u.ID != user.ID && u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var items []*domain.User
	for i, id := range ids {
		if i < opts.Offset {
			continue
		}
		if len(items) >= opts.Limit {
			break
		}
		items = append(items, m.users[id])
	}
	return &repository.ListResult[domain.User]{
		Items:  items,
		Total:  int64(len(m.users)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// MockTokenRepository is a mock implementation of repository.TokenRepository.
type MockTokenRepository struct {
	tokens    map[string]*domain.Token // digest -> token
	nextID    int64
	createErr error
}

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens: make(map[string]*domain.Token),
		nextID: 1,
	}
}

func (m *MockTokenRepository) Create(ctx context.Context, token *domain.Token) error {
	if m.createErr != nil {
		return m.createErr
	}
	token.ID = m.nextID
	m.nextID++
	m.tokens[token.Digest] = token
	return nil
}

func (m *MockTokenRepository) GetByDigest(ctx context.Context, digest string) (*domain.Token, error) {
	if t, ok := m.tokens[digest]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockTokenRepository) UpdateLastUsed(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	for _, t := range m.tokens {
		if t.ID == id {
			t.LastUsedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockTokenRepository) DeleteByDigest(ctx context.Context, digest string) error {
	if _, ok := m.tokens[digest]; !ok {
		return repository.ErrNotFound
	}
	delete(m.tokens, digest)
	return nil
}

func (m *MockTokenRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for digest, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, digest)
			n++
		}
	}
	return n, nil
}

// MockRecipeRepository is a mock implementation of repository.RecipeRepository.
type MockRecipeRepository struct {
	recipes   map[int64]*domain.Recipe
	nextID    int64
	createErr error
	updateErr error
}

func NewMockRecipeRepository() *MockRecipeRepository {
	return &MockRecipeRepository{
		recipes: make(map[int64]*domain.Recipe),
		nextID:  1,
	}
}

func (m *MockRecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	if m.createErr != nil {
		return m.createErr
	}
	recipe.ID = m.nextID
	m.nextID++
	m.recipes[recipe.ID] = recipe
	return nil
}

// GetByID returns a copy, like the real drivers scanning a fresh row;
// callers mutating the result cannot reach the stored recipe.
func (m *MockRecipeRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Recipe, error) {
	r, ok := m.recipes[id]
	if !ok || r.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *r
	if cp.Tags == nil {
		cp.Tags = []*domain.Tag{}
	}
	if cp.Ingredients == nil {
		cp.Ingredients = []*domain.Ingredient{}
	}
	return &cp, nil
}

func (m *MockRecipeRepository) List(ctx context.Context, userID int64, filter repository.RecipeFilter) ([]*domain.Recipe, error) {
	var result []*domain.Recipe
	for _, r := range m.recipes {
		if r.UserID != userID {
			continue
		}
		if len(filter.TagIDs) > 0 && !linksAny(r.TagIDs(), filter.TagIDs) {
			continue
		}
		if len(filter.IngredientIDs) > 0 && !linksAny(r.IngredientIDs(), filter.IngredientIDs) {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func linksAny(have, want []int64) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

// Update replaces the whole row, links included, matching the single
// transaction the real drivers run.
func (m *MockRecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.recipes[recipe.ID]
	if !ok || existing.UserID != recipe.UserID {
		return repository.ErrNotFound
	}
	m.recipes[recipe.ID] = recipe
	return nil
}

func (m *MockRecipeRepository) UpdateImagePath(ctx context.Context, userID, id int64, path string) error {
	r, ok := m.recipes[id]
	if !ok || r.UserID != userID {
		return repository.ErrNotFound
	}
	r.ImagePath = path
	return nil
}

func (m *MockRecipeRepository) Delete(ctx context.Context, userID, id int64) error {
	r, ok := m.recipes[id]
	if !ok || r.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.recipes, id)
	return nil
}

// MockTagRepository is a mock implementation of repository.TagRepository.
type MockTagRepository struct {
	tags   map[int64]*domain.Tag
	nextID int64
	// assigned marks tag IDs that are linked to at least one recipe.
	assigned map[int64]bool
}

func NewMockTagRepository() *MockTagRepository {
	return &MockTagRepository{
		tags:     make(map[int64]*domain.Tag),
		nextID:   1,
		assigned: make(map[int64]bool),
	}
}

func (m *MockTagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	for _, t := range m.tags {
		if t.UserID == tag.UserID && t.Name == tag.Name {
			return repository.ErrDuplicate
		}
	}
	tag.ID = m.nextID
	m.nextID++
	m.tags[tag.ID] = tag
	return nil
}

func (m *MockTagRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Tag, error) {
	t, ok := m.tags[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (m *MockTagRepository) GetOrCreateByName(ctx context.Context, userID int64, name string) (*domain.Tag, error) {
	for _, t := range m.tags {
		if t.UserID == userID && t.Name == name {
			return t, nil
		}
	}
	tag := domain.NewTag(userID, name)
	if err := m.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (m *MockTagRepository) List(ctx context.Context, userID int64, filter repository.VocabularyFilter) ([]*domain.Tag, error) {
	var result []*domain.Tag
	for _, t := range m.tags {
		if t.UserID != userID {
			continue
		}
		if filter.AssignedOnly && !m.assigned[t.ID] {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name > result[j].Name })
	return result, nil
}

func (m *MockTagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	existing, ok := m.tags[tag.ID]
	if !ok || existing.UserID != tag.UserID {
		return repository.ErrNotFound
	}
	for _, t := range m.tags {
		if t.ID != tag.ID && t.UserID == tag.UserID && t.Name == tag.Name {
			return repository.ErrDuplicate
		}
	}
	m.tags[tag.ID] = tag
	return nil
}

func (m *MockTagRepository) Delete(ctx context.Context, userID, id int64) error {
	t, ok := m.tags[id]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.tags, id)
	return nil
}

// MockIngredientRepository is a mock implementation of repository.IngredientRepository.
type MockIngredientRepository struct {
	ingredients map[int64]*domain.Ingredient
	nextID      int64
	assigned    map[int64]bool
}

func NewMockIngredientRepository() *MockIngredientRepository {
	return &MockIngredientRepository{
		ingredients: make(map[int64]*domain.Ingredient),
		nextID:      1,
		assigned:    make(map[int64]bool),
	}
}

func (m *MockIngredientRepository) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	for _, in := range m.ingredients {
		if in.UserID == ingredient.UserID && in.Name == ingredient.Name {
			return repository.ErrDuplicate
		}
	}
	ingredient.ID = m.nextID
	m.nextID++
	m.ingredients[ingredient.ID] = ingredient
	return nil
}

func (m *MockIngredientRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Ingredient, error) {
	in, ok := m.ingredients[id]
	if !ok || in.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return in, nil
}

func (m *MockIngredientRepository) GetOrCreateByName(ctx context.Context, userID int64, name string) (*domain.Ingredient, error) {
	for _, in := range m.ingredients {
		if in.UserID == userID && in.Name == name {
			return in, nil
		}
	}
	ingredient := domain.NewIngredient(userID, name)
	if err := m.Create(ctx, ingredient); err != nil {
		return nil, err
	}
	return ingredient, nil
}

func (m *MockIngredientRepository) List(ctx context.Context, userID int64, filter repository.VocabularyFilter) ([]*domain.Ingredient, error) {
	var result []*domain.Ingredient
	for _, in := range m.ingredients {
		if in.UserID != userID {
			continue
		}
		if filter.AssignedOnly && !m.assigned[in.ID] {
			continue
		}
		result = append(result, in)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name > result[j].Name })
	return result, nil
}

func (m *MockIngredientRepository) Update(ctx context.Context, ingredient *domain.Ingredient) error {
	existing, ok := m.ingredients[ingredient.ID]
	if !ok || existing.UserID != ingredient.UserID {
		return repository.ErrNotFound
	}
	for _, in := range m.ingredients {
		if in.ID != ingredient.ID && in.UserID == ingredient.UserID && in.Name == ingredient.Name {
			return repository.ErrDuplicate
		}
	}
	m.ingredients[ingredient.ID] = ingredient
	return nil
}

func (m *MockIngredientRepository) Delete(ctx context.Context, userID, id int64) error {
	in, ok := m.ingredients[id]
	if !ok || in.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.ingredients, id)
	return nil
}

// =============================================================================
// Mock cache and blob store
// =============================================================================

// MockCache is a map-backed cache ignoring TTLs.
type MockCache struct {
	data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, repository.ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *MockCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *MockCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

// MockBlobStore is a map-backed storage.Backend.
type MockBlobStore struct {
	blobs map[string][]byte
}

func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{blobs: make(map[string][]byte)}
}

func (m *MockBlobStore) Store(ctx context.Context, key string, reader io.Reader, size int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	return nil
}

func (m *MockBlobStore) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

func (m *MockBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.blobs[key]
	return ok, nil
}

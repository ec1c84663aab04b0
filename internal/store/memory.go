// ABOUTME: In-memory Store implementation for tests and local development.
// ABOUTME: Mirrors SQLite semantics including idempotency-key uniqueness.

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/macrolog/macro-gateway/internal/nutrition"
)

// MemoryStore implements Store with maps. WithTx serializes callers on a
// transaction mutex; it does not roll partial work back, so tests that need
// rollback semantics use the SQLite store.
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users       map[string]*User
	profiles    map[string]*UserProfile
	products    map[string]*Product
	drafts      map[string]*RecipeDraft
	ingredients map[string][]*RecipeDraftIngredient // by draft id
	steps       map[string][]*RecipeDraftStep       // by draft id
	recipes     map[string]*Recipe
	idempotency map[[3]string]*IdempotencyRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*User),
		profiles:    make(map[string]*UserProfile),
		products:    make(map[string]*Product),
		drafts:      make(map[string]*RecipeDraft),
		ingredients: make(map[string][]*RecipeDraftIngredient),
		steps:       make(map[string][]*RecipeDraftStep),
		recipes:     make(map[string]*Recipe),
		idempotency: make(map[[3]string]*IdempotencyRecord),
	}
}

// memoryTx is the transactional view handed to WithTx callbacks. Nested
// WithTx calls on the view run in the already-held transaction instead of
// re-acquiring the mutex.
type memoryTx struct {
	*MemoryStore
}

func (t *memoryTx) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(&memoryTx{m})
}

func (m *MemoryStore) Close() error { return nil }

// Users

func (m *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// Profiles

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile.UpdatedAt = time.Now().UTC()
	cp := *profile
	m.profiles[profile.UserID] = &cp
	return nil
}

// Products

func (m *MemoryStore) CreateProduct(ctx context.Context, product *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) SearchProducts(ctx context.Context, query, ownerID string, limit int) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Product
	q := strings.ToLower(query)
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		iOwn := out[i].OwnerID != nil && *out[i].OwnerID == ownerID
		jOwn := out[j].OwnerID != nil && *out[j].OwnerID == ownerID
		if iOwn != jOwn {
			return iOwn
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Recipe drafts

func (m *MemoryStore) CreateDraft(ctx context.Context, draft *RecipeDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	if draft.Status == "" {
		draft.Status = DraftStatusDraft
	}
	cp := *draft
	cp.Ingredients, cp.Steps = nil, nil
	m.drafts[draft.ID] = &cp
	return nil
}

func (m *MemoryStore) GetDraft(ctx context.Context, id string) (*RecipeDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	for _, ing := range m.ingredients[id] {
		ingCp := *ing
		cp.Ingredients = append(cp.Ingredients, &ingCp)
	}
	sort.Slice(cp.Ingredients, func(i, j int) bool { return cp.Ingredients[i].Order < cp.Ingredients[j].Order })
	for _, st := range m.steps[id] {
		stCp := *st
		cp.Steps = append(cp.Steps, &stCp)
	}
	sort.Slice(cp.Steps, func(i, j int) bool { return cp.Steps[i].Order < cp.Steps[j].Order })
	return &cp, nil
}

func (m *MemoryStore) UpdateDraftNutrition(ctx context.Context, draftID string, total, perServing nutrition.Macros) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[draftID]
	if !ok {
		return ErrNotFound
	}
	d.NutritionTotal = total
	d.NutritionPerServing = perServing
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) SetDraftStatus(ctx context.Context, draftID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[draftID]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) UpsertIngredient(ctx context.Context, ing *RecipeDraftIngredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.ingredients[ing.DraftID]
	for _, existing := range list {
		if existing.Order == ing.Order {
			// Overwrite in place, keeping the original row id.
			id := existing.ID
			*existing = *ing
			existing.ID = id
			return nil
		}
	}
	cp := *ing
	m.ingredients[ing.DraftID] = append(list, &cp)
	return nil
}

func (m *MemoryStore) DeleteIngredient(ctx context.Context, draftID, ingredientID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.ingredients[draftID]
	for i, ing := range list {
		if ing.ID == ingredientID {
			m.ingredients[draftID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ReplaceSteps(ctx context.Context, draftID string, steps []*RecipeDraftStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*RecipeDraftStep, 0, len(steps))
	for _, st := range steps {
		cp := *st
		out = append(out, &cp)
	}
	m.steps[draftID] = out
	return nil
}

// Published recipes

func (m *MemoryStore) CreateRecipe(ctx context.Context, recipe *Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}
	cp := *recipe
	m.recipes[recipe.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRecipe(ctx context.Context, id string) (*Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recipes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListRecipes(ctx context.Context, limit int) ([]*Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Recipe
	for _, r := range m.recipes {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Idempotency records

func (m *MemoryStore) GetIdempotencyRecord(ctx context.Context, operation, key, entityID string) (*IdempotencyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.idempotency[[3]string{operation, key, entityID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) InsertIdempotencyRecord(ctx context.Context, rec *IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [3]string{rec.Operation, rec.Key, rec.EntityID}
	if _, exists := m.idempotency[k]; exists {
		return ErrDuplicateIdempotencyKey
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	m.idempotency[k] = &cp
	return nil
}

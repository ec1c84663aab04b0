// ABOUTME: Tests for the SQLite store implementation.
// ABOUTME: Covers draft CRUD, ingredient order semantics, steps, and idempotency keys.

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/macrolog/macro-gateway/internal/nutrition"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }

func seedUser(t *testing.T, s Store, id string) {
	t.Helper()
	if err := s.CreateUser(context.Background(), &User{ID: id, ExternalID: "ext-" + id}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func seedDraft(t *testing.T, s Store, id, userID string) {
	t.Helper()
	draft := &RecipeDraft{ID: id, UserID: userID, Title: "Pasta", Servings: intPtr(2)}
	if err := s.CreateDraft(context.Background(), draft); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestUserCreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{ID: "user-1", ExternalID: "sub-abc", Name: "Ann"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := s.GetUserByExternalID(ctx, "sub-abc")
	if err != nil {
		t.Fatalf("GetUserByExternalID failed: %v", err)
	}
	if got.ID != "user-1" {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, "user-1")
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDraftLifecycleFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedDraft(t, s, "draft-1", "user-1")

	got, err := s.GetDraft(ctx, "draft-1")
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if got.Status != DraftStatusDraft {
		t.Errorf("new draft status: got %q, want %q", got.Status, DraftStatusDraft)
	}
	if got.Servings == nil || *got.Servings != 2 {
		t.Errorf("servings not persisted: %v", got.Servings)
	}

	if err := s.SetDraftStatus(ctx, "draft-1", DraftStatusPublished); err != nil {
		t.Fatalf("SetDraftStatus failed: %v", err)
	}
	got, _ = s.GetDraft(ctx, "draft-1")
	if got.Status != DraftStatusPublished {
		t.Errorf("status after publish: got %q", got.Status)
	}

	if err := s.SetDraftStatus(ctx, "missing", DraftStatusPublished); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing draft, got %v", err)
	}
}

func TestProfileUpsertAndFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	if _, err := s.GetProfile(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh user, got %v", err)
	}

	profile := &UserProfile{
		UserID: "user-1", Sex: strPtr("female"),
		HeightCm: floatPtr(168), WeightKg: floatPtr(63),
		TargetCalories: intPtr(1722),
	}
	if err := s.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	// Second upsert replaces fields rather than inserting a new row.
	profile.WeightKg = floatPtr(61)
	if err := s.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("UpsertProfile update failed: %v", err)
	}

	got, err := s.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.WeightKg == nil || *got.WeightKg != 61 {
		t.Errorf("weight not updated: %v", got.WeightKg)
	}
	if got.TargetCalories == nil || *got.TargetCalories != 1722 {
		t.Errorf("target calories not persisted: %v", got.TargetCalories)
	}
}

func TestUpsertIngredient_OverwritesSameOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedDraft(t, s, "draft-1", "user-1")

	first := &RecipeDraftIngredient{
		ID: "ing-1", DraftID: "draft-1", Order: 1, Name: "flour",
		Amount: floatPtr(200), Unit: strPtr("g"), Kcal100: floatPtr(364),
	}
	if err := s.UpsertIngredient(ctx, first); err != nil {
		t.Fatalf("UpsertIngredient failed: %v", err)
	}

	// Same order slot: overwrite in place, not a second row.
	second := &RecipeDraftIngredient{
		ID: "ing-2", DraftID: "draft-1", Order: 1, Name: "rye flour",
		Amount: floatPtr(150), Unit: strPtr("g"), Kcal100: floatPtr(325),
	}
	if err := s.UpsertIngredient(ctx, second); err != nil {
		t.Fatalf("UpsertIngredient overwrite failed: %v", err)
	}

	draft, err := s.GetDraft(ctx, "draft-1")
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if len(draft.Ingredients) != 1 {
		t.Fatalf("ingredient count: got %d, want 1", len(draft.Ingredients))
	}
	ing := draft.Ingredients[0]
	if ing.ID != "ing-1" {
		t.Errorf("overwrite should keep the original row id, got %q", ing.ID)
	}
	if ing.Name != "rye flour" {
		t.Errorf("overwrite should replace fields, got name %q", ing.Name)
	}
}

func TestDeleteIngredient_ReportsRowsAffected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedDraft(t, s, "draft-1", "user-1")
	seedDraft(t, s, "draft-2", "user-1")

	ing := &RecipeDraftIngredient{ID: "ing-1", DraftID: "draft-1", Order: 1, Name: "salt"}
	if err := s.UpsertIngredient(ctx, ing); err != nil {
		t.Fatalf("UpsertIngredient failed: %v", err)
	}

	// Scoped to the draft: deleting via another draft id touches nothing.
	deleted, err := s.DeleteIngredient(ctx, "draft-2", "ing-1")
	if err != nil {
		t.Fatalf("DeleteIngredient failed: %v", err)
	}
	if deleted {
		t.Error("delete scoped to the wrong draft should affect zero rows")
	}

	deleted, err = s.DeleteIngredient(ctx, "draft-1", "ing-1")
	if err != nil {
		t.Fatalf("DeleteIngredient failed: %v", err)
	}
	if !deleted {
		t.Error("expected the ingredient to be deleted")
	}
}

func TestReplaceSteps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedDraft(t, s, "draft-1", "user-1")

	steps := []*RecipeDraftStep{
		{ID: "st-1", DraftID: "draft-1", Order: 1, Text: "boil water"},
		{ID: "st-2", DraftID: "draft-1", Order: 2, Text: "add pasta"},
	}
	if err := s.ReplaceSteps(ctx, "draft-1", steps); err != nil {
		t.Fatalf("ReplaceSteps failed: %v", err)
	}

	replacement := []*RecipeDraftStep{
		{ID: "st-3", DraftID: "draft-1", Order: 1, Text: "preheat oven"},
	}
	if err := s.ReplaceSteps(ctx, "draft-1", replacement); err != nil {
		t.Fatalf("ReplaceSteps failed: %v", err)
	}

	draft, err := s.GetDraft(ctx, "draft-1")
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if len(draft.Steps) != 1 {
		t.Fatalf("step count after replacement: got %d, want 1", len(draft.Steps))
	}
	if draft.Steps[0].Text != "preheat oven" {
		t.Errorf("step text: got %q", draft.Steps[0].Text)
	}
}

func TestUpdateDraftNutrition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")
	seedDraft(t, s, "draft-1", "user-1")

	total := nutrition.Macros{Calories: 450, Protein: 45, Fat: 15, Carbs: 64}
	per := nutrition.Macros{Calories: 112.5, Protein: 11.25, Fat: 3.75, Carbs: 16}
	if err := s.UpdateDraftNutrition(ctx, "draft-1", total, per); err != nil {
		t.Fatalf("UpdateDraftNutrition failed: %v", err)
	}

	draft, err := s.GetDraft(ctx, "draft-1")
	if err != nil {
		t.Fatalf("GetDraft failed: %v", err)
	}
	if draft.NutritionTotal != total {
		t.Errorf("total mismatch: got %+v", draft.NutritionTotal)
	}
	if draft.NutritionPerServing != per {
		t.Errorf("per-serving mismatch: got %+v", draft.NutritionPerServing)
	}
}

func TestRecipeSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	recipe := &Recipe{
		ID: "recipe-1", UserID: "user-1", DraftID: "draft-1",
		Title: "Pasta", Servings: 2,
		Ingredients: []RecipeIngredient{
			{Name: "flour", Amount: floatPtr(200), Unit: strPtr("g"), Kcal100: floatPtr(364)},
		},
		Steps:          []string{"boil water", "add pasta"},
		NutritionTotal: nutrition.Macros{Calories: 728},
	}
	if err := s.CreateRecipe(ctx, recipe); err != nil {
		t.Fatalf("CreateRecipe failed: %v", err)
	}

	got, err := s.GetRecipe(ctx, "recipe-1")
	if err != nil {
		t.Fatalf("GetRecipe failed: %v", err)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].Name != "flour" {
		t.Errorf("ingredients snapshot mismatch: %+v", got.Ingredients)
	}
	if len(got.Steps) != 2 {
		t.Errorf("steps snapshot mismatch: %v", got.Steps)
	}
}

func TestIdempotencyRecord_CompositeKeyUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &IdempotencyRecord{
		Operation: "recipeDraft.addIngredient",
		Key:       "key-1",
		EntityID:  "draft-1",
		Result:    []byte(`{"ok":true}`),
	}
	if err := s.InsertIdempotencyRecord(ctx, rec); err != nil {
		t.Fatalf("InsertIdempotencyRecord failed: %v", err)
	}

	dup := *rec
	if err := s.InsertIdempotencyRecord(ctx, &dup); !errors.Is(err, ErrDuplicateIdempotencyKey) {
		t.Errorf("expected ErrDuplicateIdempotencyKey, got %v", err)
	}

	// Same key against a different entity is a distinct composite.
	other := *rec
	other.EntityID = "draft-2"
	if err := s.InsertIdempotencyRecord(ctx, &other); err != nil {
		t.Errorf("same key, different entity should insert: %v", err)
	}

	got, err := s.GetIdempotencyRecord(ctx, rec.Operation, rec.Key, rec.EntityID)
	if err != nil {
		t.Fatalf("GetIdempotencyRecord failed: %v", err)
	}
	if string(got.Result) != `{"ok":true}` {
		t.Errorf("stored result mismatch: %s", got.Result)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	sentinel := fmt.Errorf("boom")
	err := s.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateDraft(ctx, &RecipeDraft{ID: "draft-x", UserID: "user-1", Title: "t"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx should surface fn's error, got %v", err)
	}

	if _, err := s.GetDraft(ctx, "draft-x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft should have been rolled back, got %v", err)
	}
}

func TestSearchProducts_OwnerRankedFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1")

	owner := "user-1"
	products := []*Product{
		{ID: "p1", Name: "Oat flakes", Kcal100: 370},
		{ID: "p2", OwnerID: &owner, Name: "Oat milk", Kcal100: 45},
		{ID: "p3", Name: "Rice", Kcal100: 360},
	}
	for _, p := range products {
		if err := s.CreateProduct(ctx, p); err != nil {
			t.Fatalf("CreateProduct failed: %v", err)
		}
	}

	got, err := s.SearchProducts(ctx, "oat", "user-1", 10)
	if err != nil {
		t.Fatalf("SearchProducts failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("result count: got %d, want 2", len(got))
	}
	if got[0].ID != "p2" {
		t.Errorf("caller's own product should rank first, got %q", got[0].ID)
	}
}

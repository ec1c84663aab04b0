// ABOUTME: Store interface and entity types for macro-gateway persistence.
// ABOUTME: Defines users, products, recipe drafts, recipes, and idempotency records.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/macrolog/macro-gateway/internal/nutrition"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdempotencyKey is returned when inserting an idempotency record
// whose (operation, key, entity_id) composite already exists. Callers treat
// this as "a concurrent replay won" and re-fetch the winning record.
var ErrDuplicateIdempotencyKey = errors.New("idempotency record already exists")

// Draft status values. A draft starts as DRAFT and terminally becomes
// PUBLISHED at publish time.
const (
	DraftStatusDraft     = "DRAFT"
	DraftStatusPublished = "PUBLISHED"
)

// User is a local account resolved from an external identity.
type User struct {
	ID         string
	ExternalID string
	Name       string
	CreatedAt  time.Time
}

// UserProfile holds biometric and goal fields plus computed daily targets.
// Optional biometrics are pointers; targets are recomputed whenever all
// required biometric fields are present, never hand-edited.
type UserProfile struct {
	UserID         string
	Sex            *string
	BirthDate      *time.Time
	HeightCm       *float64
	WeightKg       *float64
	ActivityLevel  *string
	Goal           *string
	CalorieDelta   *float64
	TargetCalories *int
	TargetProtein  *int
	TargetFat      *int
	TargetCarbs    *int
	UpdatedAt      time.Time
}

// Product is a catalog food item with macros per 100 g.
type Product struct {
	ID         string
	OwnerID    *string // nil for seed data
	Name       string
	Brand      string
	Kcal100    float64
	Protein100 float64
	Fat100     float64
	Carbs100   float64
	CreatedAt  time.Time
}

// RecipeDraft is a mutable recipe under construction. GetDraft loads
// Ingredients and Steps ordered by their order columns.
type RecipeDraft struct {
	ID                  string
	UserID              string
	Title               string
	Category            string
	Description         string
	Servings            *int
	Status              string
	NutritionTotal      nutrition.Macros
	NutritionPerServing nutrition.Macros
	Ingredients         []*RecipeDraftIngredient
	Steps               []*RecipeDraftStep
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RecipeDraftIngredient is one draft ingredient. Order is unique within a
// draft. Either ProductID or a complete inline macro snapshot must be set for
// the ingredient to count as complete at publish time.
type RecipeDraftIngredient struct {
	ID          string
	DraftID     string
	Order       int
	Name        string
	Amount      *float64
	Unit        *string
	ProductID   *string
	Kcal100     *float64
	Protein100  *float64
	Fat100      *float64
	Carbs100    *float64
	Assumptions *string
}

// RecipeDraftStep is one ordered instruction line (1-based, contiguous).
type RecipeDraftStep struct {
	ID      string
	DraftID string
	Order   int
	Text    string
}

// RecipeIngredient is the immutable published snapshot of a draft ingredient.
type RecipeIngredient struct {
	Name       string   `json:"name"`
	Amount     *float64 `json:"amount"`
	Unit       *string  `json:"unit"`
	ProductID  *string  `json:"productId,omitempty"`
	Kcal100    *float64 `json:"kcal100,omitempty"`
	Protein100 *float64 `json:"protein100,omitempty"`
	Fat100     *float64 `json:"fat100,omitempty"`
	Carbs100   *float64 `json:"carbs100,omitempty"`
}

// Recipe is a published, immutable snapshot of a draft. The JSON tags are
// the wire shape returned by the recipes tools and REST endpoints.
type Recipe struct {
	ID                  string             `json:"id"`
	UserID              string             `json:"userId"`
	DraftID             string             `json:"-"`
	Title               string             `json:"title"`
	Category            string             `json:"category,omitempty"`
	Description         string             `json:"description,omitempty"`
	Servings            int                `json:"servings"`
	Ingredients         []RecipeIngredient `json:"ingredients"`
	Steps               []string           `json:"steps"`
	NutritionTotal      nutrition.Macros   `json:"nutritionTotal"`
	NutritionPerServing nutrition.Macros   `json:"nutritionPerServing"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// IdempotencyRecord stores the result payload of a keyed mutation so replays
// return the original bytes. At most one record exists per composite key.
type IdempotencyRecord struct {
	Operation string
	Key       string
	EntityID  string
	Result    []byte
	CreatedAt time.Time
}

// Store is the persistence collaborator consumed by the services. WithTx runs
// fn against a transactional view; everything fn does commits or rolls back
// as a unit.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)

	// Profiles
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpsertProfile(ctx context.Context, profile *UserProfile) error

	// Products
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	SearchProducts(ctx context.Context, query, ownerID string, limit int) ([]*Product, error)

	// Recipe drafts
	CreateDraft(ctx context.Context, draft *RecipeDraft) error
	GetDraft(ctx context.Context, id string) (*RecipeDraft, error)
	UpdateDraftNutrition(ctx context.Context, draftID string, total, perServing nutrition.Macros) error
	SetDraftStatus(ctx context.Context, draftID, status string) error
	UpsertIngredient(ctx context.Context, ing *RecipeDraftIngredient) error
	DeleteIngredient(ctx context.Context, draftID, ingredientID string) (bool, error)
	ReplaceSteps(ctx context.Context, draftID string, steps []*RecipeDraftStep) error

	// Published recipes
	CreateRecipe(ctx context.Context, recipe *Recipe) error
	GetRecipe(ctx context.Context, id string) (*Recipe, error)
	ListRecipes(ctx context.Context, limit int) ([]*Recipe, error)

	// Idempotency records
	GetIdempotencyRecord(ctx context.Context, operation, key, entityID string) (*IdempotencyRecord, error)
	InsertIdempotencyRecord(ctx context.Context, rec *IdempotencyRecord) error

	// WithTx executes fn inside a single transaction. Calling WithTx on a
	// store that is already transactional reuses the open transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases any resources held by the store.
	Close() error
}

// ABOUTME: Recipe-draft lifecycle service: create, mutate, validate, publish.
// ABOUTME: Runs every multi-step mutation in one transaction and recomputes nutrition.

package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/macrolog/macro-gateway/internal/nutrition"
	"github.com/macrolog/macro-gateway/internal/store"
)

// Idempotency operation names. Scoped per operation and per target entity so
// the same key reused against a different draft is not treated as a replay.
const (
	opCreate           = "recipeDraft.create"
	opAddIngredient    = "recipeDraft.addIngredient"
	opRemoveIngredient = "recipeDraft.removeIngredient"
	opSetSteps         = "recipeDraft.setSteps"
	opPublish          = "recipeDraft.publish"
)

// snapshotNote is appended to a published description when any ingredient
// carries estimated inline macros instead of a catalog product link.
const snapshotNote = "Contains ingredients with estimated nutrition values."

// ingredientHint tells the client how to complete an ingredient.
const ingredientHint = "link a productId or provide kcal100, protein100, fat100 and carbs100"

// Service orchestrates the draft state machine on top of the store.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a draft lifecycle service.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger.With("component", "drafts")}
}

// CreateInput holds the fields accepted by Create.
type CreateInput struct {
	Title          string
	Category       string
	Description    string
	Servings       *int
	IdempotencyKey string
}

// Create starts a new draft in the DRAFT state. Title is required; the
// optional idempotency key is scoped to the calling user since no draft
// exists yet.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (json.RawMessage, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, ErrTitleRequired
	}
	return s.withIdempotency(ctx, opCreate, in.IdempotencyKey, userID, func(tx store.Store) (any, error) {
		draft := &store.RecipeDraft{
			ID:          uuid.New().String(),
			UserID:      userID,
			Title:       strings.TrimSpace(in.Title),
			Category:    in.Category,
			Description: in.Description,
			Servings:    in.Servings,
			Status:      store.DraftStatusDraft,
		}
		if err := tx.CreateDraft(ctx, draft); err != nil {
			return nil, err
		}
		s.logger.Info("draft created", "draft_id", draft.ID, "user_id", userID)
		return toView(draft), nil
	})
}

// Get returns the draft view. Read-only; never participates in idempotency.
func (s *Service) Get(ctx context.Context, userID, draftID string) (*DraftView, error) {
	draft, err := s.ownedDraft(ctx, s.store, userID, draftID, false)
	if err != nil {
		return nil, err
	}
	return toView(draft), nil
}

// AddIngredientInput holds the fields accepted by AddIngredient.
type AddIngredientInput struct {
	DraftID        string
	Name           string
	Amount         *float64
	Unit           *string
	Order          *int
	ProductID      *string
	Kcal100        *float64
	Protein100     *float64
	Fat100         *float64
	Carbs100       *float64
	Assumptions    *string
	IdempotencyKey string
}

// AddIngredient writes an ingredient into the draft. The order defaults to
// max(existing)+1; writing into an occupied order slot overwrites that
// ingredient in place. Nutrition is recomputed in the same transaction.
func (s *Service) AddIngredient(ctx context.Context, userID string, in AddIngredientInput) (json.RawMessage, error) {
	return s.withIdempotency(ctx, opAddIngredient, in.IdempotencyKey, in.DraftID, func(tx store.Store) (any, error) {
		draft, err := s.ownedDraft(ctx, tx, userID, in.DraftID, true)
		if err != nil {
			return nil, err
		}

		order := 0
		for _, ing := range draft.Ingredients {
			if ing.Order > order {
				order = ing.Order
			}
		}
		order++
		if in.Order != nil {
			order = *in.Order
		}

		ing := &store.RecipeDraftIngredient{
			ID:          uuid.New().String(),
			DraftID:     draft.ID,
			Order:       order,
			Name:        strings.TrimSpace(in.Name),
			Amount:      in.Amount,
			Unit:        in.Unit,
			ProductID:   in.ProductID,
			Kcal100:     in.Kcal100,
			Protein100:  in.Protein100,
			Fat100:      in.Fat100,
			Carbs100:    in.Carbs100,
			Assumptions: in.Assumptions,
		}
		if err := tx.UpsertIngredient(ctx, ing); err != nil {
			return nil, err
		}
		return s.recomputeView(ctx, tx, draft.ID)
	})
}

// RemoveIngredientInput holds the fields accepted by RemoveIngredient.
type RemoveIngredientInput struct {
	DraftID        string
	IngredientID   string
	IdempotencyKey string
}

// RemoveIngredient deletes an ingredient by id, scoped to the draft.
func (s *Service) RemoveIngredient(ctx context.Context, userID string, in RemoveIngredientInput) (json.RawMessage, error) {
	return s.withIdempotency(ctx, opRemoveIngredient, in.IdempotencyKey, in.DraftID, func(tx store.Store) (any, error) {
		draft, err := s.ownedDraft(ctx, tx, userID, in.DraftID, true)
		if err != nil {
			return nil, err
		}

		deleted, err := tx.DeleteIngredient(ctx, draft.ID, in.IngredientID)
		if err != nil {
			return nil, err
		}
		if !deleted {
			return nil, fmt.Errorf("ingredient %s: %w", in.IngredientID, store.ErrNotFound)
		}
		return s.recomputeView(ctx, tx, draft.ID)
	})
}

// SetStepsInput holds the fields accepted by SetSteps.
type SetStepsInput struct {
	DraftID        string
	Steps          []string
	IdempotencyKey string
}

// SetSteps replaces the entire step list atomically, assigning 1-based
// contiguous order equal to submission order.
func (s *Service) SetSteps(ctx context.Context, userID string, in SetStepsInput) (json.RawMessage, error) {
	return s.withIdempotency(ctx, opSetSteps, in.IdempotencyKey, in.DraftID, func(tx store.Store) (any, error) {
		draft, err := s.ownedDraft(ctx, tx, userID, in.DraftID, true)
		if err != nil {
			return nil, err
		}

		steps := make([]*store.RecipeDraftStep, 0, len(in.Steps))
		for i, text := range in.Steps {
			steps = append(steps, &store.RecipeDraftStep{
				ID:      uuid.New().String(),
				DraftID: draft.ID,
				Order:   i + 1,
				Text:    text,
			})
		}
		if err := tx.ReplaceSteps(ctx, draft.ID, steps); err != nil {
			return nil, err
		}
		// Steps don't affect the numbers, but the computed-fields contract is
		// uniform: every mutation leaves nutrition freshly recomputed.
		return s.recomputeView(ctx, tx, draft.ID)
	})
}

// Validate reports draft completeness. It never throws for incompleteness;
// the same checks back the publish gate.
func (s *Service) Validate(ctx context.Context, userID, draftID string) (*ValidationReport, error) {
	draft, err := s.ownedDraft(ctx, s.store, userID, draftID, false)
	if err != nil {
		return nil, err
	}
	return buildReport(draft), nil
}

func buildReport(draft *store.RecipeDraft) *ValidationReport {
	report := &ValidationReport{
		MissingFields:      []string{},
		MissingIngredients: []MissingIngredient{},
	}
	if strings.TrimSpace(draft.Title) == "" {
		report.MissingFields = append(report.MissingFields, "title")
	}
	if len(draft.Ingredients) == 0 {
		report.MissingFields = append(report.MissingFields, "ingredients")
	}
	if len(draft.Steps) == 0 {
		report.MissingFields = append(report.MissingFields, "steps")
	}
	for _, ing := range draft.Ingredients {
		if ing.ProductID != nil {
			continue
		}
		snapshot := nutrition.Per100{Kcal: ing.Kcal100, Protein: ing.Protein100, Fat: ing.Fat100, Carbs: ing.Carbs100}
		if !snapshot.Complete() {
			report.MissingIngredients = append(report.MissingIngredients, MissingIngredient{
				IngredientID: ing.ID,
				Name:         ing.Name,
				Hint:         ingredientHint,
			})
		}
	}
	report.IsValid = len(report.MissingFields) == 0 && len(report.MissingIngredients) == 0
	return report
}

// PublishInput holds the fields accepted by Publish.
type PublishInput struct {
	DraftID        string
	IdempotencyKey string
}

// Publish validates the draft, snapshots it into an immutable Recipe, and
// flips the draft to PUBLISHED, all within one transaction. An invalid draft
// raises IncompleteError with the full validation report.
func (s *Service) Publish(ctx context.Context, userID string, in PublishInput) (json.RawMessage, error) {
	return s.withIdempotency(ctx, opPublish, in.IdempotencyKey, in.DraftID, func(tx store.Store) (any, error) {
		draft, err := s.ownedDraft(ctx, tx, userID, in.DraftID, true)
		if err != nil {
			return nil, err
		}

		report := buildReport(draft)
		if !report.IsValid {
			return nil, &IncompleteError{
				MissingFields:      report.MissingFields,
				MissingIngredients: report.MissingIngredients,
			}
		}

		total, perServing, err := s.computeNutrition(ctx, tx, draft)
		if err != nil {
			return nil, err
		}

		servings := 1
		if draft.Servings != nil && *draft.Servings > 0 {
			servings = *draft.Servings
		}

		recipe := &store.Recipe{
			ID:                  uuid.New().String(),
			UserID:              draft.UserID,
			DraftID:             draft.ID,
			Title:               draft.Title,
			Category:            draft.Category,
			Description:         publishedDescription(draft),
			Servings:            servings,
			Steps:               make([]string, 0, len(draft.Steps)),
			NutritionTotal:      total,
			NutritionPerServing: perServing,
		}
		for _, ing := range draft.Ingredients {
			recipe.Ingredients = append(recipe.Ingredients, store.RecipeIngredient{
				Name:       ing.Name,
				Amount:     ing.Amount,
				Unit:       ing.Unit,
				ProductID:  ing.ProductID,
				Kcal100:    ing.Kcal100,
				Protein100: ing.Protein100,
				Fat100:     ing.Fat100,
				Carbs100:   ing.Carbs100,
			})
		}
		for _, st := range draft.Steps {
			recipe.Steps = append(recipe.Steps, st.Text)
		}

		if err := tx.CreateRecipe(ctx, recipe); err != nil {
			return nil, err
		}
		if err := tx.UpdateDraftNutrition(ctx, draft.ID, total, perServing); err != nil {
			return nil, err
		}
		if err := tx.SetDraftStatus(ctx, draft.ID, store.DraftStatusPublished); err != nil {
			return nil, err
		}

		s.logger.Info("draft published", "draft_id", draft.ID, "recipe_id", recipe.ID)
		return recipe, nil
	})
}

// publishedDescription appends the snapshot provenance note when any
// ingredient lacks a catalog product link.
func publishedDescription(draft *store.RecipeDraft) string {
	hasSnapshot := false
	for _, ing := range draft.Ingredients {
		if ing.ProductID == nil {
			hasSnapshot = true
			break
		}
	}
	if !hasSnapshot {
		return draft.Description
	}
	if draft.Description == "" {
		return snapshotNote
	}
	return draft.Description + "\n\n" + snapshotNote
}

// ownedDraft loads a draft and enforces ownership. Drafts belonging to other
// users surface as not found. When mutable is true, a PUBLISHED draft is also
// treated as not found since the terminal state accepts no further mutation.
func (s *Service) ownedDraft(ctx context.Context, q store.Store, userID, draftID string, mutable bool) (*store.RecipeDraft, error) {
	draft, err := q.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.UserID != userID {
		return nil, fmt.Errorf("draft %s: %w", draftID, store.ErrNotFound)
	}
	if mutable && draft.Status != store.DraftStatusDraft {
		return nil, fmt.Errorf("draft %s is not mutable: %w", draftID, store.ErrNotFound)
	}
	return draft, nil
}

// computeNutrition aggregates the draft's current ingredients, resolving
// linked product macros through the store.
func (s *Service) computeNutrition(ctx context.Context, q store.Store, draft *store.RecipeDraft) (total, perServing nutrition.Macros, err error) {
	products := make(map[string]*nutrition.Per100)
	ingredients := make([]nutrition.Ingredient, 0, len(draft.Ingredients))

	for _, ing := range draft.Ingredients {
		item := nutrition.Ingredient{
			Amount: ing.Amount,
			Unit:   ing.Unit,
			Inline: nutrition.Per100{Kcal: ing.Kcal100, Protein: ing.Protein100, Fat: ing.Fat100, Carbs: ing.Carbs100},
		}
		if ing.ProductID != nil {
			macros, ok := products[*ing.ProductID]
			if !ok {
				product, err := q.GetProduct(ctx, *ing.ProductID)
				switch {
				case errors.Is(err, store.ErrNotFound):
					macros = nil
				case err != nil:
					return total, perServing, err
				default:
					macros = &nutrition.Per100{
						Kcal:    &product.Kcal100,
						Protein: &product.Protein100,
						Fat:     &product.Fat100,
						Carbs:   &product.Carbs100,
					}
				}
				products[*ing.ProductID] = macros
			}
			item.Product = macros
		}
		ingredients = append(ingredients, item)
	}

	servings := 0
	if draft.Servings != nil {
		servings = *draft.Servings
	}
	total, perServing = nutrition.Totals(ingredients, servings)
	return total, perServing, nil
}

// recomputeView refreshes the draft's stored nutrition and returns the view.
func (s *Service) recomputeView(ctx context.Context, tx store.Store, draftID string) (*DraftView, error) {
	draft, err := tx.GetDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	total, perServing, err := s.computeNutrition(ctx, tx, draft)
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateDraftNutrition(ctx, draftID, total, perServing); err != nil {
		return nil, err
	}
	draft.NutritionTotal = total
	draft.NutritionPerServing = perServing
	return toView(draft), nil
}

// ABOUTME: Wire-shape views of recipe drafts returned by tools and REST.
// ABOUTME: Validation report types shared by validate and publish.

package drafts

import (
	"github.com/macrolog/macro-gateway/internal/nutrition"
	"github.com/macrolog/macro-gateway/internal/store"
)

// IngredientView is the serialized form of a draft ingredient.
type IngredientView struct {
	ID          string   `json:"id"`
	Order       int      `json:"order"`
	Name        string   `json:"name"`
	Amount      *float64 `json:"amount"`
	Unit        *string  `json:"unit"`
	ProductID   *string  `json:"productId,omitempty"`
	Kcal100     *float64 `json:"kcal100,omitempty"`
	Protein100  *float64 `json:"protein100,omitempty"`
	Fat100      *float64 `json:"fat100,omitempty"`
	Carbs100    *float64 `json:"carbs100,omitempty"`
	Assumptions *string  `json:"assumptions,omitempty"`
}

// StepView is the serialized form of a draft step.
type StepView struct {
	Order int    `json:"order"`
	Text  string `json:"text"`
}

// DraftView is the serialized form of a recipe draft, including computed
// nutrition figures.
type DraftView struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Category            string           `json:"category,omitempty"`
	Description         string           `json:"description,omitempty"`
	Servings            *int             `json:"servings"`
	Status              string           `json:"status"`
	Ingredients         []IngredientView `json:"ingredients"`
	Steps               []StepView       `json:"steps"`
	NutritionTotal      nutrition.Macros `json:"nutritionTotal"`
	NutritionPerServing nutrition.Macros `json:"nutritionPerServing"`
}

func toView(d *store.RecipeDraft) *DraftView {
	v := &DraftView{
		ID:                  d.ID,
		Title:               d.Title,
		Category:            d.Category,
		Description:         d.Description,
		Servings:            d.Servings,
		Status:              d.Status,
		Ingredients:         make([]IngredientView, 0, len(d.Ingredients)),
		Steps:               make([]StepView, 0, len(d.Steps)),
		NutritionTotal:      d.NutritionTotal,
		NutritionPerServing: d.NutritionPerServing,
	}
	for _, ing := range d.Ingredients {
		v.Ingredients = append(v.Ingredients, IngredientView{
			ID:          ing.ID,
			Order:       ing.Order,
			Name:        ing.Name,
			Amount:      ing.Amount,
			Unit:        ing.Unit,
			ProductID:   ing.ProductID,
			Kcal100:     ing.Kcal100,
			Protein100:  ing.Protein100,
			Fat100:      ing.Fat100,
			Carbs100:    ing.Carbs100,
			Assumptions: ing.Assumptions,
		})
	}
	for _, st := range d.Steps {
		v.Steps = append(v.Steps, StepView{Order: st.Order, Text: st.Text})
	}
	return v
}

// MissingIngredient identifies an incomplete ingredient with a
// machine-readable hint for fixing it.
type MissingIngredient struct {
	IngredientID string `json:"ingredientId"`
	Name         string `json:"name"`
	Hint         string `json:"hint"`
}

// ValidationReport is the result of the read-only validate operation. It is
// always returned, never thrown, regardless of draft completeness.
type ValidationReport struct {
	IsValid            bool                `json:"isValid"`
	MissingFields      []string            `json:"missingFields"`
	MissingIngredients []MissingIngredient `json:"missingIngredients"`
}

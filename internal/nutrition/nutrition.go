// ABOUTME: Pure nutrition aggregation over ingredient lists.
// ABOUTME: Computes total and per-serving macros; no I/O, no side effects.

package nutrition

// Macros holds calorie and macronutrient figures, either totals or per serving.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Per100 holds macro values per 100 units (grams or milliliters).
// Nil fields mean the value is unknown.
type Per100 struct {
	Kcal    *float64
	Protein *float64
	Fat     *float64
	Carbs   *float64
}

// Complete reports whether all four macro values are present.
func (p Per100) Complete() bool {
	return p.Kcal != nil && p.Protein != nil && p.Fat != nil && p.Carbs != nil
}

func (p Per100) empty() bool {
	return p.Kcal == nil && p.Protein == nil && p.Fat == nil && p.Carbs == nil
}

// Ingredient is the aggregation input: an amount in some unit plus macro
// sources. Inline snapshot values take precedence over the linked product's.
type Ingredient struct {
	Amount  *float64
	Unit    *string
	Inline  Per100
	Product *Per100
}

// unitFactors maps a unit code to its gram (or milliliter) conversion factor.
// Units outside this table cause the ingredient to be skipped from the sum.
var unitFactors = map[string]float64{
	"g":     1,
	"gram":  1,
	"grams": 1,
	"kg":    1000,
	"ml":    1,
	"l":     1000,
}

// Totals computes total and per-serving macros for an ingredient list.
// Ingredients with a missing amount/unit, an unrecognized unit, or no macro
// source at all contribute nothing. Per-serving values divide by
// max(servings, 1) so a zero serving count never divides by zero.
func Totals(ingredients []Ingredient, servings int) (total, perServing Macros) {
	for _, ing := range ingredients {
		if ing.Amount == nil || ing.Unit == nil {
			continue
		}
		factor, ok := unitFactors[*ing.Unit]
		if !ok {
			continue
		}
		if ing.Inline.empty() && (ing.Product == nil || ing.Product.empty()) {
			continue
		}

		grams := *ing.Amount * factor
		total.Calories += grams * resolve(ing.Inline.Kcal, ing.Product, pickKcal) / 100
		total.Protein += grams * resolve(ing.Inline.Protein, ing.Product, pickProtein) / 100
		total.Fat += grams * resolve(ing.Inline.Fat, ing.Product, pickFat) / 100
		total.Carbs += grams * resolve(ing.Inline.Carbs, ing.Product, pickCarbs) / 100
	}

	divisor := float64(servings)
	if divisor < 1 {
		divisor = 1
	}
	perServing = Macros{
		Calories: total.Calories / divisor,
		Protein:  total.Protein / divisor,
		Fat:      total.Fat / divisor,
		Carbs:    total.Carbs / divisor,
	}
	return total, perServing
}

func pickKcal(p *Per100) *float64    { return p.Kcal }
func pickProtein(p *Per100) *float64 { return p.Protein }
func pickFat(p *Per100) *float64     { return p.Fat }
func pickCarbs(p *Per100) *float64   { return p.Carbs }

// resolve returns the inline value when present, otherwise the product's,
// otherwise zero.
func resolve(inline *float64, product *Per100, pick func(*Per100) *float64) float64 {
	if inline != nil {
		return *inline
	}
	if product != nil {
		if v := pick(product); v != nil {
			return *v
		}
	}
	return 0
}

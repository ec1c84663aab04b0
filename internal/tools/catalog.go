// ABOUTME: The static tool catalog: schemas, aliases, and handler closures
// ABOUTME: binding the registry to the domain services.

package tools

import (
	"context"
	"time"

	"github.com/macrolog/macro-gateway/internal/drafts"
	"github.com/macrolog/macro-gateway/internal/products"
	"github.com/macrolog/macro-gateway/internal/recipes"
	"github.com/macrolog/macro-gateway/internal/schema"
	"github.com/macrolog/macro-gateway/internal/users"
)

// Services are the domain collaborators tool handlers call into.
type Services struct {
	Drafts   *drafts.Service
	Products *products.Service
	Users    *users.Service
	Recipes  *recipes.Service
}

// NewCatalog builds the full tool registry for the gateway. Called once at
// startup; the result is read-only.
func NewCatalog(svcs Services) *Registry {
	r := NewRegistry()

	registerDraftTools(r, svcs.Drafts)
	registerProductTools(r, svcs.Products)
	registerRecipeTools(r, svcs.Recipes)
	registerProfileTools(r, svcs.Users)

	// Legacy snake_case names kept for older clients.
	r.Alias("create_recipe_draft", "recipeDraft.create")
	r.Alias("get_recipe_draft", "recipeDraft.get")
	r.Alias("recipe_draft_add_ingredient", "recipeDraft.addIngredient")
	r.Alias("recipe_draft_remove_ingredient", "recipeDraft.removeIngredient")
	r.Alias("recipe_draft_set_steps", "recipeDraft.setSteps")
	r.Alias("validate_recipe_draft", "recipeDraft.validate")
	r.Alias("publish_recipe_draft", "recipeDraft.publish")
	r.Alias("search_products", "products.search")
	r.Alias("get_product", "products.get")
	r.Alias("create_product", "products.create")
	r.Alias("list_recipes", "recipes.list")
	r.Alias("get_recipe", "recipes.get")
	r.Alias("get_profile", "profile.get")
	r.Alias("update_profile", "profile.update")

	return r
}

func registerDraftTools(r *Registry, svc *drafts.Service) {
	type createArgs struct {
		Title          string  `json:"title" required:"true"`
		Category       string  `json:"category"`
		Description    string  `json:"description"`
		Servings       *int    `json:"servings"`
		IdempotencyKey *string `json:"idempotencyKey"`
	}
	r.Register(&Definition{
		Name:        "recipeDraft.create",
		Description: "Start a new recipe draft. Returns the draft with empty ingredient and step lists.",
		Tags:        []string{"recipes", "drafts"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"title":          schema.String("Recipe title"),
			"category":       schema.String("Free-form category, e.g. soup"),
			"description":    schema.String("Recipe description"),
			"servings":       schema.Nullable(schema.Number("Number of servings")),
			"idempotencyKey": schema.String("Client-supplied key for at-most-once creation"),
		}, "title")),
		Examples: []Example{{
			Summary:   "Start a borscht draft",
			Arguments: map[string]any{"title": "Borscht", "category": "soup", "servings": 6},
		}},
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a createArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Create(ctx, ec.UserID, drafts.CreateInput{
				Title:          a.Title,
				Category:       a.Category,
				Description:    a.Description,
				Servings:       a.Servings,
				IdempotencyKey: deref(a.IdempotencyKey),
			})
		},
	})

	type getArgs struct {
		DraftID string `json:"draftId" required:"true"`
	}
	r.Register(&Definition{
		Name:        "recipeDraft.get",
		Description: "Fetch a draft with its ingredients, steps and computed nutrition.",
		Tags:        []string{"recipes", "drafts"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"draftId": schema.String("Draft id"),
		}, "draftId")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a getArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Get(ctx, ec.UserID, a.DraftID)
		},
	})

	type addIngredientArgs struct {
		DraftID        string   `json:"draftId" required:"true"`
		Name           string   `json:"name" required:"true"`
		Amount         *float64 `json:"amount"`
		Unit           *string  `json:"unit"`
		Order          *int     `json:"order"`
		ProductID      *string  `json:"productId"`
		Kcal100        *float64 `json:"kcal100"`
		Protein100     *float64 `json:"protein100"`
		Fat100         *float64 `json:"fat100"`
		Carbs100       *float64 `json:"carbs100"`
		Assumptions    *string  `json:"assumptions"`
		IdempotencyKey *string  `json:"idempotencyKey"`
	}
	r.Register(&Definition{
		Name: "recipeDraft.addIngredient",
		Description: "Add an ingredient to a draft, or overwrite the ingredient at the given order. " +
			"Link a productId or supply inline per-100 macros.",
		Tags:   []string{"recipes", "drafts"},
		Auth:   AuthRequired,
		Public: true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"draftId":        schema.String("Draft id"),
			"name":           schema.String("Ingredient name"),
			"amount":         schema.Nullable(schema.Number("Amount in the given unit")),
			"unit":           schema.Nullable(schema.String("Unit code or synonym, e.g. g, кг, ml")),
			"order":          schema.Nullable(schema.Number("Position within the draft; defaults to the end")),
			"productId":      schema.Nullable(schema.String("Linked catalog product id")),
			"kcal100":        schema.Nullable(schema.Number("Calories per 100 units")),
			"protein100":     schema.Nullable(schema.Number("Protein grams per 100 units")),
			"fat100":         schema.Nullable(schema.Number("Fat grams per 100 units")),
			"carbs100":       schema.Nullable(schema.Number("Carb grams per 100 units")),
			"assumptions":    schema.Nullable(schema.String("Free-form estimation assumptions")),
			"idempotencyKey": schema.String("Client-supplied key for at-most-once execution"),
		}, "draftId", "name")),
		Examples: []Example{{
			Summary:   "300 g of beets by product link",
			Arguments: map[string]any{"draftId": "<id>", "name": "beets", "amount": 300, "unit": "г", "productId": "<product-id>"},
		}},
		Normalize: func(args map[string]any) {
			normalizeUnitArg(args, "unit")
		},
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a addIngredientArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.AddIngredient(ctx, ec.UserID, drafts.AddIngredientInput{
				DraftID:        a.DraftID,
				Name:           a.Name,
				Amount:         a.Amount,
				Unit:           a.Unit,
				Order:          a.Order,
				ProductID:      a.ProductID,
				Kcal100:        a.Kcal100,
				Protein100:     a.Protein100,
				Fat100:         a.Fat100,
				Carbs100:       a.Carbs100,
				Assumptions:    a.Assumptions,
				IdempotencyKey: deref(a.IdempotencyKey),
			})
		},
	})

	type removeIngredientArgs struct {
		DraftID        string  `json:"draftId" required:"true"`
		IngredientID   string  `json:"ingredientId" required:"true"`
		IdempotencyKey *string `json:"idempotencyKey"`
	}
	r.Register(&Definition{
		Name:        "recipeDraft.removeIngredient",
		Description: "Remove an ingredient from a draft by id.",
		Tags:        []string{"recipes", "drafts"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"draftId":        schema.String("Draft id"),
			"ingredientId":   schema.String("Ingredient id"),
			"idempotencyKey": schema.String("Client-supplied key for at-most-once execution"),
		}, "draftId", "ingredientId")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a removeIngredientArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.RemoveIngredient(ctx, ec.UserID, drafts.RemoveIngredientInput{
				DraftID:        a.DraftID,
				IngredientID:   a.IngredientID,
				IdempotencyKey: deref(a.IdempotencyKey),
			})
		},
	})

	type setStepsArgs struct {
		DraftID        string   `json:"draftId" required:"true"`
		Steps          []string `json:"steps" required:"true"`
		IdempotencyKey *string  `json:"idempotencyKey"`
	}
	r.Register(&Definition{
		Name:        "recipeDraft.setSteps",
		Description: "Replace the draft's step list. Steps are stored in submission order.",
		Tags:        []string{"recipes", "drafts"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"draftId":        schema.String("Draft id"),
			"steps":          schema.Array("Instruction lines in order", schema.String("One instruction")),
			"idempotencyKey": schema.String("Client-supplied key for at-most-once execution"),
		}, "draftId", "steps")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a setStepsArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.SetSteps(ctx, ec.UserID, drafts.SetStepsInput{
				DraftID:        a.DraftID,
				Steps:          a.Steps,
				IdempotencyKey: deref(a.IdempotencyKey),
			})
		},
	})

	r.Register(&Definition{
		Name:        "recipeDraft.validate",
		Description: "Report whether a draft is ready to publish. Always returns a report, never fails on incompleteness.",
		Tags:        []string{"recipes", "drafts"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"draftId": schema.String("Draft id"),
		}, "draftId")),
		OutputSchema: schema.Object(map[string]*schema.Schema{
			"isValid":            schema.Boolean("Whether publish would succeed"),
			"missingFields":      schema.Array("Draft-level gaps", schema.String("Field name")),
			"missingIngredients": schema.Array("Ingredients lacking macro data", &schema.Schema{Types: []string{schema.TypeObject}}),
		}),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a getArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Validate(ctx, ec.UserID, a.DraftID)
		},
	})

	type publishArgs struct {
		DraftID        string  `json:"draftId" required:"true"`
		IdempotencyKey *string `json:"idempotencyKey"`
	}
	r.Register(&Definition{
		Name:        "recipeDraft.publish",
		Description: "Validate and publish a draft into an immutable recipe.",
		Tags:        []string{"recipes", "drafts"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"draftId":        schema.String("Draft id"),
			"idempotencyKey": schema.String("Client-supplied key for at-most-once execution"),
		}, "draftId")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a publishArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Publish(ctx, ec.UserID, drafts.PublishInput{
				DraftID:        a.DraftID,
				IdempotencyKey: deref(a.IdempotencyKey),
			})
		},
	})
}

func registerProductTools(r *Registry, svc *products.Service) {
	type searchArgs struct {
		Query string   `json:"query" required:"true"`
		Limit *float64 `json:"limit"`
	}
	r.Register(&Definition{
		Name:        "products.search",
		Description: "Search the product catalog by name substring. Signed-in callers see their own products first.",
		Tags:        []string{"products"},
		Auth:        AuthNone,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"query": schema.String("Name substring to match"),
			"limit": schema.Nullable(schema.Number("Maximum results, capped at 50")),
		}, "query")),
		Examples: []Example{{
			Summary:   "Find oat products",
			Arguments: map[string]any{"query": "oat", "limit": 10},
		}},
		Normalize: func(args map[string]any) {
			clampLimitArg(args, "limit")
		},
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a searchArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			limit := 0
			if a.Limit != nil {
				limit = int(*a.Limit)
			}
			// Auth is optional here: the user id ranks results when present.
			return svc.Search(ctx, ec.UserID, a.Query, limit)
		},
	})

	type getArgs struct {
		ProductID string `json:"productId" required:"true"`
	}
	r.Register(&Definition{
		Name:        "products.get",
		Description: "Fetch a catalog product by id.",
		Tags:        []string{"products"},
		Auth:        AuthNone,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"productId": schema.String("Product id"),
		}, "productId")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a getArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Get(ctx, a.ProductID)
		},
	})

	type createArgs struct {
		Name       string  `json:"name" required:"true"`
		Brand      string  `json:"brand"`
		Kcal100    float64 `json:"kcal100"`
		Protein100 float64 `json:"protein100"`
		Fat100     float64 `json:"fat100"`
		Carbs100   float64 `json:"carbs100"`
	}
	r.Register(&Definition{
		Name:        "products.create",
		Description: "Create a product owned by the caller. Rapid identical submissions return the same product.",
		Tags:        []string{"products"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"name":       schema.String("Product name"),
			"brand":      schema.String("Brand, optional"),
			"kcal100":    schema.Number("Calories per 100 g"),
			"protein100": schema.Number("Protein grams per 100 g"),
			"fat100":     schema.Number("Fat grams per 100 g"),
			"carbs100":   schema.Number("Carb grams per 100 g"),
		}, "name", "kcal100")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a createArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Create(ctx, ec.UserID, products.CreateInput{
				Name:       a.Name,
				Brand:      a.Brand,
				Kcal100:    a.Kcal100,
				Protein100: a.Protein100,
				Fat100:     a.Fat100,
				Carbs100:   a.Carbs100,
			})
		},
	})
}

func registerRecipeTools(r *Registry, svc *recipes.Service) {
	type listArgs struct {
		Limit *float64 `json:"limit"`
	}
	r.Register(&Definition{
		Name:        "recipes.list",
		Description: "List published recipes, newest first.",
		Tags:        []string{"recipes"},
		Auth:        AuthNone,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"limit": schema.Nullable(schema.Number("Maximum results, capped at 50")),
		})),
		Normalize: func(args map[string]any) {
			clampLimitArg(args, "limit")
		},
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a listArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			limit := 0
			if a.Limit != nil {
				limit = int(*a.Limit)
			}
			return svc.List(ctx, limit)
		},
	})

	type getArgs struct {
		RecipeID string `json:"recipeId" required:"true"`
	}
	r.Register(&Definition{
		Name:        "recipes.get",
		Description: "Fetch a published recipe by id.",
		Tags:        []string{"recipes"},
		Auth:        AuthNone,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"recipeId": schema.String("Recipe id"),
		}, "recipeId")),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a getArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			return svc.Get(ctx, a.RecipeID)
		},
	})
}

func registerProfileTools(r *Registry, svc *users.Service) {
	r.Register(&Definition{
		Name:        "profile.get",
		Description: "Fetch the caller's biometrics and computed daily targets.",
		Tags:        []string{"profile"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{})),
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			return svc.GetProfile(ctx, ec.UserID)
		},
	})

	type updateArgs struct {
		Sex           *string  `json:"sex" enum:"male,female"`
		BirthDate     *string  `json:"birthDate"`
		HeightCm      *float64 `json:"heightCm"`
		WeightKg      *float64 `json:"weightKg"`
		ActivityLevel *string  `json:"activityLevel" enum:"sedentary,light,moderate,very_active"`
		Goal          *string  `json:"goal" enum:"LOSE,MAINTAIN,GAIN"`
		CalorieDelta  *float64 `json:"calorieDelta"`
	}
	r.Register(&Definition{
		Name:        "profile.update",
		Description: "Update biometrics and goals. Daily targets are recomputed when enough data is present.",
		Tags:        []string{"profile"},
		Auth:        AuthRequired,
		Public:      true,
		InputSchema: schema.Closed(schema.Object(map[string]*schema.Schema{
			"sex":           schema.Nullable(schema.Enum("Biological sex", "male", "female")),
			"birthDate":     schema.Nullable(schema.String("Birth date, YYYY-MM-DD")),
			"heightCm":      schema.Nullable(schema.Number("Height in centimeters")),
			"weightKg":      schema.Nullable(schema.Number("Weight in kilograms")),
			"activityLevel": schema.Nullable(schema.Enum("Activity level", "sedentary", "light", "moderate", "very_active")),
			"goal":          schema.Nullable(schema.Enum("Weight goal", "LOSE", "MAINTAIN", "GAIN")),
			"calorieDelta":  schema.Nullable(schema.Number("Explicit daily calorie adjustment; overrides the goal default")),
		})),
		Examples: []Example{{
			Summary:   "Set up a weight-loss profile",
			Arguments: map[string]any{"sex": "female", "birthDate": "1995-03-10", "heightCm": 168, "weightKg": 63, "activityLevel": "light", "goal": "LOSE"},
		}},
		Handler: func(ctx context.Context, ec ExecContext, args map[string]any) (any, error) {
			var a updateArgs
			if err := Decode(args, &a); err != nil {
				return nil, err
			}
			in := users.UpdateInput{
				Sex:           a.Sex,
				HeightCm:      a.HeightCm,
				WeightKg:      a.WeightKg,
				ActivityLevel: a.ActivityLevel,
				Goal:          a.Goal,
				CalorieDelta:  a.CalorieDelta,
			}
			if a.BirthDate != nil {
				parsed, err := time.Parse("2006-01-02", *a.BirthDate)
				if err != nil {
					return nil, ValidationError("invalid arguments", []schema.FieldError{
						{Path: "birthDate", Expected: "date in YYYY-MM-DD form", Got: `"` + *a.BirthDate + `"`},
					})
				}
				in.BirthDate = &parsed
			}
			return svc.UpdateProfile(ctx, ec.UserID, in)
		},
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

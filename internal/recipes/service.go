// ABOUTME: Read-only access to published recipes.

package recipes

import (
	"context"
	"log/slog"

	"github.com/macrolog/macro-gateway/internal/store"
)

// maxListLimit caps the number of recipes a single list call returns.
const maxListLimit = 50

// Service exposes published recipes to tools and REST handlers. Recipes are
// immutable snapshots; there is no update path.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates a recipes service.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger.With("component", "recipes")}
}

// Get fetches a published recipe by id.
func (s *Service) Get(ctx context.Context, id string) (*store.Recipe, error) {
	return s.store.GetRecipe(ctx, id)
}

// List returns published recipes, newest first. The limit is clamped to
// maxListLimit; non-positive limits get the maximum.
func (s *Service) List(ctx context.Context, limit int) ([]*store.Recipe, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.ListRecipes(ctx, limit)
}

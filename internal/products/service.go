// ABOUTME: Product catalog service: create, fetch, substring search.
// ABOUTME: Creation is guarded by a TTL dedupe cache keyed on a content hash.

package products

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/macrolog/macro-gateway/internal/dedupe"
	"github.com/macrolog/macro-gateway/internal/store"
)

// maxSearchLimit caps the number of rows any search returns, whatever the
// caller asked for.
const maxSearchLimit = 50

// View is the wire shape of a catalog product.
type View struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand,omitempty"`
	Kcal100    float64 `json:"kcal100"`
	Protein100 float64 `json:"protein100"`
	Fat100     float64 `json:"fat100"`
	Carbs100   float64 `json:"carbs100"`
}

func toView(p *store.Product) *View {
	return &View{
		ID:         p.ID,
		Name:       p.Name,
		Brand:      p.Brand,
		Kcal100:    p.Kcal100,
		Protein100: p.Protein100,
		Fat100:     p.Fat100,
		Carbs100:   p.Carbs100,
	}
}

// Service exposes the product catalog to tools and REST handlers.
type Service struct {
	store  store.Store
	recent *dedupe.Cache
	logger *slog.Logger
}

// NewService creates a product service. The cache absorbs rapid duplicate
// creates (an LLM retrying a tool call); pass the shared instance from main.
func NewService(s store.Store, recent *dedupe.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, recent: recent, logger: logger.With("component", "products")}
}

// CreateInput holds the fields accepted by Create.
type CreateInput struct {
	Name       string
	Brand      string
	Kcal100    float64
	Protein100 float64
	Fat100     float64
	Carbs100   float64
}

// Create inserts a product owned by the caller. An identical create within
// the cache TTL returns the previously created product instead of inserting
// a duplicate row.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*View, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	id := uuid.New().String()
	hash := contentHash(userID, name, in)
	if cached, existed := s.recent.GetOrSet(hash, id); existed {
		existingID, _ := cached.(string)
		product, err := s.store.GetProduct(ctx, existingID)
		if err == nil {
			s.logger.Debug("duplicate product create absorbed", "product_id", existingID)
			return toView(product), nil
		}
		// Stale cache entry (row never committed or was removed); fall
		// through and create under our own id.
		s.recent.Set(hash, id)
	}

	product := &store.Product{
		ID:         id,
		OwnerID:    &userID,
		Name:       name,
		Brand:      strings.TrimSpace(in.Brand),
		Kcal100:    in.Kcal100,
		Protein100: in.Protein100,
		Fat100:     in.Fat100,
		Carbs100:   in.Carbs100,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		s.recent.Delete(hash)
		return nil, err
	}
	s.logger.Info("product created", "product_id", id, "user_id", userID)
	return toView(product), nil
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return toView(product), nil
}

// Search returns products whose name contains the query, case-insensitively.
// When userID is non-empty, the caller's own products rank first. The limit
// is clamped to maxSearchLimit; non-positive limits get the maximum.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]*View, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	rows, err := s.store.SearchProducts(ctx, strings.TrimSpace(query), userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*View, 0, len(rows))
	for _, p := range rows {
		out = append(out, toView(p))
	}
	return out, nil
}

// contentHash canonicalizes the create payload so retried identical requests
// collide in the dedupe cache.
func contentHash(userID, name string, in CreateInput) string {
	canonical := fmt.Sprintf("%s|%s|%s|%.3f|%.3f|%.3f|%.3f",
		userID, strings.ToLower(name), strings.ToLower(strings.TrimSpace(in.Brand)),
		in.Kcal100, in.Protein100, in.Fat100, in.Carbs100)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// ABOUTME: REST CRUD endpoints sharing the domain services with the RPC tools.
// ABOUTME: Same error taxonomy as the tools, mapped onto HTTP status codes.

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/macrolog/macro-gateway/internal/auth"
	"github.com/macrolog/macro-gateway/internal/drafts"
	"github.com/macrolog/macro-gateway/internal/products"
	"github.com/macrolog/macro-gateway/internal/recipes"
	"github.com/macrolog/macro-gateway/internal/schema"
	"github.com/macrolog/macro-gateway/internal/store"
	"github.com/macrolog/macro-gateway/internal/tools"
	"github.com/macrolog/macro-gateway/internal/users"
)

// maxBodyBytes caps REST request bodies at 1 MiB, same as the RPC endpoint.
const maxBodyBytes = 1 << 20

// idempotencyHeader feeds the same at-most-once mechanism the tools use.
const idempotencyHeader = "Idempotency-Key"

// Server exposes the REST surface. Every endpoint delegates to the same
// services the tool catalog uses, so nutrition math and idempotency behave
// identically on both paths.
type Server struct {
	drafts   *drafts.Service
	products *products.Service
	users    *users.Service
	recipes  *recipes.Service
	resolver *auth.Resolver
	logger   *slog.Logger
}

// NewServer creates the REST server.
func NewServer(d *drafts.Service, p *products.Service, u *users.Service, rec *recipes.Service, resolver *auth.Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		drafts:   d,
		products: p,
		users:    u,
		recipes:  rec,
		resolver: resolver,
		logger:   logger.With("component", "api"),
	}
}

// Routes registers all REST endpoints on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", s.handleSearchProducts)
	mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	mux.HandleFunc("GET /api/recipes", s.handleListRecipes)
	mux.HandleFunc("GET /api/recipes/{id}", s.handleGetRecipe)
	mux.HandleFunc("POST /api/drafts", s.handleCreateDraft)
	mux.HandleFunc("GET /api/drafts/{id}", s.handleGetDraft)
	mux.HandleFunc("POST /api/drafts/{id}/publish", s.handlePublishDraft)
	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
}

// errorBody is the JSON error shape for every REST failure.
type errorBody struct {
	Kind               string `json:"kind"`
	Message            string `json:"message"`
	Fields             any    `json:"fields,omitempty"`
	MissingFields      any    `json:"missingFields,omitempty"`
	MissingIngredients any    `json:"missingIngredients,omitempty"`
}

// Products

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	// Anonymous searches work; a signed-in caller gets their products first.
	userID, _ := s.resolver.ResolveHeaders(r.Context(), r.Header)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	out, err := s.products.Search(r.Context(), userID, r.URL.Query().Get("query"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Name       string  `json:"name"`
		Brand      string  `json:"brand"`
		Kcal100    float64 `json:"kcal100"`
		Protein100 float64 `json:"protein100"`
		Fat100     float64 `json:"fat100"`
		Carbs100   float64 `json:"carbs100"`
	}
	if !s.decodeBody(w, r, &in) {
		return
	}
	out, err := s.products.Create(r.Context(), userID, products.CreateInput{
		Name:       in.Name,
		Brand:      in.Brand,
		Kcal100:    in.Kcal100,
		Protein100: in.Protein100,
		Fat100:     in.Fat100,
		Carbs100:   in.Carbs100,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	out, err := s.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Recipes

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	out, err := s.recipes.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	out, err := s.recipes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Drafts

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Title       string `json:"title"`
		Category    string `json:"category"`
		Description string `json:"description"`
		Servings    *int   `json:"servings"`
	}
	if !s.decodeBody(w, r, &in) {
		return
	}
	out, err := s.drafts.Create(r.Context(), userID, drafts.CreateInput{
		Title:          in.Title,
		Category:       in.Category,
		Description:    in.Description,
		Servings:       in.Servings,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRaw(w, http.StatusCreated, out)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	out, err := s.drafts.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePublishDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	out, err := s.drafts.Publish(r.Context(), userID, drafts.PublishInput{
		DraftID:        r.PathValue("id"),
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeRaw(w, http.StatusOK, out)
}

// Profile

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	out, err := s.users.GetProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Sex           *string  `json:"sex"`
		BirthDate     *string  `json:"birthDate"`
		HeightCm      *float64 `json:"heightCm"`
		WeightKg      *float64 `json:"weightKg"`
		ActivityLevel *string  `json:"activityLevel"`
		Goal          *string  `json:"goal"`
		CalorieDelta  *float64 `json:"calorieDelta"`
	}
	if !s.decodeBody(w, r, &in) {
		return
	}
	update := users.UpdateInput{
		Sex:           in.Sex,
		HeightCm:      in.HeightCm,
		WeightKg:      in.WeightKg,
		ActivityLevel: in.ActivityLevel,
		Goal:          in.Goal,
		CalorieDelta:  in.CalorieDelta,
	}
	if in.BirthDate != nil {
		parsed, err := time.Parse("2006-01-02", *in.BirthDate)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{
				Kind:    tools.KindValidation,
				Message: "invalid arguments",
				Fields: []schema.FieldError{
					{Path: "birthDate", Expected: "date in YYYY-MM-DD form", Got: strconv.Quote(*in.BirthDate)},
				},
			})
			return
		}
		update.BirthDate = &parsed
	}
	out, err := s.users.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Helpers

// requireUser resolves the bearer token, writing a 401 when the request is
// anonymous or the token does not verify.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.resolver.ResolveHeaders(r.Context(), r.Header)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, errorBody{
			Kind:    tools.KindAuthRequired,
			Message: "authentication required",
		})
		return "", false
	}
	return userID, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Kind:    tools.KindValidation,
			Message: "invalid JSON body",
		})
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses: validation 400, auth 401,
// not-found 404, draft-incomplete 422, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var incomplete *drafts.IncompleteError
	if errors.As(err, &incomplete) {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Kind:               tools.KindDraftIncomplete,
			Message:            "draft is incomplete",
			MissingFields:      incomplete.MissingFields,
			MissingIngredients: incomplete.MissingIngredients,
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorBody{Kind: tools.KindNotFound, Message: err.Error()})
	case errors.Is(err, drafts.ErrTitleRequired), errors.Is(err, products.ErrNameRequired):
		s.writeJSON(w, http.StatusBadRequest, errorBody{Kind: tools.KindValidation, Message: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Kind: tools.KindInternal, Message: "internal error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

// writeRaw sends pre-marshaled JSON, preserving replayed idempotent payloads
// byte for byte.
func (s *Server) writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

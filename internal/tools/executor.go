// ABOUTME: Tool executor: alias resolution, auth gate, coercion, normalization,
// ABOUTME: handler dispatch, and mapping collaborator errors onto the taxonomy.

package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macrolog/macro-gateway/internal/drafts"
	"github.com/macrolog/macro-gateway/internal/products"
	"github.com/macrolog/macro-gateway/internal/schema"
	"github.com/macrolog/macro-gateway/internal/store"
)

// Executor runs tools from a registry. It owns the full per-call pipeline;
// every failure it returns is either ErrUnknownTool or a *Error.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over a populated registry.
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger.With("component", "executor")}
}

// Execute resolves, validates, and runs one tool call.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any, ec ExecContext) (any, error) {
	def, ok := e.registry.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownTool)
	}

	if def.Auth == AuthRequired && ec.UserID == "" {
		return nil, AuthRequiredError()
	}

	if args == nil {
		args = map[string]any{}
	}
	coerced, fieldErrs := schema.Coerce(def.InputSchema, args)
	if len(fieldErrs) > 0 {
		return nil, ValidationError("invalid arguments", fieldErrs)
	}
	normalized, _ := coerced.(map[string]any)
	if def.Normalize != nil {
		def.Normalize(normalized)
	}

	result, err := def.Handler(ctx, ec, normalized)
	if err != nil {
		return nil, e.mapError(def.Name, ec.CorrelationID, err)
	}
	return result, nil
}

// mapError folds collaborator errors into the unified taxonomy. Unexpected
// errors are logged in full with the correlation id; the caller only ever
// sees a generic internal-error message.
func (e *Executor) mapError(tool, correlationID string, err error) error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var incomplete *drafts.IncompleteError
	if errors.As(err, &incomplete) {
		return &Error{
			Kind:               KindDraftIncomplete,
			Message:            "draft is incomplete",
			MissingFields:      incomplete.MissingFields,
			MissingIngredients: incomplete.MissingIngredients,
		}
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return NotFound(err.Error())
	case errors.Is(err, drafts.ErrTitleRequired):
		return ValidationError("invalid arguments", []schema.FieldError{
			{Path: "title", Expected: "non-empty string", Got: `""`},
		})
	case errors.Is(err, products.ErrNameRequired):
		return ValidationError("invalid arguments", []schema.FieldError{
			{Path: "name", Expected: "non-empty string", Got: `""`},
		})
	}

	e.logger.Error("tool execution failed",
		"tool", tool, "correlation_id", correlationID, "error", err)
	return &Error{Kind: KindInternal, Message: "internal error"}
}

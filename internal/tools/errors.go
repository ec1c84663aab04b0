// ABOUTME: Unified error taxonomy surfaced by tool execution.
// ABOUTME: Maps collaborator errors onto stable kinds the router can serialize.

package tools

import (
	"errors"

	"github.com/macrolog/macro-gateway/internal/drafts"
	"github.com/macrolog/macro-gateway/internal/schema"
)

// Error kinds. These are wire-stable strings; clients branch on them.
const (
	KindValidation      = "VALIDATION_ERROR"
	KindNotFound        = "NOT_FOUND"
	KindDraftIncomplete = "DRAFT_INCOMPLETE"
	KindAuthRequired    = "AUTH_REQUIRED"
	KindInternal        = "INTERNAL_ERROR"
)

// ErrUnknownTool is returned when a tool name resolves to nothing, even
// after alias resolution. The router maps it to JSON-RPC -32601.
var ErrUnknownTool = errors.New("unknown tool")

// Error is the unified domain error every tool failure is mapped to. Only
// the fields relevant to the kind are populated.
type Error struct {
	Kind               string                     `json:"kind"`
	Message            string                     `json:"message"`
	Fields             []schema.FieldError        `json:"fields,omitempty"`
	MissingFields      []string                   `json:"missingFields,omitempty"`
	MissingIngredients []drafts.MissingIngredient `json:"missingIngredients,omitempty"`
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

// NotFound builds a NOT_FOUND error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// ValidationError builds a VALIDATION_ERROR with per-field details.
func ValidationError(message string, fields []schema.FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// AuthRequiredError builds an AUTH_REQUIRED error.
func AuthRequiredError() *Error {
	return &Error{Kind: KindAuthRequired, Message: "authentication required"}
}

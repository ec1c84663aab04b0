// ABOUTME: Domain errors raised by the draft lifecycle.
// ABOUTME: IncompleteError carries the validation report for publish failures.

package drafts

import "errors"

// ErrTitleRequired is returned when creating a draft with an empty title.
var ErrTitleRequired = errors.New("title is required")

// IncompleteError is raised when publish is attempted on an invalid draft.
// It carries the same missing-field details the validate operation reports.
type IncompleteError struct {
	MissingFields      []string
	MissingIngredients []MissingIngredient
}

func (e *IncompleteError) Error() string {
	return "draft is incomplete"
}

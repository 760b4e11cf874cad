package parequest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("prior authorization request not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingSummary    = errors.New("no medical necessity summary exists")
	ErrChecklistNotEmpty = errors.New("request still has checklist items")
	ErrNoAttachment      = errors.New("checklist item has no attachment")
)

// IncompleteChecklistError carries the required items still outstanding so
// the caller can show the user exactly what to remediate.
type IncompleteChecklistError struct {
	Items []*ChecklistItem
}

func (e *IncompleteChecklistError) Error() string {
	names := make([]string, len(e.Items))
	for i, item := range e.Items {
		names[i] = item.Name
	}
	return fmt.Sprintf("checklist incomplete: %s", strings.Join(names, ", "))
}

func transitionError(from, to string) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, from, to)
}

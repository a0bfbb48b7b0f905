package reconcile

import (
	"errors"

	"github.com/MrWong99/voiceorder/pkg/types"
)

// Sentinel errors for orders that cannot be assembled. Use [errors.Is] to
// test a [*ResolutionError] against them.
var (
	// ErrMissingTable is returned when no table number was spoken.
	ErrMissingTable = errors.New("reconcile: no table number in transcript")

	// ErrNoResolvableItems is returned when no spoken item matched the catalog.
	ErrNoResolvableItems = errors.New("reconcile: no item could be matched to the catalog")
)

// ResolutionError reports why a transcript could not become an order. It
// carries the names that failed so callers can show them to the waiter.
type ResolutionError struct {
	// Err is one of [ErrMissingTable] or [ErrNoResolvableItems].
	Err error

	// Unresolved is the list of spoken names that did not match.
	Unresolved []string
}

// Error implements error.
func (e *ResolutionError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying sentinel.
func (e *ResolutionError) Unwrap() error { return e.Err }

// Code returns a stable machine-readable code for the error.
func (e *ResolutionError) Code() string {
	switch {
	case errors.Is(e.Err, ErrMissingTable):
		return "missing_table"
	case errors.Is(e.Err, ErrNoResolvableItems):
		return "no_resolvable_items"
	}
	return "unknown"
}

// Assemble builds the final order. A missing table is reported before an
// empty item list. An order with some unresolved names is still valid.
func Assemble(table *int, items []types.LineItem, unresolved []string) (*types.StructuredOrder, error) {
	if table == nil {
		return nil, &ResolutionError{Err: ErrMissingTable, Unresolved: unresolved}
	}
	if len(items) == 0 {
		return nil, &ResolutionError{Err: ErrNoResolvableItems, Unresolved: unresolved}
	}
	t := *table
	if unresolved == nil {
		unresolved = []string{}
	}
	return &types.StructuredOrder{
		Table:      &t,
		LineItems:  items,
		Unresolved: unresolved,
	}, nil
}

// Package catalog holds the restaurant's dish catalog: the list of dishes a
// spoken order is reconciled against.
//
// A [Source] yields a point-in-time snapshot of the available dishes. The
// resolver never caches it; callers fetch a fresh snapshot per order so
// price and availability changes apply immediately. [MemStore] is the
// in-memory, menu-file-backed source; package catalog/postgres provides the
// database-backed one.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/MrWong99/voiceorder/pkg/types"
)

// ErrNotFound is returned by Get, Update and Remove when the requested dish
// does not exist.
var ErrNotFound = errors.New("dish not found")

// ErrDuplicateID is returned by Add when a dish with the same ID already exists.
var ErrDuplicateID = errors.New("dish with that ID already exists")

// ErrDuplicateName is returned by Add and Update when another dish already
// uses the same name, compared case-insensitively. Reconciliation matches by
// name, so two dishes with one name could never both be ordered.
var ErrDuplicateName = errors.New("dish with that name already exists")

// Dish is a catalog entry with its management metadata.
type Dish struct {
	// ID is the catalog identifier. Generated by [Store.Add] when empty.
	ID string `json:"id"`

	// Name is the display name matched against spoken dish names.
	Name string `json:"name"`

	// Price is the unit price.
	Price decimal.Decimal `json:"price"`

	// Category is a free-form menu section ("mains", "drinks").
	Category string `json:"category,omitempty"`

	// Available reports whether the dish can currently be ordered. Only
	// available dishes appear in [Source.List] snapshots.
	Available bool `json:"available"`
}

// CatalogDish returns the resolver-facing view of d.
func (d Dish) CatalogDish() types.CatalogDish {
	return types.CatalogDish{ID: d.ID, Name: d.Name, Price: d.Price}
}

// Source provides catalog snapshots.
//
// All implementations must be safe for concurrent use.
type Source interface {
	// List returns the currently orderable dishes. The order is stable
	// between calls as long as the catalog does not change.
	List(ctx context.Context) ([]types.CatalogDish, error)
}

// Store manages catalog dishes.
//
// All implementations must be safe for concurrent use.
type Store interface {
	Source

	// Add creates a new dish. An empty ID is replaced by a generated one.
	// Returns [ErrDuplicateID] or [ErrDuplicateName] on conflicts.
	Add(ctx context.Context, dish Dish) (Dish, error)

	// Get retrieves a dish by ID.
	// Returns [ErrNotFound] when no dish with that ID exists.
	Get(ctx context.Context, id string) (Dish, error)

	// Dishes returns all dishes matching opts, including unavailable ones
	// when requested.
	Dishes(ctx context.Context, opts ListOptions) ([]Dish, error)

	// Update replaces an existing dish.
	// Returns [ErrNotFound] when no dish with that ID exists.
	Update(ctx context.Context, dish Dish) error

	// Remove deletes a dish by ID.
	// Returns [ErrNotFound] when no dish with that ID exists.
	Remove(ctx context.Context, id string) error

	// BulkImport adds multiple dishes. It returns the number of dishes
	// imported and the error that aborted the import, if any.
	BulkImport(ctx context.Context, dishes []Dish) (int, error)
}

// ListOptions narrows the result set of [Store.Dishes].
// All non-zero fields are applied as AND conditions.
type ListOptions struct {
	// Category restricts results to one menu section. Empty matches all.
	Category string

	// IncludeUnavailable also returns dishes that cannot be ordered.
	IncludeUnavailable bool
}

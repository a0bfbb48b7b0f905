package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrWong99/voiceorder/pkg/types"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. Dishes
// are kept in insertion order so snapshots are deterministic.
// The zero value is ready to use.
type MemStore struct {
	mu     sync.RWMutex
	dishes map[string]Dish
	order  []string
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		dishes: make(map[string]Dish),
	}
}

// List implements [Source.List].
func (s *MemStore) List(ctx context.Context) ([]types.CatalogDish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.CatalogDish, 0, len(s.order))
	for _, id := range s.order {
		if d := s.dishes[id]; d.Available {
			out = append(out, d.CatalogDish())
		}
	}
	return out, nil
}

// Ping always succeeds; it lets the store back a readiness check.
func (s *MemStore) Ping(ctx context.Context) error { return nil }

// Add implements [Store.Add].
func (s *MemStore) Add(ctx context.Context, dish Dish) (Dish, error) {
	dish.Name = strings.TrimSpace(dish.Name)
	if err := ValidateDish(dish); err != nil {
		return Dish{}, fmt.Errorf("catalog: add %q: %w", dish.Name, err)
	}
	if dish.ID == "" {
		dish.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dishes == nil {
		s.dishes = make(map[string]Dish)
	}

	if _, exists := s.dishes[dish.ID]; exists {
		return Dish{}, ErrDuplicateID
	}
	if s.nameTakenLocked(dish.Name, "") {
		return Dish{}, ErrDuplicateName
	}

	s.dishes[dish.ID] = dish
	s.order = append(s.order, dish.ID)
	return dish, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dishes[id]
	if !ok {
		return Dish{}, ErrNotFound
	}
	return d, nil
}

// Dishes implements [Store.Dishes].
func (s *MemStore) Dishes(ctx context.Context, opts ListOptions) ([]Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Dish, 0, len(s.order))
	for _, id := range s.order {
		d := s.dishes[id]
		if !matchesOpts(d, opts) {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, dish Dish) error {
	dish.Name = strings.TrimSpace(dish.Name)
	if err := ValidateDish(dish); err != nil {
		return fmt.Errorf("catalog: update %q: %w", dish.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dishes[dish.ID]; !ok {
		return ErrNotFound
	}
	if s.nameTakenLocked(dish.Name, dish.ID) {
		return ErrDuplicateName
	}

	s.dishes[dish.ID] = dish
	return nil
}

// Remove implements [Store.Remove].
func (s *MemStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dishes[id]; !ok {
		return ErrNotFound
	}

	delete(s.dishes, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	return nil
}

// BulkImport implements [Store.BulkImport].
// The import is best-effort: dishes are added one at a time and the count of
// successfully added dishes is returned along with the first error encountered.
func (s *MemStore) BulkImport(ctx context.Context, dishes []Dish) (int, error) {
	count := 0
	for _, d := range dishes {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := s.Add(ctx, d); err != nil {
			return count, fmt.Errorf("catalog: bulk import at index %d (name %q): %w", count, d.Name, err)
		}
		count++
	}
	return count, nil
}

// nameTakenLocked reports whether a dish other than exceptID uses name.
// Caller must hold s.mu.
func (s *MemStore) nameTakenLocked(name, exceptID string) bool {
	for id, d := range s.dishes {
		if id != exceptID && strings.EqualFold(d.Name, name) {
			return true
		}
	}
	return false
}

// matchesOpts reports whether d satisfies all conditions in opts.
func matchesOpts(d Dish, opts ListOptions) bool {
	if !opts.IncludeUnavailable && !d.Available {
		return false
	}
	if opts.Category != "" && !strings.EqualFold(d.Category, opts.Category) {
		return false
	}
	return true
}

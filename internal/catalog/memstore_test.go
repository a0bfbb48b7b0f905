package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MrWong99/voiceorder/internal/catalog"
)

func newDish(id, name, price string) catalog.Dish {
	return catalog.Dish{ID: id, Name: name, Price: decimal.RequireFromString(price), Available: true}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("with empty ID generates one", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewMemStore()
		got, err := s.Add(ctx, newDish("", "Rice", "40"))
		if err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
		if got.ID == "" {
			t.Fatal("Add: expected generated ID, got empty string")
		}
	})

	t.Run("with explicit ID is preserved", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewMemStore()
		got, err := s.Add(ctx, newDish("rice-01", "Rice", "40"))
		if err != nil {
			t.Fatalf("Add: unexpected error: %v", err)
		}
		if got.ID != "rice-01" {
			t.Fatalf("Add: expected ID %q, got %q", "rice-01", got.ID)
		}
	})

	t.Run("duplicate ID returns ErrDuplicateID", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewMemStore()
		if _, err := s.Add(ctx, newDish("dup", "Rice", "40")); err != nil {
			t.Fatalf("Add first: unexpected error: %v", err)
		}
		_, err := s.Add(ctx, newDish("dup", "Dal", "90"))
		if !errors.Is(err, catalog.ErrDuplicateID) {
			t.Fatalf("Add duplicate: expected ErrDuplicateID, got %v", err)
		}
	})

	t.Run("duplicate name ignores case", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewMemStore()
		if _, err := s.Add(ctx, newDish("a", "Masala Chai", "30")); err != nil {
			t.Fatalf("Add first: unexpected error: %v", err)
		}
		_, err := s.Add(ctx, newDish("b", "  masala CHAI ", "35"))
		if !errors.Is(err, catalog.ErrDuplicateName) {
			t.Fatalf("Add duplicate name: expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("invalid dish is rejected", func(t *testing.T) {
		t.Parallel()
		s := catalog.NewMemStore()
		if _, err := s.Add(ctx, newDish("", "Rice", "-1")); err == nil {
			t.Fatal("Add: expected error for negative price")
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()
	if _, err := s.Add(ctx, newDish("d1", "Dal", "90.50")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Dal" || !got.Price.Equal(decimal.RequireFromString("90.5")) {
		t.Errorf("Get = %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Get missing: expected ErrNotFound, got %v", err)
	}
}

func TestList_AvailableInInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()
	sold := newDish("k1", "Kulfi", "60")
	sold.Available = false
	for _, d := range []catalog.Dish{newDish("r1", "Rice", "40"), sold, newDish("d1", "Dal", "90"), newDish("c1", "Coke", "30")} {
		if _, err := s.Add(ctx, d); err != nil {
			t.Fatalf("Add %s: %v", d.Name, err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, d := range got {
		ids = append(ids, d.ID)
	}
	if fmt.Sprint(ids) != "[r1 d1 c1]" {
		t.Errorf("List ids = %v, want [r1 d1 c1]", ids)
	}
}

func TestDishes_Options(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()
	chai := newDish("c1", "Masala Chai", "30")
	chai.Category = "drinks"
	lassi := newDish("l1", "Mango Lassi", "80")
	lassi.Category = "Drinks"
	lassi.Available = false
	rice := newDish("r1", "Rice", "40")
	rice.Category = "mains"
	if _, err := s.BulkImport(ctx, []catalog.Dish{chai, lassi, rice}); err != nil {
		t.Fatalf("BulkImport: %v", err)
	}

	tests := []struct {
		name string
		opts catalog.ListOptions
		want int
	}{
		{"default hides unavailable", catalog.ListOptions{}, 2},
		{"include unavailable", catalog.ListOptions{IncludeUnavailable: true}, 3},
		{"category ignores case", catalog.ListOptions{Category: "drinks", IncludeUnavailable: true}, 2},
		{"category available only", catalog.ListOptions{Category: "drinks"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := s.Dishes(ctx, tt.opts)
			if err != nil {
				t.Fatalf("Dishes: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Dishes(%+v) returned %d, want %d", tt.opts, len(got), tt.want)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()
	if _, err := s.BulkImport(ctx, []catalog.Dish{newDish("r1", "Rice", "40"), newDish("d1", "Dal", "90")}); err != nil {
		t.Fatalf("BulkImport: %v", err)
	}

	upd := newDish("r1", "Jeera Rice", "55")
	if err := s.Update(ctx, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.Get(ctx, "r1")
	if got.Name != "Jeera Rice" {
		t.Errorf("Name after update = %q", got.Name)
	}

	// Renaming to its own name in a different case is not a conflict.
	if err := s.Update(ctx, newDish("r1", "JEERA RICE", "55")); err != nil {
		t.Errorf("Update same name: %v", err)
	}
	if err := s.Update(ctx, newDish("r1", "dal", "55")); !errors.Is(err, catalog.ErrDuplicateName) {
		t.Errorf("Update to taken name: expected ErrDuplicateName, got %v", err)
	}
	if err := s.Update(ctx, newDish("zz", "Naan", "20")); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Update missing: expected ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()
	if _, err := s.BulkImport(ctx, []catalog.Dish{newDish("r1", "Rice", "40"), newDish("d1", "Dal", "90")}); err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if err := s.Remove(ctx, "r1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "r1"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Remove twice: expected ErrNotFound, got %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 1 || list[0].ID != "d1" {
		t.Errorf("List after remove = %+v", list)
	}

	// The name is free again.
	if _, err := s.Add(ctx, newDish("r2", "Rice", "45")); err != nil {
		t.Errorf("Add after remove: %v", err)
	}
}

func TestBulkImport_StopsAtFirstError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()
	n, err := s.BulkImport(ctx, []catalog.Dish{
		newDish("r1", "Rice", "40"),
		newDish("r2", "rice", "40"),
		newDish("d1", "Dal", "90"),
	})
	if n != 1 {
		t.Errorf("imported = %d, want 1", n)
	}
	if !errors.Is(err, catalog.ErrDuplicateName) {
		t.Errorf("err = %v, want ErrDuplicateName", err)
	}
}

func TestMemStore_ZeroValue(t *testing.T) {
	t.Parallel()

	var s catalog.MemStore
	ctx := context.Background()
	if _, err := s.Add(ctx, newDish("r1", "Rice", "40")); err != nil {
		t.Fatalf("Add on zero value: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := catalog.NewMemStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, newDish("", fmt.Sprintf("Dish %d", i), "10"))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.List(ctx)
		}()
	}
	wg.Wait()

	list, _ := s.List(ctx)
	if len(list) != 50 {
		t.Errorf("List = %d dishes, want 50", len(list))
	}
}

func TestValidateDish(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dish    catalog.Dish
		wantErr bool
	}{
		{"valid", newDish("r1", "Rice", "40"), false},
		{"zero price", newDish("w1", "Water", "0"), false},
		{"empty name", newDish("x", "  ", "10"), true},
		{"negative price", newDish("x", "Rice", "-0.01"), true},
		{"whitespace id", newDish("a b", "Rice", "1"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := catalog.ValidateDish(tt.dish)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDish() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, catalog.ErrInvalidDish) {
				t.Errorf("ValidateDish() error = %v, want ErrInvalidDish", err)
			}
		})
	}
}

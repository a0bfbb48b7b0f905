package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MenuFile is the top-level structure of a menu YAML file.
//
// Example:
//
//	restaurant:
//	  name: "Spice Route"
//	  currency: INR
//	dishes:
//	  - id: chicken-biryani
//	    name: "Chicken Biryani"
//	    price: "250.00"
//	    category: mains
//	  - name: "Masala Chai"
//	    price: 30
//	    available: false
type MenuFile struct {
	Restaurant RestaurantMeta `yaml:"restaurant"`
	Dishes     []MenuDish     `yaml:"dishes"`
}

// RestaurantMeta holds top-level metadata for a menu.
type RestaurantMeta struct {
	// Name is the restaurant's display name.
	Name string `yaml:"name"`

	// Currency is an informational ISO 4217 code for all prices.
	Currency string `yaml:"currency"`
}

// MenuDish is a dish as written in a menu file. Prices are kept as text so
// "12.10" never passes through a float.
type MenuDish struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Price     string `yaml:"price"`
	Category  string `yaml:"category"`
	Available *bool  `yaml:"available"`
}

// Dish converts m into a [Dish]. Available defaults to true.
func (m MenuDish) Dish() (Dish, error) {
	if m.Price == "" {
		return Dish{}, fmt.Errorf("catalog: dish %q: price is required", m.Name)
	}
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return Dish{}, fmt.Errorf("catalog: dish %q: parse price %q: %w", m.Name, m.Price, err)
	}
	available := true
	if m.Available != nil {
		available = *m.Available
	}
	return Dish{
		ID:        m.ID,
		Name:      m.Name,
		Price:     price,
		Category:  m.Category,
		Available: available,
	}, nil
}

// LoadMenuFile reads and parses a menu YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadMenuFile(path string) (*MenuFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open menu file %q: %w", path, err)
	}
	defer f.Close()

	mf, err := LoadMenuFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse menu file %q: %w", path, err)
	}
	return mf, nil
}

// LoadMenuFromReader parses menu YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadMenuFromReader(r io.Reader) (*MenuFile, error) {
	var mf MenuFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&mf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: decode menu yaml: %w", err)
	}
	return &mf, nil
}

// ToDishes converts every menu entry. All conversion errors are reported
// together.
func (mf *MenuFile) ToDishes() ([]Dish, error) {
	dishes := make([]Dish, 0, len(mf.Dishes))
	var errs []error
	for i, md := range mf.Dishes {
		d, err := md.Dish()
		if err != nil {
			errs = append(errs, fmt.Errorf("dishes[%d]: %w", i, err))
			continue
		}
		if err := ValidateDish(d); err != nil {
			errs = append(errs, fmt.Errorf("dishes[%d]: %w", i, err))
			continue
		}
		dishes = append(dishes, d)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return dishes, nil
}

// ImportMenu imports all dishes from a parsed [MenuFile] into store.
// Returns the number of dishes successfully imported.
// An invalid entry aborts before anything is imported; an error from the
// store aborts the import and returns the count so far.
func ImportMenu(ctx context.Context, store Store, menu *MenuFile) (int, error) {
	if menu == nil {
		return 0, fmt.Errorf("catalog: menu must not be nil")
	}
	dishes, err := menu.ToDishes()
	if err != nil {
		return 0, fmt.Errorf("catalog: import menu %q: %w", menu.Restaurant.Name, err)
	}
	n, err := store.BulkImport(ctx, dishes)
	if err != nil {
		return n, fmt.Errorf("catalog: import menu %q: %w", menu.Restaurant.Name, err)
	}
	return n, nil
}

package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDish is wrapped by every error returned from [ValidateDish].
var ErrInvalidDish = errors.New("invalid dish")

// ValidateDish checks a [Dish] for required fields.
//
// Rules:
//   - Name must be non-empty after trimming.
//   - Price must not be negative.
//   - ID, when set, must not contain whitespace.
func ValidateDish(d Dish) error {
	var errs []error

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Price.IsNegative() {
		errs = append(errs, fmt.Errorf("price %s must not be negative", d.Price))
	}
	if strings.ContainsAny(d.ID, " \t\r\n") {
		errs = append(errs, fmt.Errorf("id %q must not contain whitespace", d.ID))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidDish, errors.Join(errs...))
}

// Package reconcile matches resolved items against a live catalog snapshot
// and assembles the final structured order.
//
// Matching is by case-insensitive Levenshtein distance on dish names. A match
// is accepted when the distance is at most [MaxEditDistance] or when either
// name contains the other ("paneer" inside "paneer butter masala"). The
// catalog is passed per call and never cached here.
package reconcile

import (
	"math"
	"strings"

	"github.com/MrWong99/voiceorder/internal/resolver"
	"github.com/MrWong99/voiceorder/internal/transcript/fuzzy"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// MaxEditDistance is the largest name distance accepted without a substring
// relation.
const MaxEditDistance = 2

// CatalogMatch is the nearest catalog dish for a key.
type CatalogMatch struct {
	// Dish is the accepted dish, or nil when the nearest dish was too far
	// away or the catalog is empty.
	Dish *types.CatalogDish

	// EditDistance is the distance to the nearest dish, accepted or not.
	// -1 when the catalog is empty.
	EditDistance int
}

// Match finds the catalog dish closest to key. The first dish wins ties.
func Match(key string, catalog []types.CatalogDish) CatalogMatch {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || len(catalog) == 0 {
		return CatalogMatch{EditDistance: -1}
	}

	best, bestDist := -1, math.MaxInt
	for i := range catalog {
		d := fuzzy.Levenshtein(key, strings.ToLower(catalog[i].Name))
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	m := CatalogMatch{EditDistance: bestDist}
	name := strings.ToLower(catalog[best].Name)
	if bestDist <= MaxEditDistance || strings.Contains(name, key) || strings.Contains(key, name) {
		dish := catalog[best]
		m.Dish = &dish
	}
	return m
}

// Reconcile turns resolved items into line items. Items whose key does not
// match the catalog are retried with their raw name candidate; items that
// still fail are reported in unresolved by name candidate, in input order.
func Reconcile(items []resolver.ResolvedItem, catalog []types.CatalogDish) (lines []types.LineItem, unresolved []string) {
	for _, it := range items {
		m := Match(it.Key(), catalog)
		if m.Dish == nil && it.Matched && !strings.EqualFold(it.NameCandidate, it.CanonicalKey) {
			m = Match(it.NameCandidate, catalog)
		}
		if m.Dish == nil {
			unresolved = append(unresolved, it.NameCandidate)
			continue
		}
		mods := it.Modifications
		if mods == nil {
			mods = []string{}
		}
		lines = append(lines, types.LineItem{
			DishID:        m.Dish.ID,
			Name:          m.Dish.Name,
			Quantity:      it.Quantity,
			Price:         m.Dish.Price,
			Modifications: mods,
		})
	}
	return lines, unresolved
}

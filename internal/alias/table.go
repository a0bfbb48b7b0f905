// Package alias holds the static dish alias table: canonical dish keys mapped
// to the phonetic and spelling variants speech-to-text tends to produce.
//
// The table is a local heuristic layer that corrects noise ("biriyani",
// "panir", "kok") before any matching against the live catalog happens. A
// [Table] is built once and never changes afterwards, so a single instance can
// be shared by any number of goroutines.
package alias

import (
	"maps"
	"slices"
	"strings"
)

// Table is an immutable alias table. The zero value is an empty table.
type Table struct {
	// variants maps canonical key → sorted, de-duplicated variants (the key
	// itself included).
	variants map[string][]string

	// owner maps every variant → canonical key.
	owner map[string]string

	// all is every registered variant in sorted order, for deterministic
	// fuzzy scans.
	all []string

	conflicts []Conflict
}

// Conflict records a variant claimed by more than one canonical key. The
// variant stays with Kept; Dropped lost the claim.
type Conflict struct {
	Variant string
	Kept    string
	Dropped string
}

// Build constructs a [Table] from a canonical key → variants mapping.
//
// Keys and variants are lower-cased and trimmed; empty entries are skipped.
// Every key becomes its own variant. Keys are processed in sorted order and a
// variant claimed twice stays with the first key; the clash is reported by
// [Table.Conflicts]. A key always owns itself, even if an earlier key listed
// it as a variant.
func Build(entries map[string][]string) *Table {
	t := &Table{
		variants: make(map[string][]string, len(entries)),
		owner:    make(map[string]string, len(entries)*4),
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		if k = normalize(k); k != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	// Keys claim themselves first so that "dal" can never be stolen by a
	// variant list elsewhere.
	for _, k := range keys {
		t.owner[k] = k
	}

	raw := make(map[string][]string, len(entries))
	for k, vs := range entries {
		nk := normalize(k)
		raw[nk] = append(raw[nk], vs...)
	}

	for _, k := range keys {
		set := []string{k}
		for _, v := range raw[k] {
			v = normalize(v)
			if v == "" {
				continue
			}
			if prev, ok := t.owner[v]; ok && prev != k {
				t.conflicts = append(t.conflicts, Conflict{Variant: v, Kept: prev, Dropped: k})
				continue
			}
			t.owner[v] = k
			set = append(set, v)
		}
		slices.Sort(set)
		t.variants[k] = slices.Compact(set)
	}

	t.all = slices.Sorted(maps.Keys(t.owner))
	return t
}

// Resolve returns the canonical key registered for variant. Lookup is exact
// after lower-casing and trimming.
func (t *Table) Resolve(variant string) (string, bool) {
	if t == nil || t.owner == nil {
		return "", false
	}
	k, ok := t.owner[normalize(variant)]
	return k, ok
}

// Variants returns a copy of the variants registered under key (the key
// included), or nil when the key is unknown.
func (t *Table) Variants(key string) []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.variants[normalize(key)])
}

// Keys returns every canonical key in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.variants))
}

// AllVariants returns every registered variant in sorted order. The returned
// slice is shared and must not be modified.
func (t *Table) AllVariants() []string {
	if t == nil {
		return nil
	}
	return t.all
}

// Len returns the number of canonical keys.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.variants)
}

// Conflicts returns the variant clashes detected during [Build].
func (t *Table) Conflicts() []Conflict {
	if t == nil {
		return nil
	}
	return slices.Clone(t.conflicts)
}

// Entries returns a fresh copy of the key → variants mapping, suitable for
// merging into another [Build] call.
func (t *Table) Entries() map[string][]string {
	out := make(map[string][]string, t.Len())
	if t == nil {
		return out
	}
	for k, vs := range t.variants {
		out[k] = slices.Clone(vs)
	}
	return out
}

// Merge returns a new [Table] containing the entries of t overlaid with extra.
// Variants listed under the same key are unioned.
func (t *Table) Merge(extra map[string][]string) *Table {
	entries := t.Entries()
	for k, vs := range extra {
		nk := normalize(k)
		entries[nk] = append(entries[nk], vs...)
	}
	return Build(entries)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Package types defines the shared value types used across voiceorder packages.
//
// These types form the lingua franca between the transcript pipeline, the
// catalog sources, the HTTP layer and the order publisher. They are
// intentionally minimal. Each package defines its own intermediate types,
// but data that crosses package boundaries lives here to avoid circular imports.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transcript represents a final speech-to-text result handed to the resolver.
// Speech capture and transcription happen outside this module.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string `json:"text"`

	// Confidence is the overall confidence score (0.0–1.0) reported by the STT
	// provider. May be zero if the provider does not report confidence.
	Confidence float64 `json:"confidence,omitempty"`

	// SpeakerID identifies the waiter who dictated the order, when known.
	SpeakerID string `json:"speaker_id,omitempty"`

	// Duration is the length of the utterance.
	Duration time.Duration `json:"duration,omitempty"`
}

// CatalogDish is a purchasable dish from the live catalog. The resolver only
// reads dishes; freshness of the snapshot is the caller's responsibility.
type CatalogDish struct {
	// ID is the catalog's identifier for the dish.
	ID string `json:"id" yaml:"id"`

	// Name is the dish's display name (e.g., "Chicken Biryani").
	Name string `json:"name" yaml:"name"`

	// Price is the current unit price.
	Price decimal.Decimal `json:"price" yaml:"price"`
}

// LineItem is a single resolved, catalog-backed entry of a [StructuredOrder].
type LineItem struct {
	// DishID is the catalog id of the matched dish. Never empty.
	DishID string `json:"dish_id"`

	// Name is the catalog name of the matched dish.
	Name string `json:"name"`

	// Quantity is the number of portions ordered (at least 1).
	Quantity int `json:"quantity"`

	// Price is the unit price copied from the catalog snapshot.
	Price decimal.Decimal `json:"price"`

	// Modifications are free-text requests such as "no onion" or "extra cheese".
	Modifications []string `json:"modifications"`
}

// StructuredOrder is the output of a successful resolution.
//
// A partial resolution is valid: LineItems holds everything that matched the
// catalog and Unresolved holds the spoken names that did not. Unresolved
// entries must be surfaced to a human before the order is submitted.
type StructuredOrder struct {
	// Table is the table number the order belongs to. Nil only on orders that
	// were not produced by the resolver.
	Table *int `json:"table"`

	// LineItems are the catalog-backed items, in spoken order.
	LineItems []LineItem `json:"line_items"`

	// Unresolved lists the spoken item names that could not be mapped to any
	// catalog dish.
	Unresolved []string `json:"unresolved"`
}

// Total returns the sum of price × quantity over all line items.
func (o *StructuredOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		total = total.Add(li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	return total
}

// IsPartial reports whether any spoken item could not be resolved.
func (o *StructuredOrder) IsPartial() bool {
	return len(o.Unresolved) > 0
}

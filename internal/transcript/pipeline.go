// Package transcript turns a waiter's dictated order into a structured,
// catalog-backed order.
//
// Speech-to-text output is rarely clean: numbers arrive as words, dish names
// are misheard ("chiken biryani", "rise"), and polite filler surrounds the
// useful part. The [Pipeline] runs the resolution stages in order:
//
//  1. Numeral normalisation ([numeral.Normalize]): lower-casing, filler
//     removal, number words to digits.
//  2. Segmentation ([segment.Segment]): table number, item phrases with
//     quantities, and modification clauses.
//  3. Alias resolution ([resolver.Resolver]): exact, fuzzy and phonetic
//     matching of each spoken name against the alias table.
//  4. Catalog reconciliation ([reconcile.Reconcile]): mapping canonical keys
//     onto the caller's catalog snapshot.
//  5. Assembly ([reconcile.Assemble]): the final order, or a
//     [*reconcile.ResolutionError].
//
// Each [Correction] records how a spoken name became an alias key, so
// callers can audit or display what the resolver changed.
package transcript

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/voiceorder/internal/alias"
	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/internal/reconcile"
	"github.com/MrWong99/voiceorder/internal/resolver"
	"github.com/MrWong99/voiceorder/internal/transcript/numeral"
	"github.com/MrWong99/voiceorder/internal/transcript/segment"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// Correction captures how a single spoken item name was resolved.
type Correction struct {
	// Original is the name as spoken, after normalisation.
	Original string `json:"original"`

	// Corrected is the canonical alias key, or empty when no alias matched.
	Corrected string `json:"corrected,omitempty"`

	// Confidence is the resolver's confidence in this substitution (0.0–1.0).
	Confidence float64 `json:"confidence"`

	// Method describes which alias stage produced the substitution. Well-known
	// values: "exact", "fuzzy", "phonetic", or empty when unmatched.
	Method resolver.Method `json:"method,omitempty"`
}

// Result is the full output of [Pipeline.Explain].
type Result struct {
	// Normalized is the transcript after numeral normalisation.
	Normalized string `json:"normalized"`

	// Corrections has one entry per spoken item phrase, in spoken order.
	Corrections []Correction `json:"corrections"`

	// Order is the assembled order. Nil when resolution failed.
	Order *types.StructuredOrder `json:"order,omitempty"`
}

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithResolver sets the alias resolver. Defaults to a resolver over
// [alias.Default] with the default threshold and no phonetic stage.
func WithResolver(r *resolver.Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithModificationScope sets how modification clauses attach to item
// phrases. Defaults to [segment.LastItemScope].
func WithModificationScope(s segment.ModificationScope) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.scope = s
		}
	}
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// Pipeline resolves transcripts into orders. It holds no per-call state and
// is safe for concurrent use. To change its settings build a new Pipeline.
type Pipeline struct {
	resolver *resolver.Resolver
	scope    segment.ModificationScope
	metrics  *observe.Metrics
}

// New constructs a [Pipeline] with the supplied options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, o := range opts {
		o(p)
	}
	if p.resolver == nil {
		p.resolver = resolver.New(alias.Default())
	}
	if p.scope == nil {
		p.scope = segment.LastItemScope
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Resolve turns text into an order against catalog. A missing table or an
// order with no catalog-backed item is reported as a
// [*reconcile.ResolutionError]; test it with [errors.Is] against
// [reconcile.ErrMissingTable] and [reconcile.ErrNoResolvableItems].
func (p *Pipeline) Resolve(ctx context.Context, text string, catalog []types.CatalogDish) (*types.StructuredOrder, error) {
	res, err := p.Explain(ctx, text, catalog)
	if err != nil {
		return nil, err
	}
	return res.Order, nil
}

// ResolveTranscript is [Pipeline.Resolve] for a full [types.Transcript]. The
// speaker is attached to the trace.
func (p *Pipeline) ResolveTranscript(ctx context.Context, t types.Transcript, catalog []types.CatalogDish) (*types.StructuredOrder, error) {
	if t.SpeakerID != "" {
		ctx = observe.ContextWithSpeaker(ctx, t.SpeakerID)
	}
	return p.Resolve(ctx, t.Text, catalog)
}

// Explain runs the pipeline and returns the intermediate corrections along
// with the order. On a resolution error the returned Result is still
// populated (Order is nil) so callers can show what was heard.
func (p *Pipeline) Explain(ctx context.Context, text string, catalog []types.CatalogDish) (*Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "transcript.Resolve")
	defer span.End()

	p.metrics.InFlightResolutions.Add(ctx, 1)
	defer p.metrics.InFlightResolutions.Add(ctx, -1)

	normalized := numeral.Normalize(text)
	table, phrases := segment.Segment(text, normalized, p.scope)
	items := p.resolver.ResolveAll(phrases)

	res := &Result{
		Normalized:  normalized,
		Corrections: make([]Correction, 0, len(items)),
	}
	for _, it := range items {
		p.metrics.RecordResolvedItem(ctx, string(it.Method))
		res.Corrections = append(res.Corrections, Correction{
			Original:   it.NameCandidate,
			Corrected:  it.CanonicalKey,
			Confidence: it.Confidence,
			Method:     it.Method,
		})
	}

	lines, unresolved := reconcile.Reconcile(items, catalog)
	order, err := reconcile.Assemble(table, lines, unresolved)

	span.SetAttributes(
		attribute.Int("order.phrases", len(phrases)),
		attribute.Int("order.line_items", len(lines)),
		attribute.Int("order.unresolved", len(unresolved)),
		attribute.Int("catalog.dishes", len(catalog)),
	)
	if table != nil {
		span.SetAttributes(attribute.Int("order.table", *table))
	}

	outcome := observe.OutcomeOK
	if err != nil {
		outcome = outcomeOf(err)
		span.SetStatus(codes.Error, err.Error())
	} else if order.IsPartial() {
		outcome = observe.OutcomePartial
	}
	p.metrics.RecordResolution(ctx, outcome, time.Since(start).Seconds(), len(unresolved))

	log := observe.Logger(ctx)
	if err != nil {
		log.Info("transcript not resolved", "outcome", outcome, "phrases", len(phrases), "unresolved", unresolved)
		return res, err
	}
	log.Debug("transcript resolved",
		"table", *order.Table,
		"line_items", len(order.LineItems),
		"unresolved", len(order.Unresolved),
	)
	res.Order = order
	return res, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrMissingTable):
		return observe.OutcomeMissingTable
	case errors.Is(err, reconcile.ErrNoResolvableItems):
		return observe.OutcomeNoResolvableItems
	}
	return "error"
}

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// Instrumented wraps a [Source] and records fetch latency, snapshot size and
// errors under the given source name.
type Instrumented struct {
	src     Source
	name    string
	metrics *observe.Metrics
}

// Compile-time assertion that Instrumented satisfies the Source interface.
var _ Source = (*Instrumented)(nil)

// NewInstrumented wraps src. A nil metrics uses [observe.DefaultMetrics].
func NewInstrumented(src Source, name string, metrics *observe.Metrics) *Instrumented {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Instrumented{src: src, name: name, metrics: metrics}
}

// List implements [Source.List].
func (s *Instrumented) List(ctx context.Context) ([]types.CatalogDish, error) {
	ctx, span := observe.StartSpan(ctx, "catalog.List")
	defer span.End()

	start := time.Now()
	dishes, err := s.src.List(ctx)
	s.metrics.RecordCatalogFetch(ctx, s.name, time.Since(start).Seconds(), len(dishes), err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("catalog: list %s: %w", s.name, err)
	}
	return dishes, nil
}

// Ping forwards to the wrapped source when it supports it.
func (s *Instrumented) Ping(ctx context.Context) error {
	if p, ok := s.src.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.src.List(ctx)
	return err
}

package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/voiceorder/internal/catalog"
	"github.com/MrWong99/voiceorder/internal/submit"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// Compile-time interface checks.
var (
	_ catalog.Source   = (*Source)(nil)
	_ submit.Publisher = (*Publisher)(nil)
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Source guards a catalog [catalog.Source] with a [Breaker].
type Source struct {
	next    catalog.Source
	breaker *Breaker
}

// NewSource wraps next. cfg.Name defaults to "catalog".
func NewSource(next catalog.Source, cfg Config) *Source {
	if cfg.Name == "" {
		cfg.Name = "catalog"
	}
	return &Source{next: next, breaker: New(cfg)}
}

// List implements [catalog.Source].
func (s *Source) List(ctx context.Context) ([]types.CatalogDish, error) {
	var dishes []types.CatalogDish
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		dishes, err = s.next.List(ctx)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("catalog unavailable: %w", err)
	}
	return dishes, err
}

// Ping reports the breaker as unhealthy while it is open, and otherwise
// forwards to the wrapped source when it can be pinged.
func (s *Source) Ping(ctx context.Context) error {
	if s.breaker.State() == StateOpen {
		return ErrCircuitOpen
	}
	if p, ok := s.next.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Breaker exposes the breaker for inspection.
func (s *Source) Breaker() *Breaker { return s.breaker }

// Publisher guards a [submit.Publisher] with a [Breaker]. Order validation
// errors never count against the broker.
type Publisher struct {
	next    submit.Publisher
	breaker *Breaker
}

// NewPublisher wraps next. cfg.Name defaults to "broker" and cfg.IsFailure
// defaults to [IsBrokerFailure].
func NewPublisher(next submit.Publisher, cfg Config) *Publisher {
	if cfg.Name == "" {
		cfg.Name = "broker"
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsBrokerFailure
	}
	return &Publisher{next: next, breaker: New(cfg)}
}

// IsBrokerFailure reports whether err from a publisher points at the broker
// rather than at the order.
func IsBrokerFailure(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, submit.ErrNoTable),
		errors.Is(err, submit.ErrEmptyOrder),
		errors.Is(err, submit.ErrUnconfirmed):
		return false
	}
	return true
}

// Publish implements [submit.Publisher].
func (p *Publisher) Publish(ctx context.Context, order *types.StructuredOrder, confirmed bool) (submit.Receipt, error) {
	var receipt submit.Receipt
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		receipt, err = p.next.Publish(ctx, order, confirmed)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return submit.Receipt{}, fmt.Errorf("submit: broker unavailable: %w", err)
	}
	return receipt, err
}

// Ping reports the breaker as unhealthy while it is open, and otherwise
// forwards to the wrapped publisher when it can be pinged.
func (p *Publisher) Ping(ctx context.Context) error {
	if p.breaker.State() == StateOpen {
		return ErrCircuitOpen
	}
	if pp, ok := p.next.(pinger); ok {
		return pp.Ping(ctx)
	}
	return nil
}

// Breaker exposes the breaker for inspection.
func (p *Publisher) Breaker() *Breaker { return p.breaker }

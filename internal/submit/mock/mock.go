// Package mock provides an in-memory test double for the [submit.Publisher]
// interface.
//
// [Publisher] records every published order and exposes exported fields that
// control what the mock returns. It is safe for concurrent use.
//
// Typical usage:
//
//	p := &mock.Publisher{}
//	p.PublishErr = submit.ErrNacked
//
//	// inject p into the system under test …
//
//	if got := len(p.Published()); got != 1 {
//	    t.Errorf("expected 1 published order, got %d", got)
//	}
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/voiceorder/internal/submit"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// Compile-time interface check.
var _ submit.Publisher = (*Publisher)(nil)

// Publisher is a configurable test double for [submit.Publisher]. It applies
// the same validation as the real publisher through [submit.NewMessage].
type Publisher struct {
	mu sync.Mutex

	published []submit.Message
	seq       int

	// PublishErr is returned by [Publisher.Publish] when non-nil, after
	// validation passed.
	PublishErr error

	// PingErr is returned by [Publisher.Ping] when non-nil.
	PingErr error
}

// Publish implements [submit.Publisher]. Order ids are "order-1", "order-2"
// and so on.
func (p *Publisher) Publish(_ context.Context, order *types.StructuredOrder, confirmed bool) (submit.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	msg, err := submit.NewMessage(order, fmt.Sprintf("order-%d", p.seq), confirmed, time.Now())
	if err != nil {
		return submit.Receipt{}, err
	}
	if p.PublishErr != nil {
		return submit.Receipt{}, p.PublishErr
	}
	p.published = append(p.published, msg)
	return submit.Receipt{
		OrderID:    msg.OrderID,
		RoutingKey: submit.RoutingKey(msg.TableNumber),
		Priority:   msg.Priority,
	}, nil
}

// Ping returns PingErr.
func (p *Publisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PingErr
}

// Published returns a copy of every successfully published message.
func (p *Publisher) Published() []submit.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]submit.Message, len(p.published))
	copy(out, p.published)
	return out
}

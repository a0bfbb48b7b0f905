package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/voiceorder/internal/observe"
	"github.com/MrWong99/voiceorder/pkg/types"
)

// Compile-time interface check.
var _ Publisher = (*AMQPPublisher)(nil)

// confirmBuffer holds confirms of publishes whose callers gave up waiting so
// the connection never blocks on them.
const confirmBuffer = 16

// AMQPOption is a functional option for [DialAMQP].
type AMQPOption func(*AMQPPublisher)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) AMQPOption {
	return func(p *AMQPPublisher) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithIDGenerator overrides how order ids are generated. Defaults to
// [uuid.NewString].
func WithIDGenerator(f func() string) AMQPOption {
	return func(p *AMQPPublisher) {
		if f != nil {
			p.newID = f
		}
	}
}

// AMQPPublisher publishes orders to a RabbitMQ topic exchange and waits for
// a publisher confirm for every message. Publishes are serialised on one
// channel; it is safe for concurrent use.
type AMQPPublisher struct {
	exchange string
	metrics  *observe.Metrics
	newID    func() string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms <-chan amqp.Confirmation
}

// DialAMQP connects to the broker at url, declares exchange as a durable
// topic exchange and enables publisher confirms.
func DialAMQP(url, exchange string, opts ...AMQPOption) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		exchange: exchange,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("submit: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("submit: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("submit: declare exchange %q: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("submit: enable confirms: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))
	return p, nil
}

// Publish implements [Publisher].
func (p *AMQPPublisher) Publish(ctx context.Context, order *types.StructuredOrder, confirmed bool) (Receipt, error) {
	ctx, span := observe.StartSpan(ctx, "submit.Publish")
	defer span.End()

	start := time.Now()
	receipt, err := p.publish(ctx, order, confirmed, start)

	status := "ok"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.String("order.id", receipt.OrderID),
			attribute.String("messaging.destination.routing_key", receipt.RoutingKey),
		)
	}
	p.metrics.RecordPublish(ctx, status, time.Since(start).Seconds())
	return receipt, err
}

func (p *AMQPPublisher) publish(ctx context.Context, order *types.StructuredOrder, confirmed bool, now time.Time) (Receipt, error) {
	msg, err := NewMessage(order, p.newID(), confirmed, now)
	if err != nil {
		return Receipt{}, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: marshal order: %w", err)
	}
	key := RoutingKey(msg.TableNumber)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.conn.IsClosed() {
		return Receipt{}, errors.New("submit: broker connection is closed")
	}

	seq := p.ch.GetNextPublishSeqNo()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     msg.OrderID,
		CorrelationId: observe.CorrelationID(ctx),
		Timestamp:     msg.PlacedAt,
		Priority:      msg.Priority,
		Headers:       amqp.Table{"x-source": "voiceorder"},
		Body:          body,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("submit: publish to %q: %w", p.exchange, err)
	}

	if err := p.awaitConfirm(ctx, seq); err != nil {
		return Receipt{}, err
	}

	observe.Logger(ctx).Info("order published",
		"order_id", msg.OrderID,
		"routing_key", key,
		"items", len(msg.Items),
	)
	return Receipt{OrderID: msg.OrderID, RoutingKey: key, Priority: msg.Priority}, nil
}

// awaitConfirm waits for the confirm of delivery tag seq. Confirms left
// over from publishes that timed out are skipped.
func (p *AMQPPublisher) awaitConfirm(ctx context.Context, seq uint64) error {
	for {
		select {
		case conf, ok := <-p.confirms:
			if !ok {
				return errors.New("submit: broker connection closed before confirm")
			}
			if conf.DeliveryTag < seq {
				continue
			}
			if !conf.Ack {
				return ErrNacked
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("submit: wait for confirm: %w", ctx.Err())
		}
	}
}

// Ping reports whether the broker connection is open.
func (p *AMQPPublisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("submit: broker connection is closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

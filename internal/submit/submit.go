// Package submit forwards confirmed orders to the kitchen.
//
// Orders are published as JSON [Message] values to a topic exchange with the
// routing key "kitchen.dine_in.<table>", so kitchen displays can bind to all
// tables ("kitchen.dine_in.*") or a single section.
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrWong99/voiceorder/pkg/types"
)

// OrderTypeDineIn is the only order type a dictated table order can have.
const OrderTypeDineIn = "dine_in"

// Sentinel errors returned by [NewMessage] and publishers.
var (
	// ErrNoTable is returned for orders without a table number.
	ErrNoTable = errors.New("submit: order has no table")

	// ErrEmptyOrder is returned for orders without line items.
	ErrEmptyOrder = errors.New("submit: order has no line items")

	// ErrUnconfirmed is returned when an order with unresolved names is
	// submitted without the waiter's confirmation.
	ErrUnconfirmed = errors.New("submit: order has unresolved items and was not confirmed")

	// ErrNacked is returned when the broker refuses a message.
	ErrNacked = errors.New("submit: broker rejected the order")
)

// Publisher sends orders to the kitchen.
//
// Implementations must be safe for concurrent use.
type Publisher interface {
	// Publish sends order and returns where it was routed. Orders with
	// unresolved names must be rejected with [ErrUnconfirmed] unless
	// confirmed is true.
	Publish(ctx context.Context, order *types.StructuredOrder, confirmed bool) (Receipt, error)
}

// Receipt identifies a published order.
type Receipt struct {
	// OrderID is the id assigned to the order.
	OrderID string `json:"order_id"`

	// RoutingKey is the key the order was published with.
	RoutingKey string `json:"routing_key"`

	// Priority is the delivery priority derived from the order total.
	Priority uint8 `json:"priority"`
}

// Message is the wire format of a published order.
type Message struct {
	OrderID     string           `json:"order_id"`
	OrderType   string           `json:"order_type"`
	TableNumber int              `json:"table_number"`
	Items       []types.LineItem `json:"items"`
	Unresolved  []string         `json:"unresolved"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Priority    uint8            `json:"priority"`
	PlacedAt    time.Time        `json:"placed_at"`
}

// NewMessage validates order and converts it into a [Message].
func NewMessage(order *types.StructuredOrder, orderID string, confirmed bool, now time.Time) (Message, error) {
	if order == nil || order.Table == nil {
		return Message{}, ErrNoTable
	}
	if len(order.LineItems) == 0 {
		return Message{}, ErrEmptyOrder
	}
	if order.IsPartial() && !confirmed {
		return Message{}, fmt.Errorf("%w: %q", ErrUnconfirmed, order.Unresolved)
	}
	unresolved := order.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	total := order.Total()
	return Message{
		OrderID:     orderID,
		OrderType:   OrderTypeDineIn,
		TableNumber: *order.Table,
		Items:       order.LineItems,
		Unresolved:  unresolved,
		TotalAmount: total,
		Priority:    Priority(total),
		PlacedAt:    now.UTC(),
	}, nil
}

// RoutingKey returns the routing key for an order at table.
func RoutingKey(table int) string {
	return fmt.Sprintf("kitchen.%s.%d", OrderTypeDineIn, table)
}

var (
	highPriorityTotal   = decimal.NewFromInt(1000)
	mediumPriorityTotal = decimal.NewFromInt(500)
)

// Priority maps an order total onto an AMQP message priority: 10 for large
// orders, 5 for medium ones and 1 otherwise.
func Priority(total decimal.Decimal) uint8 {
	switch {
	case total.GreaterThanOrEqual(highPriorityTotal):
		return 10
	case total.GreaterThanOrEqual(mediumPriorityTotal):
		return 5
	}
	return 1
}

package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrWong99/voiceorder/internal/catalog"
	"github.com/MrWong99/voiceorder/internal/resilience"
	"github.com/MrWong99/voiceorder/internal/submit"
	"github.com/MrWong99/voiceorder/internal/submit/mock"
	"github.com/MrWong99/voiceorder/pkg/types"
)

type flakySource struct {
	err   error
	calls int
}

func (s *flakySource) List(context.Context) ([]types.CatalogDish, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []types.CatalogDish{{ID: "r1", Name: "Rice", Price: decimal.NewFromInt(40)}}, nil
}

func TestSource_OpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()
	next := &flakySource{err: errors.New("connection refused")}
	src := resilience.NewSource(next, resilience.Config{MaxFailures: 2, ResetTimeout: time.Hour})
	ctx := context.Background()

	for range 2 {
		if _, err := src.List(ctx); err == nil {
			t.Fatal("expected error")
		}
	}
	_, err := src.List(ctx)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2", next.calls)
	}
	if err := src.Ping(ctx); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Ping = %v, want ErrCircuitOpen", err)
	}
}

func TestSource_PassesThrough(t *testing.T) {
	t.Parallel()
	src := resilience.NewSource(catalog.NewMemStore(), resilience.Config{})

	dishes, err := src.List(context.Background())
	if err != nil || len(dishes) != 0 {
		t.Errorf("List = %v, %v", dishes, err)
	}
	if err := src.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v", err)
	}
	if src.Breaker().State() != resilience.StateClosed {
		t.Errorf("state = %v", src.Breaker().State())
	}
}

func TestPublisher_ValidationErrorsDoNotTrip(t *testing.T) {
	t.Parallel()
	next := &mock.Publisher{}
	pub := resilience.NewPublisher(next, resilience.Config{MaxFailures: 1, ResetTimeout: time.Hour})
	ctx := context.Background()

	for range 3 {
		if _, err := pub.Publish(ctx, &types.StructuredOrder{}, false); !errors.Is(err, submit.ErrNoTable) {
			t.Fatalf("err = %v, want ErrNoTable", err)
		}
	}
	if pub.Breaker().State() != resilience.StateClosed {
		t.Fatalf("state = %v, want closed", pub.Breaker().State())
	}

	table := 3
	order := &types.StructuredOrder{
		Table:      &table,
		LineItems:  []types.LineItem{{DishID: "r1", Name: "Rice", Quantity: 1, Price: decimal.NewFromInt(40), Modifications: []string{}}},
		Unresolved: []string{},
	}
	receipt, err := pub.Publish(ctx, order, false)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if receipt.RoutingKey != "kitchen.dine_in.3" {
		t.Errorf("RoutingKey = %q", receipt.RoutingKey)
	}

	next.PublishErr = submit.ErrNacked
	if _, err := pub.Publish(ctx, order, false); !errors.Is(err, submit.ErrNacked) {
		t.Fatalf("err = %v, want ErrNacked", err)
	}
	if _, err := pub.Publish(ctx, order, false); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestIsBrokerFailure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{submit.ErrUnconfirmed, false},
		{submit.ErrEmptyOrder, false},
		{submit.ErrNacked, true},
		{context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		if got := resilience.IsBrokerFailure(tt.err); got != tt.want {
			t.Errorf("IsBrokerFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

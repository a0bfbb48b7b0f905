// Package resilience keeps a failing dependency from stalling order
// resolution.
//
// [Breaker] is a three-state circuit breaker (closed, open, half-open). Once a
// dependency has failed MaxFailures times in a row, calls are rejected with
// [ErrCircuitOpen] for ResetTimeout. After that a limited number of probe
// calls decide whether it closes again. [Source] and [Publisher] put a
// breaker in front of the catalog and the kitchen broker so a dead database
// or broker answers in microseconds instead of after a request timeout.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls until the reset timeout has passed.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a [Breaker]. Zero fields take defaults.
type Config struct {
	// Name labels log lines, e.g. "catalog" or "broker".
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close the
	// breaker again, and the number of probes let through. Default: 3.
	HalfOpenMax int

	// IsFailure decides whether an error counts against the dependency.
	// Default: every non-nil error except context cancellation.
	IsFailure func(error) bool

	// OnStateChange, when set, is called after every transition. It runs
	// with the breaker's lock held and must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probes    int
	probeWins int
}

// New returns a closed [Breaker].
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// Do runs fn when the breaker allows it. A rejected call returns
// [ErrCircuitOpen] without running fn. Errors from fn are returned as is.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	halfOpen, err := b.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(halfOpen, err)
	return err
}

// admit decides whether a call may proceed and whether it is a probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		b.probes, b.probeWins = 0, 0
		b.transition(StateHalfOpen)
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenMax {
			return false, ErrCircuitOpen
		}
	}
	if b.state == StateHalfOpen {
		b.probes++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.IsFailure(err) {
		if probe || b.state == StateHalfOpen {
			b.trip()
			return
		}
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.trip()
		}
		return
	}

	if !probe {
		b.failures = 0
		return
	}
	// A probe admitted before a concurrent probe re-opened the breaker.
	if b.state != StateHalfOpen {
		return
	}
	b.probeWins++
	if b.probeWins >= b.cfg.HalfOpenMax {
		b.failures = 0
		b.transition(StateClosed)
	}
}

// trip opens the breaker. Callers hold b.mu.
func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.failures = 0
	if b.state != StateOpen {
		b.transition(StateOpen)
	}
}

// transition changes state and reports it. Callers hold b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	switch to {
	case StateOpen:
		slog.Warn("circuit breaker opened", "name", b.cfg.Name, "from", from.String())
	default:
		slog.Info("circuit breaker state changed", "name", b.cfg.Name, "from", from.String(), "to", to.String())
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// State reports the breaker's state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen]; the transition itself happens on the next
// call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures, b.probes, b.probeWins = 0, 0, 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

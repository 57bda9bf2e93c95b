package prediction

import (
	"sync"
	"time"

	"github.com/saferoute/backend/internal/domain"
)

// State is the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker guards calls to the unreliable prediction service. Transitions are
// evaluated lazily on each call; there is no background timer. The clock is
// injectable so tests never sleep.
type Breaker struct {
	threshold int
	coolDown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed breaker that opens after threshold consecutive
// failures and allows a probe once coolDown has elapsed. A nil clock uses
// time.Now.
func NewBreaker(threshold int, coolDown time.Duration, clock func() time.Time) *Breaker {
	if clock == nil {
		clock = time.Now
	}
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		coolDown:  coolDown,
		now:       clock,
	}
}

// Allow reports whether a call may proceed. While open it short-circuits
// with domain.ErrPredictionUnavailable until the cool-down elapses, then
// moves to half-open and lets exactly one probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		// A probe is already in flight
		return domain.ErrPredictionUnavailable
	default:
		if b.now().Sub(b.openedAt) >= b.coolDown {
			b.state = StateHalfOpen
			return nil
		}
		return domain.ErrPredictionUnavailable
	}
}

// RecordSuccess closes the breaker and resets the failure counter
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = StateClosed
}

// RecordFailure counts a consecutive failure; the half-open probe failing or
// the counter reaching the threshold reopens the circuit with a fresh
// cool-down.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = b.now()
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
		b.failures = 0
	}
}

// Do runs fn under breaker protection
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// State returns the current state, applying any pending lazy transition
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.coolDown {
		return StateHalfOpen
	}
	return b.state
}

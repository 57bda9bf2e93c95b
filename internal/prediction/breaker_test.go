package prediction

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saferoute/backend/internal/domain"
)

// fakeClock advances only when told, so breaker and cache tests never sleep
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(3, 5*time.Minute, clock.Now)

	t.Run("stays closed below the threshold", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			assert.NoError(t, b.Allow())
			b.RecordFailure()
		}
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("opens on exactly the threshold failure", func(t *testing.T) {
		assert.NoError(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())
		assert.ErrorIs(t, b.Allow(), domain.ErrPredictionUnavailable)
	})
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(3, 5*time.Minute, clock.Now)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	// Two consecutive failures after the reset: still closed
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerCoolDown(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(3, 5*time.Minute, clock.Now)
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	t.Run("one millisecond before expiry is short-circuited", func(t *testing.T) {
		clock.Advance(5*time.Minute - time.Millisecond)
		assert.ErrorIs(t, b.Allow(), domain.ErrPredictionUnavailable)
	})

	t.Run("one millisecond after expiry is attempted", func(t *testing.T) {
		clock.Advance(2 * time.Millisecond)
		assert.NoError(t, b.Allow())
	})

	t.Run("only one probe passes while half-open", func(t *testing.T) {
		assert.ErrorIs(t, b.Allow(), domain.ErrPredictionUnavailable)
	})

	t.Run("failed probe restarts the cool-down", func(t *testing.T) {
		b.RecordFailure()
		assert.Equal(t, StateOpen, b.State())

		clock.Advance(5*time.Minute - time.Millisecond)
		assert.ErrorIs(t, b.Allow(), domain.ErrPredictionUnavailable)

		clock.Advance(time.Millisecond)
		assert.NoError(t, b.Allow())
		b.RecordSuccess()
		assert.Equal(t, StateClosed, b.State())
	})
}

func TestBreakerDo(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(2, time.Minute, clock.Now)
	boom := errors.New("boom")

	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do(func() error { return nil }), domain.ErrPredictionUnavailable)

	clock.Advance(time.Minute)
	assert.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

package prediction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, clock *fakeClock) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		ServiceURL:  srv.URL,
		CallTimeout: 2 * time.Second,
		Breaker:     NewBreaker(3, 5*time.Minute, clock.Now),
		Cache:       NewCache(NewMemoryStore(clock.Now), 5*time.Minute),
		BatchSize:   2,
	})
	return c, srv
}

func predictionHandler(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prediction":{"prediction":0.42,"confidence":0.85}}`))
	}
}

func TestPredictCaching(t *testing.T) {
	var calls int32
	clock := newFakeClock()
	c, _ := newTestClient(t, predictionHandler(&calls), clock)

	src := domain.Point{Lat: 38.900000, Lon: -77.020000}
	dst := domain.Point{Lat: 38.930000, Lon: -77.000000}

	t.Run("coordinates differing beyond the rounding precision share a cache entry", func(t *testing.T) {
		v1, err := c.Predict(context.Background(), src, dst)
		require.NoError(t, err)

		jittered := domain.Point{Lat: src.Lat + 4e-8, Lon: src.Lon - 4e-8}
		v2, err := c.Predict(context.Background(), jittered, dst)
		require.NoError(t, err)

		assert.Equal(t, v1, v2)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("TTL expiry triggers a fresh fetch", func(t *testing.T) {
		clock.Advance(5 * time.Minute)
		_, err := c.Predict(context.Background(), src, dst)
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("invalid coordinates are rejected before any call", func(t *testing.T) {
		_, err := c.Predict(context.Background(), domain.Point{}, dst)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}

func TestPredictFailuresTripBreaker(t *testing.T) {
	clock := newFakeClock()
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, clock)

	src := domain.Point{Lat: 38.9, Lon: -77.02}
	dst := domain.Point{Lat: 38.93, Lon: -77.0}

	for i := 0; i < 3; i++ {
		_, err := c.Predict(context.Background(), src, dst)
		assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
	}
	assert.Equal(t, StateOpen, c.BreakerState())

	// Open circuit short-circuits without a network attempt
	_, err := c.Predict(context.Background(), src, dst)
	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPredictMalformedBodyIsFailure(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prediction":`))
	}, clock)

	_, err := c.Predict(context.Background(), domain.Point{Lat: 38.9, Lon: -77.02}, domain.Point{Lat: 38.93, Lon: -77.0})
	assert.ErrorIs(t, err, domain.ErrPredictionUnavailable)
}

func TestEnrichBatch(t *testing.T) {
	t.Run("partial failure falls back per point", func(t *testing.T) {
		clock := newFakeClock()
		var calls int32
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if n%2 == 0 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"prediction":{"prediction":0.42,"confidence":0.85}}`))
		}, clock)

		pairs := make([]domain.PredictionRequest, 4)
		for i := range pairs {
			// Distinct keys so the cache cannot serve any of them
			pairs[i] = domain.PredictionRequest{
				Source:      domain.Point{Lat: 38.9 + float64(i)*0.01, Lon: -77.02},
				Destination: domain.Point{Lat: 38.93, Lon: -77.0},
			}
		}

		out := c.EnrichBatch(context.Background(), pairs, func(i int) float64 { return float64(i) })
		require.Len(t, out, 4)

		fallbacks := 0
		for i, e := range out {
			if e.Fallback {
				fallbacks++
				assert.Equal(t, float64(i), e.Value)
			} else {
				assert.Equal(t, 0.42, e.Value)
			}
		}
		assert.Equal(t, 2, fallbacks)
	})

	t.Run("order matches input", func(t *testing.T) {
		clock := newFakeClock()
		c, _ := newTestClient(t, predictionHandler(new(int32)), clock)

		pairs := make([]domain.PredictionRequest, 5)
		for i := range pairs {
			pairs[i] = domain.PredictionRequest{
				Source:      domain.Point{Lat: 40 + float64(i), Lon: -70},
				Destination: domain.Point{Lat: 41, Lon: -71},
			}
		}
		out := c.EnrichBatch(context.Background(), pairs, func(int) float64 { return 0 })
		require.Len(t, out, 5)
		for i, e := range out {
			assert.Equal(t, pairs[i].Source, e.Point)
		}
	})
}

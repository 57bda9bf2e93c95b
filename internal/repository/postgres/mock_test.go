package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/backend/internal/domain"
)

func TestMockFindNear(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects invalid coordinates before querying", func(t *testing.T) {
		repo := NewMockRepository()
		_, err := repo.FindNear(ctx, domain.Point{Lat: 95, Lon: 0.1}, 300, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation)

		_, err = repo.FindNear(ctx, domain.Point{}, 300, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation)
	})

	t.Run("rejects non-positive radius", func(t *testing.T) {
		repo := NewMockRepository()
		_, err := repo.FindNear(ctx, domain.Point{Lat: 38.9, Lon: -77.02}, 0, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation)
	})

	t.Run("zero results is a valid outcome, not an error", func(t *testing.T) {
		repo := NewMockRepository()
		// Middle of the Pacific
		results, err := repo.FindNear(ctx, domain.Point{Lat: 0.1, Lon: -150}, 300, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("filters records with unusable locations", func(t *testing.T) {
		repo := NewMockRepositoryWith([]domain.Incident{
			{ID: "good", Location: domain.Point{Lat: 38.9, Lon: -77.02}},
			{ID: "zeroed", Location: domain.Point{}},
			{ID: "out-of-range", Location: domain.Point{Lat: 138.9, Lon: -77.02}},
		})
		results, err := repo.FindNear(ctx, domain.Point{Lat: 38.9, Lon: -77.02}, 500, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "good", results[0].ID)
	})

	t.Run("applies the time window", func(t *testing.T) {
		loc := domain.Point{Lat: 38.9, Lon: -77.02}
		repo := NewMockRepositoryWith([]domain.Incident{
			{ID: "old", Location: loc, ReportedAt: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "recent", Location: loc, ReportedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		})
		window := &domain.TimeWindow{
			From: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		results, err := repo.FindNear(ctx, loc, 100, window)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "recent", results[0].ID)
	})
}

func TestMockFindNearBatch(t *testing.T) {
	loc := domain.Point{Lat: 38.9, Lon: -77.02}
	far := domain.Point{Lat: 38.99, Lon: -76.9}
	repo := NewMockRepositoryWith([]domain.Incident{{ID: "a", Location: loc}})

	results, err := repo.FindNearBatch(context.Background(), []domain.Point{loc, far}, 200, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0], 1)
	assert.Empty(t, results[1])
}

func TestMockFindWithinBounds(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()

	t.Run("rejects an inverted box", func(t *testing.T) {
		_, err := repo.FindWithinBounds(ctx, domain.Bounds{
			MinLat: 39, MinLon: -77, MaxLat: 38, MaxLon: -76,
		}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation)
	})

	t.Run("returns the downtown seed set", func(t *testing.T) {
		results, err := repo.FindWithinBounds(ctx, domain.Bounds{
			MinLat: 38.88, MinLon: -77.05, MaxLat: 38.94, MaxLon: -76.99,
		}, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, results)
	})
}

func TestBoundingBox(t *testing.T) {
	points := []domain.Point{
		{Lat: 38.90, Lon: -77.02},
		{Lat: 38.93, Lon: -77.00},
	}
	b := boundingBox(points, 150)

	assert.Less(t, b.MinLat, 38.90)
	assert.Greater(t, b.MaxLat, 38.93)
	assert.Less(t, b.MinLon, -77.02)
	assert.Greater(t, b.MaxLon, -77.00)
	assert.True(t, b.Valid())
}

package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/internal/repository/postgres"
)

// routeA runs past downtown incidents, routeB swings east around them
var (
	routeA = domain.RouteCandidate{
		ProviderID: "route-a",
		Geometry:   testPoly,
		DistanceKm: 3.4, DurationMin: 10,
	}
	routeB = domain.RouteCandidate{
		ProviderID: "route-b",
		Geometry: []domain.Point{
			{Lat: 38.900, Lon: -77.000},
			{Lat: 38.910, Lon: -77.000},
			{Lat: 38.920, Lon: -77.000},
			{Lat: 38.930, Lon: -77.000},
		},
		DistanceKm: 3.4, DurationMin: 12,
	}
)

func TestRecommend(t *testing.T) {
	ctx := context.Background()

	t.Run("zero candidates surfaces no-route-found", func(t *testing.T) {
		rec := NewRecommender(NewEvaluator(postgres.NewMockRepositoryWith(nil), 150, nil), 3)
		_, err := rec.Recommend(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrNoRouteFound)
	})

	t.Run("lower risk wins even when slower", func(t *testing.T) {
		// 2 property-only + 1 fatal along route A, nothing along B
		repo := postgres.NewMockRepositoryWith([]domain.Incident{
			propertyAt("p1", domain.Point{Lat: 38.9002, Lon: -77.0201}),
			propertyAt("p2", domain.Point{Lat: 38.9103, Lon: -77.0199}),
			fatalAt("f1", domain.Point{Lat: 38.9201, Lon: -77.0200}),
		})
		rec := NewRecommender(NewEvaluator(repo, 150, nil), 3)

		// Route B is 2 minutes slower and still wins
		out, err := rec.Recommend(ctx, []domain.RouteCandidate{routeA, routeB})
		require.NoError(t, err)
		assert.Equal(t, "route-b", out.Recommended.ProviderID)
		require.Len(t, out.Ranked, 2)
		assert.Equal(t, "route-a", out.Ranked[1].ProviderID)
		assert.Greater(t, out.Ranked[1].NormalizedRisk, out.Ranked[0].NormalizedRisk)
	})

	t.Run("equal risk per unit length ties break on duration", func(t *testing.T) {
		rec := NewRecommender(NewEvaluator(postgres.NewMockRepositoryWith(nil), 150, nil), 3)

		slow := routeA
		slow.ProviderID = "slow"
		slow.DurationMin = 18
		fast := routeB
		fast.ProviderID = "fast"
		fast.DurationMin = 12

		out, err := rec.Recommend(ctx, []domain.RouteCandidate{slow, fast})
		require.NoError(t, err)
		assert.Equal(t, "fast", out.Recommended.ProviderID)
	})

	t.Run("recommendation is never simply index zero", func(t *testing.T) {
		// The risky route is listed first; ranking must reorder it
		repo := postgres.NewMockRepositoryWith([]domain.Incident{
			fatalAt("f1", domain.Point{Lat: 38.9201, Lon: -77.0200}),
		})
		rec := NewRecommender(NewEvaluator(repo, 150, nil), 3)

		out, err := rec.Recommend(ctx, []domain.RouteCandidate{routeA, routeB})
		require.NoError(t, err)
		assert.Equal(t, "route-b", out.Recommended.ProviderID)
	})

	t.Run("normalization divides by route length", func(t *testing.T) {
		repo := postgres.NewMockRepositoryWith([]domain.Incident{
			propertyAt("p1", domain.Point{Lat: 38.9002, Lon: -77.0201}),
		})
		rec := NewRecommender(NewEvaluator(repo, 150, nil), 3)

		out, err := rec.Recommend(ctx, []domain.RouteCandidate{routeA})
		require.NoError(t, err)
		sc := out.Recommended
		assert.InDelta(t, sc.Risk.CorridorScore/sc.DistanceKm, sc.NormalizedRisk, 1e-3)
	})
}

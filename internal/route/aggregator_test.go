package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/internal/repository/postgres"
)

func fatalAt(id string, p domain.Point) domain.Incident {
	return domain.Incident{
		ID:            id,
		Location:      p,
		TotalVehicles: 1,
		Casualties: domain.Casualties{
			Drivers: domain.ModeCounts{Fatal: 1},
		},
	}
}

func propertyAt(id string, p domain.Point) domain.Incident {
	return domain.Incident{ID: id, Location: p, TotalVehicles: 2}
}

// straight south-north polyline through downtown
var testPoly = []domain.Point{
	{Lat: 38.900, Lon: -77.020},
	{Lat: 38.910, Lon: -77.020},
	{Lat: 38.920, Lon: -77.020},
	{Lat: 38.930, Lon: -77.020},
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("degenerate geometry yields a zero result", func(t *testing.T) {
		repo := postgres.NewMockRepositoryWith(nil)
		eval := NewEvaluator(repo, 150, nil)

		res, err := eval.Evaluate(ctx, domain.RouteCandidate{Geometry: testPoly[:1]})
		require.NoError(t, err)
		assert.Empty(t, res.SegmentDensities)
		assert.Zero(t, res.CorridorScore)
		assert.Zero(t, res.Summary.Count)
	})

	t.Run("clean corridor scores zero with full-length densities", func(t *testing.T) {
		repo := postgres.NewMockRepositoryWith(nil)
		eval := NewEvaluator(repo, 150, nil)

		res, err := eval.Evaluate(ctx, domain.RouteCandidate{Geometry: testPoly})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 0}, res.SegmentDensities)
		assert.Zero(t, res.CorridorScore)
	})

	t.Run("densities are counts and corridor score is weighted", func(t *testing.T) {
		// Two property-only crashes near segment 0, one fatal near segment 2
		repo := postgres.NewMockRepositoryWith([]domain.Incident{
			propertyAt("p1", domain.Point{Lat: 38.9002, Lon: -77.0201}),
			propertyAt("p2", domain.Point{Lat: 38.9003, Lon: -77.0199}),
			fatalAt("f1", domain.Point{Lat: 38.9201, Lon: -77.0200}),
		})
		eval := NewEvaluator(repo, 150, nil)

		res, err := eval.Evaluate(ctx, domain.RouteCandidate{Geometry: testPoly})
		require.NoError(t, err)

		require.Len(t, res.SegmentDensities, 3)
		assert.Equal(t, 2, res.SegmentDensities[0])
		assert.Equal(t, 1, res.SegmentDensities[2])

		// danger weights: 1 + 1 + 5
		assert.Equal(t, 7.0, res.CorridorScore)
		assert.Equal(t, 3, res.CorridorCount)
		assert.Equal(t, 1, res.Summary.Breakdown[domain.SeverityFatal])
		assert.Equal(t, 2, res.Summary.Breakdown[domain.SeverityPropertyOnly])
	})

	t.Run("an incident near two segments counts once in the corridor", func(t *testing.T) {
		// Sits at the shared vertex of segments 0 and 1
		repo := postgres.NewMockRepositoryWith([]domain.Incident{
			propertyAt("shared", domain.Point{Lat: 38.910, Lon: -77.020}),
		})
		eval := NewEvaluator(repo, 150, nil)

		res, err := eval.Evaluate(ctx, domain.RouteCandidate{Geometry: testPoly})
		require.NoError(t, err)
		assert.Equal(t, 1, res.CorridorCount)
		assert.Equal(t, 1.0, res.CorridorScore)
	})
}

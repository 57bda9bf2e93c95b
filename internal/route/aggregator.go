package route

import (
	"context"
	"fmt"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/internal/scoring"
	"github.com/saferoute/backend/pkg/utils"
)

/// RiskResult is the per-route output of an evaluation: a density sequence
// for gradient rendering, a scalar corridor score, and the severity summary
// of every incident inside the corridor.
type RiskResult struct {
	SegmentDensities []int           `json:"segment_densities"`
	CorridorScore    float64         `json:"corridor_score"`
	CorridorCount    int             `json:"corridor_count"`
	Casualties       int             `json:"casualties"`
	Summary          scoring.Summary `json:"summary"`
}

// Evaluator scores a route polyline against the incident store
type Evaluator struct {
	repo         domain.IncidentRepository
	bufferMeters float64
	window       *domain.TimeWindow
}

// NewEvaluator creates an evaluator with the given corridor buffer
func NewEvaluator(repo domain.IncidentRepository, bufferMeters float64, window *domain.TimeWindow) *Evaluator {
	return &Evaluator{
		repo:         repo,
		bufferMeters: bufferMeters,
		window:       window,
	}
}

// Evaluate queries incidents around every segment midpoint in one batch and
// derives both views of route risk. A degenerate geometry yields a zero
// result, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, cand domain.RouteCandidate) (RiskResult, error) {
	mids := Midpoints(cand.Geometry)
	if len(mids) == 0 {
		return RiskResult{}, nil
	}

	// A midpoint query must cover its whole segment: anything within the
	// buffer of a segment lies within buffer + half the segment length of
	// that segment's midpoint.
	batches, err := e.repo.FindNearBatch(ctx, mids, e.bufferMeters+maxHalfSegmentMeters(cand.Geometry), e.window)
	if err != nil {
		return RiskResult{}, fmt.Errorf("route: evaluate %s: %w", cand.ProviderID, err)
	}

	// The density and corridor passes are intentionally separate code
	// paths: densities feed discrete color buckets, the corridor score
	// feeds a continuous risk number.
	densities := densityPass(cand.Geometry, batches, e.bufferMeters)
	corridor := corridorPass(cand.Geometry, batches, e.bufferMeters)

	var score float64
	for _, in := range corridor {
		score += scoring.DangerWeight(in)
	}

	return RiskResult{
		SegmentDensities: densities,
		CorridorScore:    score,
		CorridorCount:    len(corridor),
		Casualties:       scoring.TotalCasualties(corridor),
		Summary:          scoring.Aggregate(corridor, scoring.CorridorProfile()),
	}, nil
}

func maxHalfSegmentMeters(poly []domain.Point) float64 {
	var max float64
	for i := 0; i < len(poly)-1; i++ {
		d := utils.HaversineMeters(poly[i].Lat, poly[i].Lon, poly[i+1].Lat, poly[i+1].Lon)
		if d > max {
			max = d
		}
	}
	return max / 2
}

// densityPass counts incidents per segment. Counts, not weights: the
// gradient only needs relative density buckets.
func densityPass(poly []domain.Point, batches [][]domain.Incident, bufferMeters float64) []int {
	densities := make([]int, len(poly)-1)
	for i := range densities {
		if i >= len(batches) {
			break
		}
		for _, in := range batches[i] {
			if NearSegment(poly, i, in.Location, bufferMeters) {
				densities[i]++
			}
		}
	}
	return densities
}

// corridorPass flattens the batches and keeps each incident once if it lies
// within the buffer of any segment.
func corridorPass(poly []domain.Point, batches [][]domain.Incident, bufferMeters float64) []domain.Incident {
	var all []domain.Incident
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return CorridorIncidents(poly, all, bufferMeters)
}

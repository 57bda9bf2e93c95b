package route

import (
	"context"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

// ScoredCandidate pairs a provider route with its computed risk. The
// normalized score divides the corridor score by route length so routes of
// different lengths stay comparable; raw sums never are.
type ScoredCandidate struct {
	domain.RouteCandidate
	Risk           RiskResult `json:"risk"`
	NormalizedRisk float64    `json:"normalized_risk"`
	Failed         bool       `json:"failed,omitempty"`
}

// Recommendation is the ranked outcome of comparing candidates
type Recommendation struct {
	Ranked      []ScoredCandidate `json:"ranked"`
	Recommended ScoredCandidate   `json:"recommended"`
}

// Recommender evaluates candidate routes concurrently and picks the one
// with the lowest normalized risk.
type Recommender struct {
	eval        *Evaluator
	concurrency int
}

// NewRecommender creates a recommender with a bounded evaluation fan-out
func NewRecommender(eval *Evaluator, concurrency int) *Recommender {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Recommender{eval: eval, concurrency: concurrency}
}

// Recommend scores every candidate independently, ranks by normalized risk
// ascending with shorter duration breaking ties, and returns the winner.
// A failed evaluation for one candidate never aborts its siblings; if every
// candidate fails, the first error is returned. Zero candidates surface as
// domain.ErrNoRouteFound.
func (r *Recommender) Recommend(ctx context.Context, candidates []domain.RouteCandidate) (*Recommendation, error) {
	if len(candidates) == 0 {
		return nil, domain.ErrNoRouteFound
	}

	scored := make([]ScoredCandidate, len(candidates))
	errs := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			risk, err := r.eval.Evaluate(gctx, cand)
			if err != nil {
				log.Printf("Route evaluation failed for candidate %s: %v", cand.ProviderID, err)
				scored[i] = ScoredCandidate{RouteCandidate: cand, Failed: true}
				errs[i] = err
				return nil // sibling evaluations keep going
			}
			scored[i] = ScoredCandidate{
				RouteCandidate: cand,
				Risk:           risk,
				NormalizedRisk: Normalize(cand, risk),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	usable := make([]ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if !sc.Failed {
			usable = append(usable, sc)
		}
	}
	if len(usable) == 0 {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return nil, domain.ErrNoRouteFound
	}

	sort.SliceStable(usable, func(a, b int) bool {
		if usable[a].NormalizedRisk != usable[b].NormalizedRisk {
			return usable[a].NormalizedRisk < usable[b].NormalizedRisk
		}
		return usable[a].DurationMin < usable[b].DurationMin
	})

	return &Recommendation{
		Ranked:      usable,
		Recommended: usable[0],
	}, nil
}

// Normalize scales the corridor score by route length in km, falling back
// to segment count when the provider supplied no distance.
func Normalize(cand domain.RouteCandidate, risk RiskResult) float64 {
	divisor := cand.DistanceKm
	if divisor <= 0 {
		divisor = float64(len(risk.SegmentDensities))
	}
	if divisor <= 0 {
		divisor = 1
	}
	return utils.RoundTo(risk.CorridorScore/divisor, 4)
}

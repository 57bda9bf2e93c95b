package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/internal/gradient"
	"github.com/saferoute/backend/internal/prediction"
	"github.com/saferoute/backend/internal/route"
	"github.com/saferoute/backend/internal/scoring"
)

// PointAnalysis is the popup-equivalent answer for a map click
type PointAnalysis struct {
	Location     domain.Point       `json:"location"`
	RadiusMeters float64            `json:"radius_meters"`
	Summary      domain.RiskSummary `json:"summary"`
	Score        scoring.Summary    `json:"score"`
	Weather      *Weather           `json:"weather,omitempty"`
	Incidents    []domain.Incident  `json:"incidents,omitempty"`
}

// EvaluatedRoute is one candidate with everything the map layer needs
type EvaluatedRoute struct {
	route.ScoredCandidate
	Gradient []gradient.Stop    `json:"gradient"`
	Summary  domain.RiskSummary `json:"summary"`
}

// RouteAnalysis is the ranked outcome of a safe-route search
type RouteAnalysis struct {
	EvaluationID string           `json:"evaluation_id"`
	Origin       domain.Point     `json:"origin"`
	Destination  domain.Point     `json:"destination"`
	Recommended  EvaluatedRoute   `json:"recommended"`
	Alternatives []EvaluatedRoute `json:"alternatives"`
	Weather      *Weather         `json:"weather,omitempty"`
	Prediction   *float64         `json:"prediction,omitempty"`
}

// RiskService wires the store, the routing provider, local scoring and the
// external prediction enrichment into the request-level operations.
type RiskService struct {
	repo        domain.IncidentRepository
	provider    RouteProvider
	weatherSvc  *WeatherService
	predictor   *prediction.Client
	recommender *route.Recommender
	evaluator   *route.Evaluator

	maxIncidentsReturned int
}

// NewRiskService creates the orchestrating service
func NewRiskService(
	repo domain.IncidentRepository,
	provider RouteProvider,
	weatherSvc *WeatherService,
	predictor *prediction.Client,
	evaluator *route.Evaluator,
	recommender *route.Recommender,
) *RiskService {
	return &RiskService{
		repo:                 repo,
		provider:             provider,
		weatherSvc:           weatherSvc,
		predictor:            predictor,
		recommender:          recommender,
		evaluator:            evaluator,
		maxIncidentsReturned: 10,
	}
}

// AnalyzePoint answers a map click: incidents within the radius, their
// aggregate point-profile score, and current weather, fetched concurrently.
// Zero incidents nearby yields count 0 and no severity breakdown, never an
// error.
func (s *RiskService) AnalyzePoint(ctx context.Context, p domain.Point, radiusMeters float64, window *domain.TimeWindow) (PointAnalysis, error) {
	var (
		incidents []domain.Incident
		weather   *Weather
		storeErr  error
		wg        sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		incidents, storeErr = s.repo.FindNear(ctx, p, radiusMeters, window)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		w, err := s.weatherSvc.GetCurrentWeather(ctx, p)
		if err != nil {
			// weather is context, never a blocker
			log.Printf("Weather fetch failed: %v", err)
			return
		}
		weather = &w
	}()

	wg.Wait()
	if storeErr != nil {
		return PointAnalysis{}, fmt.Errorf("analyze point: %w", storeErr)
	}

	analysis := PointAnalysis{
		Location:     p,
		RadiusMeters: radiusMeters,
		Summary:      scoring.Summarize(incidents, scoring.PointProfile()),
		Score:        scoring.Aggregate(incidents, scoring.PointProfile()),
		Weather:      weather,
	}
	if len(incidents) > s.maxIncidentsReturned {
		incidents = incidents[:s.maxIncidentsReturned]
	}
	analysis.Incidents = incidents

	return analysis, nil
}

// SafeRoutes fetches alternates from the routing provider, scores every
// candidate, and returns them ranked with rendering-ready gradients. The
// external prediction is optional enrichment and its failure is logged,
// never propagated.
func (s *RiskService) SafeRoutes(ctx context.Context, origin, dest domain.Point, profile string) (RouteAnalysis, error) {
	candidates, err := s.provider.Routes(ctx, origin, dest, profile, true)
	if err != nil {
		return RouteAnalysis{}, fmt.Errorf("safe routes: %w", err)
	}

	rec, err := s.recommender.Recommend(ctx, candidates)
	if err != nil {
		return RouteAnalysis{}, fmt.Errorf("safe routes: %w", err)
	}

	analysis := RouteAnalysis{
		EvaluationID: uuid.NewString(),
		Origin:       origin,
		Destination:  dest,
		Recommended:  s.renderRoute(rec.Recommended),
	}
	for _, sc := range rec.Ranked[1:] {
		analysis.Alternatives = append(analysis.Alternatives, s.renderRoute(sc))
	}

	// Weather and the external prediction enrich the answer but never
	// gate it.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if w, werr := s.weatherSvc.GetCurrentWeather(ctx, origin); werr == nil {
			analysis.Weather = &w
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, perr := s.predictor.Predict(ctx, origin, dest)
		if perr != nil {
			log.Printf("Prediction enrichment unavailable: %v", perr)
			return
		}
		analysis.Prediction = &v
	}()
	wg.Wait()

	return analysis, nil
}

// SingleRoute evaluates one route for the given travel profile
func (s *RiskService) SingleRoute(ctx context.Context, origin, dest domain.Point, profile string) (EvaluatedRoute, error) {
	candidates, err := s.provider.Routes(ctx, origin, dest, profile, false)
	if err != nil {
		return EvaluatedRoute{}, fmt.Errorf("single route: %w", err)
	}
	if len(candidates) == 0 {
		return EvaluatedRoute{}, domain.ErrNoRouteFound
	}

	cand := candidates[0]
	risk, err := s.evaluator.Evaluate(ctx, cand)
	if err != nil {
		return EvaluatedRoute{}, fmt.Errorf("single route: %w", err)
	}

	return s.renderRoute(route.ScoredCandidate{
		RouteCandidate: cand,
		Risk:           risk,
		NormalizedRisk: route.Normalize(cand, risk),
	}), nil
}

// Weather returns the current conditions at a coordinate
func (s *RiskService) Weather(ctx context.Context, p domain.Point) (Weather, error) {
	return s.weatherSvc.GetCurrentWeather(ctx, p)
}

// AreaIncidents serves bulk metropolitan-area loads, optionally filtered to
// one calendar year.
func (s *RiskService) AreaIncidents(ctx context.Context, b domain.Bounds, year int) ([]domain.Incident, error) {
	var window *domain.TimeWindow
	if year > 0 {
		window = &domain.TimeWindow{
			From: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		}
	}

	incidents, err := s.repo.FindWithinBounds(ctx, b, window)
	if err != nil {
		return nil, fmt.Errorf("area incidents: %w", err)
	}
	return incidents, nil
}

// PredictPoint proxies the external point-risk prediction, falling back to
// the local point-profile mean when the service is unavailable.
func (s *RiskService) PredictPoint(ctx context.Context, src, dst domain.Point, radiusMeters float64) (value float64, fallback bool, err error) {
	if v, perr := s.predictor.Predict(ctx, src, dst); perr == nil {
		return v, false, nil
	}

	incidents, err := s.repo.FindNear(ctx, src, radiusMeters, nil)
	if err != nil {
		return 0, false, fmt.Errorf("predict point: %w", err)
	}
	agg := scoring.Aggregate(incidents, scoring.PointProfile())
	return agg.Mean, true, nil
}

// Health reports dependency status for the health endpoint
func (s *RiskService) Health(ctx context.Context) map[string]string {
	status := map[string]string{
		"prediction_circuit": s.predictor.BreakerState().String(),
	}
	if err := s.repo.Health(ctx); err != nil {
		status["incident_store"] = "unavailable"
	} else {
		status["incident_store"] = "ok"
	}
	return status
}

func (s *RiskService) renderRoute(sc route.ScoredCandidate) EvaluatedRoute {
	return EvaluatedRoute{
		ScoredCandidate: sc,
		Gradient:        gradient.Encode(sc.Risk.SegmentDensities),
		Summary: domain.RiskSummary{
			TotalIncidents:    sc.Risk.CorridorCount,
			TotalCasualties:   sc.Risk.Casualties,
			SeverityBreakdown: sc.Risk.Summary.Breakdown,
			RiskLevel:         scoring.RiskLevel(sc.Risk.Summary),
		},
	}
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

// MockRepository implements domain.IncidentRepository in memory for demo
// mode and tests. It applies the same validation and dirty-location
// filtering as the real adapter.
type MockRepository struct {
	incidents []domain.Incident
}

// NewMockRepository creates a mock repository seeded with a small downtown
// crash dataset.
func NewMockRepository() *MockRepository {
	return &MockRepository{incidents: seedIncidents()}
}

// NewMockRepositoryWith creates a mock repository over the given records
func NewMockRepositoryWith(incidents []domain.Incident) *MockRepository {
	return &MockRepository{incidents: incidents}
}

// FindNear filters the in-memory dataset by haversine distance
func (r *MockRepository) FindNear(ctx context.Context, p domain.Point, radiusMeters float64, window *domain.TimeWindow) ([]domain.Incident, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("mock: find near: %w", domain.ErrInvalidLocation)
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("mock: radius must be positive: %w", domain.ErrInvalidLocation)
	}

	var results []domain.Incident
	for _, in := range r.incidents {
		if !in.Location.Valid() {
			continue
		}
		if !inWindow(in, window) {
			continue
		}
		if utils.HaversineMeters(p.Lat, p.Lon, in.Location.Lat, in.Location.Lon) <= radiusMeters {
			results = append(results, in)
		}
	}
	return results, nil
}

// FindNearBatch runs FindNear for every point, preserving order
func (r *MockRepository) FindNearBatch(ctx context.Context, points []domain.Point, radiusMeters float64, window *domain.TimeWindow) ([][]domain.Incident, error) {
	results := make([][]domain.Incident, len(points))
	for i, p := range points {
		near, err := r.FindNear(ctx, p, radiusMeters, window)
		if err != nil {
			return nil, err
		}
		results[i] = near
	}
	return results, nil
}

// FindWithinBounds filters the in-memory dataset by bounding box
func (r *MockRepository) FindWithinBounds(ctx context.Context, b domain.Bounds, window *domain.TimeWindow) ([]domain.Incident, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("mock: find within bounds: %w", domain.ErrInvalidLocation)
	}

	var results []domain.Incident
	for _, in := range r.incidents {
		if !in.Location.Valid() || !inWindow(in, window) {
			continue
		}
		loc := in.Location
		if loc.Lat >= b.MinLat && loc.Lat <= b.MaxLat && loc.Lon >= b.MinLon && loc.Lon <= b.MaxLon {
			results = append(results, in)
		}
	}
	return results, nil
}

// Health always succeeds in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

func inWindow(in domain.Incident, window *domain.TimeWindow) bool {
	if window == nil {
		return true
	}
	return !in.ReportedAt.Before(window.From) && !in.ReportedAt.After(window.To)
}

// seedIncidents builds a plausible downtown Washington DC dataset
func seedIncidents() []domain.Incident {
	base := time.Date(2022, 3, 15, 8, 30, 0, 0, time.UTC)

	seeds := []struct {
		lat, lon float64
		address  string
		fatal    int
		major    int
		minor    int
		vehicles int
		peds     int
		speeding bool
	}{
		{38.9012, -77.0205, "14TH ST NW & K ST NW", 0, 0, 1, 2, 0, false},
		{38.9055, -77.0190, "THOMAS CIRCLE NW", 0, 1, 0, 2, 1, true},
		{38.9101, -77.0178, "14TH ST NW & RHODE ISLAND AVE NW", 1, 0, 1, 2, 1, true},
		{38.9148, -77.0120, "NEW YORK AVE NE & FLORIDA AVE NE", 0, 0, 0, 3, 0, false},
		{38.9203, -77.0089, "NORTH CAPITOL ST & P ST NW", 0, 0, 2, 2, 0, false},
		{38.9267, -77.0034, "FLORIDA AVE NE & WEST VIRGINIA AVE NE", 0, 1, 1, 2, 0, false},
		{38.8998, -77.0322, "PENNSYLVANIA AVE NW & 17TH ST NW", 0, 0, 0, 2, 1, false},
		{38.8951, -77.0366, "CONSTITUTION AVE NW & 18TH ST NW", 0, 0, 1, 1, 1, false},
	}

	incidents := make([]domain.Incident, 0, len(seeds))
	for i, s := range seeds {
		incidents = append(incidents, domain.Incident{
			ID:               uuid.NewString(),
			Location:         domain.Point{Lat: s.lat, Lon: s.lon},
			ReportedAt:       base.AddDate(0, i, i*3),
			Address:          s.address,
			TotalVehicles:    s.vehicles,
			TotalPedestrians: s.peds,
			Casualties: domain.Casualties{
				Drivers: domain.ModeCounts{
					Fatal:         s.fatal,
					MajorInjuries: s.major,
					MinorInjuries: s.minor,
				},
			},
			Circumstances: domain.Circumstances{SpeedingInvolved: s.speeding},
		})
	}
	return incidents
}

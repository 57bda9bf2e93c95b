package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

const incidentColumns = `
	id, reported_at, latitude, longitude, address,
	total_vehicles, total_pedestrians, total_bicyclists,
	driver_fatalities, passenger_fatalities, pedestrian_fatalities, bicyclist_fatalities,
	driver_major_injuries, passenger_major_injuries, pedestrian_major_injuries, bicyclist_major_injuries,
	driver_minor_injuries, passenger_minor_injuries, pedestrian_minor_injuries, bicyclist_minor_injuries,
	speeding_involved, drivers_impaired, pedestrians_impaired, bicyclists_impaired
`

// PostgresRepository implements domain.IncidentRepository against the crash
// dataset table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL incident repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindNear returns incidents within radiusMeters of p. The query prefilters
// with a bounding box and the exact haversine cut happens in Go, so no
// PostGIS extension is required.
func (r *PostgresRepository) FindNear(ctx context.Context, p domain.Point, radiusMeters float64, window *domain.TimeWindow) ([]domain.Incident, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("postgres: find near: %w", domain.ErrInvalidLocation)
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("postgres: radius must be positive: %w", domain.ErrInvalidLocation)
	}

	candidates, err := r.queryBox(ctx, boundingBox([]domain.Point{p}, radiusMeters), window)
	if err != nil {
		return nil, err
	}

	var results []domain.Incident
	for _, in := range candidates {
		if utils.HaversineMeters(p.Lat, p.Lon, in.Location.Lat, in.Location.Lon) <= radiusMeters {
			results = append(results, in)
		}
	}
	return results, nil
}

// FindNearBatch resolves all sample points with a single round trip: one
// query over the union bounding box, then a per-point haversine cut.
// Result i corresponds to points[i].
func (r *PostgresRepository) FindNearBatch(ctx context.Context, points []domain.Point, radiusMeters float64, window *domain.TimeWindow) ([][]domain.Incident, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("postgres: radius must be positive: %w", domain.ErrInvalidLocation)
	}
	for _, p := range points {
		if !p.Valid() {
			return nil, fmt.Errorf("postgres: find near batch: %w", domain.ErrInvalidLocation)
		}
	}

	candidates, err := r.queryBox(ctx, boundingBox(points, radiusMeters), window)
	if err != nil {
		return nil, err
	}

	results := make([][]domain.Incident, len(points))
	for i, p := range points {
		for _, in := range candidates {
			if utils.HaversineMeters(p.Lat, p.Lon, in.Location.Lat, in.Location.Lon) <= radiusMeters {
				results[i] = append(results[i], in)
			}
		}
	}
	return results, nil
}

// FindWithinBounds returns every usable incident inside the box, for bulk
// metropolitan-area map loads.
func (r *PostgresRepository) FindWithinBounds(ctx context.Context, b domain.Bounds, window *domain.TimeWindow) ([]domain.Incident, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("postgres: find within bounds: %w", domain.ErrInvalidLocation)
	}
	return r.queryBox(ctx, b, window)
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", domain.ErrStoreUnavailable)
	}
	return nil
}

func (r *PostgresRepository) queryBox(ctx context.Context, b domain.Bounds, window *domain.TimeWindow) ([]domain.Incident, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM crashes
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`, incidentColumns)

	args := []any{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon}
	if window != nil {
		query += " AND reported_at BETWEEN $5 AND $6"
		args = append(args, window.From, window.To)
	}
	query += " ORDER BY reported_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query crashes: %v: %w", err, domain.ErrStoreUnavailable)
	}
	defer rows.Close()

	var results []domain.Incident
	for rows.Next() {
		var in domain.Incident
		err := rows.Scan(
			&in.ID, &in.ReportedAt, &in.Location.Lat, &in.Location.Lon, &in.Address,
			&in.TotalVehicles, &in.TotalPedestrians, &in.TotalBicyclists,
			&in.Casualties.Drivers.Fatal, &in.Casualties.Passengers.Fatal,
			&in.Casualties.Pedestrians.Fatal, &in.Casualties.Bicyclists.Fatal,
			&in.Casualties.Drivers.MajorInjuries, &in.Casualties.Passengers.MajorInjuries,
			&in.Casualties.Pedestrians.MajorInjuries, &in.Casualties.Bicyclists.MajorInjuries,
			&in.Casualties.Drivers.MinorInjuries, &in.Casualties.Passengers.MinorInjuries,
			&in.Casualties.Pedestrians.MinorInjuries, &in.Casualties.Bicyclists.MinorInjuries,
			&in.Circumstances.SpeedingInvolved, &in.Circumstances.DriversImpaired,
			&in.Circumstances.PedestriansImpaired, &in.Circumstances.BicyclistsImpaired,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan crash row: %w", err)
		}
		// Upstream data is dirty: rows without a usable location never
		// reach the scorer.
		if !in.Location.Valid() {
			continue
		}
		results = append(results, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read crash rows: %v: %w", err, domain.ErrStoreUnavailable)
	}

	return results, nil
}

// boundingBox expands the points' extent by the radius, clamped to valid
// coordinate ranges.
func boundingBox(points []domain.Point, radiusMeters float64) domain.Bounds {
	b := domain.Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}

	latDelta := radiusMeters / 111320
	midLat := (b.MinLat + b.MaxLat) / 2 * math.Pi / 180
	lonDelta := radiusMeters / (111320 * math.Max(math.Cos(midLat), 0.01))

	b.MinLat = utils.Clamp(b.MinLat-latDelta, -90, 90)
	b.MaxLat = utils.Clamp(b.MaxLat+latDelta, -90, 90)
	b.MinLon = utils.Clamp(b.MinLon-lonDelta, -180, 180)
	b.MaxLon = utils.Clamp(b.MaxLon+lonDelta, -180, 180)
	return b
}

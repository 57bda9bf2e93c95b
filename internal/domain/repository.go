package domain

import (
	"context"
	"errors"
)

// Error taxonomy for the risk core. Callers branch on these with errors.Is.
var (
	// ErrInvalidLocation means bad or missing coordinates; rejected before querying
	ErrInvalidLocation = errors.New("invalid location")

	// ErrStoreUnavailable means the incident store is unreachable. Distinct
	// from zero results, which is a normal outcome.
	ErrStoreUnavailable = errors.New("incident store unavailable")

	// ErrPredictionUnavailable means the external prediction service is
	// open-circuited, timed out, or returned malformed data. Always
	// recoverable: callers fall back to local scoring.
	ErrPredictionUnavailable = errors.New("prediction unavailable")

	// ErrNoRouteFound means the routing provider returned zero candidates
	ErrNoRouteFound = errors.New("no route found")
)

// IncidentRepository is the read contract against the external incident store.
// The domain defines the interface; implementations live in repository/.
type IncidentRepository interface {
	// FindNear returns incidents within radiusMeters of p, optionally
	// filtered by window. Records with unusable locations are filtered out.
	FindNear(ctx context.Context, p Point, radiusMeters float64, window *TimeWindow) ([]Incident, error)

	// FindNearBatch runs FindNear for each point. Result i corresponds to
	// points[i]; ordering is preserved.
	FindNearBatch(ctx context.Context, points []Point, radiusMeters float64, window *TimeWindow) ([][]Incident, error)

	// FindWithinBounds returns incidents inside a bounding box, for bulk
	// metropolitan-area loads.
	FindWithinBounds(ctx context.Context, b Bounds, window *TimeWindow) ([]Incident, error)

	// Health checks store connectivity
	Health(ctx context.Context) error
}

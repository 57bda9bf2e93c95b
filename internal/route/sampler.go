package route

import (
	"math"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

// Midpoints returns one sample point per consecutive coordinate pair of the
// polyline. Length is always vertex count - 1; a degenerate polyline (zero
// or one vertex) yields an empty list, not an error.
func Midpoints(poly []domain.Point) []domain.Point {
	if len(poly) < 2 {
		return nil
	}

	mids := make([]domain.Point, 0, len(poly)-1)
	for i := 0; i < len(poly)-1; i++ {
		mids = append(mids, domain.Point{
			Lat: utils.Lerp(poly[i].Lat, poly[i+1].Lat, 0.5),
			Lon: utils.Lerp(poly[i].Lon, poly[i+1].Lon, 0.5),
		})
	}
	return mids
}

// segmentDistanceMeters approximates the distance from p to the segment
// (a, b) as the minimum of the point-to-endpoint distances. This is a
// deliberate cheap approximation, not a true point-to-segment projection:
// only the relative density ordering is guaranteed downstream, never an
// exact geometric distance.
func segmentDistanceMeters(p, a, b domain.Point) float64 {
	da := utils.HaversineMeters(p.Lat, p.Lon, a.Lat, a.Lon)
	db := utils.HaversineMeters(p.Lat, p.Lon, b.Lat, b.Lon)
	return math.Min(da, db)
}

// NearSegment reports whether p lies within bufferMeters of the i-th
// segment of the polyline.
func NearSegment(poly []domain.Point, i int, p domain.Point, bufferMeters float64) bool {
	if i < 0 || i >= len(poly)-1 {
		return false
	}
	return segmentDistanceMeters(p, poly[i], poly[i+1]) <= bufferMeters
}

// NearRoute reports whether p lies within bufferMeters of any segment
func NearRoute(poly []domain.Point, p domain.Point, bufferMeters float64) bool {
	for i := 0; i < len(poly)-1; i++ {
		if NearSegment(poly, i, p, bufferMeters) {
			return true
		}
	}
	return false
}

// CorridorIncidents filters incidents down to those inside the route
// corridor, deduplicated by ID. Input order is preserved.
func CorridorIncidents(poly []domain.Point, incidents []domain.Incident, bufferMeters float64) []domain.Incident {
	seen := make(map[string]struct{}, len(incidents))
	var inside []domain.Incident
	for _, in := range incidents {
		if _, dup := seen[in.ID]; dup {
			continue
		}
		if NearRoute(poly, in.Location, bufferMeters) {
			seen[in.ID] = struct{}{}
			inside = append(inside, in)
		}
	}
	return inside
}

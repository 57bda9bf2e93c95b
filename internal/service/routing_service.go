package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

// RouteProvider supplies candidate route geometries between two points.
// The directions provider is an external collaborator; this core only
// consumes its output.
type RouteProvider interface {
	Routes(ctx context.Context, origin, dest domain.Point, profile string, alternatives bool) ([]domain.RouteCandidate, error)
}

// MapboxClient fetches candidate routes from the Mapbox Directions API.
// Without a token it serves deterministic synthetic candidates so the rest
// of the system stays usable in demo mode.
type MapboxClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewMapboxClient creates a directions client
func NewMapboxClient(token string) *MapboxClient {
	return &MapboxClient{
		token:   token,
		baseURL: "https://api.mapbox.com/directions/v5/mapbox",
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// directionsResponse is the subset of the Mapbox payload this core reads
type directionsResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// Routes returns candidate geometries between origin and dest. Zero
// candidates from the provider surface as domain.ErrNoRouteFound, distinct
// from transport failures.
func (c *MapboxClient) Routes(ctx context.Context, origin, dest domain.Point, profile string, alternatives bool) ([]domain.RouteCandidate, error) {
	if !origin.Valid() || !dest.Valid() {
		return nil, fmt.Errorf("routing: %w", domain.ErrInvalidLocation)
	}
	if profile == "" {
		profile = "driving"
	}
	if c.token == "" {
		return c.mockRoutes(origin, dest, alternatives), nil
	}

	endpoint := fmt.Sprintf("%s/%s/%f,%f;%f,%f",
		c.baseURL, profile, origin.Lon, origin.Lat, dest.Lon, dest.Lat)
	params := url.Values{
		"access_token": {c.token},
		"overview":     {"full"},
		"geometries":   {"geojson"},
	}
	if alternatives {
		params.Set("alternatives", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("routing: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing: provider returned status %d", resp.StatusCode)
	}

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("routing: failed to decode response: %w", err)
	}
	if dr.Code != "Ok" || len(dr.Routes) == 0 {
		return nil, domain.ErrNoRouteFound
	}

	candidates := make([]domain.RouteCandidate, 0, len(dr.Routes))
	for i, rt := range dr.Routes {
		geom := make([]domain.Point, 0, len(rt.Geometry.Coordinates))
		for _, coord := range rt.Geometry.Coordinates {
			if len(coord) < 2 {
				continue
			}
			// provider sends [lon, lat]
			geom = append(geom, domain.Point{Lat: coord[1], Lon: coord[0]})
		}
		candidates = append(candidates, domain.RouteCandidate{
			ProviderID:  fmt.Sprintf("mapbox-%d", i),
			Geometry:    geom,
			DistanceKm:  utils.RoundTo(rt.Distance/1000, 2),
			DurationMin: utils.RoundTo(rt.Duration/60, 1),
		})
	}
	return candidates, nil
}

// mockRoutes interpolates a direct polyline plus, when asked, one eastward
// detour, mirroring what the directions provider would return downtown.
func (c *MapboxClient) mockRoutes(origin, dest domain.Point, alternatives bool) []domain.RouteCandidate {
	const vertices = 12

	direct := make([]domain.Point, 0, vertices)
	detour := make([]domain.Point, 0, vertices)
	for i := 0; i < vertices; i++ {
		t := float64(i) / float64(vertices-1)
		direct = append(direct, domain.Point{
			Lat: utils.Lerp(origin.Lat, dest.Lat, t),
			Lon: utils.Lerp(origin.Lon, dest.Lon, t),
		})
		// bows out ~400m at the middle
		bow := 0.004 * (1 - (2*t-1)*(2*t-1))
		detour = append(detour, domain.Point{
			Lat: utils.Lerp(origin.Lat, dest.Lat, t),
			Lon: utils.Lerp(origin.Lon, dest.Lon, t) + bow,
		})
	}

	directKm := utils.Haversine(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	routes := []domain.RouteCandidate{{
		ProviderID:  "mock-direct",
		Geometry:    direct,
		DistanceKm:  utils.RoundTo(directKm, 2),
		DurationMin: utils.RoundTo(directKm*2.5, 1), // ~24 km/h downtown
	}}
	if alternatives {
		routes = append(routes, domain.RouteCandidate{
			ProviderID:  "mock-detour",
			Geometry:    detour,
			DistanceKm:  utils.RoundTo(directKm*1.15, 2),
			DurationMin: utils.RoundTo(directKm*2.5*1.2, 1),
		})
	}
	return routes
}

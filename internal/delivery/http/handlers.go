package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/internal/service"
)

const (
	defaultAnalysisRadiusMeters = 200
	maxAnalysisRadiusMeters     = 2000
)

// Handler contains all HTTP handlers
type Handler struct {
	riskSvc *service.RiskService
}

// NewHandler creates a new handler
func NewHandler(riskSvc *service.RiskService) *Handler {
	return &Handler{riskSvc: riskSvc}
}

// AnalyzeRequest is the body of a point analysis call
type AnalyzeRequest struct {
	Location     domain.Point `json:"location"`
	RadiusMeters float64      `json:"radius_meters"`
}

// RouteRequest is the body of both route endpoints
type RouteRequest struct {
	Origin      domain.Point `json:"origin"`
	Destination domain.Point `json:"destination"`
	Profile     string       `json:"profile"`
}

// HealthCheck returns service health and dependency status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	deps := h.riskSvc.Health(c.Context())

	status := "ok"
	if deps["incident_store"] != "ok" {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status":       status,
		"service":      "saferoute-backend",
		"version":      "1.0.0",
		"dependencies": deps,
	})
}

// GetWeather returns current weather at a coordinate
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	p := domain.Point{
		Lat: c.QueryFloat("lat"),
		Lon: c.QueryFloat("lon"),
	}

	weather, err := h.riskSvc.Weather(c.Context(), p)
	if err != nil {
		return mapError(err, "Failed to fetch weather data")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    weather,
	})
}

// AnalyzePoint returns crash risk around a map click
func (h *Handler) AnalyzePoint(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.RadiusMeters <= 0 || req.RadiusMeters > maxAnalysisRadiusMeters {
		req.RadiusMeters = defaultAnalysisRadiusMeters
	}
	if !req.Location.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid location")
	}

	analysis, err := h.riskSvc.AnalyzePoint(c.Context(), req.Location, req.RadiusMeters, nil)
	if err != nil {
		return mapError(err, "Failed to analyze location")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    analysis,
	})
}

// GetAreaIncidents returns incidents inside a bounding box. An optional
// year query parameter narrows the result to one calendar year.
func (h *Handler) GetAreaIncidents(c *fiber.Ctx) error {
	bounds := domain.Bounds{
		MinLat: c.QueryFloat("min_lat"),
		MinLon: c.QueryFloat("min_lon"),
		MaxLat: c.QueryFloat("max_lat"),
		MaxLon: c.QueryFloat("max_lon"),
	}
	if !bounds.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid bounding box")
	}
	year := c.QueryInt("year", 0)

	incidents, err := h.riskSvc.AreaIncidents(c.Context(), bounds, year)
	if err != nil {
		return mapError(err, "Failed to fetch incidents")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    incidents,
		"count":   len(incidents),
	})
}

// FindSafeRoute returns ranked route alternatives between two points
func (h *Handler) FindSafeRoute(c *fiber.Ctx) error {
	req, err := parseRouteRequest(c)
	if err != nil {
		return err
	}

	analysis, err := h.riskSvc.SafeRoutes(c.Context(), req.Origin, req.Destination, req.Profile)
	if err != nil {
		return mapError(err, "Failed to find safe route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    analysis,
	})
}

// GetSingleRoute evaluates one route for a travel profile
func (h *Handler) GetSingleRoute(c *fiber.Ctx) error {
	req, err := parseRouteRequest(c)
	if err != nil {
		return err
	}

	evaluated, err := h.riskSvc.SingleRoute(c.Context(), req.Origin, req.Destination, req.Profile)
	if err != nil {
		return mapError(err, "Failed to evaluate route")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    evaluated,
	})
}

// Predict proxies prediction requests to the external model service,
// falling back to the local score when it is unavailable.
func (h *Handler) Predict(c *fiber.Ctx) error {
	var req domain.PredictionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if !req.Source.Valid() || !req.Destination.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
	}

	value, fallback, err := h.riskSvc.PredictPoint(c.Context(), req.Source, req.Destination, defaultAnalysisRadiusMeters)
	if err != nil {
		return mapError(err, "Failed to get prediction")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"prediction": value,
		"fallback":   fallback,
	})
}

func parseRouteRequest(c *fiber.Ctx) (RouteRequest, error) {
	var req RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return RouteRequest{}, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if !req.Origin.Valid() || !req.Destination.Valid() {
		return RouteRequest{}, fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
	}
	if req.Profile == "" {
		req.Profile = "driving"
	}
	return req, nil
}

func mapError(err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidLocation):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
	case errors.Is(err, domain.ErrNoRouteFound):
		return fiber.NewError(fiber.StatusNotFound, "No route found between the given points")
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Incident store is unavailable")
	case errors.Is(err, domain.ErrPredictionUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Prediction service is unavailable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

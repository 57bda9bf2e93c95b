package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saferoute/backend/internal/service"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, riskSvc *service.RiskService) {
	handler := NewHandler(riskSvc)

	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Ambient context for the map view
		api.Get("/weather", handler.GetWeather)

		// Crash analysis endpoints
		api.Post("/crashes/analyze", handler.AnalyzePoint)
		api.Get("/crashes/bounds", handler.GetAreaIncidents)

		// Route scoring endpoints
		api.Post("/routes/safe", handler.FindSafeRoute)
		api.Post("/routes/single", handler.GetSingleRoute)

		// Prediction endpoint (proxies to the external model service)
		api.Post("/predict", handler.Predict)
	}
}

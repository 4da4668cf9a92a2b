package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smartcity/airquality/internal/service"
)

// Deps is everything the HTTP layer serves from
type Deps struct {
	AQI        *service.AQIService
	Insights   *service.InsightService
	Reports    *service.ReportService
	Forecaster ModelReporter
	Attributor ModelReporter
	Repo       service.ReportRepository
	Gatherer   prometheus.Gatherer
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, deps Deps) {
	handler := NewHandler(deps)

	// Health check
	app.Get("/health", handler.HealthCheck)

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	{
		// Prediction engine
		api.Get("/aqi/current", handler.GetCurrentAQI)
		api.Get("/aqi/forecast", handler.GetForecast)
		api.Get("/aqi/sources", handler.GetSources)
		api.Get("/models", handler.GetModels)

		// Advisories and what-if estimates
		api.Get("/health-advisory", handler.GetHealthAdvisory)
		api.Get("/seasonal-outlook", handler.GetSeasonalOutlook)
		api.Post("/routes/safe", handler.SafeRoute)
		api.Post("/policy/impact", handler.PolicyImpact)

		// Citizen reports
		api.Post("/reports", handler.CreateReport)
		api.Get("/reports", handler.ListReports)
		api.Patch("/reports/:id/status", handler.UpdateReportStatus)
	}
}

// ErrorHandler renders every error as {error: true, message}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

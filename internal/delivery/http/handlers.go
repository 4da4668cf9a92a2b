package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/model"
	"github.com/smartcity/airquality/internal/service"
)

// ModelReporter describes the strategy a prediction component is serving
type ModelReporter interface {
	Mode() domain.PredictionType
	ModelVersion() string
	ModelState() model.State
}

// Handler contains all HTTP handlers
type Handler struct {
	aqiSvc     *service.AQIService
	insightSvc *service.InsightService
	reportSvc  *service.ReportService
	forecaster ModelReporter
	attributor ModelReporter
	repo       service.ReportRepository
	validate   *validator.Validate
}

// NewHandler creates a new handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		aqiSvc:     deps.AQI,
		insightSvc: deps.Insights,
		reportSvc:  deps.Reports,
		forecaster: deps.Forecaster,
		attributor: deps.Attributor,
		repo:       deps.Repo,
		validate:   validator.New(),
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	database := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		database = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":           "ok",
		"service":          "airquality-api",
		"version":          "1.0.0",
		"database":         database,
		"forecast_mode":    h.forecaster.Mode(),
		"attribution_mode": h.attributor.Mode(),
	})
}

// GetModels reports which prediction strategy each component is serving
func (h *Handler) GetModels(c *fiber.Ctx) error {
	describe := func(m ModelReporter) fiber.Map {
		return fiber.Map{
			"prediction_type": m.Mode(),
			"model_version":   m.ModelVersion(),
			"state":           m.ModelState(),
		}
	}

	return c.JSON(fiber.Map{
		"forecast":    describe(h.forecaster),
		"attribution": describe(h.attributor),
	})
}

// GetCurrentAQI returns the city's current conditions
func (h *Handler) GetCurrentAQI(c *fiber.Ctx) error {
	return c.JSON(h.aqiSvc.Current(c.Context()))
}

// GetForecast returns the multi-horizon AQI forecast
func (h *Handler) GetForecast(c *fiber.Ctx) error {
	var (
		req service.ForecastRequest
		err error
	)

	lat, err := queryFloat(c, "lat")
	if err != nil {
		return err
	}
	lon, err := queryFloat(c, "lon")
	if err != nil {
		return err
	}
	if (lat == nil) != (lon == nil) {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon must be given together")
	}
	if lat != nil {
		loc := domain.Coordinates{Lat: *lat, Lon: *lon}
		if err := h.validate.Struct(loc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid coordinates")
		}
		req.Location = &loc
	}

	if req.AQI, err = queryFloat(c, "aqi"); err != nil {
		return err
	}
	if req.AQI != nil && *req.AQI < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "aqi must be non-negative")
	}
	if req.Weather, err = weatherOverrides(c); err != nil {
		return err
	}

	return c.JSON(h.aqiSvc.Forecast(c.Context(), req))
}

// GetSources returns the pollution source attribution
func (h *Handler) GetSources(c *fiber.Ctx) error {
	fires, err := strconv.Atoi(c.Query("fire_count", "0"))
	if err != nil || fires < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "fire_count must be a non-negative integer")
	}

	weather, err := weatherOverrides(c)
	if err != nil {
		return err
	}

	return c.JSON(h.aqiSvc.Sources(c.Context(), service.SourcesRequest{FireCount: fires, Weather: weather}))
}

// GetHealthAdvisory returns guidance for the current AQI
func (h *Handler) GetHealthAdvisory(c *fiber.Ctx) error {
	return c.JSON(h.insightSvc.HealthAdvisory(c.Context()))
}

// GetSeasonalOutlook returns the month-of-year risk outlook
func (h *Handler) GetSeasonalOutlook(c *fiber.Ctx) error {
	return c.JSON(h.insightSvc.SeasonalOutlook())
}

// SafeRoute estimates exposure along a trip
func (h *Handler) SafeRoute(c *fiber.Ctx) error {
	var req domain.SafeRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.insightSvc.SafeRoute(c.Context(), req)
	if err != nil {
		return serviceError(err, "Failed to calculate route")
	}
	return c.JSON(res)
}

// PolicyImpact estimates the effect of an intervention
func (h *Handler) PolicyImpact(c *fiber.Ctx) error {
	var req domain.PolicyImpactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := h.insightSvc.PolicyImpact(req)
	if err != nil {
		return serviceError(err, "Failed to calculate policy impact")
	}
	return c.JSON(res)
}

// CreateReport stores a citizen pollution report
func (h *Handler) CreateReport(c *fiber.Ctx) error {
	var req domain.ReportCreate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := h.reportSvc.Create(c.Context(), req)
	if err != nil {
		return serviceError(err, "Failed to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports returns reports, optionally filtered by ?status=
func (h *Handler) ListReports(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" {
		if err := h.validate.Var(status, "oneof=pending investigating resolved rejected"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid status filter")
		}
	}

	reports, err := h.reportSvc.List(c.Context(), status)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch reports")
	}
	return c.JSON(reports)
}

// UpdateReportStatus changes a report's status
func (h *Handler) UpdateReportStatus(c *fiber.Ctx) error {
	var req domain.StatusUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.reportSvc.UpdateStatus(c.Context(), c.Params("id"), req); err != nil {
		return serviceError(err, "Failed to update status")
	}
	return c.JSON(fiber.Map{"message": "Status updated successfully"})
}

// serviceError maps service errors onto HTTP errors
func serviceError(err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReportNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Report not found")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

// queryFloat parses an optional float query parameter
func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid value for "+key)
	}
	return &v, nil
}

func weatherOverrides(c *fiber.Ctx) (domain.WeatherOverrides, error) {
	var (
		o   domain.WeatherOverrides
		err error
	)
	if o.Temperature, err = queryFloat(c, "temp"); err != nil {
		return o, err
	}
	if o.Humidity, err = queryFloat(c, "humidity"); err != nil {
		return o, err
	}
	if o.WindSpeed, err = queryFloat(c, "wind"); err != nil {
		return o, err
	}
	if o.WindSpeed != nil && *o.WindSpeed < 0 {
		return o, fiber.NewError(fiber.StatusBadRequest, "wind must be non-negative")
	}
	return o, nil
}

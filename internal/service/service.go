package service

import (
	"context"

	"github.com/smartcity/airquality/internal/attribution"
	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/forecast"
)

// ReportRepository is re-exported from domain for convenience
type ReportRepository = domain.ReportRepository

// Feed reads live station data
type Feed interface {
	FeedByGeo(ctx context.Context, lat, lon float64) (domain.FeedData, error)
	FeedByCity(ctx context.Context, city string) (domain.FeedData, error)
}

// WeatherProvider returns the current weather at a point
type WeatherProvider interface {
	GetCurrentWeather(ctx context.Context, loc domain.Coordinates) (domain.Weather, error)
}

// Forecaster produces AQI forecasts
type Forecaster interface {
	Predict(ctx context.Context, in forecast.Input) domain.ForecastResult
}

// Attributor produces source attributions
type Attributor interface {
	Attribute(ctx context.Context, in attribution.Input) domain.AttributionResult
}

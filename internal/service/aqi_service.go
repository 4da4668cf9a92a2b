package service

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartcity/airquality/internal/attribution"
	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/forecast"
)

// MockAQI is served when the live feed cannot be reached
const MockAQI = 156.0

// MockPollutants is the snapshot served alongside MockAQI
var MockPollutants = domain.PollutantSnapshot{
	domain.PM25: 85,
	domain.PM10: 120,
	domain.NO2:  45,
	domain.SO2:  12,
	domain.CO:   1.8,
	domain.O3:   35,
}

// ForecastRequest carries optional caller overrides for a forecast
type ForecastRequest struct {
	Location *domain.Coordinates
	AQI      *float64
	Weather  domain.WeatherOverrides
}

// SourcesRequest carries optional caller overrides for an attribution
type SourcesRequest struct {
	FireCount int
	Weather   domain.WeatherOverrides
}

// AQIConfig holds the location settings of an AQIService
type AQIConfig struct {
	City            string
	LocationName    string
	DefaultLocation domain.Coordinates
}

// AQIService combines the live feed, weather and the prediction engine
type AQIService struct {
	feed       Feed
	weather    WeatherProvider
	forecaster Forecaster
	attributor Attributor
	cfg        AQIConfig
	clock      clockwork.Clock
	log        logrus.FieldLogger
}

// NewAQIService creates a new AQI service
func NewAQIService(
	feed Feed,
	weather WeatherProvider,
	forecaster Forecaster,
	attributor Attributor,
	cfg AQIConfig,
	clock clockwork.Clock,
	log logrus.FieldLogger,
) *AQIService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AQIService{
		feed:       feed,
		weather:    weather,
		forecaster: forecaster,
		attributor: attributor,
		cfg:        cfg,
		clock:      clock,
		log:        log.WithField("component", "aqi_service"),
	}
}

// Current returns the city's current conditions, or the mock snapshot when
// the feed is unavailable
func (s *AQIService) Current(ctx context.Context) domain.CurrentAQI {
	data, err := s.feed.FeedByCity(ctx, s.cfg.City)
	if err != nil {
		s.log.WithError(err).Warn("live AQI unavailable, serving mock snapshot")
		return domain.CurrentAQI{
			AQI:        MockAQI,
			Category:   domain.AQICategory(MockAQI),
			Location:   s.cfg.LocationName,
			Pollutants: MockPollutants.Clone(),
			Timestamp:  s.clock.Now().UTC(),
			IsMock:     true,
		}
	}

	pollutants := make(domain.PollutantSnapshot, len(domain.Pollutants))
	for _, code := range domain.Pollutants {
		pollutants[code] = data.Pollutants.Get(code)
	}
	return domain.CurrentAQI{
		AQI:        data.AQI,
		Category:   domain.AQICategory(data.AQI),
		Location:   s.cfg.LocationName,
		Pollutants: pollutants,
		Timestamp:  s.clock.Now().UTC(),
	}
}

// baseline is the AQI and pollutant reading a prediction starts from.
// Pollutants are nil unless they were measured near the requested point.
type baseline struct {
	aqi        float64
	pollutants domain.PollutantSnapshot
}

// baselineAt reads conditions for loc. The default location is served from
// the city feed. A custom point, or a city feed that is down, is read from
// the station nearest to loc. When nothing is reachable the city snapshot
// supplies the AQI and the pollutants are withheld.
func (s *AQIService) baselineAt(ctx context.Context, loc domain.Coordinates, custom bool) baseline {
	var current domain.CurrentAQI
	if !custom {
		current = s.Current(ctx)
		if !current.IsMock {
			return baseline{aqi: current.AQI, pollutants: current.Pollutants}
		}
	}

	data, err := s.feed.FeedByGeo(ctx, loc.Lat, loc.Lon)
	if err == nil {
		b := baseline{aqi: data.AQI}
		if len(data.Pollutants) > 0 {
			b.pollutants = data.Pollutants.Clone()
		}
		return b
	}
	s.log.WithError(err).WithField("location", loc.String()).Warn("no station reading for location")

	if custom {
		current = s.Current(ctx)
	}
	return baseline{aqi: current.AQI}
}

// withWeather runs fetch, when given, alongside a weather lookup for loc.
// Neither fails. A nil weather means no live reading was available; mock
// observations count as absent.
func (s *AQIService) withWeather(ctx context.Context, loc domain.Coordinates, fetch func(context.Context)) *domain.WeatherSnapshot {
	var weather *domain.WeatherSnapshot

	g, gctx := errgroup.WithContext(ctx)
	if fetch != nil {
		g.Go(func() error {
			fetch(gctx)
			return nil
		})
	}
	g.Go(func() error {
		if s.weather == nil {
			return nil
		}
		w, err := s.weather.GetCurrentWeather(gctx, loc)
		if err != nil {
			s.log.WithError(err).Warn("weather unavailable, using defaults")
			return nil
		}
		if !w.IsMock {
			weather = &w.WeatherSnapshot
		}
		return nil
	})
	_ = g.Wait()

	return weather
}

// resolveWeather applies overrides to a live reading, or to the defaults when
// there is none
func resolveWeather(o domain.WeatherOverrides, reading *domain.WeatherSnapshot) domain.WeatherSnapshot {
	if reading == nil {
		return o.Resolve()
	}
	return o.Apply(*reading)
}

// Forecast runs the active forecaster with live inputs and caller overrides
func (s *AQIService) Forecast(ctx context.Context, req ForecastRequest) domain.ForecastResult {
	loc := s.cfg.DefaultLocation
	if req.Location != nil {
		loc = *req.Location
	}

	var (
		base  baseline
		fetch func(context.Context)
	)
	if req.AQI == nil {
		fetch = func(ctx context.Context) { base = s.baselineAt(ctx, loc, req.Location != nil) }
	}
	weather := s.withWeather(ctx, loc, fetch)

	in := forecast.Input{
		CurrentAQI: req.AQI,
		Location:   loc,
		Weather:    resolveWeather(req.Weather, weather),
	}
	if req.AQI == nil {
		aqi := base.aqi
		in.CurrentAQI = &aqi
		in.Pollutants = base.pollutants
	}

	return s.forecaster.Predict(ctx, in)
}

// Sources runs the active attributor with live inputs and caller overrides
func (s *AQIService) Sources(ctx context.Context, req SourcesRequest) domain.AttributionResult {
	var current domain.CurrentAQI
	weather := s.withWeather(ctx, s.cfg.DefaultLocation, func(ctx context.Context) {
		current = s.Current(ctx)
	})

	return s.attributor.Attribute(ctx, attribution.Input{
		Pollutants: current.Pollutants,
		Simulated:  current.IsMock,
		Weather:    resolveWeather(req.Weather, weather),
		FireCount:  req.FireCount,
	})
}

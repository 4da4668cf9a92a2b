package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/domain"
)

// DefaultOpenWeatherURL is the OpenWeatherMap current-weather endpoint
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// FallbackWeather is the mock observation served without an API key or on upstream failure
var FallbackWeather = domain.WeatherSnapshot{Temperature: 28, Humidity: 65, WindSpeed: 6}

// WeatherService handles weather data fetching
type WeatherService struct {
	apiKey       string
	endpoint     string
	locationName string
	httpClient   *http.Client
	clock        clockwork.Clock
	log          logrus.FieldLogger
}

// WeatherOption customises a WeatherService
type WeatherOption func(*WeatherService)

// WithWeatherEndpoint points the service at another OpenWeather-compatible URL
func WithWeatherEndpoint(url string) WeatherOption {
	return func(s *WeatherService) { s.endpoint = url }
}

// WithWeatherClock overrides the clock used for timestamps
func WithWeatherClock(clock clockwork.Clock) WeatherOption {
	return func(s *WeatherService) { s.clock = clock }
}

// NewWeatherService creates a new weather service
func NewWeatherService(apiKey, locationName string, log logrus.FieldLogger, opts ...WeatherOption) *WeatherService {
	s := &WeatherService{
		apiKey:       apiKey,
		endpoint:     DefaultOpenWeatherURL,
		locationName: locationName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		clock: clockwork.NewRealClock(),
		log:   log.WithField("component", "weather"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenWeatherResponse represents the OpenWeatherMap API response
type OpenWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s with units=metric
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// GetCurrentWeather fetches current weather for loc
func (s *WeatherService) GetCurrentWeather(ctx context.Context, loc domain.Coordinates) (domain.Weather, error) {
	// Return mock data if no API key
	if s.apiKey == "" {
		return s.getMockWeather(), nil
	}

	url := fmt.Sprintf("%s?lat=%f&lon=%f&appid=%s&units=metric", s.endpoint, loc.Lat, loc.Lon, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// Fallback to mock on network error
		s.log.WithError(err).Warn("weather request failed, using fallback")
		return s.getMockWeather(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.WithField("status", resp.StatusCode).Warn("weather upstream error, using fallback")
		return s.getMockWeather(), nil
	}

	var owResp OpenWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.Weather{}, fmt.Errorf("weather: failed to decode response: %w", err)
	}

	weather := domain.Weather{
		WeatherSnapshot: domain.WeatherSnapshot{
			Temperature: owResp.Main.Temp,
			Humidity:    owResp.Main.Humidity,
			WindSpeed:   owResp.Wind.Speed * 3.6,
		},
		FeelsLike: owResp.Main.FeelsLike,
		Pressure:  owResp.Main.Pressure,
		City:      owResp.Name,
		Country:   owResp.Sys.Country,
		Timestamp: s.clock.Now(),
		IsMock:    false,
	}

	if len(owResp.Weather) > 0 {
		weather.Description = owResp.Weather[0].Description
	}

	return weather, nil
}

// getMockWeather returns the fallback snapshot
func (s *WeatherService) getMockWeather() domain.Weather {
	return domain.Weather{
		WeatherSnapshot: FallbackWeather,
		FeelsLike:       FallbackWeather.Temperature,
		Description:     "Haze",
		Pressure:        1012,
		City:            s.locationName,
		Country:         "IN",
		Timestamp:       s.clock.Now(),
		IsMock:          true,
	}
}

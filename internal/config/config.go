// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/smartcity/airquality/internal/domain"
)

// Config is the full server configuration
type Config struct {
	Port     string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	Env      string `envconfig:"GO_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	WAQIToken   string        `envconfig:"WAQI_API_TOKEN"`
	WAQIBaseURL string        `envconfig:"WAQI_BASE_URL" default:"https://api.waqi.info" validate:"url"`
	WAQICity    string        `envconfig:"WAQI_CITY" default:"delhi" validate:"required"`
	FeedTimeout time.Duration `envconfig:"FEED_TIMEOUT" default:"10s" validate:"gt=0"`

	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY"`

	ModelDir          string `envconfig:"MODEL_DIR" default:"ml_models" validate:"required"`
	HeuristicFallback bool   `envconfig:"HEURISTIC_FALLBACK" default:"true"`
	// NoiseSeed seeds the heuristic forecaster; 0 seeds from the clock.
	NoiseSeed uint64 `envconfig:"NOISE_SEED" default:"0"`

	DefaultLat   float64 `envconfig:"DEFAULT_LAT" default:"28.6139" validate:"gte=-90,lte=90"`
	DefaultLon   float64 `envconfig:"DEFAULT_LON" default:"77.2090" validate:"gte=-180,lte=180"`
	LocationName string  `envconfig:"LOCATION_NAME" default:"Delhi NCR"`

	CORSOrigins     string        `envconfig:"CORS_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s" validate:"gt=0"`
}

// Load reads an optional .env file, then the environment, then validates.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv populates and validates a Config from the current environment
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to process environment: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DefaultLocation returns the coordinates used when a request names none
func (c *Config) DefaultLocation() domain.Coordinates {
	return domain.Coordinates{Lat: c.DefaultLat, Lon: c.DefaultLon}
}

// AllowedOrigins returns the CORS origins in fiber's comma-separated form
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}

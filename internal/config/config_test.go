package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/airquality/internal/domain"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.waqi.info", cfg.WAQIBaseURL)
	assert.Equal(t, "delhi", cfg.WAQICity)
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "ml_models", cfg.ModelDir)
	assert.True(t, cfg.HeuristicFallback)
	assert.Zero(t, cfg.NoiseSeed)
	assert.Equal(t, domain.Coordinates{Lat: 28.6139, Lon: 77.2090}, cfg.DefaultLocation())
	assert.Equal(t, "Delhi NCR", cfg.LocationName)
	assert.Equal(t, "*", cfg.AllowedOrigins())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GO_ENV", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WAQI_API_TOKEN", "tok")
	t.Setenv("FEED_TIMEOUT", "3s")
	t.Setenv("MODEL_DIR", "/srv/models")
	t.Setenv("HEURISTIC_FALLBACK", "false")
	t.Setenv("NOISE_SEED", "42")
	t.Setenv("DEFAULT_LAT", "19.076")
	t.Setenv("DEFAULT_LON", "72.8777")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tok", cfg.WAQIToken)
	assert.Equal(t, 3*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "/srv/models", cfg.ModelDir)
	assert.False(t, cfg.HeuristicFallback)
	assert.Equal(t, uint64(42), cfg.NoiseSeed)
	assert.Equal(t, domain.Coordinates{Lat: 19.076, Lon: 72.8777}, cfg.DefaultLocation())
	assert.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparseable duration", "FEED_TIMEOUT", "soon"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"latitude out of range", "DEFAULT_LAT", "123"},
		{"non-numeric port", "PORT", "http"},
		{"bad waqi url", "WAQI_BASE_URL", "not a url"},
		{"zero shutdown timeout", "SHUTDOWN_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

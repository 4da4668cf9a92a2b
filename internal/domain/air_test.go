package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAQICategory(t *testing.T) {
	tests := []struct {
		aqi  float64
		want string
	}{
		{0, "Good"},
		{50, "Good"},
		{51, "Moderate"},
		{100, "Moderate"},
		{150, "Unhealthy for Sensitive Groups"},
		{156, "Unhealthy"},
		{200, "Unhealthy"},
		{250, "Very Unhealthy"},
		{301, "Hazardous"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AQICategory(tt.aqi), "aqi %v", tt.aqi)
	}
}

func TestNewTemporalContext(t *testing.T) {
	// Monday
	tc := NewTemporalContext(time.Date(2025, time.October, 13, 18, 30, 0, 0, time.UTC))
	assert.Equal(t, TemporalContext{Hour: 18, Day: 13, Month: 10, DayOfWeek: 0, Weekend: false}, tc)

	// Sunday
	tc = NewTemporalContext(time.Date(2025, time.October, 19, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, 6, tc.DayOfWeek)
	assert.True(t, tc.Weekend)
}

func TestWeatherOverrides(t *testing.T) {
	temp := 31.0
	w := WeatherOverrides{Temperature: &temp}.Resolve()
	assert.Equal(t, WeatherSnapshot{Temperature: 31, Humidity: 60, WindSpeed: 5}, w)

	assert.Equal(t, DefaultWeather(), WeatherOverrides{}.Resolve())
}

func TestPollutantSnapshot(t *testing.T) {
	p := PollutantSnapshot{PM25: 85}
	assert.Equal(t, 85.0, p.Get(PM25))
	assert.Equal(t, 0.0, p.Get(NO2))
	assert.Equal(t, 50.0, p.GetOr(NO2, 50))
	assert.Equal(t, 85.0, p.GetOr(PM25, 100))

	c := p.Clone()
	c[PM25] = 1
	assert.Equal(t, 85.0, p[PM25])
}

func TestSeasonOf(t *testing.T) {
	assert.Equal(t, SeasonWinter, SeasonOf(11))
	assert.Equal(t, SeasonSummer, SeasonOf(4))
	assert.Equal(t, SeasonMonsoon, SeasonOf(8))
	assert.Equal(t, SeasonOther, SeasonOf(1))
	assert.True(t, StubbleSeason(10))
	assert.False(t, StubbleSeason(6))
}

func TestConfidenceTier(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ConfidenceTier(80))
	assert.Equal(t, ConfidenceMedium, ConfidenceTier(79.9))
	assert.Equal(t, ConfidenceMedium, ConfidenceTier(60))
	assert.Equal(t, ConfidenceLow, ConfidenceTier(59.9))
}

func TestCoordinatesString(t *testing.T) {
	assert.Equal(t, "28.6139, 77.209", Coordinates{Lat: 28.6139, Lon: 77.2090}.String())
}

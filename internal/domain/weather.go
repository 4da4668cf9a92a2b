package domain

import "time"

// Default weather values applied when a reading is absent
const (
	DefaultTemperature = 25.0
	DefaultHumidity    = 60.0
	DefaultWindSpeed   = 5.0
)

// WeatherSnapshot holds the meteorological inputs used by the prediction engine
type WeatherSnapshot struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // relative humidity, %
	WindSpeed   float64 `json:"wind_speed"`  // km/h
}

// DefaultWeather returns the snapshot used when no reading is available
func DefaultWeather() WeatherSnapshot {
	return WeatherSnapshot{
		Temperature: DefaultTemperature,
		Humidity:    DefaultHumidity,
		WindSpeed:   DefaultWindSpeed,
	}
}

// WeatherOverrides carries optional caller-supplied weather fields
type WeatherOverrides struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
}

// Apply returns base with every non-nil override substituted
func (o WeatherOverrides) Apply(base WeatherSnapshot) WeatherSnapshot {
	if o.Temperature != nil {
		base.Temperature = *o.Temperature
	}
	if o.Humidity != nil {
		base.Humidity = *o.Humidity
	}
	if o.WindSpeed != nil {
		base.WindSpeed = *o.WindSpeed
	}
	return base
}

// Resolve fills absent fields with the package defaults
func (o WeatherOverrides) Resolve() WeatherSnapshot {
	return o.Apply(DefaultWeather())
}

// Weather is a live weather observation for a location
type Weather struct {
	WeatherSnapshot
	FeelsLike   float64   `json:"feels_like"`
	Description string    `json:"description"`
	Pressure    int       `json:"pressure"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Timestamp   time.Time `json:"timestamp"`
	IsMock      bool      `json:"is_mock"`
}

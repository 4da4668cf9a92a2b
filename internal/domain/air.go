package domain

import (
	"strconv"
	"time"
)

// Pollutant is a pollutant code as reported by the upstream feed
type Pollutant string

const (
	PM25 Pollutant = "pm25"
	PM10 Pollutant = "pm10"
	NO2  Pollutant = "no2"
	SO2  Pollutant = "so2"
	CO   Pollutant = "co"
	O3   Pollutant = "o3"
)

// Pollutants lists every tracked pollutant in display order
var Pollutants = []Pollutant{PM25, PM10, NO2, SO2, CO, O3}

// PollutantSnapshot maps pollutant code to concentration
type PollutantSnapshot map[Pollutant]float64

// Get returns the concentration for code, or 0 when missing
func (p PollutantSnapshot) Get(code Pollutant) float64 {
	return p[code]
}

// GetOr returns the concentration for code, or def when the code is absent
func (p PollutantSnapshot) GetOr(code Pollutant, def float64) float64 {
	if v, ok := p[code]; ok {
		return v
	}
	return def
}

// Clone returns an independent copy
func (p PollutantSnapshot) Clone() PollutantSnapshot {
	out := make(PollutantSnapshot, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Coordinates is a WGS84 point
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// String renders the point as "lat, lon"
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// TemporalContext is the calendar position a prediction is made for
type TemporalContext struct {
	Hour      int  `json:"hour"`
	Day       int  `json:"day"`
	Month     int  `json:"month"`
	DayOfWeek int  `json:"day_of_week"` // Monday = 0
	Weekend   bool `json:"is_weekend"`
}

// NewTemporalContext derives the context from a wall-clock time
func NewTemporalContext(t time.Time) TemporalContext {
	dow := (int(t.Weekday()) + 6) % 7
	return TemporalContext{
		Hour:      t.Hour(),
		Day:       t.Day(),
		Month:     int(t.Month()),
		DayOfWeek: dow,
		Weekend:   dow >= 5,
	}
}

// FeedData is a station reading from the live air-quality feed
type FeedData struct {
	AQI        float64           `json:"aqi"`
	Pollutants PollutantSnapshot `json:"pollutants"`
	Station    string            `json:"station"`
	ObservedAt time.Time         `json:"observed_at"`
}

// CurrentAQI is the "current conditions" payload served to clients
type CurrentAQI struct {
	AQI        float64           `json:"aqi"`
	Category   string            `json:"category"`
	Location   string            `json:"location"`
	Pollutants PollutantSnapshot `json:"pollutants"`
	Timestamp  time.Time         `json:"timestamp"`
	IsMock     bool              `json:"is_mock"`
}

// AQICategory returns the US EPA category label for an AQI value
func AQICategory(aqi float64) string {
	switch {
	case aqi > 300:
		return "Hazardous"
	case aqi > 200:
		return "Very Unhealthy"
	case aqi > 150:
		return "Unhealthy"
	case aqi > 100:
		return "Unhealthy for Sensitive Groups"
	case aqi > 50:
		return "Moderate"
	default:
		return "Good"
	}
}

// Default coordinates (Delhi NCR)
const (
	DelhiCenterLat = 28.6139
	DelhiCenterLon = 77.2090
)

// Season is the seasonal bucket used by the explanation and attribution rules
type Season string

const (
	SeasonWinter  Season = "winter"
	SeasonSummer  Season = "summer"
	SeasonMonsoon Season = "monsoon"
	SeasonOther   Season = "other"
)

// SeasonOf buckets a month: Oct-Dec winter, Mar-May summer, Jul-Sep monsoon
func SeasonOf(month int) Season {
	switch month {
	case 10, 11, 12:
		return SeasonWinter
	case 3, 4, 5:
		return SeasonSummer
	case 7, 8, 9:
		return SeasonMonsoon
	default:
		return SeasonOther
	}
}

// StubbleSeason reports whether crop-residue burning is active in month
func StubbleSeason(month int) bool {
	return SeasonOf(month) == SeasonWinter
}

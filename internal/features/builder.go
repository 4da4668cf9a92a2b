// Package features turns pollutant, AQI and calendar snapshots into the
// ordered numeric vectors the learned models were trained on. Field order is
// never assumed: it always comes from the schema declared in a model artifact.
package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/smartcity/airquality/internal/domain"
)

// ErrMissingFeature is returned when a schema names a field the builder does not produce
var ErrMissingFeature = errors.New("feature not produced by builder")

// Row is a set of named feature values
type Row map[string]float64

// Schema is the ordered feature list declared by a model artifact
type Schema []string

// Vector is a row laid out in schema order
type Vector struct {
	Names  []string
	Values []float64
}

// Len returns the number of features
func (v Vector) Len() int {
	return len(v.Values)
}

// Validate checks the schema is non-empty and free of duplicates
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.New("features: empty schema")
	}
	seen := make(map[string]struct{}, len(s))
	for _, name := range s {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("features: duplicate field %q in schema", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Vector lays the row out in schema order
func (s Schema) Vector(row Row) (Vector, error) {
	if err := s.Validate(); err != nil {
		return Vector{}, err
	}
	values := make([]float64, len(s))
	for i, name := range s {
		v, ok := row[name]
		if !ok {
			return Vector{}, fmt.Errorf("features: field %q: %w", name, ErrMissingFeature)
		}
		values[i] = v
	}
	names := make([]string, len(s))
	copy(names, s)
	return Vector{Names: names, Values: values}, nil
}

// Equal reports whether two schemas declare the same fields in the same order
func (s Schema) Equal(other []string) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// ForecastInput is everything the forecast row is derived from
type ForecastInput struct {
	Pollutants domain.PollutantSnapshot
	CurrentAQI float64
	Location   domain.Coordinates
	Time       domain.TemporalContext
}

// ForecastRow builds the AQI forecaster's feature row.
//
// No AQI history is available at request time, so every lag and rolling-mean
// field carries the current AQI. This is an approximation whose accuracy
// impact has not been measured.
func ForecastRow(in ForecastInput) Row {
	p := in.Pollutants
	t := in.Time
	aqi := in.CurrentAQI

	return Row{
		"pm2_5_ugm3": p.Get(domain.PM25),
		"pm10_ugm3":  p.Get(domain.PM10),
		"no2_ugm3":   p.Get(domain.NO2),
		"so2_ugm3":   p.Get(domain.SO2),
		"co_ugm3":    p.Get(domain.CO),
		"o3_ugm3":    p.Get(domain.O3),

		"hour":        float64(t.Hour),
		"day":         float64(t.Day),
		"month":       float64(t.Month),
		"day_of_week": float64(t.DayOfWeek),
		"is_weekend":  boolFloat(t.Weekend),

		"month_sin": cyclicSin(t.Month, 12),
		"month_cos": cyclicCos(t.Month, 12),
		"hour_sin":  cyclicSin(t.Hour, 24),
		"hour_cos":  cyclicCos(t.Hour, 24),

		"lat": in.Location.Lat,
		"lon": in.Location.Lon,

		"AQI_t-1":          aqi,
		"AQI_t-6":          aqi,
		"AQI_t-12":         aqi,
		"AQI_t-24":         aqi,
		"rolling_mean_24h": aqi,
		"rolling_mean_72h": aqi,

		"pm_ratio":      PMRatio(p),
		"traffic_ratio": TrafficRatio(p),
	}
}

// AttributionRow builds the source attribution regressor's feature row
func AttributionRow(p domain.PollutantSnapshot, t domain.TemporalContext) Row {
	return Row{
		"pm25":         p.Get(domain.PM25),
		"pm10":         p.Get(domain.PM10),
		"no2":          p.Get(domain.NO2),
		"so2":          p.Get(domain.SO2),
		"co":           p.Get(domain.CO),
		"o3":           p.Get(domain.O3),
		"pm_ratio":     PMRatio(p),
		"no2_co_ratio": TrafficRatio(p),
		"hour":         float64(t.Hour),
		"month":        float64(t.Month),
	}
}

// PMRatio is PM10/(PM2.5+1); the +1 keeps near-zero PM2.5 from blowing up the ratio
func PMRatio(p domain.PollutantSnapshot) float64 {
	return p.Get(domain.PM10) / (p.Get(domain.PM25) + 1)
}

// TrafficRatio is NO2/(CO+1)
func TrafficRatio(p domain.PollutantSnapshot) float64 {
	return p.Get(domain.NO2) / (p.Get(domain.CO) + 1)
}

func cyclicSin(value, period int) float64 {
	return math.Sin(2 * math.Pi * float64(value) / float64(period))
}

func cyclicCos(value, period int) float64 {
	return math.Cos(2 * math.Pi * float64(value) / float64(period))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

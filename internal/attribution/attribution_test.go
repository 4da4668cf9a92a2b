package attribution

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/features"
	"github.com/smartcity/airquality/internal/model"
	"github.com/smartcity/airquality/internal/observability"
)

var attributionSchema = features.Schema{"pm25", "no2", "pm_ratio", "month"}

type stubRegressor struct {
	out  []float64
	err  error
	seen []float64
}

func (r *stubRegressor) Predict(x []float64) ([]float64, error) {
	r.seen = append([]float64(nil), x...)
	return r.out, r.err
}

type panickingRegressor struct{}

func (panickingRegressor) Predict([]float64) ([]float64, error) { panic("bad tree") }

type stubRecorder struct {
	types []string
}

func (r *stubRecorder) ObservePrediction(component, predictionType string, _ time.Duration) {
	r.types = append(r.types, component+"/"+predictionType)
}

func neutralWeather() domain.WeatherSnapshot {
	return domain.WeatherSnapshot{Temperature: 25, Humidity: 60, WindSpeed: 5}
}

func sum(m map[domain.Source]float64) float64 {
	var total float64
	for _, v := range m {
		total += v
	}
	return total
}

func argMax(m map[domain.Source]float64, order []domain.Source) domain.Source {
	best, bestV := domain.SourceUnknown, -1.0
	for _, s := range order {
		if m[s] > bestV {
			best, bestV = s, m[s]
		}
	}
	return best
}

func TestRawShares(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		month int
		want  map[domain.Source]float64
	}{
		{
			name:  "defaults out of season",
			in:    Input{Weather: neutralWeather()},
			month: 6,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 30, domain.SourceStubble: 5, domain.SourceIndustry: 25, domain.SourceConstruction: 25,
			},
		},
		{
			name: "traffic signature",
			in: Input{
				Pollutants: domain.PollutantSnapshot{domain.NO2: 70, domain.CO: 1.0},
				Weather:    neutralWeather(),
			},
			month: 6,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 45, domain.SourceStubble: 5, domain.SourceIndustry: 25, domain.SourceConstruction: 25,
			},
		},
		{
			name: "high CO alone",
			in: Input{
				Pollutants: domain.PollutantSnapshot{domain.NO2: 20, domain.CO: 2.5},
				Weather:    neutralWeather(),
			},
			month: 1,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 45, domain.SourceStubble: 5, domain.SourceIndustry: 25, domain.SourceConstruction: 25,
			},
		},
		{
			name: "low NO2",
			in: Input{
				Pollutants: domain.PollutantSnapshot{domain.NO2: 20},
				Weather:    neutralWeather(),
				FireCount:  10,
			},
			month: 11,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 20, domain.SourceStubble: 40, domain.SourceIndustry: 25, domain.SourceConstruction: 25,
			},
		},
		{
			name:  "stubble season without fires",
			in:    Input{Weather: neutralWeather()},
			month: 10,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 30, domain.SourceStubble: 20, domain.SourceIndustry: 25, domain.SourceConstruction: 25,
			},
		},
		{
			name: "coarse dust with hot stagnant air",
			in: Input{
				Pollutants: domain.PollutantSnapshot{domain.PM25: 50, domain.PM10: 150},
				Weather:    domain.WeatherSnapshot{Temperature: 32, Humidity: 40, WindSpeed: 2},
			},
			month: 5,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 30, domain.SourceStubble: 5, domain.SourceIndustry: 35, domain.SourceConstruction: 45,
			},
		},
		{
			name: "zero PM2.5 skips the coarse ratio",
			in: Input{
				Pollutants: domain.PollutantSnapshot{domain.PM25: 0, domain.PM10: 150},
				Weather:    neutralWeather(),
			},
			month: 6,
			want: map[domain.Source]float64{
				domain.SourceTraffic: 30, domain.SourceStubble: 5, domain.SourceIndustry: 25, domain.SourceConstruction: 25,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rawShares(tt.in, tt.month))
		})
	}
}

func TestRawShares_TrafficShareAboveBase(t *testing.T) {
	raw := rawShares(Input{Pollutants: domain.PollutantSnapshot{domain.NO2: 70, domain.CO: 1.0}, Weather: neutralWeather()}, 1)
	assert.Greater(t, raw[domain.SourceTraffic], 30.0)
}

func TestRawShares_FireBonusIsCapped(t *testing.T) {
	for _, fires := range []int{20, 50} {
		raw := rawShares(Input{FireCount: fires, Weather: neutralWeather()}, 11)
		assert.Equal(t, 50.0, raw[domain.SourceStubble], "fire count %d", fires)
	}
	raw := rawShares(Input{FireCount: 5, Weather: neutralWeather()}, 11)
	assert.Equal(t, 30.0, raw[domain.SourceStubble])
}

// percentages are rounded to 0.1 each, so four of them may miss 100 by
// slightly more than 0.1 once float error is added
const sumTolerance = 0.1 + 1e-9

func TestHeuristic_Attribute_Normalizes(t *testing.T) {
	traffic := map[string]domain.PollutantSnapshot{
		"low":      {domain.NO2: 20},
		"base":     {domain.NO2: 50, domain.CO: 1.5},
		"elevated": {domain.NO2: 70},
	}
	dust := map[string]domain.PollutantSnapshot{
		"fine":   {domain.PM25: 100, domain.PM10: 150},
		"coarse": {domain.PM25: 50, domain.PM10: 150},
	}
	weather := map[string]domain.WeatherSnapshot{
		"neutral":  neutralWeather(),
		"stagnant": {Temperature: 32, Humidity: 60, WindSpeed: 2},
	}
	type season struct {
		month int
		fires int
	}
	// out of season, in season without fires, then every fire bonus up to and past the cap
	seasons := []season{{6, 0}, {11, 0}}
	for fires := 1; fires <= 16; fires++ {
		seasons = append(seasons, season{11, fires})
	}

	h := NewHeuristic()
	cases := 0
	for tName, tp := range traffic {
		for dName, dp := range dust {
			for wName, w := range weather {
				for _, se := range seasons {
					p := tp.Clone()
					for k, v := range dp {
						p[k] = v
					}
					in := Input{Pollutants: p, Weather: w, FireCount: se.fires}
					res := h.Attribute(context.Background(), in, domain.TemporalContext{Month: se.month})

					msg := fmt.Sprintf("traffic=%s dust=%s weather=%s month=%d fires=%d", tName, dName, wName, se.month, se.fires)
					assert.InDelta(t, 100, sum(res.Contributions), sumTolerance, msg)
					for s, v := range res.Contributions {
						assert.GreaterOrEqual(t, v, 0.0, "%s source %s", msg, s)
					}
					assert.Equal(t, argMax(res.Contributions, heuristicSources), res.DominantSource, msg)
					assert.Equal(t, domain.PredictionSimulation, res.PredictionType)
					assert.Equal(t, HeuristicVersion, res.ModelVersion)
					cases++
				}
			}
		}
	}
	assert.Equal(t, 3*2*2*18, cases)
}

func TestRawShares_CoversRuleSpace(t *testing.T) {
	stubble := map[float64]bool{}
	for fires := 0; fires <= 16; fires++ {
		stubble[rawShares(Input{FireCount: fires, Weather: neutralWeather()}, 11)[domain.SourceStubble]] = true
	}
	stubble[rawShares(Input{Weather: neutralWeather()}, 6)[domain.SourceStubble]] = true

	want := map[float64]bool{5: true, 20: true}
	for v := 22.0; v <= 50; v += 2 {
		want[v] = true
	}
	assert.Equal(t, want, stubble)
}

func TestHeuristic_Attribute_Defaults(t *testing.T) {
	res := NewHeuristic().Attribute(context.Background(), Input{Weather: neutralWeather()}, domain.TemporalContext{Month: 6})

	assert.Equal(t, map[domain.Source]float64{
		domain.SourceTraffic:      35.3,
		domain.SourceStubble:      5.9,
		domain.SourceIndustry:     29.4,
		domain.SourceConstruction: 29.4,
	}, res.Contributions)
	assert.Equal(t, domain.SourceTraffic, res.DominantSource)
	assert.Equal(t, 80.0, res.Confidence)
	assert.Equal(t, domain.ConfidenceHigh, res.ConfidenceLevel)
	assert.False(t, res.FactorsConsidered["fire_data"])
	assert.Equal(t, 100.0, res.PollutantIndicators["pm25"])
	assert.Equal(t, 1.5, res.PollutantIndicators["pm_ratio"])
	assert.Contains(t, res.Explanation, "Vehicular traffic is the dominant pollution source")
	assert.Contains(t, res.Explanation, "out of season")
}

func TestHeuristic_Attribute_TieGoesToFirstSource(t *testing.T) {
	in := Input{
		Pollutants: domain.PollutantSnapshot{domain.PM25: 50, domain.PM10: 150, domain.NO2: 70},
		Weather:    neutralWeather(),
	}
	res := NewHeuristic().Attribute(context.Background(), in, domain.TemporalContext{Month: 6})

	assert.Equal(t, 37.5, res.Contributions[domain.SourceTraffic])
	assert.Equal(t, 37.5, res.Contributions[domain.SourceConstruction])
	assert.Equal(t, domain.SourceTraffic, res.DominantSource)
}

func TestHeuristic_Attribute_Confidence(t *testing.T) {
	h := NewHeuristic()
	for wind, want := range map[float64]float64{0: 70, 2: 74, 5: 80, 10: 85} {
		w := domain.WeatherSnapshot{Temperature: 25, Humidity: 60, WindSpeed: wind}
		res := h.Attribute(context.Background(), Input{Weather: w}, domain.TemporalContext{Month: 6})
		assert.Equal(t, want, res.Confidence, "wind %.0f", wind)
	}
}

func TestNormalize_ZeroTotal(t *testing.T) {
	out, dominant, pct := normalize([]share{{domain.SourceTraffic, 0}, {domain.SourceIndustry, 0}})

	assert.Equal(t, map[domain.Source]float64{domain.SourceTraffic: 0, domain.SourceIndustry: 0}, out)
	assert.Equal(t, domain.SourceUnknown, dominant)
	assert.Zero(t, pct)
}

func newRegressor(p model.Predictor, sources ...string) *model.Regressor {
	return model.NewRegressor("v1.0-ml", attributionSchema, sources, p)
}

func TestLearned_Attribute(t *testing.T) {
	reg := &stubRegressor{out: []float64{10, 30, 20, 40, 0}}
	l := NewLearned(newRegressor(reg), observability.NewDiscardLogger())

	p := domain.PollutantSnapshot{domain.PM25: 80, domain.PM10: 200, domain.NO2: 40}
	res := l.Attribute(context.Background(), Input{Pollutants: p}, domain.TemporalContext{Month: 11})

	assert.Equal(t, map[domain.Source]float64{
		domain.SourceTraffic:      10,
		domain.SourceStubble:      30,
		domain.SourceIndustry:     20,
		domain.SourceConstruction: 40,
		domain.SourceOther:        0,
	}, res.Contributions)
	assert.Equal(t, domain.SourceConstruction, res.DominantSource)
	assert.InDelta(t, 83.3, res.Confidence, 1e-9)
	assert.Equal(t, domain.ConfidenceHigh, res.ConfidenceLevel)
	assert.Equal(t, domain.PredictionML, res.PredictionType)
	assert.Equal(t, "v1.0-ml", res.ModelVersion)
	assert.Equal(t, []float64{80, 40, 200.0 / 81, 11}, reg.seen)
}

func TestLearned_Attribute_ClipsNegatives(t *testing.T) {
	l := NewLearned(newRegressor(&stubRegressor{out: []float64{-5, 10, 10, 0, 0}}), observability.NewDiscardLogger())

	res := l.Attribute(context.Background(), Input{}, domain.TemporalContext{Month: 3})

	assert.Equal(t, 0.0, res.Contributions[domain.SourceTraffic])
	assert.Equal(t, 50.0, res.Contributions[domain.SourceStubble])
	assert.Equal(t, 50.0, res.Contributions[domain.SourceIndustry])
	assert.Equal(t, domain.SourceStubble, res.DominantSource)
	assert.InDelta(t, 100, sum(res.Contributions), 0.1)
}

func TestLearned_Attribute_ZeroOutput(t *testing.T) {
	l := NewLearned(newRegressor(&stubRegressor{out: []float64{0, -1, 0, 0, 0}}), observability.NewDiscardLogger())

	res := l.Attribute(context.Background(), Input{}, domain.TemporalContext{Month: 3})

	assert.Equal(t, domain.SourceUnknown, res.DominantSource)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, domain.ConfidenceNone, res.ConfidenceLevel)
	assert.Zero(t, sum(res.Contributions))
	assert.Len(t, res.Contributions, 5)
}

func TestLearned_Attribute_CustomSources(t *testing.T) {
	l := NewLearned(newRegressor(&stubRegressor{out: []float64{1, 3}}, "vehicles", "road_dust"), observability.NewDiscardLogger())

	res := l.Attribute(context.Background(), Input{}, domain.TemporalContext{Month: 3})

	assert.Equal(t, map[domain.Source]float64{"vehicles": 25, "road_dust": 75}, res.Contributions)
	assert.Equal(t, domain.Source("road_dust"), res.DominantSource)
	assert.Contains(t, res.Explanation, "road dust is the dominant pollution source")
}

func TestLearned_Attribute_Faults(t *testing.T) {
	tests := []struct {
		name string
		p    model.Predictor
	}{
		{"error", &stubRegressor{err: errors.New("bad input")}},
		{"wrong width", &stubRegressor{out: []float64{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewLearned(newRegressor(tt.p), observability.NewDiscardLogger()).
				Attribute(context.Background(), Input{}, domain.TemporalContext{})

			assert.Equal(t, domain.PredictionError, res.PredictionType)
			assert.Equal(t, domain.SourceUnknown, res.DominantSource)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestNew_Selection(t *testing.T) {
	log := observability.NewDiscardLogger()

	learned := New(Options{Regressor: newRegressor(&stubRegressor{out: []float64{1, 1, 1, 1, 1}}), Fallback: true, Logger: log})
	assert.Equal(t, domain.PredictionML, learned.Mode())
	assert.True(t, learned.ModelState().Loaded)

	fallback := New(Options{Fallback: true, Logger: log})
	assert.Equal(t, domain.PredictionSimulation, fallback.Mode())
	assert.Equal(t, HeuristicVersion, fallback.ModelVersion())

	off := New(Options{Logger: log})
	assert.Equal(t, domain.PredictionNotLoaded, off.Mode())
	res := off.Attribute(context.Background(), Input{})
	assert.Equal(t, domain.PredictionNotLoaded, res.PredictionType)
	assert.Equal(t, domain.SourceUnknown, res.DominantSource)
	assert.Empty(t, res.Contributions)
}

func TestAttributor_Attribute_UsesClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC))
	a := New(Options{Fallback: true, Clock: clock, Logger: observability.NewDiscardLogger()})

	res := a.Attribute(context.Background(), Input{FireCount: 20, Weather: neutralWeather()})

	assert.Equal(t, domain.SourceStubble, res.DominantSource)
	assert.True(t, res.FactorsConsidered["fire_data"])
}

func TestAttributor_Attribute_RecoversPanic(t *testing.T) {
	rec := &stubRecorder{}
	a := New(Options{
		Regressor: newRegressor(panickingRegressor{}),
		Logger:    observability.NewDiscardLogger(),
		Recorder:  rec,
	})

	res := a.Attribute(context.Background(), Input{})

	assert.Equal(t, domain.PredictionError, res.PredictionType)
	assert.Equal(t, "bad tree", res.Error)
	require.Equal(t, []string{"attribution/error"}, rec.types)
}

func TestExplanations_ShareDustRule(t *testing.T) {
	// raw PM10/PM2.5 is 2.02 while PM10/(PM2.5+1) is 1.98
	p := domain.PollutantSnapshot{domain.PM25: 50, domain.PM10: 101, domain.NO2: 45}
	want := "A high PM10 to PM2.5 ratio (2.0) suggests construction and road dust."

	heuristic := NewHeuristic().Attribute(context.Background(), Input{Pollutants: p, Weather: neutralWeather()}, domain.TemporalContext{Month: 6})
	assert.Contains(t, heuristic.Explanation, want)

	learned := NewLearned(newRegressor(&stubRegressor{out: []float64{1, 1, 1, 5, 1}}), observability.NewDiscardLogger()).
		Attribute(context.Background(), Input{Pollutants: p}, domain.TemporalContext{Month: 6})
	assert.Contains(t, learned.Explanation, want)

	clean := domain.PollutantSnapshot{domain.PM25: 50, domain.PM10: 100, domain.NO2: 45}
	learned = NewLearned(newRegressor(&stubRegressor{out: []float64{1, 1, 1, 5, 1}}), observability.NewDiscardLogger()).
		Attribute(context.Background(), Input{Pollutants: clean}, domain.TemporalContext{Month: 6})
	assert.NotContains(t, learned.Explanation, "road dust.")
}

func TestAttributor_Attribute_SimulatedReadings(t *testing.T) {
	log := observability.NewDiscardLogger()
	placeholder := Input{Pollutants: domain.PollutantSnapshot{domain.PM25: 85, domain.NO2: 45}, Simulated: true, Weather: neutralWeather()}

	reg := &stubRegressor{out: []float64{1, 1, 1, 1, 1}}
	learned := New(Options{Regressor: newRegressor(reg), Logger: log})
	res := learned.Attribute(context.Background(), placeholder)
	assert.Equal(t, domain.PredictionError, res.PredictionType)
	assert.Equal(t, "live pollutant readings unavailable", res.Error)
	assert.Nil(t, reg.seen, "regressor must not run on placeholder readings")

	heuristic := New(Options{Fallback: true, Logger: log})
	res = heuristic.Attribute(context.Background(), placeholder)
	assert.Equal(t, domain.PredictionSimulation, res.PredictionType)
	assert.Equal(t, 85.0, res.PollutantIndicators["pm25"])
}

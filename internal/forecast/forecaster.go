// Package forecast produces multi-horizon AQI forecasts. Two strategies share
// one result shape: a rule-based heuristic and a learned booster ensemble.
// The Forecaster picks one of them at construction and keeps it for the
// lifetime of the process.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/model"
)

// Feed fetches a live station reading for a point
type Feed interface {
	FeedByGeo(ctx context.Context, lat, lon float64) (domain.FeedData, error)
}

// Recorder receives one observation per served prediction
type Recorder interface {
	ObservePrediction(component, predictionType string, elapsed time.Duration)
}

// Input is a forecast request
type Input struct {
	// CurrentAQI is the baseline; when nil the learned strategy reads it from the feed.
	CurrentAQI *float64
	Location   domain.Coordinates
	// Pollutants, when nil, are fetched from the feed by the learned strategy.
	Pollutants domain.PollutantSnapshot
	Weather    domain.WeatherSnapshot
	// Time overrides the wall clock.
	Time *domain.TemporalContext
}

// Strategy is one way of producing a forecast
type Strategy interface {
	Predict(ctx context.Context, in Input, tc domain.TemporalContext) domain.ForecastResult
	PredictionType() domain.PredictionType
	ModelVersion() string
}

// Options configures a Forecaster
type Options struct {
	Ensemble *model.Ensemble
	Feed     Feed
	Noise    NoiseSource
	// Fallback selects the heuristic when the ensemble is not loaded.
	Fallback bool
	Clock    clockwork.Clock
	Logger   logrus.FieldLogger
	Recorder Recorder
}

// Forecaster serves forecasts from the strategy selected at construction
type Forecaster struct {
	strategy Strategy
	state    model.State
	clock    clockwork.Clock
	log      logrus.FieldLogger
	recorder Recorder
}

// New selects the strategy: the ensemble when loaded, else the heuristic when
// fallback is enabled, else the ensemble's not-loaded path.
func New(opts Options) *Forecaster {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Ensemble == nil {
		opts.Ensemble = model.NewEnsemble(model.DefaultEnsembleVersion, nil)
	}
	if opts.Noise == nil {
		opts.Noise = ZeroNoise{}
	}
	log := opts.Logger.WithField("component", "forecaster")

	ensemble := NewEnsemble(opts.Ensemble, opts.Feed, log)
	f := &Forecaster{
		strategy: ensemble,
		state:    opts.Ensemble.State(),
		clock:    opts.Clock,
		log:      log,
		recorder: opts.Recorder,
	}
	if !opts.Ensemble.Loaded() && opts.Fallback {
		f.strategy = NewHeuristic(opts.Noise)
		log.Info("ensemble unavailable, serving rule-based forecasts")
	}
	log.WithField("prediction_type", f.strategy.PredictionType()).Info("forecaster ready")
	return f
}

// Mode returns the prediction type of the active strategy
func (f *Forecaster) Mode() domain.PredictionType {
	return f.strategy.PredictionType()
}

// ModelVersion returns the version tag of the active strategy
func (f *Forecaster) ModelVersion() string {
	return f.strategy.ModelVersion()
}

// ModelState returns the ensemble's load outcome
func (f *Forecaster) ModelState() model.State {
	return f.state
}

// Predict never fails: faults become a result with prediction_type "error".
func (f *Forecaster) Predict(ctx context.Context, in Input) (res domain.ForecastResult) {
	start := f.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			f.log.WithField("panic", r).Error("forecast panicked")
			res = errorResult(f.strategy.ModelVersion(), fmt.Sprintf("%v", r))
		}
		if f.recorder != nil {
			f.recorder.ObservePrediction("forecast", string(res.PredictionType), f.clock.Since(start))
		}
	}()

	tc := domain.NewTemporalContext(start)
	if in.Time != nil {
		tc = *in.Time
	}
	return f.strategy.Predict(ctx, in, tc)
}

func notLoadedResult(version string) domain.ForecastResult {
	return domain.ForecastResult{
		Trend:                 domain.TrendUnknown,
		ConfidenceLevel:       domain.ConfidenceNone,
		ConfidenceExplanation: "Model not loaded",
		Factors:               map[string]any{},
		PredictionType:        domain.PredictionNotLoaded,
		ModelVersion:          version,
		Explanation:           "ML model files are not configured. Please upload model files to enable predictions.",
		WeatherConditions:     map[string]any{},
		Error:                 "ML model not loaded",
		Message:               "AQI forecasting ML model is not available. Please configure model files in the model directory.",
	}
}

func errorResult(version, err string) domain.ForecastResult {
	return domain.ForecastResult{
		Trend:             domain.TrendUnknown,
		ConfidenceLevel:   domain.ConfidenceNone,
		Factors:           map[string]any{},
		PredictionType:    domain.PredictionError,
		ModelVersion:      version,
		WeatherConditions: map[string]any{},
		Error:             err,
		Message:           "Error during prediction",
	}
}

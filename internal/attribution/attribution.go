// Package attribution estimates how much each emission source contributes to
// the current pollution level. A rule-based heuristic and a learned
// multi-output regressor produce the same result shape.
package attribution

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/model"
	"github.com/smartcity/airquality/pkg/utils"
)

// Recorder receives one observation per served attribution
type Recorder interface {
	ObservePrediction(component, predictionType string, elapsed time.Duration)
}

// Input is an attribution request
type Input struct {
	Pollutants domain.PollutantSnapshot
	Weather    domain.WeatherSnapshot
	// Simulated marks placeholder readings; the learned strategy refuses them.
	Simulated bool
	// FireCount is the number of active fires detected upwind.
	FireCount int
	// Time overrides the wall clock.
	Time *domain.TemporalContext
}

// Strategy is one way of attributing pollution to sources
type Strategy interface {
	Attribute(ctx context.Context, in Input, tc domain.TemporalContext) domain.AttributionResult
	PredictionType() domain.PredictionType
	ModelVersion() string
}

// Options configures an Attributor
type Options struct {
	Regressor *model.Regressor
	// Fallback selects the heuristic when the regressor is not loaded.
	Fallback bool
	Clock    clockwork.Clock
	Logger   logrus.FieldLogger
	Recorder Recorder
}

// Attributor serves attributions from the strategy selected at construction
type Attributor struct {
	strategy Strategy
	state    model.State
	clock    clockwork.Clock
	log      logrus.FieldLogger
	recorder Recorder
}

// New selects the learned strategy when loaded, else the heuristic when
// fallback is enabled, else a strategy answering "not_loaded".
func New(opts Options) *Attributor {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	log := opts.Logger.WithField("component", "attributor")

	a := &Attributor{
		clock:    opts.Clock,
		log:      log,
		recorder: opts.Recorder,
	}
	switch {
	case opts.Regressor != nil && opts.Regressor.Loaded():
		a.strategy = NewLearned(opts.Regressor, log)
	case opts.Fallback:
		a.strategy = NewHeuristic()
		log.Info("attribution model unavailable, serving rule-based attributions")
	default:
		a.strategy = unavailable{}
	}
	if opts.Regressor != nil {
		a.state = opts.Regressor.State()
	}
	log.WithField("prediction_type", a.strategy.PredictionType()).Info("attributor ready")
	return a
}

// Mode returns the prediction type of the active strategy
func (a *Attributor) Mode() domain.PredictionType {
	return a.strategy.PredictionType()
}

// ModelVersion returns the version tag of the active strategy
func (a *Attributor) ModelVersion() string {
	return a.strategy.ModelVersion()
}

// ModelState returns the regressor's load outcome
func (a *Attributor) ModelState() model.State {
	return a.state
}

// Attribute never fails: faults become a result with prediction_type "error".
func (a *Attributor) Attribute(ctx context.Context, in Input) (res domain.AttributionResult) {
	start := a.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("attribution panicked")
			res = errorResult(a.strategy.ModelVersion(), fmt.Sprintf("%v", r))
		}
		if a.recorder != nil {
			a.recorder.ObservePrediction("attribution", string(res.PredictionType), a.clock.Since(start))
		}
	}()

	if in.Simulated && a.strategy.PredictionType() == domain.PredictionML {
		a.log.Warn("refusing to run the regressor on placeholder readings")
		return errorResult(a.strategy.ModelVersion(), "live pollutant readings unavailable")
	}

	tc := domain.NewTemporalContext(start)
	if in.Time != nil {
		tc = *in.Time
	}
	return a.strategy.Attribute(ctx, in, tc)
}

// unavailable answers every request with the not-loaded result
type unavailable struct{}

func (unavailable) Attribute(context.Context, Input, domain.TemporalContext) domain.AttributionResult {
	return notLoadedResult(model.DefaultRegressorVersion)
}

func (unavailable) PredictionType() domain.PredictionType { return domain.PredictionNotLoaded }

func (unavailable) ModelVersion() string { return model.DefaultRegressorVersion }

// share is one source's raw weight, kept in presentation order
type share struct {
	source domain.Source
	value  float64
}

// normalize converts raw weights into percentages rounded to 0.1 and picks
// the dominant source. Ties go to the earliest source. A zero total yields
// all-zero contributions and dominant "unknown".
func normalize(shares []share) (map[domain.Source]float64, domain.Source, float64) {
	var total float64
	for _, s := range shares {
		total += s.value
	}

	out := make(map[domain.Source]float64, len(shares))
	if total <= 0 {
		for _, s := range shares {
			out[s.source] = 0
		}
		return out, domain.SourceUnknown, 0
	}

	dominant, best := domain.SourceUnknown, -1.0
	for _, s := range shares {
		pct := utils.RoundTo(s.value/total*100, 1)
		out[s.source] = pct
		if pct > best {
			dominant, best = s.source, pct
		}
	}
	return out, dominant, best
}

func notLoadedResult(version string) domain.AttributionResult {
	return domain.AttributionResult{
		Contributions:         map[domain.Source]float64{},
		DominantSource:        domain.SourceUnknown,
		ConfidenceLevel:       domain.ConfidenceNone,
		ConfidenceExplanation: "Model not loaded",
		FactorsConsidered:     map[string]bool{},
		PredictionType:        domain.PredictionNotLoaded,
		ModelVersion:          version,
		Explanation:           "ML model files are not configured. Please upload model files to enable source attribution.",
		PollutantIndicators:   map[string]float64{},
		Error:                 "ML model not loaded",
		Message:               "Source attribution ML model is not available. Please configure model files in the model directory.",
	}
}

func errorResult(version, err string) domain.AttributionResult {
	return domain.AttributionResult{
		Contributions:       map[domain.Source]float64{},
		DominantSource:      domain.SourceUnknown,
		ConfidenceLevel:     domain.ConfidenceNone,
		FactorsConsidered:   map[string]bool{},
		PredictionType:      domain.PredictionError,
		ModelVersion:        version,
		PollutantIndicators: map[string]float64{},
		Error:               err,
		Message:             "Error during source attribution",
	}
}

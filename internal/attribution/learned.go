package attribution

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/features"
	"github.com/smartcity/airquality/internal/model"
	"github.com/smartcity/airquality/pkg/utils"
)

var learnedConfidenceText = map[domain.ConfidenceLevel]string{
	domain.ConfidenceHigh:   "High confidence: The model clearly separates the dominant source.",
	domain.ConfidenceMedium: "Medium confidence: Several sources contribute comparable shares.",
	domain.ConfidenceLow:    "Lower confidence: No single source stands out in the model output.",
	domain.ConfidenceNone:   "No confidence: The model attributed no pollution to any source.",
}

// Learned attributes pollution with a pre-trained multi-output regressor
type Learned struct {
	model *model.Regressor
	log   logrus.FieldLogger
}

// NewLearned creates the learned strategy
func NewLearned(m *model.Regressor, log logrus.FieldLogger) *Learned {
	return &Learned{model: m, log: log}
}

// PredictionType implements Strategy
func (l *Learned) PredictionType() domain.PredictionType {
	return l.model.State().PredictionType
}

// ModelVersion implements Strategy
func (l *Learned) ModelVersion() string {
	return l.model.State().ModelVersion
}

// Attribute implements Strategy
func (l *Learned) Attribute(_ context.Context, in Input, tc domain.TemporalContext) domain.AttributionResult {
	version := l.ModelVersion()
	if !l.model.Loaded() {
		return notLoadedResult(version)
	}

	vec, err := l.model.Schema().Vector(features.AttributionRow(in.Pollutants, tc))
	if err != nil {
		l.log.WithError(err).Error("feature build failed")
		return errorResult(version, err.Error())
	}

	out, err := l.model.Model().Predict(vec.Values)
	if err != nil {
		l.log.WithError(err).Error("regressor prediction failed")
		return errorResult(version, err.Error())
	}
	sources := l.model.Sources()
	if len(out) != len(sources) {
		err := fmt.Errorf("attribution: regressor returned %d outputs for %d sources", len(out), len(sources))
		l.log.WithError(err).Error("regressor prediction failed")
		return errorResult(version, err.Error())
	}

	shares := make([]share, len(sources))
	for i, name := range sources {
		shares[i] = share{source: domain.Source(name), value: max(out[i], 0)}
	}
	contributions, dominant, pct := normalize(shares)

	confidence := 0.0
	level := domain.ConfidenceNone
	if dominant != domain.SourceUnknown {
		confidence = min(95, 70+pct/3)
		level = domain.ConfidenceTier(confidence)
	}

	return domain.AttributionResult{
		Contributions:         contributions,
		DominantSource:        dominant,
		Confidence:            utils.RoundTo(confidence, 1),
		ConfidenceLevel:       level,
		ConfidenceExplanation: learnedConfidenceText[level],
		FactorsConsidered: map[string]bool{
			"pollutant_ratios":   true,
			"seasonal_factors":   true,
			"weather_conditions": false,
			"fire_data":          false,
		},
		PredictionType:      domain.PredictionML,
		ModelVersion:        version,
		Explanation:         learnedExplanation(dominant, pct, in.Pollutants, tc.Month),
		PollutantIndicators: learnedIndicators(in.Pollutants),
	}
}

func learnedIndicators(p domain.PollutantSnapshot) map[string]float64 {
	return map[string]float64{
		"pm25":         p.Get(domain.PM25),
		"pm10":         p.Get(domain.PM10),
		"no2":          p.Get(domain.NO2),
		"co":           p.Get(domain.CO),
		"pm_ratio":     utils.RoundTo(features.PMRatio(p), 2),
		"no2_co_ratio": utils.RoundTo(features.TrafficRatio(p), 2),
	}
}

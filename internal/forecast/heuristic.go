package forecast

import (
	"context"
	"math"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/pkg/utils"
)

// HeuristicVersion tags rule-based forecasts
const HeuristicVersion = "v1.0-simulation"

const (
	maxAQI        = 500.0
	noiseStd48h   = 5.0
	noiseStd72h   = 8.0
	typicalAQI    = 150.0
	maxConfidence = 95.0
)

var heuristicConfidenceText = map[domain.ConfidenceLevel]string{
	domain.ConfidenceHigh:   "High confidence: Conditions are close to typical patterns and winds aid pollutant dispersion.",
	domain.ConfidenceMedium: "Medium confidence: Conditions deviate from typical patterns, adding uncertainty to the rule-based projection.",
	domain.ConfidenceLow:    "Lower confidence: Extreme pollution levels or stagnant air make the rule-based projection uncertain.",
}

// Heuristic forecasts with closed-form weather and time-of-day adjustments
type Heuristic struct {
	noise NoiseSource
}

// NewHeuristic creates the rule-based strategy
func NewHeuristic(noise NoiseSource) *Heuristic {
	if noise == nil {
		noise = ZeroNoise{}
	}
	return &Heuristic{noise: noise}
}

// PredictionType implements Strategy
func (h *Heuristic) PredictionType() domain.PredictionType {
	return domain.PredictionSimulation
}

// ModelVersion implements Strategy
func (h *Heuristic) ModelVersion() string {
	return HeuristicVersion
}

// timeWindow classifies the hour; rush hour wins over pre-dawn
type timeWindow string

const (
	windowRushHour timeWindow = "rush_hour"
	windowPreDawn  timeWindow = "pre_dawn"
	windowNormal   timeWindow = "normal"
)

func classifyHour(hour int) timeWindow {
	switch {
	case (hour >= 7 && hour <= 10) || (hour >= 18 && hour <= 21):
		return windowRushHour
	case hour >= 2 && hour <= 5:
		return windowPreDawn
	default:
		return windowNormal
	}
}

// trendFactor is the multiplicative adjustment applied to the current AQI
func trendFactor(w domain.WeatherSnapshot, hour int) float64 {
	factor := 1.0

	if w.Temperature > 30 {
		factor += 0.05
	}
	if w.Humidity > 70 {
		factor += 0.08
	}
	if w.WindSpeed < 3 {
		factor += 0.12
	} else if w.WindSpeed > 10 {
		factor -= 0.08
	}

	switch classifyHour(hour) {
	case windowRushHour:
		factor += 0.10
	case windowPreDawn:
		factor -= 0.05
	}
	return factor
}

func heuristicConfidence(aqi, wind float64) float64 {
	c := 85 - math.Abs(aqi-typicalAQI)/10 + wind*2
	return utils.Clamp(c, 0, maxConfidence)
}

func heuristicTrend(current, aqi48h float64) domain.Trend {
	switch {
	case aqi48h > current*1.1:
		return domain.TrendIncreasing
	case aqi48h < current*0.9:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// Predict implements Strategy
func (h *Heuristic) Predict(_ context.Context, in Input, tc domain.TemporalContext) domain.ForecastResult {
	if in.CurrentAQI == nil {
		return errorResult(HeuristicVersion, "current AQI is required for rule-based forecasts")
	}
	aqi := *in.CurrentAQI
	w := in.Weather

	factor := trendFactor(w, tc.Hour)
	aqi48h := utils.Clamp(aqi*factor+h.noise.Normal(noiseStd48h), 0, maxAQI)
	aqi72h := utils.Clamp(aqi*factor*1.02+h.noise.Normal(noiseStd72h), 0, maxAQI)

	trend := heuristicTrend(aqi, aqi48h)
	confidence := heuristicConfidence(aqi, w.WindSpeed)
	level := domain.ConfidenceTier(confidence)

	return domain.ForecastResult{
		AQI48h:                utils.FloatPtr(utils.RoundTo(aqi48h, 1)),
		AQI72h:                utils.FloatPtr(utils.RoundTo(aqi72h, 1)),
		Trend:                 trend,
		Confidence:            utils.RoundTo(confidence, 1),
		ConfidenceLevel:       level,
		ConfidenceExplanation: heuristicConfidenceText[level],
		Factors:               heuristicFactors(w, tc, factor),
		PredictionType:        domain.PredictionSimulation,
		ModelVersion:          HeuristicVersion,
		Explanation:           heuristicExplanation(aqi, w, tc, trend),
		WeatherConditions: map[string]any{
			"temperature": w.Temperature,
			"humidity":    w.Humidity,
			"wind_speed":  w.WindSpeed,
			"current_aqi": aqi,
			"location":    in.Location.String(),
		},
	}
}

func heuristicFactors(w domain.WeatherSnapshot, tc domain.TemporalContext, factor float64) map[string]any {
	temp, humidity, wind := "normal", "normal", "moderate"
	if w.Temperature > 30 {
		temp = "high"
	}
	if w.Humidity > 70 {
		humidity = "high"
	}
	if w.WindSpeed < 3 {
		wind = "calm"
	} else if w.WindSpeed > 10 {
		wind = "strong"
	}
	return map[string]any{
		"temperature":  temp,
		"humidity":     humidity,
		"wind":         wind,
		"time_of_day":  string(classifyHour(tc.Hour)),
		"season":       string(domain.SeasonOf(tc.Month)),
		"trend_factor": utils.RoundTo(factor, 3),
		"model_type":   "rule-based simulation",
	}
}

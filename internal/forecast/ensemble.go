package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/internal/features"
	"github.com/smartcity/airquality/internal/model"
	"github.com/smartcity/airquality/pkg/utils"
)

// trendBand is the absolute 48h change, in AQI points, that counts as a trend
const trendBand = 5.0

var ensembleConfidenceText = map[domain.ConfidenceLevel]string{
	domain.ConfidenceHigh:   "High confidence: Ensemble models show strong agreement on predictions.",
	domain.ConfidenceMedium: "Medium confidence: Some variability in ensemble predictions.",
	domain.ConfidenceLow:    "Lower confidence: Significant uncertainty in ensemble predictions.",
}

// Ensemble forecasts by averaging independently trained boosters
type Ensemble struct {
	model *model.Ensemble
	feed  Feed
	log   logrus.FieldLogger
}

// NewEnsemble creates the learned strategy. A nil feed means pollutants must be supplied.
func NewEnsemble(m *model.Ensemble, feed Feed, log logrus.FieldLogger) *Ensemble {
	return &Ensemble{model: m, feed: feed, log: log}
}

// PredictionType implements Strategy
func (e *Ensemble) PredictionType() domain.PredictionType {
	return e.model.State().PredictionType
}

// ModelVersion implements Strategy
func (e *Ensemble) ModelVersion() string {
	return e.model.State().ModelVersion
}

// Predict implements Strategy
func (e *Ensemble) Predict(ctx context.Context, in Input, tc domain.TemporalContext) domain.ForecastResult {
	version := e.ModelVersion()
	if !e.model.Loaded() {
		return notLoadedResult(version)
	}

	pollutants := in.Pollutants
	var current float64
	if in.CurrentAQI != nil {
		current = *in.CurrentAQI
	}

	if pollutants == nil || in.CurrentAQI == nil {
		data, err := e.fetch(ctx, in.Location)
		if err != nil {
			e.log.WithError(err).Warn("live feed unavailable for ML forecast")
			res := errorResult(version, "Failed to fetch AQI data")
			res.Message = "Could not fetch current AQI data from WAQI API"
			return res
		}
		if pollutants == nil {
			pollutants = data.Pollutants
		}
		if in.CurrentAQI == nil {
			current = data.AQI
		}
	}

	vec, err := e.model.Schema().Vector(features.ForecastRow(features.ForecastInput{
		Pollutants: pollutants,
		CurrentAQI: current,
		Location:   in.Location,
		Time:       tc,
	}))
	if err != nil {
		e.log.WithError(err).Error("feature build failed")
		return errorResult(version, err.Error())
	}

	preds, err := e.run(ctx, vec)
	if err != nil {
		e.log.WithError(err).Error("ensemble prediction failed")
		return errorResult(version, err.Error())
	}

	mean, std := aggregate(preds)
	aqi24h, aqi48h, aqi72h := mean[0], mean[1], mean[2]
	confidence := ensembleConfidence(std)
	level := domain.ConfidenceTier(confidence)
	trend := ensembleTrend(current, aqi48h)

	agreement := "medium"
	if confidence > 75 {
		agreement = "high"
	}

	return domain.ForecastResult{
		AQI24h:                utils.FloatPtr(utils.RoundTo(aqi24h, 1)),
		AQI48h:                utils.FloatPtr(utils.RoundTo(aqi48h, 1)),
		AQI72h:                utils.FloatPtr(utils.RoundTo(aqi72h, 1)),
		Trend:                 trend,
		Confidence:            utils.RoundTo(confidence, 1),
		ConfidenceLevel:       level,
		ConfidenceExplanation: ensembleConfidenceText[level],
		Factors: map[string]any{
			"ensemble_agreement": agreement,
			"data_quality":       "good",
			"model_type":         "XGBoost ensemble",
			"boosters":           len(preds),
		},
		PredictionType: domain.PredictionML,
		ModelVersion:   version,
		Explanation:    ensembleExplanation(current, trend),
		WeatherConditions: map[string]any{
			"current_aqi": current,
			"location":    in.Location.String(),
		},
	}
}

func (e *Ensemble) fetch(ctx context.Context, loc domain.Coordinates) (domain.FeedData, error) {
	if e.feed == nil {
		return domain.FeedData{}, fmt.Errorf("forecast: no live feed configured")
	}
	return e.feed.FeedByGeo(ctx, loc.Lat, loc.Lon)
}

// run evaluates every booster concurrently; row i of the result belongs to booster i
func (e *Ensemble) run(ctx context.Context, vec features.Vector) ([][]float64, error) {
	boosters := e.model.Boosters()
	preds := make([][]float64, len(boosters))

	g, _ := errgroup.WithContext(ctx)
	for i, b := range boosters {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("forecast: booster %d panicked: %v", i, r)
				}
			}()
			out, err := b.Predict(vec.Values)
			if err != nil {
				return fmt.Errorf("forecast: booster %d: %w", i, err)
			}
			if len(out) != model.HorizonCount {
				return fmt.Errorf("forecast: booster %d returned %d horizons, want %d", i, len(out), model.HorizonCount)
			}
			preds[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

// aggregate returns the column-wise mean and population standard deviation
func aggregate(preds [][]float64) (mean, std []float64) {
	mean = make([]float64, model.HorizonCount)
	std = make([]float64, model.HorizonCount)
	column := make([]float64, len(preds))
	for h := 0; h < model.HorizonCount; h++ {
		for i := range preds {
			column[i] = preds[i][h]
		}
		mean[h] = utils.Mean(column)
		std[h] = utils.StdDev(column)
	}
	return mean, std
}

// ensembleConfidence decays from 100 as boosters disagree: 100·exp(−mean(std)/10)
func ensembleConfidence(std []float64) float64 {
	return 100 * math.Exp(-utils.Mean(std)/10)
}

func ensembleTrend(current, aqi48h float64) domain.Trend {
	switch {
	case aqi48h > current+trendBand:
		return domain.TrendIncreasing
	case aqi48h < current-trendBand:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

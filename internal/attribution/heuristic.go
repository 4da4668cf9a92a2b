package attribution

import (
	"context"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/pkg/utils"
)

// HeuristicVersion tags rule-based attributions
const HeuristicVersion = "v1.0-heuristic"

// Concentrations assumed for pollutant codes absent from a reading
const (
	defaultPM25 = 100.0
	defaultPM10 = 150.0
	defaultNO2  = 50.0
	defaultCO   = 1.5
)

// heuristicSources is the presentation order of the rule-based breakdown
var heuristicSources = []domain.Source{
	domain.SourceTraffic,
	domain.SourceStubble,
	domain.SourceIndustry,
	domain.SourceConstruction,
}

var baseShares = map[domain.Source]float64{
	domain.SourceTraffic:      30,
	domain.SourceStubble:      20,
	domain.SourceIndustry:     25,
	domain.SourceConstruction: 25,
}

var heuristicConfidenceText = map[domain.ConfidenceLevel]string{
	domain.ConfidenceHigh:   "High confidence: Wind conditions support reliable pollutant ratio analysis.",
	domain.ConfidenceMedium: "Medium confidence: Low wind speeds mix local and regional sources.",
	domain.ConfidenceLow:    "Lower confidence: Stagnant air makes sources hard to separate.",
}

// Heuristic attributes pollution with fixed base shares adjusted by pollutant
// ratios, season, fire activity and weather
type Heuristic struct{}

// NewHeuristic creates the rule-based strategy
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// PredictionType implements Strategy
func (h *Heuristic) PredictionType() domain.PredictionType {
	return domain.PredictionSimulation
}

// ModelVersion implements Strategy
func (h *Heuristic) ModelVersion() string {
	return HeuristicVersion
}

// indicators are the pollutant readings the rules look at
type indicators struct {
	pm25, pm10, no2, co float64
}

func readIndicators(p domain.PollutantSnapshot) indicators {
	return indicators{
		pm25: p.GetOr(domain.PM25, defaultPM25),
		pm10: p.GetOr(domain.PM10, defaultPM10),
		no2:  p.GetOr(domain.NO2, defaultNO2),
		co:   p.GetOr(domain.CO, defaultCO),
	}
}

func (i indicators) coarseRatio() (float64, bool) {
	if i.pm25 <= 0 {
		return 0, false
	}
	return i.pm10 / i.pm25, true
}

func (i indicators) trafficSignal() bool {
	return i.no2 > 60 || i.co > 2.0
}

// rawShares applies the adjustment rules to the base shares, before normalization
func rawShares(in Input, month int) map[domain.Source]float64 {
	ind := readIndicators(in.Pollutants)
	shares := make(map[domain.Source]float64, len(baseShares))
	for k, v := range baseShares {
		shares[k] = v
	}

	if ind.trafficSignal() {
		shares[domain.SourceTraffic] += 15
	} else if ind.no2 < 30 {
		shares[domain.SourceTraffic] -= 10
	}

	if domain.StubbleSeason(month) {
		if in.FireCount > 0 {
			shares[domain.SourceStubble] += min(float64(in.FireCount)*2, 30)
		}
	} else {
		shares[domain.SourceStubble] = max(5, shares[domain.SourceStubble]-15)
	}

	if ratio, ok := ind.coarseRatio(); ok && ratio > 2.0 {
		shares[domain.SourceConstruction] += 20
	}

	if in.Weather.Temperature > 30 && in.Weather.WindSpeed < 3 {
		shares[domain.SourceIndustry] += 10
	}
	return shares
}

// Attribute implements Strategy
func (h *Heuristic) Attribute(_ context.Context, in Input, tc domain.TemporalContext) domain.AttributionResult {
	raw := rawShares(in, tc.Month)
	shares := make([]share, 0, len(heuristicSources))
	for _, s := range heuristicSources {
		shares = append(shares, share{source: s, value: raw[s]})
	}
	contributions, dominant, _ := normalize(shares)

	confidence := utils.Clamp(70+in.Weather.WindSpeed*2, 0, 85)
	level := domain.ConfidenceTier(confidence)
	ind := readIndicators(in.Pollutants)

	return domain.AttributionResult{
		Contributions:         contributions,
		DominantSource:        dominant,
		Confidence:            utils.RoundTo(confidence, 1),
		ConfidenceLevel:       level,
		ConfidenceExplanation: heuristicConfidenceText[level],
		FactorsConsidered: map[string]bool{
			"pollutant_ratios":   true,
			"seasonal_factors":   true,
			"weather_conditions": true,
			"fire_data":          in.FireCount > 0,
		},
		PredictionType:      domain.PredictionSimulation,
		ModelVersion:        HeuristicVersion,
		Explanation:         heuristicExplanation(dominant, contributions[dominant], ind, in, tc.Month),
		PollutantIndicators: pollutantIndicators(ind),
	}
}

func pollutantIndicators(ind indicators) map[string]float64 {
	out := map[string]float64{
		"pm25":         ind.pm25,
		"pm10":         ind.pm10,
		"no2":          ind.no2,
		"co":           ind.co,
		"no2_co_ratio": utils.RoundTo(ind.no2/(ind.co+1), 2),
	}
	if ratio, ok := ind.coarseRatio(); ok {
		out["pm_ratio"] = utils.RoundTo(ratio, 2)
	}
	return out
}

package domain

// PredictionType tells clients which strategy produced a result
type PredictionType string

const (
	PredictionNotLoaded  PredictionType = "not_loaded"
	PredictionSimulation PredictionType = "simulation"
	PredictionML         PredictionType = "ml"
	PredictionError      PredictionType = "error"
)

// ConfidenceLevel is the coarse tier of a confidence score
type ConfidenceLevel string

const (
	ConfidenceNone   ConfidenceLevel = "none"
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ConfidenceTier maps a 0-100 score onto a level
func ConfidenceTier(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 80:
		return ConfidenceHigh
	case confidence >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Trend is the direction of the 48h forecast relative to now
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// ForecastResult is the output of every forecasting strategy
type ForecastResult struct {
	AQI24h                *float64        `json:"aqi_24h"`
	AQI48h                *float64        `json:"aqi_48h"`
	AQI72h                *float64        `json:"aqi_72h"`
	Trend                 Trend           `json:"trend"`
	Confidence            float64         `json:"confidence"`
	ConfidenceLevel       ConfidenceLevel `json:"confidence_level"`
	ConfidenceExplanation string          `json:"confidence_explanation"`
	Factors               map[string]any  `json:"factors"`
	PredictionType        PredictionType  `json:"prediction_type"`
	ModelVersion          string          `json:"model_version"`
	Explanation           string          `json:"explanation"`
	WeatherConditions     map[string]any  `json:"weather_conditions"`
	Error                 string          `json:"error,omitempty"`
	Message               string          `json:"message,omitempty"`
}

// Source is a pollution source category
type Source string

const (
	SourceTraffic      Source = "traffic"
	SourceStubble      Source = "stubble_burning"
	SourceIndustry     Source = "industry"
	SourceConstruction Source = "construction"
	SourceOther        Source = "other"
	SourceUnknown      Source = "unknown"
)

// AttributionResult is the output of every source attribution strategy
type AttributionResult struct {
	Contributions         map[Source]float64 `json:"contributions"`
	DominantSource        Source             `json:"dominant_source"`
	Confidence            float64            `json:"confidence"`
	ConfidenceLevel       ConfidenceLevel    `json:"confidence_level"`
	ConfidenceExplanation string             `json:"confidence_explanation"`
	FactorsConsidered     map[string]bool    `json:"factors_considered"`
	PredictionType        PredictionType     `json:"prediction_type"`
	ModelVersion          string             `json:"model_version"`
	Explanation           string             `json:"explanation"`
	PollutantIndicators   map[string]float64 `json:"pollutant_indicators"`
	Error                 string             `json:"error,omitempty"`
	Message               string             `json:"message,omitempty"`
}

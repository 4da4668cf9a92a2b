package forecast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smartcity/airquality/internal/domain"
)

func formatAQI(aqi float64) string {
	return strconv.FormatFloat(aqi, 'f', -1, 64)
}

func baselineSentence(aqi float64) string {
	switch {
	case aqi > 200:
		return fmt.Sprintf("Starting from a severe baseline AQI of %s.", formatAQI(aqi))
	case aqi > 150:
		return fmt.Sprintf("Current AQI of %s indicates unhealthy air quality.", formatAQI(aqi))
	default:
		return fmt.Sprintf("Current AQI of %s provides baseline for prediction.", formatAQI(aqi))
	}
}

// heuristicExplanation renders the rationale for a rule-based forecast. It
// reads the same thresholds as trendFactor and never touches the numbers.
func heuristicExplanation(aqi float64, w domain.WeatherSnapshot, tc domain.TemporalContext, trend domain.Trend) string {
	parts := []string{baselineSentence(aqi)}

	if w.Temperature > 30 {
		parts = append(parts, "High temperatures are accelerating photochemical smog formation.")
	}
	if w.Humidity > 70 {
		parts = append(parts, "High humidity is helping fine particles grow and linger near the ground.")
	}
	if w.WindSpeed < 3 {
		parts = append(parts, "Calm winds are limiting dispersion, so pollutants are likely to accumulate.")
	} else if w.WindSpeed > 10 {
		parts = append(parts, "Strong winds are expected to disperse pollutants.")
	}

	switch classifyHour(tc.Hour) {
	case windowRushHour:
		parts = append(parts, "Rush-hour traffic is adding vehicular emissions.")
	case windowPreDawn:
		parts = append(parts, "Pre-dawn hours typically see reduced traffic emissions.")
	}

	switch domain.SeasonOf(tc.Month) {
	case domain.SeasonWinter:
		parts = append(parts, "Winter inversions and crop-residue burning typically worsen air quality in this season.")
	case domain.SeasonSummer:
		parts = append(parts, "Summer dust storms can raise coarse particle levels.")
	case domain.SeasonMonsoon:
		parts = append(parts, "Monsoon rainfall usually helps wash out airborne pollutants.")
	}

	switch trend {
	case domain.TrendIncreasing:
		parts = append(parts, "Overall, air quality is expected to worsen over the next 48 hours.")
	case domain.TrendDecreasing:
		parts = append(parts, "Overall, air quality is expected to improve over the next 48 hours.")
	default:
		parts = append(parts, "Overall, air quality is expected to remain stable over the next 48 hours.")
	}

	parts = append(parts, "Forecast generated by a rule-based model using weather and time-of-day patterns.")
	return strings.Join(parts, " ")
}

func ensembleExplanation(aqi float64, trend domain.Trend) string {
	parts := []string{baselineSentence(aqi)}

	switch trend {
	case domain.TrendIncreasing:
		parts = append(parts, "ML model predicts worsening air quality based on pollutant trends and meteorological patterns.")
	case domain.TrendDecreasing:
		parts = append(parts, "ML model predicts improving conditions based on favorable patterns.")
	default:
		parts = append(parts, "ML model predicts stable air quality levels.")
	}

	parts = append(parts, "Prediction based on XGBoost ensemble trained on historical CPCB and WAQI data (2019-2025).")
	return strings.Join(parts, " ")
}

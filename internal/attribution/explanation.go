package attribution

import (
	"fmt"
	"strings"

	"github.com/smartcity/airquality/internal/domain"
)

var sourceLabels = map[domain.Source]string{
	domain.SourceTraffic:      "Vehicular traffic",
	domain.SourceStubble:      "Stubble burning",
	domain.SourceIndustry:     "Industrial emissions",
	domain.SourceConstruction: "Construction dust",
	domain.SourceOther:        "Other sources",
}

func sourceLabel(s domain.Source) string {
	if label, ok := sourceLabels[s]; ok {
		return label
	}
	return strings.ReplaceAll(string(s), "_", " ")
}

func dominantSentence(dominant domain.Source, pct float64) string {
	if dominant == domain.SourceUnknown {
		return "No dominant pollution source could be identified."
	}
	return fmt.Sprintf("%s is the dominant pollution source, contributing about %.1f%% of current levels.", sourceLabel(dominant), pct)
}

func seasonSentence(month, fireCount int) string {
	switch {
	case domain.StubbleSeason(month) && fireCount > 0:
		return fmt.Sprintf("%d active fires detected in the region during the crop-residue burning season.", fireCount)
	case domain.StubbleSeason(month):
		return "It is crop-residue burning season, though no active fires were reported."
	default:
		return "Crop-residue burning is out of season."
	}
}

// dustSentence reports a coarse-dominated PM mix using the raw PM10/PM2.5 ratio
func dustSentence(ind indicators) (string, bool) {
	ratio, ok := ind.coarseRatio()
	if !ok || ratio <= 2.0 {
		return "", false
	}
	return fmt.Sprintf("A high PM10 to PM2.5 ratio (%.1f) suggests construction and road dust.", ratio), true
}

func heuristicExplanation(dominant domain.Source, pct float64, ind indicators, in Input, month int) string {
	parts := []string{dominantSentence(dominant, pct)}

	if ind.trafficSignal() {
		parts = append(parts, "Elevated NO2 and CO levels point to vehicular emissions.")
	} else if ind.no2 < 30 {
		parts = append(parts, "Low NO2 levels indicate a reduced traffic contribution.")
	}
	if sentence, ok := dustSentence(ind); ok {
		parts = append(parts, sentence)
	}
	parts = append(parts, seasonSentence(month, in.FireCount))
	if in.Weather.Temperature > 30 && in.Weather.WindSpeed < 3 {
		parts = append(parts, "Hot, stagnant air is trapping industrial emissions.")
	}

	parts = append(parts, "Attribution estimated from pollutant ratios and seasonal rules.")
	return strings.Join(parts, " ")
}

func learnedExplanation(dominant domain.Source, pct float64, p domain.PollutantSnapshot, month int) string {
	parts := []string{dominantSentence(dominant, pct)}
	ind := indicators{
		pm25: p.Get(domain.PM25),
		pm10: p.Get(domain.PM10),
		no2:  p.Get(domain.NO2),
		co:   p.Get(domain.CO),
	}

	if ind.trafficSignal() {
		parts = append(parts, "Elevated NO2 and CO levels point to vehicular emissions.")
	}
	if sentence, ok := dustSentence(ind); ok {
		parts = append(parts, sentence)
	}
	if domain.StubbleSeason(month) {
		parts = append(parts, "Seasonal patterns for crop-residue burning were taken into account.")
	}

	parts = append(parts, "Attribution predicted by a regression model trained on historical source apportionment data.")
	return strings.Join(parts, " ")
}

package domain

// HealthAdvisory is guidance derived from the current AQI category
type HealthAdvisory struct {
	AQILevel         string   `json:"aqi_level"`
	HealthImpact     string   `json:"health_impact"`
	Recommendations  []string `json:"recommendations"`
	VulnerableGroups []string `json:"vulnerable_groups"`
	OutdoorActivity  string   `json:"outdoor_activity"`
}

// MonthlyPattern is the typical air quality of a calendar month
type MonthlyPattern struct {
	AvgAQI   float64 `json:"avg_aqi"`
	Risk     string  `json:"risk"`
	Dominant Source  `json:"dominant_source"`
}

// SeasonalOutlook summarises month-of-year pollution risk
type SeasonalOutlook struct {
	CurrentMonth     int                       `json:"current_month"`
	CurrentMonthName string                    `json:"current_month_name"`
	MonthlyPatterns  map[string]MonthlyPattern `json:"monthly_patterns"`
	HighRiskSeason   bool                      `json:"high_risk_season"`
	HighRiskMonths   []string                  `json:"high_risk_months"`
	LowRiskMonths    []string                  `json:"low_risk_months"`
	CurrentOutlook   string                    `json:"current_outlook"`
}

// SafeRouteRequest asks for exposure along a trip
type SafeRouteRequest struct {
	StartLat float64 `json:"start_lat" validate:"gte=-90,lte=90"`
	StartLng float64 `json:"start_lng" validate:"gte=-180,lte=180"`
	EndLat   float64 `json:"end_lat" validate:"gte=-90,lte=90"`
	EndLng   float64 `json:"end_lng" validate:"gte=-180,lte=180"`
}

// RoutePoint is one AQI sample along a route
type RoutePoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	AQI float64 `json:"aqi"`
}

// SafeRouteResponse is the exposure summary for a trip
type SafeRouteResponse struct {
	RoutePoints    []RoutePoint `json:"route_points"`
	AvgAQI         float64      `json:"avg_aqi"`
	DistanceKm     float64      `json:"distance_km"`
	Recommendation string       `json:"recommendation"`
}

// PolicyImpactRequest asks for the effect of an intervention
type PolicyImpactRequest struct {
	PolicyType string  `json:"policy_type"`
	Intensity  float64 `json:"intensity" validate:"gte=0,lte=1"`
}

// PolicyImpactResponse is the estimated effect of an intervention
type PolicyImpactResponse struct {
	EstimatedReduction float64  `json:"estimated_reduction"`
	TimelineDays       int      `json:"timeline_days"`
	AffectedSources    []Source `json:"affected_sources"`
	Description        string   `json:"description"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/smartcity/airquality/internal/domain"
	"github.com/smartcity/airquality/pkg/utils"
)

// ErrInvalidInput wraps request validation failures
var ErrInvalidInput = errors.New("invalid input")

// CurrentProvider returns current conditions
type CurrentProvider interface {
	Current(ctx context.Context) domain.CurrentAQI
}

// GeoFeed reads the station nearest to a point
type GeoFeed interface {
	FeedByGeo(ctx context.Context, lat, lon float64) (domain.FeedData, error)
}

// Seasonal risk thresholds on the monthly average AQI
const (
	highRiskAQI = 200.0
	lowRiskAQI  = 120.0
)

// monthlyPatterns is the typical Delhi NCR air quality per month
var monthlyPatterns = [12]domain.MonthlyPattern{
	{AvgAQI: 285, Dominant: domain.SourceTraffic},
	{AvgAQI: 230, Dominant: domain.SourceTraffic},
	{AvgAQI: 175, Dominant: domain.SourceConstruction},
	{AvgAQI: 185, Dominant: domain.SourceConstruction},
	{AvgAQI: 190, Dominant: domain.SourceConstruction},
	{AvgAQI: 150, Dominant: domain.SourceConstruction},
	{AvgAQI: 95, Dominant: domain.SourceTraffic},
	{AvgAQI: 85, Dominant: domain.SourceTraffic},
	{AvgAQI: 110, Dominant: domain.SourceTraffic},
	{AvgAQI: 245, Dominant: domain.SourceStubble},
	{AvgAQI: 355, Dominant: domain.SourceStubble},
	{AvgAQI: 310, Dominant: domain.SourceTraffic},
}

type advisory struct {
	impact     string
	advice     []string
	vulnerable []string
	outdoor    string
}

var advisories = map[string]advisory{
	"Good": {
		impact:     "Air quality is satisfactory and poses little or no risk.",
		advice:     []string{"Enjoy outdoor activities", "Ventilate indoor spaces"},
		vulnerable: []string{},
		outdoor:    "Unrestricted",
	},
	"Moderate": {
		impact:     "Air quality is acceptable; unusually sensitive people may experience minor effects.",
		advice:     []string{"Unusually sensitive people should limit prolonged exertion outdoors"},
		vulnerable: []string{"People with respiratory conditions"},
		outdoor:    "Generally safe",
	},
	"Unhealthy for Sensitive Groups": {
		impact:     "Members of sensitive groups may experience health effects.",
		advice:     []string{"Reduce prolonged outdoor exertion", "Keep rescue medication at hand"},
		vulnerable: []string{"Children", "Elderly", "People with asthma or heart disease"},
		outdoor:    "Limit for sensitive groups",
	},
	"Unhealthy": {
		impact:     "Everyone may begin to experience health effects; sensitive groups more seriously.",
		advice:     []string{"Wear an N95 mask outdoors", "Avoid outdoor exercise", "Run air purifiers indoors"},
		vulnerable: []string{"Children", "Elderly", "Pregnant women", "People with respiratory or heart disease"},
		outdoor:    "Limit for everyone",
	},
	"Very Unhealthy": {
		impact:     "Health alert: everyone may experience serious health effects.",
		advice:     []string{"Stay indoors with windows closed", "Wear an N95 mask if you must go out", "Run air purifiers indoors"},
		vulnerable: []string{"Everyone, especially children, elderly and people with chronic illness"},
		outdoor:    "Avoid",
	},
	"Hazardous": {
		impact:     "Health warning of emergency conditions: the entire population is likely to be affected.",
		advice:     []string{"Remain indoors", "Avoid all physical activity outdoors", "Seek medical help for breathing difficulty"},
		vulnerable: []string{"Entire population"},
		outdoor:    "Avoid completely",
	},
}

// fallbackRouteAQI is the start/mid/end profile used when a point has no reading
var fallbackRouteAQI = [3]float64{165, 140, 155}

type policy struct {
	maxReduction float64
	timelineDays int
	sources      []domain.Source
	description  string
}

var policies = map[string]policy{
	"odd_even": {
		maxReduction: 15,
		timelineDays: 7,
		sources:      []domain.Source{domain.SourceTraffic},
		description:  "Odd-Even vehicle policy reduces traffic emissions significantly during implementation.",
	},
	"construction_halt": {
		maxReduction: 20,
		timelineDays: 3,
		sources:      []domain.Source{domain.SourceConstruction},
		description:  "Halting construction activities immediately reduces dust pollution.",
	},
	"firecracker_ban": {
		maxReduction: 25,
		timelineDays: 2,
		sources:      []domain.Source{domain.SourceTraffic, domain.SourceIndustry},
		description:  "Firecracker ban during festivals prevents severe AQI spikes.",
	},
	"stubble_control": {
		maxReduction: 30,
		timelineDays: 14,
		sources:      []domain.Source{domain.SourceStubble},
		description:  "Incentivizing farmers to avoid stubble burning has long-term seasonal impact.",
	},
}

// InsightService derives advisories and what-if estimates
type InsightService struct {
	current  CurrentProvider
	feed     GeoFeed
	validate *validator.Validate
	clock    clockwork.Clock
	log      logrus.FieldLogger
}

// NewInsightService creates a new insight service
func NewInsightService(current CurrentProvider, feed GeoFeed, clock clockwork.Clock, log logrus.FieldLogger) *InsightService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InsightService{
		current:  current,
		feed:     feed,
		validate: validator.New(),
		clock:    clock,
		log:      log.WithField("component", "insights"),
	}
}

// HealthAdvisory returns guidance for the current AQI category
func (s *InsightService) HealthAdvisory(ctx context.Context) domain.HealthAdvisory {
	category := s.current.Current(ctx).Category
	a, ok := advisories[category]
	if !ok {
		a = advisories["Unhealthy"]
	}
	return domain.HealthAdvisory{
		AQILevel:         category,
		HealthImpact:     a.impact,
		Recommendations:  append([]string(nil), a.advice...),
		VulnerableGroups: append([]string{}, a.vulnerable...),
		OutdoorActivity:  a.outdoor,
	}
}

func riskLabel(avg float64) string {
	switch {
	case avg >= highRiskAQI:
		return "high"
	case avg <= lowRiskAQI:
		return "low"
	default:
		return "moderate"
	}
}

// SeasonalOutlook summarises the month-of-year risk table for the current month
func (s *InsightService) SeasonalOutlook() domain.SeasonalOutlook {
	month := s.clock.Now().Month()

	out := domain.SeasonalOutlook{
		CurrentMonth:     int(month),
		CurrentMonthName: month.String(),
		MonthlyPatterns:  make(map[string]domain.MonthlyPattern, len(monthlyPatterns)),
		HighRiskMonths:   []string{},
		LowRiskMonths:    []string{},
	}
	for i, p := range monthlyPatterns {
		name := time.Month(i + 1).String()
		p.Risk = riskLabel(p.AvgAQI)
		out.MonthlyPatterns[name] = p
		switch p.Risk {
		case "high":
			out.HighRiskMonths = append(out.HighRiskMonths, name)
		case "low":
			out.LowRiskMonths = append(out.LowRiskMonths, name)
		}
	}

	current := monthlyPatterns[month-1]
	out.HighRiskSeason = current.AvgAQI >= highRiskAQI
	switch riskLabel(current.AvgAQI) {
	case "high":
		out.CurrentOutlook = fmt.Sprintf("%s is typically a high-risk month (average AQI around %.0f). Limit outdoor exposure and follow health advisories.", month, current.AvgAQI)
	case "low":
		out.CurrentOutlook = fmt.Sprintf("%s typically brings cleaner air (average AQI around %.0f).", month, current.AvgAQI)
	default:
		out.CurrentOutlook = fmt.Sprintf("%s typically sees moderate pollution (average AQI around %.0f). Sensitive groups should take precautions.", month, current.AvgAQI)
	}
	return out
}

// SafeRoute samples AQI at the start, midpoint and end of a trip
func (s *InsightService) SafeRoute(ctx context.Context, req domain.SafeRouteRequest) (domain.SafeRouteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.SafeRouteResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	points := []domain.RoutePoint{
		{Lat: req.StartLat, Lng: req.StartLng},
		{Lat: utils.Lerp(req.StartLat, req.EndLat, 0.5), Lng: utils.Lerp(req.StartLng, req.EndLng, 0.5)},
		{Lat: req.EndLat, Lng: req.EndLng},
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range points {
		g.Go(func() error {
			points[i].AQI = fallbackRouteAQI[i]
			if s.feed == nil {
				return nil
			}
			data, err := s.feed.FeedByGeo(gctx, points[i].Lat, points[i].Lng)
			if err != nil {
				s.log.WithError(err).WithField("point", i).Debug("route sample unavailable, using profile")
				return nil
			}
			points[i].AQI = data.AQI
			return nil
		})
	}
	_ = g.Wait()

	aqis := make([]float64, len(points))
	for i, p := range points {
		aqis[i] = p.AQI
	}
	avg := utils.Mean(aqis)

	recommendation := "Moderate pollution levels along route. Consider using public transport."
	if avg > 200 {
		recommendation = "High pollution levels. Wear N95 mask and avoid peak traffic hours."
	} else if avg < 100 {
		recommendation = "Good air quality along route. Safe for travel."
	}

	return domain.SafeRouteResponse{
		RoutePoints:    points,
		AvgAQI:         utils.RoundTo(avg, 1),
		DistanceKm:     utils.RoundTo(utils.Haversine(req.StartLat, req.StartLng, req.EndLat, req.EndLng), 2),
		Recommendation: recommendation,
	}, nil
}

// PolicyImpact estimates the AQI reduction of an intervention. Unknown policy
// types are evaluated as odd_even.
func (s *InsightService) PolicyImpact(req domain.PolicyImpactRequest) (domain.PolicyImpactResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.PolicyImpactResponse{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p, ok := policies[req.PolicyType]
	if !ok {
		p = policies["odd_even"]
	}
	return domain.PolicyImpactResponse{
		EstimatedReduction: utils.RoundTo(p.maxReduction*req.Intensity, 1),
		TimelineDays:       p.timelineDays,
		AffectedSources:    append([]domain.Source(nil), p.sources...),
		Description:        p.description,
	}, nil
}

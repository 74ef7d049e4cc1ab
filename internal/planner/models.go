// Package planner runs the prompt-to-route pipeline: it parses a travel
// request, fetches and ranks route alternatives and annotates them with
// weather, holiday and traffic information.
package planner

import (
	"errors"

	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/routing"
)

// ErrDirectionsFailure is returned when the directions provider could not
// produce routes. It wraps a *routing.Error.
var ErrDirectionsFailure = errors.New("directions provider failure")

// ErrInvalidEstimate is returned for an estimate request that fails validation.
var ErrInvalidEstimate = errors.New("invalid estimate request")

// Weather condition reported when no forecast tag is available.
const WeatherUnknown = "unknown"

// Traffic levels derived from the calendar multiplier.
const (
	TrafficLow      = "low"
	TrafficNormal   = "normal"
	TrafficElevated = "elevated"
	TrafficHigh     = "high"
)

// Plan is the result of PlanRoute.
type Plan struct {
	Intent      *prompt.TravelIntent `json:"intent"`
	Candidates  []routing.Candidate  `json:"candidates"`
	Constraints []string             `json:"constraints"`
	Summary     Summary              `json:"summary"`
	HolidayInfo *HolidayInfo         `json:"holidayInfo,omitempty"`

	// Forecasts and Recommendations come from the ML service for dated
	// trips. Both are empty when it is disabled or failed.
	Forecasts       []prediction.CityForecast   `json:"forecasts"`
	Recommendations []prediction.Recommendation `json:"recommendations"`
}

// Summary aggregates a plan's candidates.
type Summary struct {
	TotalCities          int      `json:"totalCities"`
	IsHolidayPeriod      bool     `json:"isHolidayPeriod"`
	HolidayName          string   `json:"holidayName,omitempty"`
	AvgTrafficMultiplier float64  `json:"avgTrafficMultiplier"`
	AvgDurationImpact    float64  `json:"avgDurationImpact"`
	WeatherTags          []string `json:"weatherTags"`
}

// HolidayInfo describes the calendar resolution of the travel date.
type HolidayInfo struct {
	Date              string  `json:"date"`
	IsHoliday         bool    `json:"isHoliday"`
	HolidayName       string  `json:"holidayName,omitempty"`
	HolidayType       string  `json:"holidayType,omitempty"`
	TrafficMultiplier float64 `json:"trafficMultiplier"`
	Impact            string  `json:"impact"`
	IsWeekend         bool    `json:"isWeekend"`
	DayOfWeek         string  `json:"dayOfWeek"`
}

// EstimateRequest asks for routes between two coordinates.
type EstimateRequest struct {
	FromLat float64 `json:"fromLat" validate:"latitude"`
	FromLng float64 `json:"fromLng" validate:"longitude"`
	ToLat   float64 `json:"toLat" validate:"latitude"`
	ToLng   float64 `json:"toLng" validate:"longitude"`
	Date    string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time    string  `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
}

// Estimate is the result of Estimate.
type Estimate struct {
	Candidates        []routing.Candidate `json:"candidates"`
	Date              string              `json:"date"`
	WeatherTags       []string            `json:"weatherTags"`
	WeatherCondition  string              `json:"weatherCondition"`
	IsHoliday         bool                `json:"isHoliday"`
	HolidayName       string              `json:"holidayName,omitempty"`
	TrafficMultiplier float64             `json:"trafficMultiplier"`
	TrafficLevel      string              `json:"trafficLevel"`
}

// TrafficLevel buckets a calendar traffic multiplier.
func TrafficLevel(multiplier float64) string {
	switch {
	case multiplier < 1.0:
		return TrafficLow
	case multiplier == 1.0:
		return TrafficNormal
	case multiplier < 1.05:
		return TrafficElevated
	default:
		return TrafficHigh
	}
}

// Package adjustment fuses weather, calendar and machine-learned traffic
// signals into one adjusted travel duration with an explanation trail.
package adjustment

import (
	"context"
	"time"

	"github.com/smartroute/smartroute/internal/holiday"
)

// Default route characteristics sent to the predictor when unknown.
const (
	DefaultRoadQuality  = 0.8
	DefaultHighwayRatio = 0.3
	DefaultTravelTime   = "08:00"
)

// DefaultRecognizedModels lists the model ids whose predictions are trusted.
var DefaultRecognizedModels = []string{"AI_LSTM", "AI_Transformer"}

// RouteContext describes the candidate route for the predictor.
type RouteContext struct {
	// RoadQuality is in [0,1] (default: 0.8).
	RoadQuality float64

	// HighwayRatio is the share of the route on highways, in [0,1] (default: 0.3).
	HighwayRatio float64

	// TollCount is the heuristic toll count of the route.
	TollCount int
}

// Input is a single adjustment request.
type Input struct {
	BaseDurationMin float64
	DistanceKm      float64
	WeatherTags     []string
	// Date is yyyy-MM-dd; empty or invalid dates skip holiday and AI adjustments.
	Date string
	// Time is HH:MM (default: 08:00).
	Time  string
	Route RouteContext
}

// PredictionRequest is the payload sent to a Predictor.
type PredictionRequest struct {
	DistanceKm      float64
	BaseDurationMin float64
	RoadQuality     float64
	HighwayRatio    float64
	WeatherTags     []string
	DepartureAt     time.Time
	IsHoliday       bool
	IsWeekend       bool
}

// Prediction is a predictor's answer. OptimizedDurationMin is zero when the
// predictor only estimates a traffic multiplier.
type Prediction struct {
	ModelID              string
	TrafficMultiplier    float64
	OptimizedDurationMin float64
	Confidence           float64
	Score                float64
}

// Predictor is the external ML traffic service.
type Predictor interface {
	Predict(ctx context.Context, req PredictionRequest) (*Prediction, error)
}

// Adjustment is the basis of a result: RuleBased or AIAssisted.
type Adjustment interface {
	// TrafficMultiplier is the calendar or AI traffic factor that was applied.
	TrafficMultiplier() float64
	isAdjustment()
}

// RuleBased is the deterministic weather × holiday fusion.
type RuleBased struct {
	WeatherTag        string  `json:"weatherTag,omitempty"`
	WeatherMultiplier float64 `json:"weatherMultiplier"`
	HolidayMultiplier float64 `json:"holidayMultiplier"`
	HolidayName       string  `json:"holidayName,omitempty"`
}

func (r RuleBased) TrafficMultiplier() float64 { return r.HolidayMultiplier }
func (RuleBased) isAdjustment()                {}

// AIAssisted replaces the rule-based result entirely.
type AIAssisted struct {
	ModelID              string  `json:"modelId"`
	Multiplier           float64 `json:"multiplier"`
	OptimizedDurationMin float64 `json:"optimizedDurationMin,omitempty"`
	Confidence           float64 `json:"confidence"`
	Score                float64 `json:"score"`
}

func (a AIAssisted) TrafficMultiplier() float64 { return a.Multiplier }
func (AIAssisted) isAdjustment()                {}

// Result is the outcome of Adjust.
type Result struct {
	AdjustedDurationMin float64
	Explanations        []string
	Basis               Adjustment

	// Holiday is the calendar resolution for the input date, nil when the
	// date was absent or invalid.
	Holiday *holiday.Resolution
}

// AIUsed reports whether the AI override produced the result.
func (r Result) AIUsed() bool {
	_, ok := r.Basis.(AIAssisted)
	return ok
}

// Confidence returns the AI confidence, if the AI override was used.
func (r Result) Confidence() (float64, bool) {
	if ai, ok := r.Basis.(AIAssisted); ok {
		return ai.Confidence, true
	}
	return 0, false
}

package models

import (
	"github.com/smartroute/smartroute/internal/planner"
	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/routing"
)

// PromptRequest is the request body for prompt analysis and route planning.
type PromptRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// AnalyzeResponse is the response for prompt analysis.
type AnalyzeResponse struct {
	GeneratedAt Timestamp            `json:"generatedAt"`
	Intent      *prompt.TravelIntent `json:"intent"`
	Stops       []string             `json:"stops"`
	Constraints []string             `json:"constraints"`
}

// PlanResponse is the response for route planning.
type PlanResponse struct {
	GeneratedAt Timestamp            `json:"generatedAt"`
	Intent      *prompt.TravelIntent `json:"intent"`
	Routes      []routing.Candidate  `json:"routes"`
	Constraints []string             `json:"constraints"`
	Summary     planner.Summary      `json:"summary"`
	HolidayInfo *planner.HolidayInfo `json:"holidayInfo,omitempty"`

	Forecasts       []prediction.CityForecast   `json:"forecasts"`
	Recommendations []prediction.Recommendation `json:"recommendations"`
}

// NewPlanResponse converts a plan to its wire form.
func NewPlanResponse(plan *planner.Plan, at Timestamp) PlanResponse {
	resp := PlanResponse{
		GeneratedAt: at,
		Intent:      plan.Intent,
		Routes:      plan.Candidates,
		Constraints: plan.Constraints,
		Summary:     plan.Summary,
		HolidayInfo: plan.HolidayInfo,

		Forecasts:       plan.Forecasts,
		Recommendations: plan.Recommendations,
	}
	if resp.Forecasts == nil {
		resp.Forecasts = []prediction.CityForecast{}
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []prediction.Recommendation{}
	}
	if resp.Routes == nil {
		resp.Routes = []routing.Candidate{}
	}
	if resp.Constraints == nil {
		resp.Constraints = []string{}
	}
	return resp
}

// EstimateResponse is the response for a coordinate route estimate.
type EstimateResponse struct {
	GeneratedAt Timestamp `json:"generatedAt"`
	*planner.Estimate
}

// HolidayResponse describes the calendar resolution of one date.
type HolidayResponse struct {
	*planner.HolidayInfo
	TrafficLevel string `json:"trafficLevel"`
}

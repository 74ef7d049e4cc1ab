package prediction

import (
	"context"
	"net/http"
)

// CityForecast is the ML service's weather and traffic outlook for one stop
// on the travel date.
type CityForecast struct {
	City                  string  `json:"city"`
	Date                  string  `json:"date"`
	Month                 int     `json:"month"`
	Season                string  `json:"season"`
	PredictedWeather      string  `json:"predicted_weather"`
	Confidence            float64 `json:"confidence"`
	AvgTemperature        float64 `json:"avg_temperature"`
	ClimateZone           string  `json:"climate_zone"`
	TrafficMultiplier     float64 `json:"traffic_multiplier"`
	WeatherDurationImpact float64 `json:"weather_duration_impact"`
	IsHoliday             bool    `json:"is_holiday"`
	HolidayName           string  `json:"holiday_name,omitempty"`
	Explanation           string  `json:"explanation"`
	TrafficExplanation    string  `json:"traffic_explanation"`
}

// RouteSummary aggregates the forecasts of a route.
type RouteSummary struct {
	TotalCities          int      `json:"total_cities"`
	AvgConfidence        float64  `json:"avg_confidence"`
	IsHolidayPeriod      bool     `json:"is_holiday_period"`
	HolidayName          string   `json:"holiday_name,omitempty"`
	WeatherConditions    []string `json:"weather_conditions"`
	ClimateZones         []string `json:"climate_zones"`
	AvgTrafficMultiplier float64  `json:"avg_traffic_multiplier"`
	TotalDurationImpact  float64  `json:"total_duration_impact"`
}

// RouteForecast is the /predict_route response.
type RouteForecast struct {
	Predictions []CityForecast `json:"predictions"`
	Summary     RouteSummary   `json:"route_summary"`
}

// Recommendation is one advisory message about a route.
type Recommendation struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Impact   string `json:"impact"`
}

type routeRequest struct {
	Cities                []string `json:"cities"`
	Date                  string   `json:"date"`
	UserWeatherConditions []string `json:"user_weather_conditions,omitempty"`
}

type recommendationsRequest struct {
	Cities      []string           `json:"cities"`
	Date        string             `json:"date"`
	Preferences map[string]float64 `json:"preferences"`
}

type recommendationsResponse struct {
	Recommendations []Recommendation `json:"route_recommendations"`
}

// PredictRoute calls POST /predict_route. Weather tags given by the user are
// sent along in the service's vocabulary and take priority over the model.
func (c *Client) PredictRoute(ctx context.Context, cities []string, date string, tags []string) (*RouteForecast, error) {
	body := routeRequest{Cities: cities, Date: date}
	for _, tag := range tags {
		body.UserWeatherConditions = append(body.UserWeatherConditions, condition([]string{tag}))
	}

	var resp RouteForecast
	if err := c.do(ctx, http.MethodPost, "/predict_route", body, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("cities", len(resp.Predictions)).
		Float64("avg_confidence", resp.Summary.AvgConfidence).
		Strs("conditions", resp.Summary.WeatherConditions).
		Msg("route forecast")
	return &resp, nil
}

// Recommendations calls POST /route_recommendations.
func (c *Client) Recommendations(ctx context.Context, cities []string, date string) ([]Recommendation, error) {
	body := recommendationsRequest{
		Cities: cities,
		Date:   date,
		Preferences: map[string]float64{
			"duration_weight": 0.4,
			"cost_weight":     0.3,
			"comfort_weight":  0.3,
		},
	}

	var resp recommendationsResponse
	if err := c.do(ctx, http.MethodPost, "/route_recommendations", body, &resp); err != nil {
		return nil, err
	}
	if resp.Recommendations == nil {
		return []Recommendation{}, nil
	}
	return resp.Recommendations, nil
}

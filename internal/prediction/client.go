// Package prediction is a client for the ML traffic service.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/adjustment"
	"github.com/smartroute/smartroute/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "prediction"

	// DefaultBaseURL is the ML service address used in local development.
	DefaultBaseURL = "http://localhost:5001"
)

// Mode selects the prediction endpoint.
type Mode string

const (
	// ModeTraffic calls /predict_traffic and applies a traffic multiplier.
	ModeTraffic Mode = "traffic"

	// ModeOptimize calls /optimize_route and applies an optimized duration.
	ModeOptimize Mode = "optimize"
)

// ErrUnavailable is returned for transport and server failures.
var ErrUnavailable = errors.New("prediction service unavailable")

// ClientConfig holds configuration for the prediction client.
type ClientConfig struct {
	// BaseURL is the ML service base URL (default: http://localhost:5001).
	BaseURL string

	// Mode selects the endpoint (default: traffic).
	Mode Mode

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client implements adjustment.Predictor over HTTP.
type Client struct {
	baseURL    string
	mode       Mode
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new prediction client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeTraffic
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		mode:       mode,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Predict makes exactly one call to the configured endpoint.
func (c *Client) Predict(ctx context.Context, req adjustment.PredictionRequest) (*adjustment.Prediction, error) {
	if c.mode == ModeOptimize {
		return c.optimize(ctx, req)
	}
	return c.predictTraffic(ctx, req)
}

func (c *Client) predictTraffic(ctx context.Context, req adjustment.PredictionRequest) (*adjustment.Prediction, error) {
	body := trafficRequest{
		RouteInfo: routeInfo{
			Distance:     req.DistanceKm,
			RoadQuality:  req.RoadQuality,
			HighwayRatio: req.HighwayRatio,
		},
		WeatherData: weatherData{Condition: condition(req.WeatherTags)},
		DateTime:    req.DepartureAt.Format("2006-01-02T15:04:05"),
	}

	var resp trafficResponse
	if err := c.do(ctx, http.MethodPost, "/predict_traffic", body, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", resp.ModelUsed).
		Float64("multiplier", resp.TrafficMultiplier).
		Float64("confidence", resp.Confidence).
		Msg("traffic prediction")

	return &adjustment.Prediction{
		ModelID:           resp.ModelUsed,
		TrafficMultiplier: resp.TrafficMultiplier,
		Confidence:        resp.Confidence,
	}, nil
}

func (c *Client) optimize(ctx context.Context, req adjustment.PredictionRequest) (*adjustment.Prediction, error) {
	body := optimizeRequest{
		RouteInfo: routeInfo{
			Distance:          req.DistanceKm,
			EstimatedDuration: req.BaseDurationMin,
			RoadQuality:       req.RoadQuality,
			HighwayRatio:      req.HighwayRatio,
			Hour:              req.DepartureAt.Hour(),
			DayOfWeek:         int(req.DepartureAt.Weekday()),
			IsHoliday:         req.IsHoliday,
		},
		WeatherData: weatherData{Condition: condition(req.WeatherTags)},
		TrafficData: trafficData{Multiplier: 1.0, Level: "normal"},
		UserPreferences: userPreferences{
			DurationWeight: 0.4,
			CostWeight:     0.3,
			ComfortWeight:  0.3,
		},
	}

	var resp optimizeResponse
	if err := c.do(ctx, http.MethodPost, "/optimize_route", body, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", resp.ModelUsed).
		Float64("duration", resp.OptimizedDuration).
		Float64("score", resp.OptimizationScore).
		Msg("route optimization")

	return &adjustment.Prediction{
		ModelID:              resp.ModelUsed,
		OptimizedDurationMin: resp.OptimizedDuration,
		Confidence:           resp.Confidence,
		Score:                resp.OptimizationScore,
	}, nil
}

// HealthStatus is the ML service liveness report.
type HealthStatus struct {
	Status       string    `json:"status"`
	ModelsLoaded bool      `json:"models_loaded"`
	Timestamp    string    `json:"timestamp"`
	CheckedAt    time.Time `json:"-"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var resp HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	resp.CheckedAt = time.Now()
	return &resp, nil
}

// ModelDescription describes one served model.
type ModelDescription struct {
	Type     string   `json:"type"`
	Features []string `json:"features"`
	Loaded   bool     `json:"loaded"`
}

// ModelInfo is the ML service model report.
type ModelInfo struct {
	TrafficModel ModelDescription `json:"traffic_model"`
	RouteModel   ModelDescription `json:"route_model"`
	ModelsLoaded bool             `json:"models_loaded"`
}

// ModelInfo calls GET /model_info.
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	var resp ModelInfo
	if err := c.do(ctx, http.MethodGet, "/model_info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	}
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, apiErr.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// condition maps the first weather tag to the service's Turkish condition vocabulary.
func condition(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	switch tags[0] {
	case "rainy":
		return "yağmurlu"
	case "snowy":
		return "karlı"
	case "sunny":
		return "güneşli"
	case "foggy":
		return "sisli"
	case "windy":
		return "rüzgarlı"
	case "stormy":
		return "fırtınalı"
	default:
		return tags[0]
	}
}

// ML service API structures.

type routeInfo struct {
	Distance          float64 `json:"distance"`
	EstimatedDuration float64 `json:"estimated_duration,omitempty"`
	RoadQuality       float64 `json:"road_quality"`
	HighwayRatio      float64 `json:"highway_ratio"`
	Hour              int     `json:"hour,omitempty"`
	DayOfWeek         int     `json:"day_of_week,omitempty"`
	IsHoliday         bool    `json:"is_holiday,omitempty"`
}

type weatherData struct {
	Condition string `json:"condition"`
}

type trafficData struct {
	Multiplier float64 `json:"multiplier"`
	Level      string  `json:"level"`
}

type userPreferences struct {
	DurationWeight float64 `json:"duration_weight"`
	CostWeight     float64 `json:"cost_weight"`
	ComfortWeight  float64 `json:"comfort_weight"`
}

type trafficRequest struct {
	RouteInfo   routeInfo   `json:"route_info"`
	WeatherData weatherData `json:"weather_data"`
	DateTime    string      `json:"date_time"`
}

type trafficResponse struct {
	TrafficMultiplier float64 `json:"traffic_multiplier"`
	Confidence        float64 `json:"confidence"`
	ModelUsed         string  `json:"model_used"`
}

type optimizeRequest struct {
	RouteInfo       routeInfo       `json:"route_info"`
	WeatherData     weatherData     `json:"weather_data"`
	TrafficData     trafficData     `json:"traffic_data"`
	UserPreferences userPreferences `json:"user_preferences"`
}

type optimizeResponse struct {
	OptimizedDuration float64 `json:"optimized_duration"`
	EstimatedCost     float64 `json:"estimated_cost"`
	OptimizationScore float64 `json:"optimization_score"`
	Confidence        float64 `json:"confidence"`
	ModelUsed         string  `json:"model_used"`
}

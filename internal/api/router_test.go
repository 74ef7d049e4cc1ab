package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartroute/smartroute/internal/api"
	"github.com/smartroute/smartroute/internal/api/middleware"
	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/planner"
	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/provider/resilience"
	"github.com/smartroute/smartroute/internal/routing"
)

type stubDirections struct {
	err error
}

func (s *stubDirections) GetDirections(_ context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &routing.DirectionsResponse{
		Provider: "stub",
		Routes: []routing.Route{{
			Summary: "O-4",
			Legs: []routing.Leg{{
				StartAddress:    req.Origin,
				EndAddress:      req.Destination,
				DistanceMeters:  450000,
				DurationSeconds: 18000,
			}},
		}},
	}, nil
}

func (s *stubDirections) Name() string { return "stub" }

type stubPrediction struct {
	err error
}

func (s stubPrediction) Health(context.Context) (*prediction.HealthStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &prediction.HealthStatus{Status: "healthy", ModelsLoaded: true}, nil
}

func (s stubPrediction) ModelInfo(context.Context) (*prediction.ModelInfo, error) {
	return &prediction.ModelInfo{
		TrafficModel: prediction.ModelDescription{Type: "LSTM", Loaded: true},
		RouteModel:   prediction.ModelDescription{Type: "Transformer", Loaded: true},
		ModelsLoaded: true,
	}, nil
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func newPlanner(directions routing.Provider) *planner.Service {
	return planner.NewService(planner.Config{
		Parser:     prompt.NewParser(prompt.Config{DefaultYear: 2026, Logger: zerolog.Nop()}),
		Directions: directions,
		Now:        func() time.Time { return time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC) },
		Logger:     zerolog.Nop(),
	})
}

func newTestRouter() http.Handler {
	return newRouter(api.RouterConfig{Planner: newPlanner(&stubDirections{})})
}

func newRouter(cfg api.RouterConfig) http.Handler {
	cfg.Version = "test"
	cfg.BuildTime = "2026-01-01T00:00:00Z"
	cfg.Logger = zerolog.New(io.Discard)
	return api.NewRouter(cfg)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.NotEmpty(t, problem.TraceID)
	return problem
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newRouter(api.RouterConfig{
		Planner:  newPlanner(&stubDirections{}),
		Database: stubPinger{},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_ReadinessCheck_DatabaseDown(t *testing.T) {
	router := newRouter(api.RouterConfig{
		Planner:  newPlanner(&stubDirections{}),
		Database: stubPinger{err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusFail, health.Status)
	assert.Equal(t, "connection refused", health.Details["database"])
}

func TestRouter_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "googlemaps", Registry: registry})
	registry.RecordSuccess("googlemaps")

	router := newRouter(api.RouterConfig{
		Planner:    newPlanner(&stubDirections{}),
		Registry:   registry,
		Prediction: stubPrediction{},
		Database:   stubPinger{},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "postgres", status.Subsystems[0].Name)

	require.Len(t, status.Providers, 1)
	assert.Equal(t, "googlemaps", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	assert.NotNil(t, status.Providers[0].LastSuccessAt)

	require.NotNil(t, status.Prediction)
	assert.True(t, status.Prediction.ModelsLoaded)
	assert.Equal(t, "LSTM", status.Prediction.TrafficModel)
	assert.Equal(t, "Transformer", status.Prediction.RouteModel)
}

func TestRouter_SystemStatus_PredictionDownIsDegraded(t *testing.T) {
	router := newRouter(api.RouterConfig{
		Planner:    newPlanner(&stubDirections{}),
		Prediction: stubPrediction{err: errors.New("dial tcp: refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.NotNil(t, status.Prediction)
	assert.Equal(t, models.HealthStatusFail, status.Prediction.Status)
	assert.Empty(t, status.Providers)
}

func TestRouter_AnalyzePrompt(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/prompts:analyze", models.PromptRequest{
		Text: "İstanbul'dan Ankara'ya 12.02.2026 tarihinde git, yağmurlu",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Intent)
	assert.Equal(t, "İstanbul", resp.Intent.Source)
	assert.Equal(t, "Ankara", resp.Intent.Destination)
	assert.Equal(t, "2026-02-12", resp.Intent.TravelDate)
	assert.Contains(t, resp.Intent.WeatherTags, "rainy")
	assert.Equal(t, []string{"İstanbul", "Ankara"}, resp.Stops)
	assert.Empty(t, resp.Constraints)
}

func TestRouter_AnalyzePrompt_Constraints(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/prompts:analyze", models.PromptRequest{
		Text: "Kartal'dan Beykoz'a Boğaziçi Köprüsü'nü geçmeden, TEM Otoyolu üzerinden git",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Avoid: Boğaziçi Köprüsü", "Use: TEM Otoyolu"}, resp.Constraints)
	assert.Equal(t, resp.Intent.Stops(), resp.Stops)
}

func TestRouter_AnalyzePrompt_Meaningless(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/prompts:analyze", models.PromptRequest{Text: "asdf"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeMeaningless, problem.Type)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "text", problem.Errors[0].Field)
	assert.NotEmpty(t, problem.Errors[0].Code)
}

func TestRouter_AnalyzePrompt_ValidationError(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/prompts:analyze", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "text", problem.Errors[0].Field)
	assert.Equal(t, "required", problem.Errors[0].Code)
}

func TestRouter_AnalyzePrompt_InvalidJSON(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/prompts:analyze", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeProblem(t, w)
}

func TestRouter_UnsupportedMediaType(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:plan", strings.NewReader("text=hello"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeUnsupportedMedia, problem.Type)
}

func TestRouter_PlanRoute(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:plan", models.PromptRequest{
		Text: "Ankara'dan İzmir'e 29.10.2026 yolculuk",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Routes, 1)
	route := resp.Routes[0]
	assert.Equal(t, 300.0, route.BaseDurationMin)
	assert.Greater(t, route.AdjustedDurationMin, route.BaseDurationMin)
	assert.True(t, route.IsHoliday)
	assert.Equal(t, "Cumhuriyet Bayramı", route.HolidayName)
	assert.NotEmpty(t, route.MapURL)

	require.NotNil(t, resp.HolidayInfo)
	assert.True(t, resp.HolidayInfo.IsHoliday)
	assert.True(t, resp.Summary.IsHolidayPeriod)
	assert.Equal(t, 2, resp.Summary.TotalCities)
	assert.NotNil(t, resp.Constraints)
}

func TestRouter_PlanRoute_Meaningless(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:plan", models.PromptRequest{Text: "asdf"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeMeaningless, problem.Type)
	assert.Equal(t, "/v1/routes:plan", problem.Instance)
}

func TestRouter_PlanRoute_DirectionsFailure(t *testing.T) {
	directions := &stubDirections{err: &routing.Error{
		Provider: "stub",
		Code:     "OVER_QUERY_LIMIT",
		Message:  "quota exceeded",
		Err:      routing.ErrRateLimitExceeded,
	}}
	router := newRouter(api.RouterConfig{Planner: newPlanner(directions)})

	w := postJSON(t, router, "/v1/routes:plan", models.PromptRequest{
		Text: "İstanbul'dan Ankara'ya 12.02.2026",
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeBadGateway, problem.Type)
}

func TestRouter_Estimate(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:estimate", planner.EstimateRequest{
		FromLat: 41.0082, FromLng: 28.9784,
		ToLat: 39.9334, ToLng: 32.8597,
		Date: "2026-10-29", Time: "09:00",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		GeneratedAt       models.Timestamp    `json:"generatedAt"`
		Candidates        []routing.Candidate `json:"candidates"`
		Date              string              `json:"date"`
		IsHoliday         bool                `json:"isHoliday"`
		HolidayName       string              `json:"holidayName"`
		WeatherCondition  string              `json:"weatherCondition"`
		TrafficMultiplier float64             `json:"trafficMultiplier"`
		TrafficLevel      string              `json:"trafficLevel"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "2026-10-29", resp.Date)
	assert.True(t, resp.IsHoliday)
	assert.Equal(t, "Cumhuriyet Bayramı", resp.HolidayName)
	assert.Equal(t, planner.WeatherUnknown, resp.WeatherCondition)
	assert.Equal(t, planner.TrafficElevated, resp.TrafficLevel)
	assert.False(t, resp.GeneratedAt.Time().IsZero())
}

func TestRouter_Estimate_ValidationError(t *testing.T) {
	router := newTestRouter()

	w := postJSON(t, router, "/v1/routes:estimate", planner.EstimateRequest{
		FromLat: 95, FromLng: 28.9784,
		ToLat: 39.9334, ToLng: 32.8597,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "fromLat", problem.Errors[0].Field)
	assert.Equal(t, "latitude", problem.Errors[0].Code)
}

func TestRouter_GetHoliday(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/holidays/2026-10-29", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.HolidayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.HolidayInfo)
	assert.True(t, resp.IsHoliday)
	assert.Equal(t, "Cumhuriyet Bayramı", resp.HolidayName)
	assert.Equal(t, 1.02, resp.TrafficMultiplier)
	assert.Equal(t, planner.TrafficElevated, resp.TrafficLevel)
	assert.Equal(t, "Thursday", resp.DayOfWeek)
}

func TestRouter_GetHoliday_Weekend(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/holidays/2026-02-15", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.HolidayResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.HolidayInfo)
	assert.False(t, resp.IsHoliday)
	assert.True(t, resp.IsWeekend)
	assert.Equal(t, planner.TrafficHigh, resp.TrafficLevel)
}

func TestRouter_GetHoliday_InvalidDate(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/holidays/29.10.2026", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decodeProblem(t, w)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "date", problem.Errors[0].Field)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	problem := decodeProblem(t, w)
	assert.Equal(t, models.ProblemTypeNotFound, problem.Type)
}

func TestRouter_PlanRateLimit(t *testing.T) {
	router := newRouter(api.RouterConfig{
		Planner: newPlanner(&stubDirections{}),
		RateLimits: middleware.RateLimits{
			Plan: middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute},
		},
	})
	body := models.PromptRequest{Text: "Ankara'dan İzmir'e 29.10.2026 yolculuk"}

	first := postJSON(t, router, "/v1/routes:plan", body)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, router, "/v1/routes:plan", body)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Equal(t, models.ProblemTypeTooManyRequests, decodeProblem(t, second).Type)

	// Analysis has its own budget.
	assert.Equal(t, http.StatusOK, postJSON(t, router, "/v1/prompts:analyze", body).Code)
}

func TestRouter_RequireTLS(t *testing.T) {
	router := newRouter(api.RouterConfig{Planner: newPlanner(&stubDirections{}), RequireTLS: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Forwarded-Proto", "http")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ProblemTypeTLSRequired, decodeProblem(t, w).Type)
}

func TestRouter_ResponsesAreNotCached(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/holidays/2026-10-29", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

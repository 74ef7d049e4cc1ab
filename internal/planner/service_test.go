package planner_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartroute/smartroute/internal/adjustment"
	"github.com/smartroute/smartroute/internal/planner"
	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/routing"
	"github.com/smartroute/smartroute/pkg/polyline"
)

var trt = time.FixedZone("TRT", 3*60*60)

type fakeDirections struct {
	mu       sync.Mutex
	requests []routing.DirectionsRequest
	routes   []routing.Route
	err      error
}

func (f *fakeDirections) GetDirections(_ context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &routing.DirectionsResponse{Routes: f.routes, Provider: "fake"}, nil
}

func (f *fakeDirections) Name() string { return "fake" }

func (f *fakeDirections) calls() []routing.DirectionsRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]routing.DirectionsRequest(nil), f.requests...)
}

type fakeSnapper struct {
	calls atomic.Int32
}

func (f *fakeSnapper) SnapToRoads(_ context.Context, path []polyline.Point) ([]polyline.Point, error) {
	f.calls.Add(1)
	out := make([]polyline.Point, len(path))
	for i, p := range path {
		out[i] = polyline.Point{Lat: p.Lat + 0.001, Lng: p.Lng}
	}
	return out, nil
}

type fakeWeather struct {
	tags []string
	err  error
	at   time.Time
}

func (f *fakeWeather) ResolveTags(_ context.Context, _, _ float64, at time.Time) ([]string, error) {
	f.at = at
	return f.tags, f.err
}

type fakeMetrics struct {
	mu    sync.Mutex
	calls map[string]int
	errs  int
}

func (f *fakeMetrics) RecordRequest(provider, operation string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[provider+"/"+operation]++
	if err != nil {
		f.errs++
	}
}

type fakeAdvisor struct {
	mu       sync.Mutex
	cities   []string
	date     string
	tags     []string
	forecast *prediction.RouteForecast
	recs     []prediction.Recommendation
	err      error
	recCalls int
}

func (f *fakeAdvisor) PredictRoute(_ context.Context, cities []string, date string, tags []string) (*prediction.RouteForecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities, f.date, f.tags = cities, date, tags
	return f.forecast, f.err
}

func (f *fakeAdvisor) Recommendations(context.Context, []string, string) ([]prediction.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recCalls++
	return f.recs, nil
}

func winterForecast() *prediction.RouteForecast {
	return &prediction.RouteForecast{
		Predictions: []prediction.CityForecast{
			{City: "İstanbul", Date: "2026-02-12", PredictedWeather: "kar", TrafficMultiplier: 1.3},
			{City: "Ankara", Date: "2026-02-12", PredictedWeather: "bulutlu", TrafficMultiplier: 1.1},
		},
	}
}

type fixedPredictor struct {
	prediction adjustment.Prediction
}

func (f fixedPredictor) Predict(context.Context, adjustment.PredictionRequest) (*adjustment.Prediction, error) {
	p := f.prediction
	return &p, nil
}

func twoRoutes() []routing.Route {
	return []routing.Route{
		{
			Summary: "O-4",
			Legs: []routing.Leg{{
				StartAddress:    "İstanbul, Türkiye",
				EndAddress:      "Ankara, Türkiye",
				DistanceMeters:  450000,
				DurationSeconds: 18000,
				Steps: []routing.Step{
					{Instruction: "<b>Otoyol</b> ücretli kesim", DistanceMeters: 400000, DurationSeconds: 15000},
					{Instruction: "Ankara yönüne devam", DistanceMeters: 50000, DurationSeconds: 3000},
				},
			}},
		},
		{
			Summary: "D100",
			Legs: []routing.Leg{{
				StartAddress:    "İstanbul, Türkiye",
				EndAddress:      "Ankara, Türkiye",
				DistanceMeters:  470000,
				DurationSeconds: 21600,
				Steps: []routing.Step{
					{Instruction: "D100 üzerinden devam", DistanceMeters: 470000, DurationSeconds: 21600},
				},
			}},
		},
	}
}

type fixture struct {
	directions *fakeDirections
	snapper    *fakeSnapper
	weather    *fakeWeather
	metrics    *fakeMetrics
	advisor    *fakeAdvisor
	now        time.Time
}

func newFixture() *fixture {
	return &fixture{
		directions: &fakeDirections{routes: twoRoutes()},
		snapper:    &fakeSnapper{},
		weather:    &fakeWeather{},
		metrics:    &fakeMetrics{},
		now:        time.Date(2026, 1, 5, 9, 0, 0, 0, trt),
	}
}

func (f *fixture) service(engine *adjustment.Engine) *planner.Service {
	cfg := planner.Config{
		Parser:     prompt.NewParser(prompt.Config{DefaultYear: 2026, Logger: zerolog.Nop()}),
		Directions: f.directions,
		Snapper:    f.snapper,
		Weather:    f.weather,
		Engine:     engine,
		Metrics:    f.metrics,
		Now:        func() time.Time { return f.now },
		Logger:     zerolog.Nop(),
	}
	if f.advisor != nil {
		cfg.Advisor = f.advisor
	}
	return planner.NewService(cfg)
}

func TestPlanRoute_EndToEnd(t *testing.T) {
	f := newFixture()
	svc := f.service(nil)

	plan, err := svc.PlanRoute(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026 tarihinde git, yağmurlu")
	require.NoError(t, err)

	assert.Equal(t, "İstanbul", plan.Intent.Source)
	assert.Equal(t, "Ankara", plan.Intent.Destination)
	assert.Empty(t, plan.Constraints)

	requests := f.directions.calls()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "İstanbul", req.Origin)
	assert.Equal(t, "Ankara", req.Destination)
	assert.Empty(t, req.Waypoints)
	assert.True(t, req.Alternatives)
	assert.Equal(t, []string{routing.AvoidFerries, routing.AvoidHighways}, req.Avoid)
	wantDeparture := time.Date(2026, 2, 12, 8, 0, 0, 0, trt).Unix()
	assert.Equal(t, strconv.FormatInt(wantDeparture, 10), req.DepartureTime)
	assert.Zero(t, f.snapper.calls.Load(), "place names are not snapped")

	require.Len(t, plan.Candidates, 2)
	first := plan.Candidates[0]
	assert.Equal(t, []string{"İstanbul, Türkiye", "Ankara, Türkiye"}, first.Stops)
	assert.Equal(t, 300.0, first.BaseDurationMin)
	assert.InDelta(t, 330.0, first.AdjustedDurationMin, 0.001)
	assert.Equal(t, []routing.Label{routing.LabelFastest}, first.Labels)
	assert.Contains(t, first.MapURL, "https://maps.google.com/?q=")
	assert.Equal(t, planner.MapURL(first.Stops), first.MapURL)

	second := plan.Candidates[1]
	assert.Equal(t, []routing.Label{routing.LabelCheapest, routing.LabelFree}, second.Labels)

	require.NotNil(t, plan.HolidayInfo)
	assert.Equal(t, "2026-02-12", plan.HolidayInfo.Date)
	assert.False(t, plan.HolidayInfo.IsHoliday)
	assert.False(t, plan.HolidayInfo.IsWeekend)
	assert.Equal(t, "Thursday", plan.HolidayInfo.DayOfWeek)
	assert.Equal(t, "not a holiday", plan.HolidayInfo.Impact)
	assert.Equal(t, 1.0, plan.HolidayInfo.TrafficMultiplier)

	assert.Equal(t, 2, plan.Summary.TotalCities)
	assert.False(t, plan.Summary.IsHolidayPeriod)
	assert.Equal(t, 1.0, plan.Summary.AvgTrafficMultiplier)
	assert.Equal(t, 1.1, plan.Summary.AvgDurationImpact)
	assert.Equal(t, []string{prompt.TagRainy}, plan.Summary.WeatherTags)

	assert.Equal(t, 1, f.metrics.calls["fake/directions"])
}

func TestPlanRoute_HolidaySummary(t *testing.T) {
	f := newFixture()
	plan, err := f.service(nil).PlanRoute(context.Background(), "Ankara'dan İzmir'e 29.10.2026 yolculuk")
	require.NoError(t, err)

	require.NotNil(t, plan.HolidayInfo)
	assert.True(t, plan.HolidayInfo.IsHoliday)
	assert.Equal(t, "Cumhuriyet Bayramı", plan.HolidayInfo.HolidayName)
	assert.Equal(t, "official", plan.HolidayInfo.HolidayType)
	assert.Equal(t, "Cumhuriyet Bayramı - minimal increase expected", plan.HolidayInfo.Impact)

	assert.True(t, plan.Summary.IsHolidayPeriod)
	assert.Equal(t, "Cumhuriyet Bayramı", plan.Summary.HolidayName)
	assert.Equal(t, 1.02, plan.Summary.AvgTrafficMultiplier)
	assert.Equal(t, 1.02, plan.Summary.AvgDurationImpact)

	for _, c := range plan.Candidates {
		assert.True(t, c.IsHoliday)
		assert.Equal(t, []string{"Cumhuriyet Bayramı: traffic density x1.02"}, c.Explanations)
	}
}

func TestPlanRoute_AISummary(t *testing.T) {
	f := newFixture()
	engine := adjustment.NewEngine(adjustment.Config{
		Predictor: fixedPredictor{prediction: adjustment.Prediction{
			ModelID:           "AI_LSTM",
			TrafficMultiplier: 1.2,
			Confidence:        0.9,
		}},
		Logger: zerolog.Nop(),
	})

	plan, err := f.service(engine).PlanRoute(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026")
	require.NoError(t, err)

	require.Len(t, plan.Candidates, 2)
	for _, c := range plan.Candidates {
		assert.True(t, c.AIUsed)
		assert.Equal(t, "AI_LSTM", c.AIModel)
	}
	assert.Equal(t, 1.2, plan.Summary.AvgTrafficMultiplier)
	assert.Equal(t, 1.2, plan.Summary.AvgDurationImpact)
}

func TestPlanRoute_Constraints(t *testing.T) {
	f := newFixture()
	plan, err := f.service(nil).PlanRoute(context.Background(),
		"Kartal'dan Beykoz'a Boğaziçi Köprüsü'nü geçmeden, TEM Otoyolu üzerinden git")
	require.NoError(t, err)

	assert.Equal(t, []string{"Avoid: Boğaziçi Köprüsü", "Use: TEM Otoyolu"}, plan.Constraints)
	assert.Nil(t, plan.HolidayInfo)
}

func TestPlanRoute_MeaninglessPrompt(t *testing.T) {
	f := newFixture()
	plan, err := f.service(nil).PlanRoute(context.Background(), "asdf")

	assert.Nil(t, plan)
	require.ErrorIs(t, err, prompt.ErrMeaninglessPrompt)
	assert.Empty(t, f.directions.calls())
}

func TestPlanRoute_SingleStop(t *testing.T) {
	f := newFixture()
	plan, err := f.service(nil).PlanRoute(context.Background(), "Bursa")
	require.NoError(t, err)

	assert.Empty(t, plan.Candidates)
	assert.NotNil(t, plan.Candidates)
	assert.Empty(t, f.directions.calls())
	assert.Equal(t, 1, plan.Summary.TotalCities)
	assert.Equal(t, 1.0, plan.Summary.AvgTrafficMultiplier)
	assert.Equal(t, 1.0, plan.Summary.AvgDurationImpact)
}

func TestPlanRoute_DirectionsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{
			name: "provider error",
			err: &routing.Error{
				Provider: "fake",
				Code:     "ZERO_RESULTS",
				Message:  "no route",
				Err:      routing.ErrNoRouteFound,
			},
			is: routing.ErrNoRouteFound,
		},
		{
			name: "transport error",
			err:  errors.New("connection refused"),
			is:   routing.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.directions.err = tt.err

			plan, err := f.service(nil).PlanRoute(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026")
			require.ErrorIs(t, err, planner.ErrDirectionsFailure)
			assert.ErrorIs(t, err, tt.is)

			var rerr *routing.Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, "fake", rerr.Provider)

			require.NotNil(t, plan)
			assert.Empty(t, plan.Candidates)
			assert.Equal(t, "İstanbul", plan.Intent.Source)
			require.NotNil(t, plan.HolidayInfo)
			assert.Equal(t, 1, f.metrics.errs)
		})
	}
}

func TestAnalyzePrompt(t *testing.T) {
	f := newFixture()
	intent, err := f.service(nil).AnalyzePrompt(context.Background(), "Kadıköy'den Beşiktaş'a gitmek istiyorum")
	require.NoError(t, err)

	assert.Equal(t, "Kadıköy, İstanbul", intent.Source)
	assert.Equal(t, "Beşiktaş, İstanbul", intent.Destination)
	assert.Empty(t, f.directions.calls())
}

func TestEstimate(t *testing.T) {
	f := newFixture()
	f.weather.tags = []string{prompt.TagSnowy}

	est, err := f.service(nil).Estimate(context.Background(), planner.EstimateRequest{
		FromLat: 41.0082, FromLng: 28.9784,
		ToLat: 39.9334, ToLng: 32.8597,
		Date: "2026-10-29",
		Time: "14:30",
	})
	require.NoError(t, err)

	requests := f.directions.calls()
	require.Len(t, requests, 1)
	assert.Equal(t, "41.009200,28.978400", requests[0].Origin)
	assert.Equal(t, "39.934400,32.859700", requests[0].Destination)
	assert.Equal(t, []string{routing.AvoidFerries, routing.AvoidHighways}, requests[0].Avoid)
	assert.EqualValues(t, 2, f.snapper.calls.Load())

	assert.True(t, time.Date(2026, 10, 29, 14, 30, 0, 0, trt).Equal(f.weather.at))
	assert.Equal(t, "2026-10-29", est.Date)
	assert.Equal(t, []string{prompt.TagSnowy}, est.WeatherTags)
	assert.Equal(t, prompt.TagSnowy, est.WeatherCondition)
	assert.True(t, est.IsHoliday)
	assert.Equal(t, "Cumhuriyet Bayramı", est.HolidayName)
	assert.Equal(t, 1.02, est.TrafficMultiplier)
	assert.Equal(t, planner.TrafficElevated, est.TrafficLevel)

	require.Len(t, est.Candidates, 2)
	assert.InDelta(t, 300*1.15*1.02, est.Candidates[0].AdjustedDurationMin, 0.06)
	assert.NotEmpty(t, est.Candidates[0].MapURL)
}

func TestEstimate_DefaultsToToday(t *testing.T) {
	f := newFixture()
	f.now = time.Date(2026, 2, 15, 7, 0, 0, 0, time.UTC) // Sunday 10:00 in Turkey
	f.weather.err = errors.New("forecast unavailable")

	est, err := f.service(nil).Estimate(context.Background(), planner.EstimateRequest{
		FromLat: 41.0082, FromLng: 28.9784,
		ToLat: 39.9334, ToLng: 32.8597,
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-02-15", est.Date)
	assert.Empty(t, est.WeatherTags)
	assert.Equal(t, planner.WeatherUnknown, est.WeatherCondition)
	assert.False(t, est.IsHoliday)
	assert.Equal(t, 1.05, est.TrafficMultiplier)
	assert.Equal(t, planner.TrafficHigh, est.TrafficLevel)
	assert.Equal(t, routing.DepartureNow, f.directions.calls()[0].DepartureTime)
}

func TestEstimate_Validation(t *testing.T) {
	f := newFixture()
	svc := f.service(nil)

	tests := map[string]planner.EstimateRequest{
		"latitude out of range":  {FromLat: 95, FromLng: 28.9, ToLat: 39.9, ToLng: 32.8},
		"longitude out of range": {FromLat: 41, FromLng: 28.9, ToLat: 39.9, ToLng: 190},
		"bad date":               {FromLat: 41, FromLng: 28.9, ToLat: 39.9, ToLng: 32.8, Date: "29.10.2026"},
		"bad time":               {FromLat: 41, FromLng: 28.9, ToLat: 39.9, ToLng: 32.8, Time: "25:00"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			est, err := svc.Estimate(context.Background(), req)
			assert.Nil(t, est)
			assert.ErrorIs(t, err, planner.ErrInvalidEstimate)
		})
	}
	assert.Empty(t, f.directions.calls())

	_, err := svc.Estimate(context.Background(), tests["latitude out of range"])
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "fromLat", verrs[0].Field())
}

func TestEstimate_DirectionsFailure(t *testing.T) {
	f := newFixture()
	f.directions.err = &routing.Error{Provider: "fake", Code: "OVER_QUERY_LIMIT", Message: "quota", Err: routing.ErrRateLimitExceeded}

	est, err := f.service(nil).Estimate(context.Background(), planner.EstimateRequest{
		FromLat: 41.0082, FromLng: 28.9784, ToLat: 39.9334, ToLng: 32.8597, Date: "2026-02-12",
	})
	require.ErrorIs(t, err, planner.ErrDirectionsFailure)
	assert.ErrorIs(t, err, routing.ErrRateLimitExceeded)
	require.NotNil(t, est)
	assert.Empty(t, est.Candidates)
	assert.Equal(t, planner.TrafficNormal, est.TrafficLevel)
}

func TestTrafficLevel(t *testing.T) {
	tests := map[float64]string{
		0.95: planner.TrafficLow,
		1.0:  planner.TrafficNormal,
		1.02: planner.TrafficElevated,
		1.05: planner.TrafficHigh,
		1.2:  planner.TrafficHigh,
	}
	for m, want := range tests {
		assert.Equal(t, want, planner.TrafficLevel(m), m)
	}
}

func TestMapURL(t *testing.T) {
	assert.Equal(t, "https://maps.google.com/?q=%C4%B0stanbul|Ankara", planner.MapURL([]string{"İstanbul", "Ankara"}))
	assert.Equal(t, "https://maps.google.com/?q=Kad%C4%B1k%C3%B6y%2C+%C4%B0stanbul", planner.MapURL([]string{"Kadıköy, İstanbul"}))
	assert.Equal(t, "https://maps.google.com/?q=", planner.MapURL(nil))
}

func TestPlanRoute_ForecastWeatherShapesPlan(t *testing.T) {
	f := newFixture()
	f.advisor = &fakeAdvisor{
		forecast: winterForecast(),
		recs: []prediction.Recommendation{
			{Type: "weather", Priority: "high", Message: "Kar bekleniyor", Impact: "duration"},
		},
	}

	plan, err := f.service(nil).PlanRoute(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026")
	require.NoError(t, err)

	assert.Equal(t, []string{"İstanbul", "Ankara"}, f.advisor.cities)
	assert.Equal(t, "2026-02-12", f.advisor.date)
	assert.Empty(t, f.advisor.tags)

	assert.Len(t, plan.Forecasts, 2)
	require.Len(t, plan.Recommendations, 1)
	assert.Equal(t, "Kar bekleniyor", plan.Recommendations[0].Message)

	assert.Contains(t, f.directions.calls()[0].Avoid, routing.AvoidHighways)
	require.Len(t, plan.Candidates, 2)
	assert.InDelta(t, 345.0, plan.Candidates[0].AdjustedDurationMin, 0.001)
	assert.Equal(t, []string{"Snowy weather: duration +15%"}, plan.Candidates[0].Explanations)

	assert.Empty(t, plan.Intent.WeatherTags)
	assert.Equal(t, []string{prompt.TagSnowy}, plan.Summary.WeatherTags)
	assert.Equal(t, 1.2, plan.Summary.AvgTrafficMultiplier)
	assert.Equal(t, 1.15, plan.Summary.AvgDurationImpact)

	assert.Equal(t, 1, f.metrics.calls["prediction/predict_route"])
	assert.Equal(t, 1, f.metrics.calls["prediction/route_recommendations"])
}

func TestPlanRoute_PromptWeatherOverridesForecast(t *testing.T) {
	f := newFixture()
	f.advisor = &fakeAdvisor{forecast: winterForecast()}

	plan, err := f.service(nil).PlanRoute(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026 tarihinde git, yağmurlu")
	require.NoError(t, err)

	assert.Equal(t, []string{prompt.TagRainy}, f.advisor.tags)
	assert.Equal(t, []string{prompt.TagRainy}, plan.Summary.WeatherTags)
	assert.InDelta(t, 330.0, plan.Candidates[0].AdjustedDurationMin, 0.001)
	assert.Empty(t, plan.Recommendations)
	assert.NotNil(t, plan.Recommendations)
}

func TestPlanRoute_ForecastFailureDegradesToEmpty(t *testing.T) {
	f := newFixture()
	f.advisor = &fakeAdvisor{err: prediction.ErrUnavailable}

	plan, err := f.service(nil).PlanRoute(context.Background(), "İstanbul'dan Ankara'ya 12.02.2026")
	require.NoError(t, err)

	assert.NotNil(t, plan.Forecasts)
	assert.Empty(t, plan.Forecasts)
	assert.Empty(t, plan.Recommendations)
	assert.Zero(t, f.advisor.recCalls)

	require.Len(t, plan.Candidates, 2)
	assert.Equal(t, 300.0, plan.Candidates[0].AdjustedDurationMin)
	assert.Empty(t, plan.Summary.WeatherTags)
	assert.Equal(t, 1.0, plan.Summary.AvgTrafficMultiplier)
	assert.Equal(t, 1, f.metrics.errs)
}

func TestPlanRoute_UndatedTripIsNotForecast(t *testing.T) {
	f := newFixture()
	f.advisor = &fakeAdvisor{forecast: winterForecast()}

	plan, err := f.service(nil).PlanRoute(context.Background(), "İstanbul'dan Ankara'ya git")
	require.NoError(t, err)

	assert.Nil(t, f.advisor.cities)
	assert.Empty(t, plan.Forecasts)
	assert.Zero(t, f.metrics.calls["prediction/predict_route"])
}

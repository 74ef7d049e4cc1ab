package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/smartroute/smartroute/internal/adjustment"
	"github.com/smartroute/smartroute/internal/holiday"
	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/routing"
	"github.com/smartroute/smartroute/pkg/polyline"
)

const tracerName = "github.com/smartroute/smartroute/internal/planner"

// Turkey has observed UTC+3 all year since 2016.
var turkeyTime = time.FixedZone("TRT", 3*60*60)

// WeatherResolver resolves the canonical weather tags forecast for a point.
type WeatherResolver interface {
	ResolveTags(ctx context.Context, lat, lon float64, at time.Time) ([]string, error)
}

// RouteAdvisor forecasts weather and traffic for the stops of a dated trip
// and offers advisories about it.
type RouteAdvisor interface {
	PredictRoute(ctx context.Context, cities []string, date string, tags []string) (*prediction.RouteForecast, error)
	Recommendations(ctx context.Context, cities []string, date string) ([]prediction.Recommendation, error)
}

// MetricsRecorder records the outcome of provider calls.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// Config holds configuration for the planner.
type Config struct {
	// Parser turns prompts into travel intents (required).
	Parser *prompt.Parser

	// Directions fetches route alternatives (required).
	Directions routing.Provider

	// Snapper moves coordinate endpoints onto roads (optional).
	Snapper routing.RoadSnapper

	// Weather resolves forecast tags for Estimate (optional).
	Weather WeatherResolver

	// Advisor forecasts dated trips when the ML service is enabled (optional).
	Advisor RouteAdvisor

	// Engine adjusts candidate durations (default: adjustment.NewEngine with defaults).
	Engine *adjustment.Engine

	// Avoid is the base avoid list for directions requests (default: ferries).
	Avoid []string

	// DirectionsTimeout bounds the directions call (default: 15 seconds).
	DirectionsTimeout time.Duration

	// SnapTimeout bounds each road snap call (default: 3 seconds).
	SnapTimeout time.Duration

	// WeatherTimeout bounds the forecast lookup (default: 5 seconds).
	WeatherTimeout time.Duration

	// AdvisorTimeout bounds the route forecast and the recommendations
	// together (default: 5 seconds).
	AdvisorTimeout time.Duration

	// Metrics records provider call durations (optional).
	Metrics MetricsRecorder

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger for pipeline operations.
	Logger zerolog.Logger
}

// Service runs the prompt-to-route pipeline.
type Service struct {
	parser     *prompt.Parser
	directions routing.Provider
	snapper    routing.RoadSnapper
	weather    WeatherResolver
	advisor    RouteAdvisor
	engine     *adjustment.Engine
	aggregator *routing.Aggregator
	avoid      []string

	directionsTimeout time.Duration
	snapTimeout       time.Duration
	weatherTimeout    time.Duration
	advisorTimeout    time.Duration

	metrics  MetricsRecorder
	now      func() time.Time
	validate *validator.Validate
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewService creates a new planner service.
func NewService(cfg Config) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = adjustment.NewEngine(adjustment.Config{Logger: cfg.Logger})
	}

	directionsTimeout := cfg.DirectionsTimeout
	if directionsTimeout == 0 {
		directionsTimeout = 15 * time.Second
	}

	snapTimeout := cfg.SnapTimeout
	if snapTimeout == 0 {
		snapTimeout = 3 * time.Second
	}

	weatherTimeout := cfg.WeatherTimeout
	if weatherTimeout == 0 {
		weatherTimeout = 5 * time.Second
	}

	advisorTimeout := cfg.AdvisorTimeout
	if advisorTimeout == 0 {
		advisorTimeout = 5 * time.Second
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		parser:            cfg.Parser,
		directions:        cfg.Directions,
		snapper:           cfg.Snapper,
		weather:           cfg.Weather,
		advisor:           cfg.Advisor,
		engine:            engine,
		aggregator:        routing.NewAggregator(routing.AggregatorConfig{Engine: engine, Logger: cfg.Logger}),
		avoid:             cfg.Avoid,
		directionsTimeout: directionsTimeout,
		snapTimeout:       snapTimeout,
		weatherTimeout:    weatherTimeout,
		advisorTimeout:    advisorTimeout,
		metrics:           cfg.Metrics,
		now:               now,
		validate:          newValidator(),
		tracer:            otel.Tracer(tracerName),
		logger:            cfg.Logger,
	}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Calendar returns the holiday calendar used by the pipeline.
func (s *Service) Calendar() *holiday.Calendar {
	return s.engine.Calendar()
}

// AnalyzePrompt parses text into a travel intent without fetching routes.
func (s *Service) AnalyzePrompt(ctx context.Context, text string) (*prompt.TravelIntent, error) {
	return s.parser.Parse(ctx, text)
}

// PlanRoute parses text, fetches route alternatives for its stops and ranks
// them. A prompt with fewer than two stops yields a plan without candidates.
//
// A dated trip is also forecast by the advisor. When the prompt names no
// weather, the forecast conditions shape the request and adjust durations.
//
// On a directions failure the returned plan is still populated (with no
// candidates) and the error wraps ErrDirectionsFailure.
func (s *Service) PlanRoute(ctx context.Context, text string) (*Plan, error) {
	ctx, span := s.tracer.Start(ctx, "planner.PlanRoute")
	defer span.End()

	intent, err := s.parser.Parse(ctx, text)
	if err != nil {
		span.SetStatus(codes.Error, "prompt rejected")
		return nil, err
	}

	stops := intent.Stops()
	span.SetAttributes(
		attribute.Int("plan.stops", len(stops)),
		attribute.StringSlice("plan.weather_tags", intent.WeatherTags),
		attribute.String("plan.travel_date", intent.TravelDate),
	)

	plan := &Plan{
		Intent:          intent,
		Candidates:      []routing.Candidate{},
		Constraints:     constraints(intent),
		Forecasts:       []prediction.CityForecast{},
		Recommendations: []prediction.Recommendation{},
	}

	tags := intent.WeatherTags
	var routes []routing.Route
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan.HolidayInfo = s.holidayInfo(intent.TravelDate)
		return nil
	})
	g.Go(func() error {
		plan.Forecasts, plan.Recommendations = s.forecastRoute(gctx, stops, intent)
		if len(tags) == 0 && len(plan.Forecasts) > 0 {
			tags = forecastTags(plan.Forecasts)
		}

		if len(stops) < 2 {
			s.logger.Debug().Strs("stops", stops).Msg("not enough stops for directions")
			return nil
		}
		var err error
		routes, err = s.fetchRoutes(gctx, stops, tags, intent.TravelDate, intent.TravelTime)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directions failed")
		plan.Summary = summarize(plan, tags)
		return plan, err
	}

	plan.Candidates = s.aggregator.Aggregate(ctx, routes, intent.TravelDate, intent.TravelTime, tags)
	if err := attachMapURLs(ctx, plan.Candidates); err != nil {
		return nil, err
	}
	plan.Summary = summarize(plan, tags)

	span.SetAttributes(attribute.Int("plan.candidates", len(plan.Candidates)))
	s.logger.Info().
		Int("stops", len(stops)).
		Int("candidates", len(plan.Candidates)).
		Str("travel_date", intent.TravelDate).
		Msg("route planned")

	return plan, nil
}

// Estimate fetches and ranks routes between two coordinates. Weather tags
// come from the forecast at the origin; when the forecast is unavailable the
// estimate is computed without weather.
func (s *Service) Estimate(ctx context.Context, req EstimateRequest) (*Estimate, error) {
	ctx, span := s.tracer.Start(ctx, "planner.Estimate")
	defer span.End()

	if err := s.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, fmt.Errorf("%w: %w", ErrInvalidEstimate, err)
	}

	date := req.Date
	if date == "" {
		date = s.now().In(turkeyTime).Format(holiday.DateLayout)
	}
	day, _ := holiday.ParseDate(date)

	res := s.Calendar().Resolve(day)
	tags := s.weatherTags(ctx, req.FromLat, req.FromLng, departure(day, req.Time))

	est := &Estimate{
		Candidates:        []routing.Candidate{},
		Date:              date,
		WeatherTags:       tags,
		WeatherCondition:  WeatherUnknown,
		IsHoliday:         res.IsHoliday(),
		TrafficMultiplier: res.Multiplier,
		TrafficLevel:      TrafficLevel(res.Multiplier),
	}
	if len(tags) > 0 {
		est.WeatherCondition = tags[0]
	}
	if res.Holiday != nil {
		est.HolidayName = res.Holiday.Name
	}

	stops := []string{
		routing.FormatCoordinate(polyline.Point{Lat: req.FromLat, Lng: req.FromLng}),
		routing.FormatCoordinate(polyline.Point{Lat: req.ToLat, Lng: req.ToLng}),
	}
	routes, err := s.fetchRoutes(ctx, stops, tags, date, req.Time)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directions failed")
		return est, err
	}

	est.Candidates = s.aggregator.Aggregate(ctx, routes, date, req.Time, tags)
	if err := attachMapURLs(ctx, est.Candidates); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("estimate.candidates", len(est.Candidates)),
		attribute.String("estimate.traffic_level", est.TrafficLevel),
	)
	return est, nil
}

// fetchRoutes snaps coordinate endpoints, shapes the request and calls the
// directions provider.
func (s *Service) fetchRoutes(ctx context.Context, stops, tags []string, date, clock string) ([]routing.Route, error) {
	ctx, span := s.tracer.Start(ctx, "planner.directions")
	defer span.End()

	stops = append([]string(nil), stops...)
	if s.snapper != nil {
		last := len(stops) - 1
		stops[0] = s.snap(ctx, stops[0])
		stops[last] = s.snap(ctx, stops[last])
	}

	req := routing.ShapeRequest(stops, tags, date, clock, routing.ShapeOptions{
		Avoid: s.avoid,
		Now:   s.now(),
	})
	span.SetAttributes(
		attribute.String("directions.origin", req.Origin),
		attribute.String("directions.destination", req.Destination),
		attribute.Int("directions.waypoints", len(req.Waypoints)),
		attribute.StringSlice("directions.avoid", req.Avoid),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.directionsTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.directions.GetDirections(callCtx, req)
	s.record(s.directions.Name(), "directions", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).
			Str("origin", req.Origin).
			Str("destination", req.Destination).
			Msg("directions request failed")
		return nil, s.directionsFailure(err)
	}
	if resp == nil {
		return nil, nil
	}

	span.SetAttributes(attribute.Int("directions.routes", len(resp.Routes)))
	return resp.Routes, nil
}

func (s *Service) snap(ctx context.Context, endpoint string) string {
	if _, ok := routing.ParseCoordinate(endpoint); !ok {
		return endpoint
	}

	ctx, cancel := context.WithTimeout(ctx, s.snapTimeout)
	defer cancel()

	return routing.SnapEndpoint(ctx, s.snapper, endpoint)
}

// directionsFailure wraps err so that it carries both ErrDirectionsFailure
// and a *routing.Error.
func (s *Service) directionsFailure(err error) error {
	var rerr *routing.Error
	if !errors.As(err, &rerr) {
		err = &routing.Error{
			Provider: s.directions.Name(),
			Code:     "REQUEST_FAILED",
			Message:  "directions request failed",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	return fmt.Errorf("%w: %w", ErrDirectionsFailure, err)
}

func (s *Service) weatherTags(ctx context.Context, lat, lon float64, at time.Time) []string {
	if s.weather == nil {
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.weatherTimeout)
	defer cancel()

	start := time.Now()
	tags, err := s.weather.ResolveTags(ctx, lat, lon, at)
	s.record("weather", "forecast", time.Since(start), err)
	if err != nil {
		s.logger.Debug().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("weather unavailable, estimating without weather")
		return []string{}
	}
	return tags
}

// forecastRoute asks the advisor about a dated trip. Recommendations are only
// requested once the forecast came back non-empty. Failures degrade to empty
// results.
func (s *Service) forecastRoute(ctx context.Context, stops []string, intent *prompt.TravelIntent) ([]prediction.CityForecast, []prediction.Recommendation) {
	forecasts, recs := []prediction.CityForecast{}, []prediction.Recommendation{}
	if s.advisor == nil || intent.TravelDate == "" || len(stops) == 0 {
		return forecasts, recs
	}

	ctx, span := s.tracer.Start(ctx, "planner.forecast")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.advisorTimeout)
	defer cancel()

	start := time.Now()
	fc, err := s.advisor.PredictRoute(ctx, stops, intent.TravelDate, intent.WeatherTags)
	s.record(prediction.ProviderName, "predict_route", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		s.logger.Debug().Err(err).Strs("stops", stops).Msg("route forecast unavailable")
		return forecasts, recs
	}
	if fc == nil || len(fc.Predictions) == 0 {
		return forecasts, recs
	}
	forecasts = fc.Predictions

	start = time.Now()
	got, err := s.advisor.Recommendations(ctx, stops, intent.TravelDate)
	s.record(prediction.ProviderName, "route_recommendations", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		s.logger.Debug().Err(err).Strs("stops", stops).Msg("route recommendations unavailable")
	} else if got != nil {
		recs = got
	}

	span.SetAttributes(
		attribute.Int("forecast.cities", len(forecasts)),
		attribute.Int("forecast.recommendations", len(recs)),
	)
	return forecasts, recs
}

// forecastTags maps the predicted conditions to canonical tags in stop order.
func forecastTags(forecasts []prediction.CityForecast) []string {
	words := make([]string, 0, len(forecasts))
	for _, f := range forecasts {
		words = append(words, f.PredictedWeather)
	}
	return prompt.WeatherTags(strings.Join(words, " "))
}

// Holiday resolves a yyyy-MM-dd date against the calendar. It returns nil
// for an empty or malformed date.
func (s *Service) Holiday(date string) *HolidayInfo {
	return s.holidayInfo(date)
}

func (s *Service) holidayInfo(date string) *HolidayInfo {
	day, ok := holiday.ParseDate(date)
	if !ok {
		return nil
	}

	res := s.Calendar().Resolve(day)
	info := &HolidayInfo{
		Date:              day.Format(holiday.DateLayout),
		IsHoliday:         res.IsHoliday(),
		TrafficMultiplier: res.Multiplier,
		Impact:            s.Calendar().ImpactText(day),
		IsWeekend:         res.Weekend,
		DayOfWeek:         day.Weekday().String(),
	}
	if res.Holiday != nil {
		info.HolidayName = res.Holiday.Name
		info.HolidayType = string(res.Holiday.Type)
	}
	return info
}

func (s *Service) record(provider, operation string, d time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.RecordRequest(provider, operation, d, err)
	}
}

// departure is the travel moment on day at hhmm (default 08:00) in Turkish time.
func departure(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		t, _ = time.Parse("15:04", adjustment.DefaultTravelTime)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, turkeyTime)
}

// attachMapURLs fills in each candidate's map link.
func attachMapURLs(ctx context.Context, candidates []routing.Candidate) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range candidates {
		g.Go(func() error {
			candidates[i].MapURL = MapURL(candidates[i].Stops)
			return nil
		})
	}
	return g.Wait()
}

func constraints(intent *prompt.TravelIntent) []string {
	directives := intent.Directives()
	out := make([]string, 0, len(directives))
	for _, d := range directives {
		out = append(out, d.Constraint())
	}
	return out
}

// summarize aggregates the plan. The traffic average comes from the city
// forecasts when there are any, otherwise from the candidates.
func summarize(plan *Plan, tags []string) Summary {
	sum := Summary{
		TotalCities:          len(plan.Intent.Stops()),
		AvgTrafficMultiplier: 1.0,
		AvgDurationImpact:    1.0,
		WeatherTags:          tags,
	}
	if info := plan.HolidayInfo; info != nil {
		sum.IsHolidayPeriod = info.IsHoliday
		sum.HolidayName = info.HolidayName
	}

	if len(plan.Forecasts) > 0 {
		var traffic float64
		for _, f := range plan.Forecasts {
			traffic += f.TrafficMultiplier
		}
		sum.AvgTrafficMultiplier = round2(traffic / float64(len(plan.Forecasts)))
	}

	candidates := plan.Candidates
	if len(candidates) == 0 {
		return sum
	}

	var traffic, impact float64
	impactCount := 0
	for _, c := range candidates {
		traffic += c.TrafficMultiplier()
		if c.BaseDurationMin > 0 {
			impact += c.AdjustedDurationMin / c.BaseDurationMin
			impactCount++
		}
	}
	if len(plan.Forecasts) == 0 {
		sum.AvgTrafficMultiplier = round2(traffic / float64(len(candidates)))
	}
	if impactCount > 0 {
		sum.AvgDurationImpact = round2(impact / float64(impactCount))
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

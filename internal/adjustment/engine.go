package adjustment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/holiday"
)

// Config holds configuration for the engine.
type Config struct {
	// Calendar resolves holiday multipliers (default: holiday.Default()).
	Calendar *holiday.Calendar

	// Predictor is the optional ML traffic service.
	Predictor Predictor

	// PredictorTimeout bounds a single prediction call (default: 3 seconds).
	PredictorTimeout time.Duration

	// Bands is the weather severity table (default: DefaultBands()).
	Bands []Band

	// RecognizedModels lists trusted model ids (default: DefaultRecognizedModels).
	RecognizedModels []string

	// Logger for engine operations.
	Logger zerolog.Logger
}

// Engine computes duration adjustments. It is safe for concurrent use.
type Engine struct {
	calendar         *holiday.Calendar
	predictor        Predictor
	predictorTimeout time.Duration
	bands            []Band
	recognized       map[string]bool
	logger           zerolog.Logger
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	calendar := cfg.Calendar
	if calendar == nil {
		calendar = holiday.Default()
	}

	timeout := cfg.PredictorTimeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	bands := cfg.Bands
	if len(bands) == 0 {
		bands = DefaultBands()
	}

	models := cfg.RecognizedModels
	if len(models) == 0 {
		models = DefaultRecognizedModels
	}
	recognized := make(map[string]bool, len(models))
	for _, m := range models {
		recognized[m] = true
	}

	return &Engine{
		calendar:         calendar,
		predictor:        cfg.Predictor,
		predictorTimeout: timeout,
		bands:            bands,
		recognized:       recognized,
		logger:           cfg.Logger,
	}
}

// Calendar returns the holiday calendar used by the engine.
func (e *Engine) Calendar() *holiday.Calendar {
	return e.calendar
}

// Adjust never fails: predictor errors fall back to the rule-based path.
func (e *Engine) Adjust(ctx context.Context, in Input) Result {
	base := math.Max(in.BaseDurationMin, 0)

	var res *holiday.Resolution
	date, dateOK := holiday.ParseDate(in.Date)
	if dateOK {
		r := e.calendar.Resolve(date)
		res = &r
	}

	if dateOK && e.predictor != nil {
		if result, ok := e.predict(ctx, in, base, date, res); ok {
			return result
		}
	}

	return e.ruleBased(in, base, res)
}

func (e *Engine) ruleBased(in Input, base float64, res *holiday.Resolution) Result {
	basis := RuleBased{WeatherMultiplier: 1.0, HolidayMultiplier: 1.0}
	explanations := []string{}

	if band, ok := WorstWeather(in.WeatherTags, e.bands); ok {
		basis.WeatherTag = band.Tag
		basis.WeatherMultiplier = band.Multiplier
		explanations = append(explanations, band.Explanation())
	}

	if res != nil {
		basis.HolidayMultiplier = res.Multiplier
		if res.Holiday != nil {
			basis.HolidayName = res.Holiday.Name
		}
		if res.Multiplier != 1.0 {
			explanations = append(explanations, holidayExplanation(res))
		}
	}

	return Result{
		AdjustedDurationMin: round1(math.Max(base*basis.WeatherMultiplier*basis.HolidayMultiplier, 0)),
		Explanations:        explanations,
		Basis:               basis,
		Holiday:             res,
	}
}

func holidayExplanation(res *holiday.Resolution) string {
	name := "Weekend"
	if res.Holiday != nil {
		name = res.Holiday.Name
	}
	return fmt.Sprintf("%s: traffic density x%.2f", name, res.Multiplier)
}

func (e *Engine) predict(ctx context.Context, in Input, base float64, date time.Time, res *holiday.Resolution) (Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.predictorTimeout)
	defer cancel()

	req := PredictionRequest{
		DistanceKm:      in.DistanceKm,
		BaseDurationMin: base,
		RoadQuality:     orDefault(in.Route.RoadQuality, DefaultRoadQuality),
		HighwayRatio:    orDefault(in.Route.HighwayRatio, DefaultHighwayRatio),
		WeatherTags:     in.WeatherTags,
		DepartureAt:     departure(date, in.Time),
		IsHoliday:       res.IsHoliday(),
		IsWeekend:       res.Weekend,
	}

	p, err := e.predictor.Predict(ctx, req)
	if err != nil {
		e.logger.Debug().Err(err).Msg("prediction unavailable, using rule-based adjustment")
		return Result{}, false
	}
	if p == nil || !e.recognized[p.ModelID] {
		e.logger.Debug().Msg("prediction from unrecognized model ignored")
		return Result{}, false
	}

	var adjusted float64
	var explanation string
	switch {
	case p.OptimizedDurationMin > 0:
		adjusted = p.OptimizedDurationMin
		explanation = fmt.Sprintf("AI prediction (%s): optimized duration %.1f min (score %.2f, confidence %.2f)",
			p.ModelID, p.OptimizedDurationMin, p.Score, p.Confidence)
	case p.TrafficMultiplier > 0:
		adjusted = base * p.TrafficMultiplier
		explanation = fmt.Sprintf("AI prediction (%s): traffic density x%.2f (confidence %.2f)",
			p.ModelID, p.TrafficMultiplier, p.Confidence)
	default:
		e.logger.Debug().Str("model", p.ModelID).Msg("prediction carries no usable value")
		return Result{}, false
	}

	multiplier := p.TrafficMultiplier
	if multiplier <= 0 && base > 0 {
		multiplier = adjusted / base
	}

	return Result{
		AdjustedDurationMin: round1(math.Max(adjusted, 0)),
		Explanations:        []string{explanation},
		Basis: AIAssisted{
			ModelID:              p.ModelID,
			Multiplier:           multiplier,
			OptimizedDurationMin: p.OptimizedDurationMin,
			Confidence:           p.Confidence,
			Score:                p.Score,
		},
		Holiday: res,
	}, true
}

// departure combines the travel date with HH:MM, defaulting to 08:00.
func departure(date time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		t, _ = time.Parse("15:04", DefaultTravelTime)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package routing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/adjustment"
	"github.com/smartroute/smartroute/internal/textnorm"
	"github.com/smartroute/smartroute/pkg/polyline"
)

// Label marks a candidate as best in some respect.
type Label string

const (
	LabelFastest  Label = "fastest"
	LabelCheapest Label = "cheapest"
	LabelFree     Label = "free"
)

// DisplayName returns the title fragment for l.
func (l Label) DisplayName() string {
	switch l {
	case LabelFastest:
		return "Fastest"
	case LabelCheapest:
		return "Cheapest"
	case LabelFree:
		return "Toll-free"
	default:
		return string(l)
	}
}

// Candidate is a ranked, duration-adjusted route alternative.
type Candidate struct {
	Stops               []string  `json:"stops"`
	Polyline            string    `json:"polyline"`
	DistanceKm          float64   `json:"distanceKm"`
	BaseDurationMin     float64   `json:"baseDurationMin"`
	AdjustedDurationMin float64   `json:"adjustedDurationMin"`
	TollCount           int       `json:"tollCount"`
	TollClass           TollClass `json:"tollClass"`
	Labels              []Label   `json:"labels"`
	Title               string    `json:"title"`
	Explanations        []string  `json:"explanations"`

	IsHoliday         bool    `json:"isHoliday"`
	HolidayName       string  `json:"holidayName,omitempty"`
	HolidayMultiplier float64 `json:"holidayMultiplier"`

	AIUsed       bool    `json:"aiUsed"`
	AIScore      float64 `json:"aiScore,omitempty"`
	AIConfidence float64 `json:"aiConfidence,omitempty"`
	AIModel      string  `json:"aiModel,omitempty"`

	MapURL   string       `json:"mapUrl,omitempty"`
	Summary  string       `json:"summary,omitempty"`
	Warnings []string     `json:"warnings"`
	Steps    []StepDetail `json:"steps"`

	// Adjustment is the basis the adjusted duration was computed from.
	Adjustment adjustment.Adjustment `json:"-"`
}

// StepDetail is one turn-by-turn instruction in plain text.
type StepDetail struct {
	Instruction string  `json:"instruction"`
	DistanceKm  float64 `json:"distanceKm"`
	Maneuver    string  `json:"maneuver,omitempty"`
	RoadName    string  `json:"roadName,omitempty"`
}

// TrafficMultiplier is the AI multiplier when AI was used, else the calendar multiplier.
func (c Candidate) TrafficMultiplier() float64 {
	if c.AIUsed && c.Adjustment != nil {
		return c.Adjustment.TrafficMultiplier()
	}
	return c.HolidayMultiplier
}

// AggregatorConfig holds configuration for the aggregator.
type AggregatorConfig struct {
	// Engine adjusts each candidate's duration (default: adjustment.NewEngine with defaults).
	Engine *adjustment.Engine

	// Logger for aggregator operations.
	Logger zerolog.Logger
}

// Aggregator turns provider routes into labelled candidates.
type Aggregator struct {
	engine *adjustment.Engine
	logger zerolog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	engine := cfg.Engine
	if engine == nil {
		engine = adjustment.NewEngine(adjustment.Config{Logger: cfg.Logger})
	}
	return &Aggregator{engine: engine, logger: cfg.Logger}
}

// Aggregate normalizes, labels and adjusts routes. The result preserves the
// provider's route order.
func (a *Aggregator) Aggregate(ctx context.Context, routes []Route, travelDate, travelTime string, weatherTags []string) []Candidate {
	candidates := make([]Candidate, 0, len(routes))
	for i, r := range routes {
		c := a.normalize(r)
		candidates = append(candidates, c)
		a.logger.Debug().
			Int("index", i).
			Float64("distance_km", c.DistanceKm).
			Float64("base_duration_min", c.BaseDurationMin).
			Int("tolls", c.TollCount).
			Msg("normalized route")
	}

	label(candidates)

	for i := range candidates {
		c := &candidates[i]
		if c.Title == "" {
			c.Title = fmt.Sprintf("Alternative %d", i+1)
		}

		res := a.engine.Adjust(ctx, adjustment.Input{
			BaseDurationMin: c.BaseDurationMin,
			DistanceKm:      c.DistanceKm,
			WeatherTags:     weatherTags,
			Date:            travelDate,
			Time:            travelTime,
			Route: adjustment.RouteContext{
				HighwayRatio: HighwayRatio(routes[i]),
				TollCount:    c.TollCount,
			},
		})

		c.AdjustedDurationMin = res.AdjustedDurationMin
		c.Explanations = res.Explanations
		c.Adjustment = res.Basis
		c.HolidayMultiplier = 1.0
		if res.Holiday != nil {
			c.HolidayMultiplier = res.Holiday.Multiplier
			if res.Holiday.Holiday != nil {
				c.IsHoliday = true
				c.HolidayName = res.Holiday.Holiday.Name
			}
		}
		if ai, ok := res.Basis.(adjustment.AIAssisted); ok {
			c.AIUsed = true
			c.AIModel = ai.ModelID
			c.AIScore = ai.Score
			c.AIConfidence = ai.Confidence
		}
	}

	return candidates
}

func (a *Aggregator) normalize(r Route) Candidate {
	c := Candidate{
		Stops:    []string{},
		Summary:  r.Summary,
		Warnings: r.Warnings,
		Polyline: r.OverviewPolyline,
		Steps:    []StepDetail{},
	}
	if c.Warnings == nil {
		c.Warnings = []string{}
	}

	var meters, seconds int
	for _, leg := range r.Legs {
		meters += leg.DistanceMeters
		if leg.DurationInTrafficSeconds > 0 {
			seconds += leg.DurationInTrafficSeconds
		} else {
			seconds += leg.DurationSeconds
		}
		c.Stops = appendStop(c.Stops, leg.StartAddress)
		c.Stops = appendStop(c.Stops, leg.EndAddress)
		c.Steps = append(c.Steps, stepDetails(leg)...)
	}

	if c.Polyline == "" {
		c.Polyline = a.stepPolyline(r)
	}

	distanceKm := float64(meters) / 1000
	if meters == 0 && c.Polyline != "" {
		if pts, err := polyline.Decode(c.Polyline); err == nil {
			distanceKm = polyline.Length(pts) / 1000
		}
	}

	c.DistanceKm = round(distanceKm, 2)
	c.BaseDurationMin = round(float64(seconds)/60, 1)
	c.TollCount = CountTolls(r)
	c.TollClass = ClassifyTolls(c.TollCount)
	return c
}

// stepDetails renders the steps of leg. A leg without steps is summarized
// as a single "start → end" step.
func stepDetails(leg Leg) []StepDetail {
	if len(leg.Steps) == 0 {
		return []StepDetail{{
			Instruction: leg.StartAddress + " → " + leg.EndAddress,
			DistanceKm:  round(float64(leg.DistanceMeters)/1000, 2),
		}}
	}
	out := make([]StepDetail, 0, len(leg.Steps))
	for _, s := range leg.Steps {
		out = append(out, StepDetail{
			Instruction: textnorm.StripHTML(s.Instruction),
			DistanceKm:  round(float64(s.DistanceMeters)/1000, 2),
			Maneuver:    s.Maneuver,
			RoadName:    s.RoadName,
		})
	}
	return out
}

// stepPolyline rebuilds an overview polyline from the step polylines.
func (a *Aggregator) stepPolyline(r Route) string {
	var parts []string
	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			if step.Polyline != "" {
				parts = append(parts, step.Polyline)
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	encoded, err := polyline.Concat(parts...)
	if err != nil {
		a.logger.Debug().Err(err).Msg("could not rebuild polyline from steps")
		return ""
	}
	return encoded
}

func appendStop(stops []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return stops
	}
	if n := len(stops); n > 0 && stops[n-1] == s {
		return stops
	}
	return append(stops, s)
}

// label assigns fastest, cheapest and free labels and sets the title of
// labelled candidates. Ties go to the lowest index.
func label(candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}

	fastest, cheapest := 0, 0
	for i, c := range candidates {
		if c.BaseDurationMin < candidates[fastest].BaseDurationMin {
			fastest = i
		}
		if c.TollCount < candidates[cheapest].TollCount {
			cheapest = i
		}
	}

	for i := range candidates {
		c := &candidates[i]
		c.Labels = []Label{}
		if i == fastest {
			c.Labels = append(c.Labels, LabelFastest)
		}
		if i == cheapest {
			c.Labels = append(c.Labels, LabelCheapest)
		}
		if c.TollCount == 0 {
			c.Labels = append(c.Labels, LabelFree)
		}

		names := make([]string, len(c.Labels))
		for j, l := range c.Labels {
			names[j] = l.DisplayName()
		}
		c.Title = strings.Join(names, " · ")
		if c.Title == "" {
			c.Title = c.Summary
		}
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Package holiday provides the holiday calendar used to estimate
// calendar-driven traffic density.
package holiday

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical travel-date format.
const DateLayout = "2006-01-02"

// DefaultWeekendMultiplier applies on Saturdays and Sundays without a named holiday.
const DefaultWeekendMultiplier = 1.05

// Type classifies a holiday.
type Type string

const (
	TypeOfficial  Type = "official"
	TypeReligious Type = "religious"
	TypeCustom    Type = "custom"
)

// Holiday is a named day with an expected traffic multiplier.
type Holiday struct {
	Name              string    `json:"name"`
	Date              time.Time `json:"date"`
	Type              Type      `json:"type"`
	TrafficMultiplier float64   `json:"trafficMultiplier"`
}

// Rule is a holiday recurring on the same month and day every year.
type Rule struct {
	Month      time.Month
	Day        int
	Name       string
	Type       Type
	Multiplier float64
}

// Config holds the tables a Calendar is built from.
type Config struct {
	// Dated holds holidays pinned to a specific date. Later entries for the
	// same date override earlier ones.
	Dated []Holiday

	// Recurring holds fixed-date rules. Later rules for the same month/day
	// override earlier ones.
	Recurring []Rule

	// WeekendMultiplier applies to Saturdays and Sundays (default: 1.05).
	WeekendMultiplier float64
}

// DefaultConfig returns the built-in Turkish holiday tables.
func DefaultConfig() Config {
	return Config{
		Dated:             DefaultDated(),
		Recurring:         DefaultRules(),
		WeekendMultiplier: DefaultWeekendMultiplier,
	}
}

// Merge appends overlay's entries to base so that overlay wins on conflicts.
func Merge(base, overlay Config) Config {
	merged := Config{
		Dated:             append(append([]Holiday(nil), base.Dated...), overlay.Dated...),
		Recurring:         append(append([]Rule(nil), base.Recurring...), overlay.Recurring...),
		WeekendMultiplier: base.WeekendMultiplier,
	}
	if overlay.WeekendMultiplier > 0 {
		merged.WeekendMultiplier = overlay.WeekendMultiplier
	}
	return merged
}

type monthDay struct {
	month time.Month
	day   int
}

// Calendar answers holiday questions for a date. It is immutable after
// NewCalendar and safe for concurrent use.
type Calendar struct {
	dated     map[string]Holiday
	recurring map[monthDay]Rule
	weekend   float64
}

// NewCalendar builds a calendar from cfg.
func NewCalendar(cfg Config) *Calendar {
	weekend := cfg.WeekendMultiplier
	if weekend == 0 {
		weekend = DefaultWeekendMultiplier
	}

	c := &Calendar{
		dated:     make(map[string]Holiday, len(cfg.Dated)),
		recurring: make(map[monthDay]Rule, len(cfg.Recurring)),
		weekend:   weekend,
	}
	for _, h := range cfg.Dated {
		h.Date = truncate(h.Date)
		c.dated[h.Date.Format(DateLayout)] = h
	}
	for _, r := range cfg.Recurring {
		c.recurring[monthDay{r.Month, r.Day}] = r
	}
	return c
}

// Default returns a calendar over the built-in tables.
func Default() *Calendar {
	return NewCalendar(DefaultConfig())
}

// Resolution is the outcome of resolving a date against the calendar.
type Resolution struct {
	Date       time.Time
	Holiday    *Holiday
	Weekend    bool
	Multiplier float64
}

// IsHoliday reports whether a named holiday falls on the date.
func (r Resolution) IsHoliday() bool { return r.Holiday != nil }

// Resolve applies, in order: the dated table, the recurring rules, the weekend
// rule, and finally the neutral multiplier 1.0.
func (c *Calendar) Resolve(date time.Time) Resolution {
	date = truncate(date)
	res := Resolution{
		Date:       date,
		Weekend:    isWeekend(date),
		Multiplier: 1.0,
	}

	if h, ok := c.lookup(date); ok {
		res.Holiday = &h
		res.Multiplier = h.TrafficMultiplier
		return res
	}
	if res.Weekend {
		res.Multiplier = c.weekend
	}
	return res
}

// Lookup returns the named holiday on date, if any. Weekends are not named holidays.
func (c *Calendar) Lookup(date time.Time) (Holiday, bool) {
	return c.lookup(truncate(date))
}

func (c *Calendar) lookup(date time.Time) (Holiday, bool) {
	if h, ok := c.dated[date.Format(DateLayout)]; ok {
		return h, true
	}
	if r, ok := c.recurring[monthDay{date.Month(), date.Day()}]; ok {
		return Holiday{
			Name:              r.Name,
			Date:              date,
			Type:              r.Type,
			TrafficMultiplier: r.Multiplier,
		}, true
	}
	return Holiday{}, false
}

// TrafficMultiplier returns the expected traffic density factor for date.
func (c *Calendar) TrafficMultiplier(date time.Time) float64 {
	return c.Resolve(date).Multiplier
}

// ImpactText describes the expected traffic impact of a named holiday on date.
func (c *Calendar) ImpactText(date time.Time) string {
	h, ok := c.Lookup(date)
	if !ok {
		return "not a holiday"
	}
	return Impact(h)
}

// Impact renders "<name> - <severity band>" for h.
func Impact(h Holiday) string {
	var band string
	switch {
	case h.TrafficMultiplier >= 1.05:
		band = "slight increase expected"
	case h.TrafficMultiplier >= 1.02:
		band = "minimal increase expected"
	default:
		band = "no significant increase expected"
	}
	return fmt.Sprintf("%s - %s", h.Name, band)
}

// ParseDate parses a yyyy-MM-dd travel date. An empty or invalid string
// reports false; callers skip date-gated features in that case.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

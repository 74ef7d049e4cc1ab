// Package weather resolves forecast conditions into the canonical weather
// tags used by duration adjustment.
package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrNoForecastForTime   = errors.New("no forecast covers the requested time")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Canonical weather tags. They match the tags extracted from prompts.
const (
	TagRainy  = "rainy"
	TagSnowy  = "snowy"
	TagSunny  = "sunny"
	TagFoggy  = "foggy"
	TagWindy  = "windy"
	TagStormy = "stormy"
)

// StrongWindSpeed is the wind speed in m/s (Beaufort 6) at and above which
// an entry is also tagged windy.
const StrongWindSpeed = 10.8

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Tag returns the canonical tag for c, or "" when the condition has no
// effect on driving (clouds, unknown).
func (c Condition) Tag() string {
	switch c {
	case ConditionClear:
		return TagSunny
	case ConditionRain, ConditionDrizzle:
		return TagRainy
	case ConditionThunderstorm:
		return TagStormy
	case ConditionSnow:
		return TagSnowy
	case ConditionMist, ConditionFog, ConditionHaze:
		return TagFoggy
	default:
		return ""
	}
}

// Forecast is a series of forecast entries for one location.
type Forecast struct {
	// Location
	Lat float64
	Lon float64

	// Entries in ascending time order.
	Entries []Entry

	// When the forecast was fetched
	FetchedAt time.Time
}

// Entry is the forecast for one time step.
type Entry struct {
	Time        time.Time
	Temperature float64
	Humidity    float64
	WindSpeed   float64 // m/s
	WindGust    float64 // m/s (0 if not available)
	Condition   Condition
	Description string
	PrecipProb  float64 // Probability of precipitation (0-1)
}

// Tags returns the canonical tags of the entry: the condition tag, then
// windy for strong wind.
func (e Entry) Tags() []string {
	tags := []string{}
	if tag := e.Condition.Tag(); tag != "" {
		tags = append(tags, tag)
	}
	if e.WindSpeed >= StrongWindSpeed && e.Condition != ConditionThunderstorm {
		tags = append(tags, TagWindy)
	}
	return tags
}

// Nearest returns the entry closest to t. Ties go to the earlier entry.
func (f *Forecast) Nearest(t time.Time) (Entry, bool) {
	if f == nil || len(f.Entries) == 0 {
		return Entry{}, false
	}

	best := 0
	bestGap := absDuration(f.Entries[0].Time.Sub(t))
	for i := 1; i < len(f.Entries); i++ {
		if gap := absDuration(f.Entries[i].Time.Sub(t)); gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return f.Entries[best], true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

package routing

import (
	"slices"
	"strconv"
	"time"

	"github.com/smartroute/smartroute/internal/adjustment"
	"github.com/smartroute/smartroute/internal/holiday"
	"github.com/smartroute/smartroute/internal/prompt"
)

// Turkey has observed UTC+3 all year since 2016.
var turkeyTime = time.FixedZone("TRT", 3*60*60)

// ShapeOptions controls ShapeRequest.
type ShapeOptions struct {
	// Avoid is the base avoid list (default: ferries).
	Avoid []string

	// Now is the reference time for the departure decision (default: time.Now()).
	Now time.Time

	// Location interprets the travel date and time (default: UTC+3).
	Location *time.Location
}

// ShapeRequest builds the directions request for an ordered stop list.
// Rain or snow adds highways to the avoid list, and a departure in the future
// is sent as a Unix timestamp.
func ShapeRequest(stops, weatherTags []string, date, clock string, opts ShapeOptions) DirectionsRequest {
	avoid := slices.Clone(opts.Avoid)
	if avoid == nil {
		avoid = []string{AvoidFerries}
	}
	if (slices.Contains(weatherTags, prompt.TagRainy) || slices.Contains(weatherTags, prompt.TagSnowy)) &&
		!slices.Contains(avoid, AvoidHighways) {
		avoid = append(avoid, AvoidHighways)
	}

	req := DirectionsRequest{
		Alternatives:  true,
		Avoid:         avoid,
		DepartureTime: departureTime(date, clock, opts),
		TrafficModel:  TrafficModelBestGuess,
	}
	if len(stops) > 0 {
		req.Origin = stops[0]
	}
	if len(stops) > 1 {
		req.Destination = stops[len(stops)-1]
		req.Waypoints = slices.Clone(stops[1 : len(stops)-1])
	}
	return req
}

func departureTime(date, clock string, opts ShapeOptions) string {
	day, ok := holiday.ParseDate(date)
	if !ok {
		return DepartureNow
	}

	loc := opts.Location
	if loc == nil {
		loc = turkeyTime
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	t, err := time.Parse("15:04", clock)
	if err != nil {
		t, _ = time.Parse("15:04", adjustment.DefaultTravelTime)
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	if !at.After(now) {
		return DepartureNow
	}
	return strconv.FormatInt(at.Unix(), 10)
}

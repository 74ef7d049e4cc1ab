// Package routing fetches driving directions and turns them into ranked,
// duration-adjusted route candidates.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/smartroute/smartroute/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidRequest indicates a request without an origin or destination.
	ErrInvalidRequest = errors.New("invalid directions request")
)

// Provider defines the interface for directions providers.
type Provider interface {
	// GetDirections retrieves driving directions, including alternatives
	// when the request asks for them.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// RoadSnapper moves raw coordinates onto the nearest road.
type RoadSnapper interface {
	SnapToRoads(ctx context.Context, path []polyline.Point) ([]polyline.Point, error)
}

// Avoid values understood by directions providers.
const (
	AvoidFerries  = "ferries"
	AvoidHighways = "highways"
	AvoidTolls    = "tolls"
)

// DepartureNow asks the provider to plan for the current time.
const DepartureNow = "now"

// TrafficModelBestGuess is the default traffic model.
const TrafficModelBestGuess = "best_guess"

// DirectionsRequest is the request for computing routes. Endpoints are place
// names or "lat,lng" strings.
type DirectionsRequest struct {
	Origin       string
	Destination  string
	Waypoints    []string
	Alternatives bool
	Avoid        []string
	// DepartureTime is DepartureNow or a Unix timestamp in seconds.
	DepartureTime string
	TrafficModel  string
}

// DirectionsResponse is the response containing route alternatives.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is a single route alternative as returned by the provider.
type Route struct {
	Summary          string
	OverviewPolyline string // Encoded polyline (precision 5), may be empty
	Legs             []Leg
	Warnings         []string
}

// Leg is the part of a route between two consecutive stops.
type Leg struct {
	StartAddress             string
	EndAddress               string
	DistanceMeters           int
	DurationSeconds          int
	DurationInTrafficSeconds int // 0 when the provider has no traffic estimate
	Steps                    []Step
}

// Step is a single maneuver of a leg.
type Step struct {
	Instruction     string // HTML as sent by the provider
	Polyline        string
	DistanceMeters  int
	DurationSeconds int
	Maneuver        string // e.g. "turn-left", empty when the provider sends none
	RoadName        string
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

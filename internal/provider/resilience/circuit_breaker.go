// Package resilience wraps outbound provider calls with a circuit breaker,
// bounded retries and a health registry that the ops endpoints report from.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Trip thresholds used when a CircuitBreakerConfig leaves them unset.
const (
	DefaultMinRequests  = 5
	DefaultFailureRatio = 0.5
	DefaultOpenTimeout  = 60 * time.Second
)

// CircuitBreakerConfig configures the breaker in front of one provider.
type CircuitBreakerConfig struct {
	Name string

	// HalfOpenRequests is how many probes may pass while half-open (default: 1).
	HalfOpenRequests uint32

	// Interval clears the closed-state counts periodically; zero never clears.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// ReadyToTrip overrides the ratio-based trip rule.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// Logger receives state transitions.
	Logger zerolog.Logger
}

// DefaultCircuitBreakerConfig trips after half of at least five calls failed.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		HalfOpenRequests: 1,
		OpenTimeout:      DefaultOpenTimeout,
		ReadyToTrip:      TripOnFailureRatio(DefaultMinRequests, DefaultFailureRatio),
	}
}

// TripOnFailureRatio returns a trip rule that opens the breaker once at
// least minRequests calls were made and the failed share reaches ratio.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if c.Requests == 0 || c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= ratio
	}
}

// countsAsSuccess keeps caller cancellations from being charged to the
// provider.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// NewCircuitBreaker builds a gobreaker breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	trip := cfg.ReadyToTrip
	if trip == nil {
		trip = TripOnFailureRatio(DefaultMinRequests, DefaultFailureRatio)
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = DefaultOpenTimeout
	}
	halfOpen := cfg.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}

	logger := cfg.Logger
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  halfOpen,
		Interval:     cfg.Interval,
		Timeout:      openTimeout,
		ReadyToTrip:  trip,
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			ev := logger.Info()
			if to == gobreaker.StateOpen {
				ev = logger.Warn()
			}
			ev.Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

package routing

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/cache"
	"github.com/smartroute/smartroute/internal/textnorm"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a response is reused (default: 5m).
	CacheTTL time.Duration

	// StaleIfErrorTTL is how long after its fetch a response may stand in
	// for a failed provider call (default: 15m).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is the minimum time between cache sweeps.
	CleanupInterval time.Duration

	// Metrics is optional.
	Metrics CacheRecorder
}

// CacheRecorder counts cache lookups per provider and operation.
type CacheRecorder interface {
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// Service fronts a Provider with a response cache keyed by Fingerprint.
// It implements Provider itself.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  CacheRecorder
	cache    *cache.Store[*DirectionsResponse]
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cache: cache.New[*DirectionsResponse](cache.Config{
			TTL:             cmp.Or(cfg.CacheTTL, 5*time.Minute),
			StaleTTL:        cmp.Or(cfg.StaleIfErrorTTL, 15*time.Minute),
			CleanupInterval: cfg.CleanupInterval,
		}),
	}
}

// GetDirections validates req and returns a cached or freshly fetched
// response. A failed fetch falls back to a response within the stale
// window.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := Fingerprint(req)
	resp, outcome, err := s.cache.Get(ctx, key, func(ctx context.Context) (*DirectionsResponse, error) {
		s.logger.Debug().
			Str("origin", req.Origin).
			Str("destination", req.Destination).
			Int("waypoints", len(req.Waypoints)).
			Strs("avoid", req.Avoid).
			Msg("requesting directions")
		resp, err := s.provider.GetDirections(ctx, req)
		if err != nil {
			s.logger.Error().Err(err).
				Str("origin", req.Origin).
				Str("destination", req.Destination).
				Msg("directions request failed")
			return nil, err
		}
		return resp, nil
	})
	s.record(outcome)
	if err != nil {
		return nil, err
	}
	if outcome == cache.Stale {
		s.logger.Warn().Str("cache_key", key).Msg("serving stale directions after provider error")
	}
	return resp, nil
}

func (s *Service) validate(req DirectionsRequest) error {
	for _, f := range []struct{ value, code, msg string }{
		{req.Origin, "INVALID_ORIGIN", "missing origin"},
		{req.Destination, "INVALID_DESTINATION", "missing destination"},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &Error{Provider: s.provider.Name(), Code: f.code, Message: f.msg, Err: ErrInvalidRequest}
		}
	}
	return nil
}

// Fingerprint returns the cache key of a request. Endpoint names are
// compared case-insensitively and the avoid list is order-insensitive.
// Format: {origin}|{waypoints}|{destination}|{avoid}|{departure}|{model}|{alternatives}.
func Fingerprint(req DirectionsRequest) string {
	avoid := append([]string(nil), req.Avoid...)
	for i := range avoid {
		avoid[i] = strings.ToLower(avoid[i])
	}
	slices.Sort(avoid)

	waypoints := make([]string, len(req.Waypoints))
	for i, w := range req.Waypoints {
		waypoints[i] = normalizeEndpoint(w)
	}

	alternatives := "single"
	if req.Alternatives {
		alternatives = "alternatives"
	}

	return strings.Join([]string{
		normalizeEndpoint(req.Origin),
		strings.Join(waypoints, ";"),
		normalizeEndpoint(req.Destination),
		strings.Join(avoid, ","),
		req.DepartureTime,
		req.TrafficModel,
		alternatives,
	}, "|")
}

func normalizeEndpoint(s string) string {
	return textnorm.Lower(strings.TrimSpace(s))
}

func (s *Service) record(o cache.Outcome) {
	if s.metrics == nil {
		return
	}
	if o == cache.Hit {
		s.metrics.RecordCacheHit(s.provider.Name(), "directions")
		return
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "directions")
}

// InvalidateCache drops every cached response.
func (s *Service) InvalidateCache() {
	s.cache.Purge()
}

// CacheStats describes the response cache.
type CacheStats struct {
	cache.Stats
	Provider string
}

// CacheStats returns entry counts for the response cache.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{Stats: s.cache.Stats(), Provider: s.provider.Name()}
}

// Name returns the wrapped provider's name.
func (s *Service) Name() string {
	return s.provider.Name()
}

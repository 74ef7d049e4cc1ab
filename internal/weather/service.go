package weather

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/cache"
)

// Provider defines the interface for weather forecast providers.
type Provider interface {
	// GetForecast fetches the forecast for a location.
	GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// CacheRecorder counts cache lookups per provider and operation.
type CacheRecorder interface {
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a forecast is reused (default: 10m).
	CacheTTL time.Duration

	// CacheGridSize is the cell size in degrees that points are snapped to
	// before lookup (default: 0.1, roughly 11 km).
	CacheGridSize float64

	// StaleIfErrorTTL is how long a forecast may stand in for a failed
	// provider call (default: 1h).
	StaleIfErrorTTL time.Duration

	// MaxForecastGap is the largest distance between the requested time and
	// the nearest entry that still counts as a match (default: 6h).
	MaxForecastGap time.Duration

	Metrics CacheRecorder
}

// Service caches forecasts per grid cell and resolves them to weather tags.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	grid     float64
	maxGap   time.Duration
	metrics  CacheRecorder
	cache    *cache.Store[*Forecast]
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		grid:     cmp.Or(cfg.CacheGridSize, 0.1),
		maxGap:   cmp.Or(cfg.MaxForecastGap, 6*time.Hour),
		metrics:  cfg.Metrics,
		cache: cache.New[*Forecast](cache.Config{
			TTL:      cmp.Or(cfg.CacheTTL, 10*time.Minute),
			StaleTTL: cmp.Or(cfg.StaleIfErrorTTL, time.Hour),
		}),
	}
}

// ResolveTags returns the canonical weather tags forecast for (lat, lon)
// nearest to at.
func (s *Service) ResolveTags(ctx context.Context, lat, lon float64, at time.Time) ([]string, error) {
	entry, err := s.ResolveEntry(ctx, lat, lon, at)
	if err != nil {
		return nil, err
	}
	return entry.Tags(), nil
}

// ResolveEntry returns the forecast entry for (lat, lon) nearest to at.
func (s *Service) ResolveEntry(ctx context.Context, lat, lon float64, at time.Time) (Entry, error) {
	forecast, err := s.GetForecast(ctx, lat, lon)
	if err != nil {
		return Entry{}, err
	}

	entry, ok := forecast.Nearest(at)
	if !ok {
		return Entry{}, ErrNoDataForLocation
	}
	if absDuration(entry.Time.Sub(at)) > s.maxGap {
		s.logger.Debug().
			Time("requested", at).
			Time("nearest", entry.Time).
			Msg("requested time is outside the forecast window")
		return Entry{}, ErrNoForecastForTime
	}
	return entry, nil
}

// GetForecast returns the forecast for the grid cell containing (lat, lon).
func (s *Service) GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	key := s.cell(lat, lon)
	forecast, outcome, err := s.cache.Get(ctx, key, func(ctx context.Context) (*Forecast, error) {
		s.logger.Debug().Float64("lat", lat).Float64("lon", lon).Msg("requesting forecast")
		f, err := s.provider.GetForecast(ctx, lat, lon)
		if err != nil {
			s.logger.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("forecast request failed")
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
		return f, nil
	})

	if s.metrics != nil {
		if outcome == cache.Hit {
			s.metrics.RecordCacheHit(s.provider.Name(), "forecast")
		} else {
			s.metrics.RecordCacheMiss(s.provider.Name(), "forecast")
		}
	}
	if err != nil {
		return nil, err
	}
	if outcome == cache.Stale {
		s.logger.Warn().Str("cell", key).Msg("serving stale forecast after provider error")
	}
	return forecast, nil
}

// cell snaps a point to the south-west corner of its grid cell.
func (s *Service) cell(lat, lon float64) string {
	snap := func(v float64) float64 { return math.Floor(v/s.grid) * s.grid }
	return fmt.Sprintf("%.2f:%.2f", snap(lat), snap(lon))
}

// InvalidateCache drops every cached forecast.
func (s *Service) InvalidateCache() {
	s.cache.Purge()
}

// CacheStats describes the forecast cache.
type CacheStats struct {
	cache.Stats
	Provider string
}

// CacheStats returns entry counts for the forecast cache.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{Stats: s.cache.Stats(), Provider: s.provider.Name()}
}

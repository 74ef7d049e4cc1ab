package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/smartroute/smartroute/internal/api/middleware"

// Duration buckets in seconds. Plans that wait on directions, forecasts and
// prediction routinely take several seconds.
var durationBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20}

// instruments creates instruments on one meter and collects their errors.
type instruments struct {
	meter metric.Meter
	err   error
}

func (b *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithUnit("s"), metric.WithDescription(desc),
		metric.WithExplicitBucketBoundaries(durationBuckets...))
	b.err = errors.Join(b.err, err)
	return h
}

func (b *instruments) bytes(name, desc string) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(name, metric.WithUnit("By"), metric.WithDescription(desc))
	b.err = errors.Join(b.err, err)
	return h
}

func (b *instruments) counter(name, unit, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithUnit(unit), metric.WithDescription(desc))
	b.err = errors.Join(b.err, err)
	return c
}

func (b *instruments) gauge(name, unit, desc string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithUnit(unit), metric.WithDescription(desc))
	b.err = errors.Join(b.err, err)
	return c
}

// Metrics records HTTP server requests.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on mp, or on the global
// meter provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := &instruments{meter: meterFrom(mp)}
	m := &Metrics{
		duration: b.seconds("http.server.request.duration", "Time to serve an HTTP request"),
		requests: b.counter("http.server.request.total", "{request}", "HTTP requests served"),
		active:   b.gauge("http.server.active_requests", "{request}", "HTTP requests in progress"),
		size:     b.bytes("http.server.response.body.size", "HTTP response body size"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
// Requests are grouped by route pattern, not by raw path.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			method := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.active.Add(r.Context(), 1, method)
			defer m.active.Add(r.Context(), -1, method)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			kv := make([]attribute.KeyValue, 0, 4)
			kv = append(kv,
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", rec.status),
			)
			if rec.status >= http.StatusInternalServerError {
				kv = append(kv, attribute.String("error.type", http.StatusText(rec.status)))
			}
			set := metric.WithAttributes(kv...)

			m.duration.Record(r.Context(), time.Since(start).Seconds(), set)
			m.requests.Add(r.Context(), 1, set)
			m.size.Record(r.Context(), rec.bytes, set)
		})
	}
}

// ProviderMetrics records outbound calls to directions, roads, forecast,
// entity recognition and prediction providers, and their cache lookups.
type ProviderMetrics struct {
	duration metric.Float64Histogram
	calls    metric.Int64Counter
	hits     metric.Int64Counter
	misses   metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments on mp, or on the
// global meter provider when mp is nil.
func NewProviderMetrics(mp metric.MeterProvider) (*ProviderMetrics, error) {
	b := &instruments{meter: meterFrom(mp)}
	m := &ProviderMetrics{
		duration: b.seconds("provider.request.duration", "Time spent in a provider call"),
		calls:    b.counter("provider.request.total", "{request}", "Provider calls made"),
		hits:     b.counter("provider.cache.hits", "{hit}", "Provider responses served from cache"),
		misses:   b.counter("provider.cache.misses", "{miss}", "Provider lookups that missed the cache"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordRequest records one provider call. It uses a background context
// because the request context is often already canceled by then.
func (m *ProviderMetrics) RecordRequest(provider, operation string, took time.Duration, err error) {
	kv := providerAttrs(provider, operation)
	if err != nil {
		kv = append(kv, attribute.String("error.type", errorType(err)))
	}
	set := metric.WithAttributes(kv...)
	m.duration.Record(context.Background(), took.Seconds(), set)
	m.calls.Add(context.Background(), 1, set)
}

// RecordCacheHit counts a lookup served from cache.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.hits.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// RecordCacheMiss counts a lookup that went to the provider.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.misses.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

func providerAttrs(provider, operation string) []attribute.KeyValue {
	return append(make([]attribute.KeyValue, 0, 3),
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation))
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func meterFrom(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	return mp.Meter(meterName)
}

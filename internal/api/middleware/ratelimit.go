package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/smartroute/smartroute/internal/api/models"
)

// RateLimitConfig is a request budget per window.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// RateLimits groups the budgets of the three endpoint classes.
type RateLimits struct {
	// Plan covers prompt planning, which fans out to paid directions calls.
	Plan RateLimitConfig

	// Expensive covers prompt analysis and coordinate estimates.
	Expensive RateLimitConfig

	// Standard covers in-memory lookups and status.
	Standard RateLimitConfig
}

// DefaultRateLimits returns 10, 30 and 100 requests per minute.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Plan:      RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute},
		Expensive: RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute},
		Standard:  RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute},
	}
}

// WithDefaults fills unset budgets from DefaultRateLimits.
func (l RateLimits) WithDefaults() RateLimits {
	d := DefaultRateLimits()
	for _, p := range []struct{ dst, def *RateLimitConfig }{
		{&l.Plan, &d.Plan},
		{&l.Expensive, &d.Expensive},
		{&l.Standard, &d.Standard},
	} {
		if p.dst.RequestLimit <= 0 {
			p.dst.RequestLimit = p.def.RequestLimit
		}
		if p.dst.WindowLength <= 0 {
			p.dst.WindowLength = p.def.WindowLength
		}
	}
	return l
}

// RateLimitByIP limits requests per client IP. The IP comes from chi's
// RealIP middleware when it runs earlier in the chain.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceeded(cfg.WindowLength)),
	)
}

// RateLimitByIPAndEndpoint limits requests per client IP and path, so each
// endpoint of a class has its own budget.
func RateLimitByIPAndEndpoint(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(limitExceeded(cfg.WindowLength)),
	)
}

// limitExceeded writes a 429 problem. httprate does not expose when the
// window resets, so Retry-After is the full window.
func limitExceeded(window time.Duration) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewProblem(models.ProblemTypeTooManyRequests, GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}
}

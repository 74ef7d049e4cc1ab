package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartroute/smartroute/internal/api/middleware"
)

func limitedRequest(handler http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.RemoteAddr = ip
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 3,
		WindowLength: 30 * time.Second,
	})(okHandler)

	for i := 0; i < 3; i++ {
		rec := limitedRequest(handler, http.MethodGet, "/v1/holidays/2026-10-29", "10.0.0.1:12345")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should be allowed", i+1)
	}

	rec := limitedRequest(handler, http.MethodGet, "/v1/holidays/2026-10-29", "10.0.0.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Contains(t, rec.Body.String(), "/v1/holidays/2026-10-29")
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestRateLimitByIP_SeparatesClients(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler)

	assert.Equal(t, http.StatusOK, limitedRequest(handler, http.MethodGet, "/v1/ops/status", "172.16.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(handler, http.MethodGet, "/v1/ops/status", "172.16.0.1:1").Code)
	assert.Equal(t, http.StatusOK, limitedRequest(handler, http.MethodGet, "/v1/ops/status", "172.16.0.2:1").Code)
}

func TestRateLimitByIPAndEndpoint_SeparatesPaths(t *testing.T) {
	handler := middleware.RateLimitByIPAndEndpoint(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler)

	const ip = "192.168.5.5:4000"
	assert.Equal(t, http.StatusOK, limitedRequest(handler, http.MethodPost, "/v1/prompts:analyze", ip).Code)
	assert.Equal(t, http.StatusOK, limitedRequest(handler, http.MethodPost, "/v1/routes:estimate", ip).Code)
	assert.Equal(t, http.StatusTooManyRequests, limitedRequest(handler, http.MethodPost, "/v1/prompts:analyze", ip).Code)
}

func TestRateLimits_WithDefaults(t *testing.T) {
	limits := middleware.RateLimits{
		Plan: middleware.RateLimitConfig{RequestLimit: 4},
	}.WithDefaults()

	assert.Equal(t, middleware.RateLimitConfig{RequestLimit: 4, WindowLength: time.Minute}, limits.Plan)
	assert.Equal(t, middleware.DefaultRateLimits().Expensive, limits.Expensive)
	assert.Equal(t, middleware.DefaultRateLimits().Standard, limits.Standard)
}

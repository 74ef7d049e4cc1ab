// Package api provides the HTTP API for SmartRoute.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/api/handler"
	"github.com/smartroute/smartroute/internal/api/middleware"
	"github.com/smartroute/smartroute/internal/api/models"
	"github.com/smartroute/smartroute/internal/api/response"
	"github.com/smartroute/smartroute/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	// RateLimits sets per-class budgets (default: middleware.DefaultRateLimits).
	RateLimits middleware.RateLimits

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// Planner serves the prompt, route and holiday endpoints (required).
	Planner handler.Planner

	// Registry, Prediction and Database feed the ops endpoints (optional).
	Registry   *resilience.Registry
	Prediction handler.PredictionReporter
	Database   handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing)   // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, no-store)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a proxy
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Problem(w, r, models.ProblemTypeNotFound, "no such endpoint")
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Registry:   cfg.Registry,
		Prediction: cfg.Prediction,
		Database:   cfg.Database,
		Logger:     cfg.Logger,
	})
	promptHandler := handler.NewPromptHandler(cfg.Planner, cfg.Logger)
	routeHandler := handler.NewRouteHandler(cfg.Planner, cfg.Logger)
	holidayHandler := handler.NewHolidayHandler(cfg.Planner)

	// Rate limits per endpoint category
	limits := cfg.RateLimits.WithDefaults()
	planRateLimit := middleware.RateLimitByIPAndEndpoint(limits.Plan)
	expensiveRateLimit := middleware.RateLimitByIPAndEndpoint(limits.Expensive)
	standardRateLimit := middleware.RateLimitByIP(limits.Standard)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Prompt analysis is local parsing plus optional entity recognition
		r.With(middleware.RequireJSON, expensiveRateLimit).Post("/prompts:analyze", promptHandler.Analyze)

		// Route endpoints call the directions provider
		r.With(middleware.RequireJSON, planRateLimit).Post("/routes:plan", routeHandler.PlanRoute)
		r.With(middleware.RequireJSON, expensiveRateLimit).Post("/routes:estimate", routeHandler.Estimate)

		// Calendar lookups are in-memory
		r.With(standardRateLimit).Get("/holidays/{date}", holidayHandler.GetHoliday)
	})

	return r
}

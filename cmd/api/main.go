// Package main provides the entrypoint for the SmartRoute API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/api"
	"github.com/smartroute/smartroute/internal/api/middleware"
	"github.com/smartroute/smartroute/internal/bootstrap"
	"github.com/smartroute/smartroute/internal/config"
	"github.com/smartroute/smartroute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "smartroute-api"

func main() {
	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("smartroute api stopped")
	}
}

func run(log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting SmartRoute API")

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log = log.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("telemetry flush failed")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("exporting traces and metrics")
	}

	httpMetrics, err := middleware.NewMetrics(tp.Meters())
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	providerMetrics, err := middleware.NewProviderMetrics(tp.Meters())
	if err != nil {
		return fmt.Errorf("provider metrics: %w", err)
	}

	app, err := bootstrap.Build(ctx, bootstrap.Options{
		Config:  cfg,
		Logger:  log,
		Metrics: providerMetrics,
	})
	if err != nil {
		return fmt.Errorf("build planner: %w", err)
	}
	defer app.Close()

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      api.NewRouter(routerConfig(cfg, app, log, httpMetrics)),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  60 * time.Second,
	}

	served := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("environment", cfg.Server.Environment).
			Msg("server listening")
		served <- server.ListenAndServe()
	}()

	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func routerConfig(cfg *config.Config, app *bootstrap.App, log zerolog.Logger, m *middleware.Metrics) api.RouterConfig {
	rc := api.RouterConfig{
		Version:    Version,
		BuildTime:  BuildTime,
		Logger:     log,
		Metrics:    m,
		RequireTLS: cfg.Server.RequireTLS,
		RateLimits: middleware.RateLimits{
			Plan:      perMinute(cfg.RateLimits.PlanPerMinute),
			Expensive: perMinute(cfg.RateLimits.ExpensivePerMinute),
			Standard:  perMinute(cfg.RateLimits.StandardPerMinute),
		},
		Planner:  app.Planner,
		Registry: app.Registry,
	}
	// Typed nils would defeat the router's nil checks.
	if app.Prediction != nil {
		rc.Prediction = app.Prediction
	}
	if app.DB != nil {
		rc.Database = app.DB
	}
	return rc
}

func perMinute(n int) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{RequestLimit: n, WindowLength: time.Minute}
}

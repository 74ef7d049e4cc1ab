// Package bootstrap wires the route planner and its providers from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/adjustment"
	"github.com/smartroute/smartroute/internal/config"
	"github.com/smartroute/smartroute/internal/database"
	"github.com/smartroute/smartroute/internal/gazetteer"
	"github.com/smartroute/smartroute/internal/holiday"
	"github.com/smartroute/smartroute/internal/planner"
	"github.com/smartroute/smartroute/internal/prediction"
	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/provider/resilience"
	"github.com/smartroute/smartroute/internal/routing"
	"github.com/smartroute/smartroute/internal/routing/googlemaps"
	"github.com/smartroute/smartroute/internal/textanalytics"
	"github.com/smartroute/smartroute/internal/weather"
	"github.com/smartroute/smartroute/internal/weather/openweathermap"
)

// Metrics records provider calls and cache lookups.
type Metrics interface {
	planner.MetricsRecorder
	routing.CacheRecorder
}

// Options controls Build.
type Options struct {
	Config *config.Config
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics Metrics

	// SkipDatabase leaves the database unconnected even when a URL is set.
	SkipDatabase bool
}

// App holds the wired services.
type App struct {
	Planner    *planner.Service
	Registry   *resilience.Registry
	Prediction *prediction.Client
	DB         *pgxpool.Pool
}

// Close releases held resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Build constructs the planner and every configured provider.
func Build(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	log := opts.Logger
	app := &App{Registry: resilience.NewRegistry()}

	if cfg.Database.URL != "" && !opts.SkipDatabase {
		pool, err := database.Connect(ctx, database.Config{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Duration,
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		app.DB = pool
		log.Info().Msg("database connected")
	}

	gaz, err := buildGazetteer(cfg.Parser)
	if err != nil {
		app.Close()
		return nil, err
	}

	var db holiday.Querier
	if app.DB != nil {
		db = app.DB
	}
	calendar, err := buildCalendar(ctx, cfg.Holidays, db, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	var extractor prompt.EntityExtractor
	if cfg.TextAnalytics.Endpoint != "" {
		extractor = textanalytics.NewClient(textanalytics.ClientConfig{
			Endpoint:   cfg.TextAnalytics.Endpoint,
			APIKey:     cfg.TextAnalytics.APIKey,
			Language:   cfg.TextAnalytics.Language,
			HTTPClient: httpClient(textanalytics.ProviderName, cfg.Parser.ExtractorTimeout, app.Registry, log),
			Logger:     log.With().Str("component", "textanalytics").Logger(),
		})
		log.Info().Str("endpoint", cfg.TextAnalytics.Endpoint).Msg("entity recognition enabled")
	}

	parser := prompt.NewParser(prompt.Config{
		Gazetteer:        gaz,
		Extractor:        extractor,
		ExtractorTimeout: cfg.Parser.ExtractorTimeout.Duration,
		DefaultYear:      cfg.Parser.DefaultYear,
		Logger:           log.With().Str("component", "prompt").Logger(),
	})

	engineCfg := adjustment.Config{
		Calendar:         calendar,
		PredictorTimeout: cfg.AI.Timeout.Duration,
		RecognizedModels: cfg.AI.RecognizedModels,
		Logger:           log.With().Str("component", "adjustment").Logger(),
	}
	if cfg.AI.Enabled {
		app.Prediction = prediction.NewClient(prediction.ClientConfig{
			BaseURL:    cfg.AI.BaseURL,
			Mode:       prediction.Mode(cfg.AI.Mode),
			HTTPClient: httpClient(prediction.ProviderName, cfg.AI.Timeout, app.Registry, log),
			Logger:     log.With().Str("component", "prediction").Logger(),
		})
		engineCfg.Predictor = app.Prediction
		log.Info().Str("base_url", cfg.AI.BaseURL).Str("mode", cfg.AI.Mode).Msg("AI traffic prediction enabled")
	}
	engine := adjustment.NewEngine(engineCfg)

	mapsCfg := googlemaps.ClientConfig{
		APIKey:        cfg.Routing.GoogleMapsAPIKey,
		BaseURL:       cfg.Routing.DirectionsURL,
		Timeout:       cfg.Routing.DirectionsTimeout.Duration,
		Registry:      app.Registry,
		CountrySuffix: cfg.Routing.CountrySuffix,
		Logger:        log.With().Str("component", "googlemaps").Logger(),
	}
	if mapsCfg.APIKey == "" {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set - directions requests will fail")
	}

	routingCfg := routing.ServiceConfig{
		Provider: googlemaps.NewDirectionsClient(mapsCfg),
		CacheTTL: cfg.Routing.CacheTTL.Duration,
		Logger:   log.With().Str("component", "routing").Logger(),
	}

	plannerCfg := planner.Config{
		Parser:            parser,
		Engine:            engine,
		Avoid:             cfg.Routing.Avoid,
		DirectionsTimeout: cfg.Routing.DirectionsTimeout.Duration,
		Logger:            log.With().Str("component", "planner").Logger(),
	}
	if app.Prediction != nil {
		plannerCfg.Advisor = app.Prediction
	}

	if cfg.Routing.SnapToRoads {
		roadsCfg := mapsCfg
		roadsCfg.BaseURL = cfg.Routing.RoadsURL
		plannerCfg.Snapper = googlemaps.NewRoadsClient(roadsCfg)
	}

	weatherCfg := weather.ServiceConfig{
		CacheTTL:       cfg.Weather.CacheTTL.Duration,
		MaxForecastGap: cfg.Weather.MaxForecastGap.Duration,
		Logger:         log.With().Str("component", "weather").Logger(),
	}

	if opts.Metrics != nil {
		routingCfg.Metrics = opts.Metrics
		weatherCfg.Metrics = opts.Metrics
		plannerCfg.Metrics = opts.Metrics
	}

	plannerCfg.Directions = routing.NewService(routingCfg)

	if cfg.Weather.APIKey != "" {
		weatherCfg.Provider = openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:   cfg.Weather.APIKey,
			BaseURL:  cfg.Weather.BaseURL,
			Registry: app.Registry,
			Logger:   log.With().Str("component", "openweathermap").Logger(),
		})
		plannerCfg.Weather = weather.NewService(weatherCfg)
	} else {
		log.Info().Msg("OPENWEATHER_API_KEY not set - estimates run without forecasts")
	}

	app.Planner = planner.NewService(plannerCfg)
	return app, nil
}

func buildGazetteer(cfg config.ParserConfig) (*gazetteer.Gazetteer, error) {
	if cfg.GazetteerFile == "" {
		return gazetteer.Default(), nil
	}
	data, err := gazetteer.LoadFile(cfg.GazetteerFile, gazetteer.DefaultData())
	if err != nil {
		return nil, fmt.Errorf("load gazetteer: %w", err)
	}
	return gazetteer.New(data)
}

// buildCalendar layers the holidays file and then the holidays table over
// the built-in tables.
func buildCalendar(ctx context.Context, cfg config.HolidayConfig, db holiday.Querier, log zerolog.Logger) (*holiday.Calendar, error) {
	tables := holiday.DefaultConfig()
	if cfg.WeekendMultiplier > 0 {
		tables.WeekendMultiplier = cfg.WeekendMultiplier
	}

	if cfg.File != "" {
		fileTables, err := holiday.LoadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("load holidays: %w", err)
		}
		tables = holiday.Merge(tables, fileTables)
	}

	if cfg.FromDatabase {
		if db == nil {
			return nil, errors.New("holidays.from_database requires a database url")
		}
		dbTables, err := holiday.NewPostgresSource(db).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load holidays from database: %w", err)
		}
		tables = holiday.Merge(tables, dbTables)
		log.Info().Int("dated", len(dbTables.Dated)).Msg("holidays loaded from database")
	}

	return holiday.NewCalendar(tables), nil
}

func httpClient(name string, timeout config.Duration, registry *resilience.Registry, log zerolog.Logger) *resilience.Client {
	rc := resilience.DefaultClientConfig(name)
	rc.Logger = log
	if timeout.Duration > 0 {
		rc.Timeout = timeout.Duration
	}
	rc.Registry = registry
	return resilience.NewClient(rc)
}

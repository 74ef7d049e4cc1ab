// Package config loads service configuration from an optional TOML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "SMARTROUTE_CONFIG"

type Config struct {
	Server        ServerConfig        `toml:"server"`
	Telemetry     TelemetryConfig     `toml:"telemetry"`
	Parser        ParserConfig        `toml:"parser"`
	Holidays      HolidayConfig       `toml:"holidays"`
	Routing       RoutingConfig       `toml:"routing"`
	Weather       WeatherConfig       `toml:"weather"`
	TextAnalytics TextAnalyticsConfig `toml:"text_analytics"`
	AI            AIConfig            `toml:"ai"`
	Database      DatabaseConfig      `toml:"database"`
	RateLimits    RateLimitConfig     `toml:"rate_limits"`
}

type ServerConfig struct {
	Port            int      `toml:"port" validate:"min=1,max=65535"`
	Environment     string   `toml:"environment" validate:"required"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	RequireTLS      bool     `toml:"require_tls"`
	LogLevel        string   `toml:"log_level" validate:"oneof=debug info warn error"`
}

type TelemetryConfig struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio  float64 `toml:"sample_ratio" validate:"gte=0,lte=1"`
	Insecure     bool    `toml:"insecure"`
}

type ParserConfig struct {
	// DefaultYear completes dates written without a year.
	DefaultYear      int      `toml:"default_year" validate:"min=2000,max=2100"`
	GazetteerFile    string   `toml:"gazetteer_file"`
	ExtractorTimeout Duration `toml:"extractor_timeout"`
}

type HolidayConfig struct {
	File              string  `toml:"file"`
	FromDatabase      bool    `toml:"from_database"`
	WeekendMultiplier float64 `toml:"weekend_multiplier" validate:"gte=1"`
}

type RoutingConfig struct {
	GoogleMapsAPIKey  string   `toml:"google_maps_api_key"`
	DirectionsURL     string   `toml:"directions_url" validate:"omitempty,url"`
	RoadsURL          string   `toml:"roads_url" validate:"omitempty,url"`
	CountrySuffix     string   `toml:"country_suffix"`
	Avoid             []string `toml:"avoid" validate:"dive,oneof=ferries highways tolls"`
	SnapToRoads       bool     `toml:"snap_to_roads"`
	DirectionsTimeout Duration `toml:"directions_timeout"`
	CacheTTL          Duration `toml:"cache_ttl"`
}

type WeatherConfig struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url" validate:"omitempty,url"`
	CacheTTL       Duration `toml:"cache_ttl"`
	MaxForecastGap Duration `toml:"max_forecast_gap"`
}

type TextAnalyticsConfig struct {
	Endpoint string `toml:"endpoint" validate:"omitempty,url"`
	APIKey   string `toml:"api_key" validate:"required_with=Endpoint"`
	Language string `toml:"language"`
}

type AIConfig struct {
	Enabled          bool     `toml:"enabled"`
	BaseURL          string   `toml:"base_url" validate:"omitempty,url"`
	Mode             string   `toml:"mode" validate:"oneof=traffic optimize"`
	Timeout          Duration `toml:"timeout"`
	RecognizedModels []string `toml:"recognized_models"`
}

// RateLimitConfig holds per-client request budgets per minute.
type RateLimitConfig struct {
	PlanPerMinute      int `toml:"plan_per_minute" validate:"min=1"`
	ExpensivePerMinute int `toml:"expensive_per_minute" validate:"min=1"`
	StandardPerMinute  int `toml:"standard_per_minute" validate:"min=1"`
}

type DatabaseConfig struct {
	URL             string   `toml:"url"`
	MaxConns        int      `toml:"max_conns" validate:"gte=0"`
	MinConns        int      `toml:"min_conns" validate:"gte=0,ltefield=MaxConns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
}

// Duration is a time.Duration written as a string ("15s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			Environment:     "development",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{30 * time.Second},
			LogLevel:        "info",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1.0,
			Insecure:     true,
		},
		Parser: ParserConfig{
			DefaultYear:      2025,
			ExtractorTimeout: Duration{5 * time.Second},
		},
		Holidays: HolidayConfig{
			WeekendMultiplier: 1.05,
		},
		Routing: RoutingConfig{
			CountrySuffix:     ", Türkiye",
			Avoid:             []string{"ferries"},
			SnapToRoads:       true,
			DirectionsTimeout: Duration{15 * time.Second},
			CacheTTL:          Duration{5 * time.Minute},
		},
		Weather: WeatherConfig{
			CacheTTL:       Duration{10 * time.Minute},
			MaxForecastGap: Duration{6 * time.Hour},
		},
		TextAnalytics: TextAnalyticsConfig{
			Language: "tr",
		},
		AI: AIConfig{
			BaseURL:          "http://localhost:5001",
			Mode:             "traffic",
			Timeout:          Duration{3 * time.Second},
			RecognizedModels: []string{"AI_LSTM", "AI_Transformer"},
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        2,
			ConnMaxLifetime: Duration{5 * time.Minute},
		},
		RateLimits: RateLimitConfig{
			PlanPerMinute:      10,
			ExpensivePerMinute: 30,
			StandardPerMinute:  100,
		},
	}
}

// Load returns the default configuration overlaid by the TOML file at path
// (skipped when path is empty or the file does not exist) and by environment
// variables, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration's constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Environment, "APP_ENV")
	setString(&cfg.Server.LogLevel, "LOG_LEVEL")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Routing.GoogleMapsAPIKey, "GOOGLE_MAPS_API_KEY")
	setString(&cfg.Weather.APIKey, "OPENWEATHER_API_KEY")
	setString(&cfg.TextAnalytics.Endpoint, "TEXT_ANALYTICS_ENDPOINT")
	setString(&cfg.TextAnalytics.APIKey, "TEXT_ANALYTICS_KEY")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Parser.GazetteerFile, "SMARTROUTE_GAZETTEER_FILE")
	setString(&cfg.Holidays.File, "SMARTROUTE_HOLIDAYS_FILE")
	setString(&cfg.AI.Mode, "SMARTROUTE_AI_MODE")

	if v := os.Getenv("AI_SERVICE_URL"); v != "" {
		cfg.AI.BaseURL = v
		cfg.AI.Enabled = true
	}
	if v := os.Getenv("SMARTROUTE_AVOID"); v != "" {
		cfg.Routing.Avoid = splitList(v)
	}

	for _, o := range []struct {
		key string
		dst *int
	}{
		{"APP_PORT", &cfg.Server.Port},
		{"SMARTROUTE_DEFAULT_YEAR", &cfg.Parser.DefaultYear},
	} {
		if v := os.Getenv(o.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", o.key, err)
			}
			*o.dst = n
		}
	}

	for _, o := range []struct {
		key string
		dst *bool
	}{
		{"OTEL_ENABLED", &cfg.Telemetry.Enabled},
		{"OTEL_EXPORTER_OTLP_INSECURE", &cfg.Telemetry.Insecure},
		{"REQUIRE_TLS", &cfg.Server.RequireTLS},
		{"SMARTROUTE_AI_ENABLED", &cfg.AI.Enabled},
		{"SMARTROUTE_HOLIDAYS_FROM_DB", &cfg.Holidays.FromDatabase},
		{"SMARTROUTE_SNAP_TO_ROADS", &cfg.Routing.SnapToRoads},
	} {
		if v := os.Getenv(o.key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", o.key, err)
			}
			*o.dst = b
		}
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

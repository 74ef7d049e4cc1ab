// Package googlemaps provides clients for the Google Directions and Roads APIs.
package googlemaps

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/provider/resilience"
)

const (
	// ProviderName identifies the directions provider.
	ProviderName = "googlemaps"

	// RoadsProviderName identifies the road-snapping provider.
	RoadsProviderName = "googleroads"

	// DefaultBaseURL is the Google Maps web services base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultRoadsBaseURL is the Google Roads API base URL.
	DefaultRoadsBaseURL = "https://roads.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultCountrySuffix is appended to place-name endpoints.
	DefaultCountrySuffix = ", Türkiye"

	// DefaultLanguage and DefaultRegion bias results towards Turkey.
	DefaultLanguage = "tr"
	DefaultRegion   = "tr"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google clients.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// CountrySuffix is appended to place names (default: ", Türkiye").
	// Set to "-" to disable.
	CountrySuffix string

	// Language and Region are sent with directions requests (default: "tr").
	Language string
	Region   string

	// Logger for client operations.
	Logger zerolog.Logger
}

func httpClientFor(name string, cfg ClientConfig) HTTPDoer {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	clientCfg := resilience.DefaultClientConfig(name)
	clientCfg.Timeout = timeout
	clientCfg.Registry = cfg.Registry
	clientCfg.Logger = cfg.Logger
	return resilience.NewClient(clientCfg)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

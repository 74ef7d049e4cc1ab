// Package openweathermap implements weather.Provider on top of the
// OpenWeatherMap 5 day / 3 hour forecast API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/provider/resilience"
	"github.com/smartroute/smartroute/internal/weather"
)

const (
	ProviderName    = "openweathermap"
	DefaultBaseURL  = "https://api.openweathermap.org/data/2.5"
	DefaultLanguage = "tr"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	APIKey  string
	BaseURL string

	// Language selects the language of entry descriptions (default: tr).
	Language string

	// HTTPClient defaults to a resilience client registered in Registry.
	HTTPClient *resilience.Client
	Registry   *resilience.Registry

	Logger zerolog.Logger
}

// Client fetches forecasts from OpenWeatherMap.
type Client struct {
	endpoint string
	query    url.Values
	http     *resilience.Client
	logger   zerolog.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	lang := cfg.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	hc := cfg.HTTPClient
	if hc == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		hc = resilience.NewClient(rc)
	}

	return &Client{
		endpoint: base + "/forecast",
		query:    url.Values{"appid": {cfg.APIKey}, "units": {"metric"}, "lang": {lang}},
		http:     hc,
		logger:   cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// APIError is a non-200 answer from OpenWeatherMap.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openweathermap: status %d", e.StatusCode)
	}
	return fmt.Sprintf("openweathermap: status %d: %s", e.StatusCode, e.Message)
}

// GetForecast fetches the 3-hourly forecast around (lat, lon).
func (c *Client) GetForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	q := url.Values{}
	for k, v := range c.query {
		q[k] = v
	}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	return body.forecast(time.Now()), nil
}

// apiError reads the {"cod":..,"message":..} body OpenWeatherMap sends
// with errors.
func (c *Client) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &body)
	c.logger.Debug().Int("status", resp.StatusCode).Bytes("body", raw).Msg("forecast request rejected")
	return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
}

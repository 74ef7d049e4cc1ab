package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/routing"
)

// Directions API status values.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusNotFound       = "NOT_FOUND"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusRequestDenied  = "REQUEST_DENIED"
	statusInvalidRequest = "INVALID_REQUEST"
)

// DirectionsClient is a Google Directions API client. It implements routing.Provider.
type DirectionsClient struct {
	apiKey        string
	baseURL       string
	countrySuffix string
	language      string
	region        string
	httpClient    HTTPDoer
	logger        zerolog.Logger
}

// NewDirectionsClient creates a new Directions client.
func NewDirectionsClient(cfg ClientConfig) *DirectionsClient {
	suffix := orDefault(cfg.CountrySuffix, DefaultCountrySuffix)
	if suffix == "-" {
		suffix = ""
	}

	return &DirectionsClient{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		countrySuffix: suffix,
		language:      orDefault(cfg.Language, DefaultLanguage),
		region:        orDefault(cfg.Region, DefaultRegion),
		httpClient:    httpClientFor(ProviderName, cfg),
		logger:        cfg.Logger,
	}
}

// Name returns the provider name.
func (c *DirectionsClient) Name() string {
	return ProviderName
}

// GetDirections retrieves driving directions for req.
func (c *DirectionsClient) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	params := url.Values{}
	params.Set("origin", c.endpoint(req.Origin))
	params.Set("destination", c.endpoint(req.Destination))
	if len(req.Waypoints) > 0 {
		waypoints := make([]string, len(req.Waypoints))
		for i, w := range req.Waypoints {
			waypoints[i] = c.endpoint(w)
		}
		params.Set("waypoints", strings.Join(waypoints, "|"))
	}
	params.Set("mode", "driving")
	params.Set("alternatives", fmt.Sprintf("%t", req.Alternatives))
	if len(req.Avoid) > 0 {
		params.Set("avoid", strings.Join(req.Avoid, "|"))
	}
	if req.DepartureTime != "" {
		params.Set("departure_time", req.DepartureTime)
	}
	if req.TrafficModel != "" {
		params.Set("traffic_model", req.TrafficModel)
	}
	params.Set("language", c.language)
	params.Set("region", c.region)
	params.Set("key", c.apiKey)

	reqURL := c.baseURL + "/maps/api/directions/json?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Int("waypoints", len(req.Waypoints)).
		Strs("avoid", req.Avoid).
		Str("departure_time", req.DepartureTime).
		Msg("requesting directions from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach directions provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp.StatusCode)
	}

	var dr directionsResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if dr.Status != statusOK {
		return nil, statusError(dr.Status, dr.ErrorMessage)
	}

	result := toDirectionsResponse(&dr)

	c.logger.Debug().
		Int("route_count", len(result.Routes)).
		Msg("received directions from Google")

	return result, nil
}

// endpoint appends the country suffix to place names. Coordinates pass through.
func (c *DirectionsClient) endpoint(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := routing.ParseCoordinate(s); ok || c.countrySuffix == "" {
		return s
	}
	if strings.HasSuffix(s, c.countrySuffix) {
		return s
	}
	return s + c.countrySuffix
}

func httpError(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "directions provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("directions provider returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

// statusError maps a non-OK Directions status to a domain error.
func statusError(status, message string) error {
	if message == "" {
		message = strings.ToLower(strings.ReplaceAll(status, "_", " "))
	}

	switch status {
	case statusZeroResults, statusNotFound:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrNoRouteFound}
	case statusOverQueryLimit:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrRateLimitExceeded}
	case statusInvalidRequest:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrInvalidRequest}
	case statusRequestDenied:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrProviderUnavailable}
	default:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrProviderUnavailable}
	}
}

func toDirectionsResponse(dr *directionsResponse) *routing.DirectionsResponse {
	routes := make([]routing.Route, 0, len(dr.Routes))

	for i := range dr.Routes {
		gr := &dr.Routes[i]
		route := routing.Route{
			Summary:          gr.Summary,
			OverviewPolyline: gr.OverviewPolyline.Points,
			Warnings:         gr.Warnings,
			Legs:             make([]routing.Leg, 0, len(gr.Legs)),
		}

		for j := range gr.Legs {
			gl := &gr.Legs[j]
			leg := routing.Leg{
				StartAddress:    gl.StartAddress,
				EndAddress:      gl.EndAddress,
				DistanceMeters:  gl.Distance.Value,
				DurationSeconds: gl.Duration.Value,
				Steps:           make([]routing.Step, 0, len(gl.Steps)),
			}
			if gl.DurationInTraffic != nil {
				leg.DurationInTrafficSeconds = gl.DurationInTraffic.Value
			}
			for k := range gl.Steps {
				gs := &gl.Steps[k]
				leg.Steps = append(leg.Steps, routing.Step{
					Instruction:     gs.HTMLInstructions,
					Polyline:        gs.Polyline.Points,
					DistanceMeters:  gs.Distance.Value,
					DurationSeconds: gs.Duration.Value,
					Maneuver:        gs.Maneuver,
					RoadName:        gs.Name,
				})
			}
			route.Legs = append(route.Legs, leg)
		}

		routes = append(routes, route)
	}

	return &routing.DirectionsResponse{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}

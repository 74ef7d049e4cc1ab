package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/routing"
	"github.com/smartroute/smartroute/pkg/polyline"
)

// ErrSnapFailed is returned when the Roads API cannot snap a path.
var ErrSnapFailed = errors.New("road snapping failed")

// RoadsClient is a Google Roads API client. It implements routing.RoadSnapper.
type RoadsClient struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewRoadsClient creates a new Roads client.
func NewRoadsClient(cfg ClientConfig) *RoadsClient {
	return &RoadsClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(orDefault(cfg.BaseURL, DefaultRoadsBaseURL), "/"),
		httpClient: httpClientFor(RoadsProviderName, cfg),
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *RoadsClient) Name() string {
	return RoadsProviderName
}

// SnapToRoads returns the road-snapped points for path, in path order.
func (c *RoadsClient) SnapToRoads(ctx context.Context, path []polyline.Point) ([]polyline.Point, error) {
	if len(path) == 0 {
		return []polyline.Point{}, nil
	}

	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = routing.FormatCoordinate(p)
	}

	params := url.Values{}
	params.Set("path", strings.Join(parts, "|"))
	params.Set("interpolate", "false")
	params.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/snapToRoads?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrSnapFailed, resp.StatusCode)
	}

	var sr snapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	points := make([]polyline.Point, 0, len(sr.SnappedPoints))
	for _, sp := range sr.SnappedPoints {
		points = append(points, polyline.Point{Lat: sp.Location.Latitude, Lng: sp.Location.Longitude})
	}

	c.logger.Debug().
		Int("requested", len(path)).
		Int("snapped", len(points)).
		Msg("snapped path to roads")

	return points, nil
}

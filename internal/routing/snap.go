package routing

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/smartroute/smartroute/pkg/polyline"
)

var coordinatePattern = regexp.MustCompile(`^-?\d+\.\d+,-?\d+\.\d+$`)

// ParseCoordinate parses a "lat,lng" endpoint. Place names report false.
func ParseCoordinate(s string) (polyline.Point, bool) {
	if !coordinatePattern.MatchString(s) {
		return polyline.Point{}, false
	}
	latStr, lngStr, _ := strings.Cut(s, ",")
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return polyline.Point{}, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return polyline.Point{}, false
	}
	return polyline.Point{Lat: lat, Lng: lng}, true
}

// FormatCoordinate renders p as a "lat,lng" endpoint.
func FormatCoordinate(p polyline.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// SnapEndpoint moves a "lat,lng" endpoint onto the nearest road. Place names,
// snapper errors and empty results leave the endpoint unchanged.
func SnapEndpoint(ctx context.Context, snapper RoadSnapper, endpoint string) string {
	if snapper == nil {
		return endpoint
	}
	p, ok := ParseCoordinate(endpoint)
	if !ok {
		return endpoint
	}

	snapped, err := snapper.SnapToRoads(ctx, []polyline.Point{p})
	if err != nil || len(snapped) == 0 {
		return endpoint
	}
	return FormatCoordinate(snapped[0])
}

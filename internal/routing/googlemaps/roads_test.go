package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/routing"
	"github.com/smartroute/smartroute/pkg/polyline"
)

var _ routing.RoadSnapper = (*RoadsClient)(nil)

func TestRoadsClient_SnapToRoads(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/snapToRoads" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		paths = append(paths, q.Get("path"))
		if q.Get("interpolate") != "false" {
			t.Errorf("expected interpolate=false, got %q", q.Get("interpolate"))
		}
		if q.Get("key") != "mock123" {
			t.Errorf("expected key mock123, got %q", q.Get("key"))
		}

		_, _ = w.Write([]byte(`{"snappedPoints": [
			{"location": {"latitude": 41.015137, "longitude": 28.97953}, "originalIndex": 0, "placeId": "a"},
			{"location": {"latitude": 39.92081, "longitude": 32.85402}, "originalIndex": 1, "placeId": "b"}
		]}`))
	}))
	defer server.Close()

	client := NewRoadsClient(ClientConfig{
		APIKey:     "mock123",
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	points, err := client.SnapToRoads(context.Background(), []polyline.Point{
		{Lat: 41.0151, Lng: 28.9795},
		{Lat: 39.92077, Lng: 32.85411},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Lat != 41.015137 || points[0].Lng != 28.97953 {
		t.Errorf("unexpected first point %+v", points[0])
	}
	if paths[0] != "41.015100,28.979500|39.920770,32.854110" {
		t.Errorf("unexpected path parameter %q", paths[0])
	}

	// The snapped point replaces a coordinate endpoint.
	if got := routing.SnapEndpoint(context.Background(), client, "41.0151,28.9795"); got != "41.015137,28.979530" {
		t.Errorf("unexpected snapped endpoint %q", got)
	}
	if len(paths) != 2 || paths[1] != "41.015100,28.979500" {
		t.Errorf("unexpected snap requests %v", paths)
	}
}

func TestRoadsClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "status": "INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client := NewRoadsClient(ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: &mockHTTPClient{client: server.Client()},
		Logger:     zerolog.Nop(),
	})

	_, err := client.SnapToRoads(context.Background(), []polyline.Point{{Lat: 1, Lng: 2}})
	if !errors.Is(err, ErrSnapFailed) {
		t.Errorf("expected ErrSnapFailed, got %v", err)
	}

	if got := routing.SnapEndpoint(context.Background(), client, "1.5,2.5"); got != "1.5,2.5" {
		t.Errorf("expected endpoint to be kept on error, got %q", got)
	}

	failing := NewRoadsClient(ClientConfig{HTTPClient: &mockFailingClient{}, Logger: zerolog.Nop()})
	if _, err := failing.SnapToRoads(context.Background(), []polyline.Point{{Lat: 1, Lng: 2}}); !errors.Is(err, ErrSnapFailed) {
		t.Errorf("expected ErrSnapFailed, got %v", err)
	}
}

func TestRoadsClient_EmptyPath(t *testing.T) {
	client := NewRoadsClient(ClientConfig{HTTPClient: &mockFailingClient{}, Logger: zerolog.Nop()})

	points, err := client.SnapToRoads(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("expected no points, got %d", len(points))
	}
}

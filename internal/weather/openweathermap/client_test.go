package openweathermap_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartroute/smartroute/internal/weather"
	"github.com/smartroute/smartroute/internal/weather/openweathermap"
)

// Two 3-hourly entries for Istanbul starting 2026-02-12 06:00 UTC.
const istanbulForecast = `{
	"cod": "200",
	"list": [
		{"dt": 1770876000, "main": {"temp": 4.5, "humidity": 88},
		 "weather": [{"id": 500, "main": "Rain", "description": "hafif yağmur"}],
		 "wind": {"speed": 4, "gust": 7}, "pop": 0.6},
		{"dt": 1770886800, "main": {"temp": 0.5, "humidity": 93},
		 "weather": [{"id": 601, "main": "Snow", "description": "kar"}],
		 "wind": {"speed": 12, "gust": 15}, "pop": 0.9}
	],
	"city": {"name": "Istanbul", "coord": {"lat": 41.0082, "lon": 28.9784}}
}`

func serve(t *testing.T, status int, body string, check func(*http.Request)) *openweathermap.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return openweathermap.NewClient(openweathermap.ClientConfig{APIKey: "owm-key", BaseURL: srv.URL + "/"})
}

func TestClient_GetForecast(t *testing.T) {
	client := serve(t, http.StatusOK, istanbulForecast, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "41.008200", q.Get("lat"))
		assert.Equal(t, "28.978400", q.Get("lon"))
		assert.Equal(t, "owm-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "tr", q.Get("lang"))
	})

	f, err := client.GetForecast(context.Background(), 41.0082, 28.9784)
	require.NoError(t, err)

	assert.Equal(t, 41.0082, f.Lat)
	assert.Equal(t, 28.9784, f.Lon)
	require.Len(t, f.Entries, 2)

	rain := f.Entries[0]
	assert.Equal(t, time.Date(2026, 2, 12, 6, 0, 0, 0, time.UTC), rain.Time)
	assert.Equal(t, weather.ConditionRain, rain.Condition)
	assert.Equal(t, "hafif yağmur", rain.Description)
	assert.Equal(t, 4.5, rain.Temperature)
	assert.Equal(t, 0.6, rain.PrecipProb)
	assert.Equal(t, []string{weather.TagRainy}, rain.Tags())

	snow := f.Entries[1]
	assert.Equal(t, weather.ConditionSnow, snow.Condition)
	assert.Equal(t, []string{weather.TagSnowy, weather.TagWindy}, snow.Tags())
}

func TestClient_GetForecast_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"invalid key", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, "status 401: Invalid API key"},
		{"server error", http.StatusInternalServerError, ``, "status 500"},
		{"not json", http.StatusBadRequest, `<html>`, "status 400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serve(t, tt.status, tt.body, nil).GetForecast(context.Background(), 39.93, 32.86)

			var apiErr *openweathermap.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestClient_GetForecast_MalformedBody(t *testing.T) {
	_, err := serve(t, http.StatusOK, `{"list": [`, nil).GetForecast(context.Background(), 39.93, 32.86)
	assert.ErrorContains(t, err, "decode forecast")
}

func TestClient_GetForecast_Canceled(t *testing.T) {
	client := serve(t, http.StatusOK, istanbulForecast, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetForecast(ctx, 39.93, 32.86)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Language(t *testing.T) {
	lang := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang <- r.URL.Query().Get("lang")
		_, _ = w.Write([]byte(`{"list": []}`))
	}))
	defer srv.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{BaseURL: srv.URL, Language: "en"})
	_, err := client.GetForecast(context.Background(), 39.93, 32.86)
	require.NoError(t, err)

	assert.Equal(t, "en", <-lang)
	assert.Equal(t, openweathermap.ProviderName, client.Name())
}

package textanalytics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/textanalytics"
)

func newClient(url string) *textanalytics.Client {
	return textanalytics.NewClient(textanalytics.ClientConfig{
		Endpoint: url + "/",
		APIKey:   "test-key",
		Logger:   zerolog.Nop(),
	})
}

func TestClient_RecognizeEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/text/analytics/v3.1/entities/recognition/general", r.URL.Path)
		assert.Equal(t, "UnicodeCodePoint", r.URL.Query().Get("stringIndexType"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		var body struct {
			Documents []struct {
				ID       string `json:"id"`
				Language string `json:"language"`
				Text     string `json:"text"`
			} `json:"documents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Documents, 1)
		assert.Equal(t, "tr", body.Documents[0].Language)
		assert.Equal(t, "İstanbul'dan Ankara'ya", body.Documents[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"documents": [{
				"id": "1",
				"entities": [
					{"text": "İstanbul", "category": "Location", "subcategory": "GPE", "offset": 0, "length": 8, "confidenceScore": 0.98},
					{"text": "Ankara", "category": "Location", "offset": 14, "length": 6, "confidenceScore": 0.95}
				],
				"warnings": []
			}],
			"errors": [],
			"modelVersion": "2021-06-01"
		}`))
	}))
	defer server.Close()

	entities, err := newClient(server.URL).RecognizeEntities(context.Background(), "İstanbul'dan Ankara'ya")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, prompt.Entity{Text: "İstanbul", Category: prompt.CategoryLocation, Offset: 0, Confidence: 0.98}, entities[0])
	assert.Equal(t, 14, entities[1].Offset)
}

func TestClient_ExtractKeyPhrases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text/analytics/v3.1/keyPhrases", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":[{"id":"1","keyPhrases":["köprü","yağmurlu hava"]}],"errors":[]}`))
	}))
	defer server.Close()

	phrases, err := newClient(server.URL).ExtractKeyPhrases(context.Background(), "köprü yağmurlu hava")
	require.NoError(t, err)
	assert.Equal(t, []string{"köprü", "yağmurlu hava"}, phrases)
}

func TestClient_DocumentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"documents":[],"errors":[{"id":"1","error":{"code":"InvalidArgument","message":"Invalid language"}}]}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).ExtractKeyPhrases(context.Background(), "x")
	var docErr *textanalytics.DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, "InvalidArgument", docErr.Code)
}

func TestClient_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"401","message":"Access denied"}}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).RecognizeEntities(context.Background(), "x")
	assert.ErrorIs(t, err, textanalytics.ErrUnavailable)
}

func TestClient_NotConfigured(t *testing.T) {
	c := textanalytics.NewClient(textanalytics.ClientConfig{Logger: zerolog.Nop()})

	_, err := c.RecognizeEntities(context.Background(), "x")
	assert.ErrorIs(t, err, textanalytics.ErrNotConfigured)
	assert.Equal(t, textanalytics.ProviderName, c.Name())
}

func TestClient_SatisfiesEntityExtractor(t *testing.T) {
	var _ prompt.EntityExtractor = textanalytics.NewClient(textanalytics.ClientConfig{})
}

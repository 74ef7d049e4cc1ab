// Package textanalytics is a client for an Azure-style Text Analytics v3.1
// service providing named-entity recognition and key-phrase extraction.
package textanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smartroute/smartroute/internal/prompt"
	"github.com/smartroute/smartroute/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "textanalytics"

	// DefaultLanguage is the document language sent with every request.
	DefaultLanguage = "tr"

	apiPath = "/text/analytics/v3.1"
)

var (
	// ErrNotConfigured is returned when no endpoint is configured.
	ErrNotConfigured = errors.New("text analytics endpoint not configured")

	// ErrUnavailable is returned for transport and server failures.
	ErrUnavailable = errors.New("text analytics unavailable")
)

// DocumentError is a per-document error reported by the service.
type DocumentError struct {
	Code    string
	Message string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("text analytics document error %s: %s", e.Code, e.Message)
}

// ClientConfig holds configuration for the Text Analytics client.
type ClientConfig struct {
	// Endpoint is the resource endpoint, e.g. https://<name>.cognitiveservices.azure.com.
	Endpoint string

	// APIKey is sent as Ocp-Apim-Subscription-Key.
	APIKey string

	// Language is the document language (default: tr).
	Language string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client calls the entity recognition and key-phrase endpoints.
type Client struct {
	endpoint   string
	apiKey     string
	language   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Text Analytics client.
func NewClient(cfg ClientConfig) *Client {
	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		language:   language,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// RecognizeEntities returns the general-domain entities found in text.
func (c *Client) RecognizeEntities(ctx context.Context, text string) ([]prompt.Entity, error) {
	var resp entitiesResponse
	if err := c.post(ctx, "/entities/recognition/general?stringIndexType=UnicodeCodePoint", text, &resp); err != nil {
		return nil, err
	}
	if err := resp.firstError(); err != nil {
		return nil, err
	}

	var entities []prompt.Entity
	for _, doc := range resp.Documents {
		for _, e := range doc.Entities {
			entities = append(entities, prompt.Entity{
				Text:       e.Text,
				Category:   e.Category,
				Offset:     e.Offset,
				Confidence: e.ConfidenceScore,
			})
		}
	}

	c.logger.Debug().Int("entities", len(entities)).Msg("entities recognized")
	return entities, nil
}

// ExtractKeyPhrases returns the key phrases found in text.
func (c *Client) ExtractKeyPhrases(ctx context.Context, text string) ([]string, error) {
	var resp keyPhrasesResponse
	if err := c.post(ctx, "/keyPhrases", text, &resp); err != nil {
		return nil, err
	}
	if err := resp.firstError(); err != nil {
		return nil, err
	}

	var phrases []string
	for _, doc := range resp.Documents {
		phrases = append(phrases, doc.KeyPhrases...)
	}
	return phrases, nil
}

func (c *Client) post(ctx context.Context, path, text string, out any) error {
	if c.endpoint == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(analyzeRequest{
		Documents: []document{{ID: "1", Language: c.language, Text: text}},
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+apiPath+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(msg)).
			Msg("text analytics request failed")
		return fmt.Errorf("%w: unexpected status code: %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Text Analytics API structures.

type analyzeRequest struct {
	Documents []document `json:"documents"`
}

type document struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type documentErrors []struct {
	ID    string `json:"id"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (d documentErrors) firstError() error {
	if len(d) == 0 {
		return nil
	}
	return &DocumentError{Code: d[0].Error.Code, Message: d[0].Error.Message}
}

type entitiesResponse struct {
	Documents []struct {
		ID       string `json:"id"`
		Entities []struct {
			Text            string  `json:"text"`
			Category        string  `json:"category"`
			Subcategory     string  `json:"subcategory"`
			Offset          int     `json:"offset"`
			Length          int     `json:"length"`
			ConfidenceScore float64 `json:"confidenceScore"`
		} `json:"entities"`
	} `json:"documents"`
	Errors       documentErrors `json:"errors"`
	ModelVersion string         `json:"modelVersion"`
}

func (r *entitiesResponse) firstError() error { return r.Errors.firstError() }

type keyPhrasesResponse struct {
	Documents []struct {
		ID         string   `json:"id"`
		KeyPhrases []string `json:"keyPhrases"`
	} `json:"documents"`
	Errors       documentErrors `json:"errors"`
	ModelVersion string         `json:"modelVersion"`
}

func (r *keyPhrasesResponse) firstError() error { return r.Errors.firstError() }

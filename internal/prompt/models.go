// Package prompt extracts a structured travel intent from free-text Turkish
// (and some English) route requests.
package prompt

import (
	"context"
	"errors"
	"fmt"
)

// ErrMeaninglessPrompt is the sentinel wrapped by every RejectionError.
var ErrMeaninglessPrompt = errors.New("prompt does not describe a route")

// Reason explains why a prompt was rejected.
type Reason string

const (
	ReasonTooShort       Reason = "too_short"
	ReasonNoLetters      Reason = "no_letters"
	ReasonRepeatedChar   Reason = "repeated_character"
	ReasonFiller         Reason = "filler"
	ReasonNoRouteContent Reason = "no_route_content"
	ReasonNoLocation     Reason = "no_location"
)

// RejectionError is returned by Parse when the text cannot yield a usable intent.
type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMeaninglessPrompt.Error(), e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return ErrMeaninglessPrompt
}

func reject(r Reason) error {
	return &RejectionError{Reason: r}
}

// Directive is a user constraint on a named bridge or highway.
type Directive struct {
	Name    string `json:"name"`
	MustUse bool   `json:"mustUse"`
}

// Constraint renders the directive for display, e.g. "Avoid: Boğaziçi Köprüsü".
func (d Directive) Constraint() string {
	if d.MustUse {
		return "Use: " + d.Name
	}
	return "Avoid: " + d.Name
}

// TravelIntent is the structured result of parsing a prompt. It is built once
// by the Parser and treated as read-only afterwards.
type TravelIntent struct {
	Source            string      `json:"source"`
	Destination       string      `json:"destination,omitempty"`
	Waypoints         []string    `json:"waypoints"`
	BridgeDirectives  []Directive `json:"bridgeDirectives"`
	HighwayDirectives []Directive `json:"highwayDirectives"`
	WeatherTags       []string    `json:"weatherTags"`
	TravelDate        string      `json:"travelDate,omitempty"`
	TravelTime        string      `json:"travelTime,omitempty"`
	Requests          []string    `json:"requests"`
}

// Stops returns source, waypoints and destination in travel order.
func (t *TravelIntent) Stops() []string {
	stops := make([]string, 0, len(t.Waypoints)+2)
	stops = append(stops, t.Source)
	stops = append(stops, t.Waypoints...)
	if t.Destination != "" {
		stops = append(stops, t.Destination)
	}
	return stops
}

// Directives returns bridge directives followed by highway directives.
func (t *TravelIntent) Directives() []Directive {
	out := make([]Directive, 0, len(t.BridgeDirectives)+len(t.HighwayDirectives))
	out = append(out, t.BridgeDirectives...)
	return append(out, t.HighwayDirectives...)
}

// Entity categories kept from external entity recognition.
const (
	CategoryLocation     = "Location"
	CategoryAddress      = "Address"
	CategoryOrganization = "Organization"
)

// Entity is a named entity recognized by an external service.
type Entity struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Offset     int     `json:"offset"`
	Confidence float64 `json:"confidenceScore"`
}

// EntityExtractor is an external NLP service. Failures are tolerated by the parser.
type EntityExtractor interface {
	RecognizeEntities(ctx context.Context, text string) ([]Entity, error)
	ExtractKeyPhrases(ctx context.Context, text string) ([]string, error)
}

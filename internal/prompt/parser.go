package prompt

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/smartroute/smartroute/internal/gazetteer"
	"github.com/smartroute/smartroute/internal/textnorm"
)

// DefaultYear is used for dates written without a year ("12 Şubat").
const DefaultYear = 2025

// Config holds configuration for the parser.
type Config struct {
	// Gazetteer is the table of recognized places (default: gazetteer.Default()).
	Gazetteer *gazetteer.Gazetteer

	// Extractor is the optional external entity/key-phrase service.
	Extractor EntityExtractor

	// ExtractorTimeout bounds the external calls (default: 5 seconds).
	ExtractorTimeout time.Duration

	// DefaultYear completes dates written without a year (default: 2025).
	DefaultYear int

	// Logger for parser operations.
	Logger zerolog.Logger
}

// Parser turns prompts into TravelIntents. It is safe for concurrent use.
type Parser struct {
	gaz              *gazetteer.Gazetteer
	extractor        EntityExtractor
	extractorTimeout time.Duration
	defaultYear      int
	logger           zerolog.Logger
}

// NewParser creates a parser.
func NewParser(cfg Config) *Parser {
	gaz := cfg.Gazetteer
	if gaz == nil {
		gaz = gazetteer.Default()
	}

	timeout := cfg.ExtractorTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	year := cfg.DefaultYear
	if year == 0 {
		year = DefaultYear
	}

	return &Parser{
		gaz:              gaz,
		extractor:        cfg.Extractor,
		extractorTimeout: timeout,
		defaultYear:      year,
		logger:           cfg.Logger,
	}
}

// external holds the best-effort results of the entity extractor.
type external struct {
	entities   []Entity
	keyPhrases []string
}

// Parse extracts a TravelIntent from text. It returns a *RejectionError
// wrapping ErrMeaninglessPrompt when no usable intent can be found.
func (p *Parser) Parse(ctx context.Context, text string) (*TravelIntent, error) {
	if err := p.validate(text); err != nil {
		p.logger.Debug().Str("prompt", text).Err(err).Msg("prompt rejected by validity gate")
		return nil, err
	}

	// The external calls run while the local extraction proceeds.
	ext := &external{}
	wait := p.callExtractor(ctx, text, ext)

	lower := textnorm.Lower(strings.TrimSpace(text))
	masked := maskInfrastructure(lower, p.gaz)

	places := textnorm.Key(masked)

	set := newCandidateSet()
	p.matchDistricts(places, set)
	p.matchRegions(places, masked, set)
	if set.empty() {
		p.matchTokens(places, set)
	}

	wait()
	p.matchEntities(lower, ext.entities, set)

	if set.empty() {
		p.logger.Debug().Str("prompt", text).Msg("no location found in prompt")
		return nil, reject(ReasonNoLocation)
	}

	intent := &TravelIntent{Waypoints: []string{}}
	stops := set.ordered()
	intent.Source = stops[0]
	if len(stops) >= 2 {
		intent.Destination = stops[len(stops)-1]
		intent.Waypoints = append(intent.Waypoints, stops[1:len(stops)-1]...)
	}

	words := textnorm.Words(lower)
	intent.BridgeDirectives = p.extractDirectives(lower, words, p.gaz.Bridges())
	intent.HighwayDirectives = p.extractDirectives(lower, words, p.gaz.Highways())
	intent.WeatherTags = extractWeatherTags(words)

	date, matched, ok := extractDate(masked, p.defaultYear)
	if matched && !ok {
		p.logger.Debug().Str("prompt", text).Msg("ignoring invalid calendar date")
	}
	intent.TravelDate = date
	intent.TravelTime = extractTime(masked)

	intent.Requests = buildRequests(ext.keyPhrases, intent)

	p.logger.Debug().
		Str("source", intent.Source).
		Str("destination", intent.Destination).
		Int("waypoints", len(intent.Waypoints)).
		Int("bridge_directives", len(intent.BridgeDirectives)).
		Int("highway_directives", len(intent.HighwayDirectives)).
		Strs("weather_tags", intent.WeatherTags).
		Str("travel_date", intent.TravelDate).
		Str("travel_time", intent.TravelTime).
		Msg("prompt parsed")

	return intent, nil
}

// callExtractor starts the entity and key-phrase calls and returns a function
// that blocks until both have finished. Failures contribute nothing.
func (p *Parser) callExtractor(ctx context.Context, text string, ext *external) func() {
	if p.extractor == nil {
		return func() {}
	}

	ctx, cancel := context.WithTimeout(ctx, p.extractorTimeout)
	var g errgroup.Group

	g.Go(func() error {
		entities, err := p.extractor.RecognizeEntities(ctx, text)
		if err != nil {
			p.logger.Warn().Err(err).Msg("entity recognition unavailable")
			return nil
		}
		ext.entities = entities
		return nil
	})
	g.Go(func() error {
		phrases, err := p.extractor.ExtractKeyPhrases(ctx, text)
		if err != nil {
			p.logger.Warn().Err(err).Msg("key phrase extraction unavailable")
			return nil
		}
		ext.keyPhrases = phrases
		return nil
	})

	return func() {
		_ = g.Wait()
		cancel()
	}
}

func buildRequests(keyPhrases []string, intent *TravelIntent) []string {
	requests := make([]string, 0, len(keyPhrases)+3)
	for _, kp := range keyPhrases {
		if kp = strings.TrimSpace(kp); kp != "" {
			requests = append(requests, kp)
		}
	}
	if len(intent.WeatherTags) > 0 {
		requests = append(requests, "Weather: "+strings.Join(intent.WeatherTags, ", "))
	}
	if intent.TravelDate != "" {
		requests = append(requests, "Travel date: "+intent.TravelDate)
	}
	if intent.TravelTime != "" {
		requests = append(requests, "Travel time: "+intent.TravelTime)
	}
	return requests
}

package routing

import (
	"strings"

	"github.com/smartroute/smartroute/internal/textnorm"
)

// TollClass is a coarse toll classification of a route.
type TollClass string

const (
	TollFree   TollClass = "free"
	TollMedium TollClass = "medium"
	TollHigh   TollClass = "high"
)

// ClassifyTolls maps a toll count to its class: 0 is free, 1-2 medium, 3+ high.
func ClassifyTolls(count int) TollClass {
	switch {
	case count <= 0:
		return TollFree
	case count <= 2:
		return TollMedium
	default:
		return TollHigh
	}
}

// Instruction markers hinting at a tolled section. Matching is done on folded
// text so "KÖPRÜ", "köprü" and "kopru" all hit.
var tollMarkers = foldAll(
	"toll", "ücretli", "gişe",
	"highway", "motorway", "expressway", "otoyol", "otoban",
	"bridge", "köprü",
	"tunnel", "tünel",
)

var highwayMarkers = foldAll("highway", "motorway", "expressway", "otoyol", "otoban")

var warningMarkers = foldAll("toll", "ücretli")

func foldAll(words ...string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = textnorm.Fold(w)
	}
	return out
}

func containsAny(folded string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}

// CountTolls estimates the number of tolled sections on r. Each step whose
// instruction mentions a toll, highway, bridge or tunnel counts once, as
// does each provider warning mentioning tolls.
func CountTolls(r Route) int {
	count := 0
	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			if containsAny(textnorm.Fold(textnorm.StripHTML(step.Instruction)), tollMarkers) {
				count++
			}
		}
	}
	for _, w := range r.Warnings {
		if containsAny(textnorm.Fold(w), warningMarkers) {
			count++
		}
	}
	return count
}

// HighwayRatio is the share of r's step distance on highway-marked steps,
// or 0 when no step carries a distance.
func HighwayRatio(r Route) float64 {
	var total, highway int
	for _, leg := range r.Legs {
		for _, step := range leg.Steps {
			total += step.DistanceMeters
			if containsAny(textnorm.Fold(textnorm.StripHTML(step.Instruction)), highwayMarkers) {
				highway += step.DistanceMeters
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(highway) / float64(total)
}

package adjustment

import (
	"fmt"
	"math"
	"unicode"
	"unicode/utf8"
)

// Band is the severity multiplier of one weather tag.
type Band struct {
	Tag        string  `toml:"tag" json:"tag" validate:"required"`
	Multiplier float64 `toml:"multiplier" json:"multiplier" validate:"gt=0"`
}

// Explanation renders the duration impact of the band, e.g. "Snowy weather: duration +15%".
func (b Band) Explanation() string {
	pct := int(math.Round((b.Multiplier - 1) * 100))
	label := b.Tag
	if r, size := utf8.DecodeRuneInString(label); size > 0 {
		label = string(unicode.ToUpper(r)) + label[size:]
	}
	return fmt.Sprintf("%s weather: duration %+d%%", label, pct)
}

// DefaultBands returns the built-in weather severity table.
func DefaultBands() []Band {
	return []Band{
		{Tag: "snowy", Multiplier: 1.15},
		{Tag: "stormy", Multiplier: 1.12},
		{Tag: "windy", Multiplier: 1.12},
		{Tag: "rainy", Multiplier: 1.10},
		{Tag: "foggy", Multiplier: 1.08},
		{Tag: "sunny", Multiplier: 0.98},
	}
}

// WorstWeather selects the single tag with the highest multiplier. Tags
// without a band count as neutral 1.0, so a milder band such as sunny never
// wins over them. ok is false when no tag was given or the winner is neutral.
// Ties keep the earlier tag.
func WorstWeather(tags []string, bands []Band) (worst Band, ok bool) {
	byTag := make(map[string]Band, len(bands))
	for _, b := range bands {
		byTag[b.Tag] = b
	}

	for i, tag := range tags {
		b, known := byTag[tag]
		if !known {
			b = Band{Tag: tag, Multiplier: 1.0}
		}
		if i == 0 || b.Multiplier > worst.Multiplier {
			worst, ok = b, known
		}
	}
	return worst, ok
}

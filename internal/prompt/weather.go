package prompt

import "github.com/smartroute/smartroute/internal/textnorm"

// Canonical weather tags.
const (
	TagRainy  = "rainy"
	TagSnowy  = "snowy"
	TagSunny  = "sunny"
	TagFoggy  = "foggy"
	TagWindy  = "windy"
	TagStormy = "stormy"
)

var weatherKeywords = map[string]string{
	"yağmur": TagRainy, "yağmurlu": TagRainy, "yağışlı": TagRainy, "rain": TagRainy, "rainy": TagRainy,
	"kar": TagSnowy, "karlı": TagSnowy, "snow": TagSnowy, "snowy": TagSnowy,
	"güneş": TagSunny, "güneşli": TagSunny, "açık": TagSunny, "sunny": TagSunny,
	"sis": TagFoggy, "sisli": TagFoggy, "fog": TagFoggy, "foggy": TagFoggy,
	"rüzgar": TagWindy, "rüzgarlı": TagWindy, "wind": TagWindy, "windy": TagWindy,
	"fırtına": TagStormy, "fırtınalı": TagStormy, "storm": TagStormy, "stormy": TagStormy,
}

// extractWeatherTags returns canonical tags in order of first occurrence.
func extractWeatherTags(words []textnorm.Word) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, w := range words {
		tag, ok := weatherKeywords[w.Text]
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// WeatherTags returns the canonical tags named in text, such as the Turkish
// condition words a forecast service reports ("kar", "yağmur").
func WeatherTags(text string) []string {
	return extractWeatherTags(textnorm.Words(textnorm.Lower(text)))
}

package planner

import (
	"net/url"
	"strings"
)

const mapBaseURL = "https://maps.google.com/?q="

// MapURL returns a Google Maps link showing the stops.
func MapURL(stops []string) string {
	escaped := make([]string, len(stops))
	for i, s := range stops {
		escaped[i] = url.QueryEscape(s)
	}
	return mapBaseURL + strings.Join(escaped, "|")
}

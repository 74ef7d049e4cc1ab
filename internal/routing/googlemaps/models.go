package googlemaps

// directionsResponse represents the Directions API JSON response.
type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []route `json:"routes"`
}

type route struct {
	Summary          string   `json:"summary"`
	OverviewPolyline encoded  `json:"overview_polyline"`
	Legs             []leg    `json:"legs"`
	Warnings         []string `json:"warnings"`
	Copyrights       string   `json:"copyrights,omitempty"`
}

type leg struct {
	StartAddress      string     `json:"start_address"`
	EndAddress        string     `json:"end_address"`
	Distance          valueText  `json:"distance"`
	Duration          valueText  `json:"duration"`
	DurationInTraffic *valueText `json:"duration_in_traffic,omitempty"`
	Steps             []step     `json:"steps"`
}

type step struct {
	HTMLInstructions string    `json:"html_instructions"`
	Distance         valueText `json:"distance"`
	Duration         valueText `json:"duration"`
	Polyline         encoded   `json:"polyline"`
	Maneuver         string    `json:"maneuver,omitempty"`
	Name             string    `json:"name,omitempty"`
}

// valueText is a quantity with its localized display text.
type valueText struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type encoded struct {
	Points string `json:"points"`
}

// snapResponse represents the Roads API snapToRoads response.
type snapResponse struct {
	SnappedPoints []snappedPoint `json:"snappedPoints"`
}

type snappedPoint struct {
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	OriginalIndex *int   `json:"originalIndex,omitempty"`
	PlaceID       string `json:"placeId"`
}

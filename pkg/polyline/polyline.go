// Package polyline encodes and decodes coordinate sequences in the precision-5
// polyline format used by Google Directions and most other mapping APIs.
// Format reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// ErrMalformed is returned when an encoded string ends in the middle of a value
// or carries an odd number of values.
var ErrMalformed = errors.New("malformed polyline")

const (
	scale      = 1e5
	chunkBits  = 5
	chunkMask  = 0x1f
	continues  = 0x20
	asciiShift = 63
)

// Point is a (latitude, longitude) pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Encode encodes points into a polyline string. An empty slice encodes to "".
func Encode(points []Point) string {
	if len(points) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLng int64

	for _, p := range points {
		lat := int64(math.Round(p.Lat * scale))
		lng := int64(math.Round(p.Lng * scale))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return string(buf)
}

// appendValue zig-zags a signed delta and writes it as 5-bit chunks,
// least significant first.
func appendValue(buf []byte, value int64) []byte {
	u := uint64(value) << 1
	if value < 0 {
		u = ^u
	}

	for u >= continues {
		buf = append(buf, byte((u&chunkMask)|continues)+asciiShift)
		u >>= chunkBits
	}
	return append(buf, byte(u)+asciiShift)
}

// Decode decodes a polyline string. An empty string decodes to an empty,
// non-nil slice.
func Decode(encoded string) ([]Point, error) {
	points := make([]Point, 0, len(encoded)/4)
	var lat, lng int64

	for i := 0; i < len(encoded); {
		dLat, next, err := readValue(encoded, i)
		if err != nil {
			return nil, err
		}
		dLng, next, err := readValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lng += dLng
		points = append(points, Point{
			Lat: float64(lat) / scale,
			Lng: float64(lng) / scale,
		})
	}

	return points, nil
}

// readValue reads one zig-zag encoded value starting at index and returns the
// value together with the index of the next unread byte.
func readValue(encoded string, index int) (int64, int, error) {
	var result uint64
	var shift uint

	for {
		if index >= len(encoded) {
			return 0, index, ErrMalformed
		}
		b := int(encoded[index]) - asciiShift
		index++
		if b < 0 || b > 0x3f || shift > 60 {
			return 0, index, ErrMalformed
		}

		result |= uint64(b&chunkMask) << shift
		shift += chunkBits
		if b < continues {
			break
		}
	}

	if result&1 != 0 {
		return int64(^(result >> 1)), index, nil
	}
	return int64(result >> 1), index, nil
}

// Concat joins several encoded polylines into one, dropping a point that
// repeats the previous segment's last point.
func Concat(encoded ...string) (string, error) {
	var all []Point
	for _, e := range encoded {
		pts, err := Decode(e)
		if err != nil {
			return "", err
		}
		for _, p := range pts {
			if n := len(all); n > 0 && all[n-1] == p {
				continue
			}
			all = append(all, p)
		}
	}
	return Encode(all), nil
}

const earthRadiusMeters = 6371000

// Length returns the length of the path in meters using the haversine formula.
func Length(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

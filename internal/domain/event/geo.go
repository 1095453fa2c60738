package event

import (
	"math"
	"strconv"
	"strings"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm is the haversine great-circle distance, rounded to 2 decimals.
func DistanceKm(a Point, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return Round2(earthRadiusKm * c)
}

// DistrictLabel maps a 5-digit postcode inside department to its arrondissement
// label ("1er", "2e" .. "20e"). Anything else yields "".
func DistrictLabel(postcode string, department string) string {
	postcode = strings.TrimSpace(postcode)
	if len(postcode) != 5 || department == "" || !strings.HasPrefix(postcode, department) {
		return ""
	}
	if _, err := strconv.Atoi(postcode); err != nil {
		return ""
	}
	n, err := strconv.Atoi(postcode[3:])
	if err != nil || n < 1 || n > 20 {
		return ""
	}
	if n == 1 {
		return "1er"
	}
	return strconv.Itoa(n) + "e"
}

// Coordinates reads a location value either as [lat, lon] or as a GeoJSON Point
// ({"type": "Point", "coordinates": [lon, lat]}).
func Coordinates(v any) (Point, bool) {
	switch loc := v.(type) {
	case []any:
		return pairFrom(loc, false)
	case []float64:
		if len(loc) != 2 {
			return Point{}, false
		}
		return Point{Lat: loc[0], Lon: loc[1]}, true
	case map[string]any:
		return geoJSONPoint(Payload(loc))
	case Payload:
		return geoJSONPoint(loc)
	default:
		return Point{}, false
	}
}

func geoJSONPoint(p Payload) (Point, bool) {
	if t := strings.ToLower(p.TextOr("type")); t != "" && t != "point" {
		return Point{}, false
	}
	coords, ok := p.Value("coordinates")
	if !ok {
		return Point{}, false
	}
	list, ok := coords.([]any)
	if !ok {
		return Point{}, false
	}
	return pairFrom(list, true)
}

func pairFrom(list []any, lonFirst bool) (Point, bool) {
	if len(list) != 2 {
		return Point{}, false
	}
	first, ok1 := Number(list[0])
	second, ok2 := Number(list[1])
	if !ok1 || !ok2 {
		return Point{}, false
	}
	p := Point{Lat: first, Lon: second}
	if lonFirst {
		p = Point{Lat: second, Lon: first}
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return Point{}, false
	}
	return p, true
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

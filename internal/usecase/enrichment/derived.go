package enrichment

import (
	"math"
	"strings"

	"cultura/internal/domain/event"
)

// IsFree reports whether the price type or detail mentions a free entry.
func IsFree(priceType string, priceDetail string) bool {
	for _, text := range []string{priceType, priceDetail} {
		lowered := strings.ToLower(text)
		if strings.Contains(lowered, "gratuit") || strings.Contains(lowered, "free") {
			return true
		}
	}
	return false
}

// AccessibilityScore weighs free entry, known location, proximity to the
// reference point and weekend dates. The result is capped at 1 and rounded to 2 decimals.
func AccessibilityScore(isFree bool, geo event.GeoData, weekend bool) float64 {
	score := 0.0
	if isFree {
		score += 0.3
	}
	if geo.Geocoded {
		score += 0.3
	}
	if geo.DistanceCenter != nil {
		switch d := *geo.DistanceCenter; {
		case d < 2:
			score += 0.2
		case d < 5:
			score += 0.1
		}
	}
	if weekend {
		score += 0.2
	}
	return event.Round2(math.Min(score, 1))
}

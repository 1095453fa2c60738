package event

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

const (
	QualityFromSource = "from_source"
	QualityGeocoded   = "geocoded"
	QualityUnknown    = "unknown"
)

// Outcome is the single enrichment result stored per raw record. It is written once.
type Outcome struct {
	RawID      string        `json:"raw_id"`
	Status     Status        `json:"status"`
	EnrichedAt time.Time     `json:"enriched_at"`
	Data       EnrichedData  `json:"data"`
	Error      *OutcomeError `json:"error,omitempty"`
}

type OutcomeError struct {
	Message string `json:"message"`
}

// EnrichedData flattens the three enricher sections and the pipeline-derived flags
// into one document. Section fields never share a JSON key.
type EnrichedData struct {
	GeoData
	CategoryData
	Breakdown

	IsFree             bool     `json:"is_free"`
	AccessibilityScore float64  `json:"accessibility_score"`
	Notes              []string `json:"notes,omitempty"`
}

type GeoData struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Geocoded       bool     `json:"geocoded"`
	AddressQuality string   `json:"address_quality"`
	Arrondissement string   `json:"arrondissement,omitempty"`
	Postcode       string   `json:"postcode,omitempty"`
	City           string   `json:"city,omitempty"`
	DistanceCenter *float64 `json:"distance_center"`
}

func (g GeoData) Point() (Point, bool) {
	if g.Latitude == nil || g.Longitude == nil {
		return Point{}, false
	}
	return Point{Lat: *g.Latitude, Lon: *g.Longitude}, true
}

type CategoryData struct {
	MainCategory string   `json:"main_category"`
	SubCategory  string   `json:"sub_category,omitempty"`
	Keywords     []string `json:"keywords"`
	Confidence   float64  `json:"confidence"`
}

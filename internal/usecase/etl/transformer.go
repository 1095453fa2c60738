package etl

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cultura/internal/domain/event"
	"cultura/internal/errs"
)

// Column limits of the events table.
const (
	maxTitle        = 500
	maxStreet       = 255
	maxAddressName  = 255
	maxZipcode      = 10
	maxPriceType    = 50
	maxPriceDetail  = 255
	maxContactURL   = 500
	maxContactPhone = 50
	maxContactEmail = 255
)

const unknownSource = "unknown"

// TransformStats reports the transformer counters. SuccessRate is a percentage.
type TransformStats struct {
	Processed   int     `json:"processed"`
	Errors      int     `json:"errors"`
	SuccessRate float64 `json:"success_rate"`
}

// Transformer maps a raw record and its outcome into an event.Row. It never
// touches storage; the counters live as long as the instance.
type Transformer struct {
	defaultCity     string
	defaultCategory string

	processed int
	errors    int
}

func NewTransformer(defaultCity string, defaultCategory string) *Transformer {
	if strings.TrimSpace(defaultCity) == "" {
		defaultCity = "Paris"
	}
	if strings.TrimSpace(defaultCategory) == "" {
		defaultCategory = "Autre"
	}
	return &Transformer{defaultCity: defaultCity, defaultCategory: defaultCategory}
}

// Transform returns the row for raw. Any extraction error is counted and
// returned; the caller skips the record.
func (t *Transformer) Transform(raw event.RawRecord, outcome event.Outcome) (row event.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Recovered(r)
		}
		if err != nil {
			t.errors++
			return
		}
		t.processed++
	}()

	if strings.TrimSpace(raw.ID) == "" {
		return event.Row{}, fmt.Errorf("%w: raw id is required", event.ErrInvalidRecord)
	}
	if outcome.RawID != "" && outcome.RawID != raw.ID {
		return event.Row{}, fmt.Errorf("outcome %s does not belong to raw record %s", outcome.RawID, raw.ID)
	}
	return t.build(raw, outcome.Data)
}

func (t *Transformer) build(raw event.RawRecord, data event.EnrichedData) (event.Row, error) {
	payload := raw.Payload
	address := payload.Object("address")
	price := payload.Object("price")
	contact := payload.Object("contact")

	f := fieldReader{}
	row := event.Row{
		RawID:  raw.ID,
		Source: firstNonEmpty(strings.TrimSpace(raw.Source), unknownSource),

		Title:       f.clean(payload, "title", maxTitle),
		Description: f.clean(payload, "description", 0),

		AddressStreet:  f.clean(address, "street", maxStreet),
		AddressName:    f.clean(address, "name", maxAddressName),
		Arrondissement: data.Arrondissement,

		Latitude:       data.Latitude,
		Longitude:      data.Longitude,
		DistanceCenter: data.DistanceCenter,
		Geocoded:       data.Geocoded,

		PriceType:   f.clean(price, "type", maxPriceType),
		PriceDetail: f.clean(price, "detail", maxPriceDetail),
		IsFree:      data.IsFree,

		ContactURL:   f.clean(contact, "url", maxContactURL),
		ContactPhone: f.clean(contact, "phone", maxContactPhone),
		ContactEmail: f.clean(contact, "email", maxContactEmail),

		MainCategory:       firstNonEmpty(data.MainCategory, t.defaultCategory),
		SubCategory:        data.SubCategory,
		CategoryConfidence: data.Confidence,
	}
	score := data.AccessibilityScore
	row.AccessibilityScore = &score

	row.Zipcode = truncate(firstNonEmpty(
		strings.TrimSpace(data.Postcode),
		f.clean(address, "zipcode", 0),
	), maxZipcode)
	row.CityName = firstNonEmpty(
		strings.TrimSpace(data.City),
		f.clean(address, "city", 0),
		t.defaultCity,
	)

	if f.err != nil {
		return event.Row{}, f.err
	}

	row.Breakdown = recomputeDates(data.Breakdown, payload.Object("dates"))
	return row, nil
}

// recomputeDates derives the calendar fields from the first usable value among
// the enriched datetime, the enriched date and the raw start.
func recomputeDates(enriched event.Breakdown, dates event.Payload) event.Breakdown {
	start, _ := dates.Value("start")
	end, _ := dates.Value("end")

	for _, candidate := range []any{enriched.DateTime, enriched.Date, start} {
		if s, ok := candidate.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		b, err := event.BreakdownOf(candidate, end)
		if err == nil {
			return b
		}
	}
	return event.Breakdown{}
}

func (t *Transformer) Stats() TransformStats {
	stats := TransformStats{Processed: t.processed, Errors: t.errors}
	if total := t.processed + t.errors; total > 0 {
		stats.SuccessRate = event.Round2(float64(t.processed) / float64(total) * 100)
	}
	return stats
}

// fieldReader keeps the first extraction error so a row is built in one pass.
type fieldReader struct {
	err error
}

func (f *fieldReader) clean(p event.Payload, key string, limit int) string {
	s, err := p.Text(key)
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return ""
	}
	return cleanText(s, limit)
}

// cleanText trims s and cuts it to limit characters; limit <= 0 keeps it whole.
func cleanText(s string, limit int) string {
	return truncate(strings.TrimSpace(s), limit)
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

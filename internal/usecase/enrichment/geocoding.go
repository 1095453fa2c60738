package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const stageGeo = "geo"

// GeoOptions tunes the geocoding enricher. Zero fields take the Paris defaults.
type GeoOptions struct {
	DefaultCity string
	Department  string
	Reference   event.Point
	Reverse     bool
	MinDelay    time.Duration
	CacheTTL    time.Duration
}

func (o GeoOptions) withDefaults() GeoOptions {
	if strings.TrimSpace(o.DefaultCity) == "" {
		o.DefaultCity = "Paris"
	}
	if strings.TrimSpace(o.Department) == "" {
		o.Department = "75"
	}
	if o.Reference == (event.Point{}) {
		o.Reference = event.Point{Lat: 48.8534, Lon: 2.3488}
	}
	return o
}

type lookupAnswer struct {
	Place ports.Place `json:"place"`
	Found bool        `json:"found"`
}

// GeoEnricher resolves coordinates and postal data for a payload. Lookups go
// through an in-memory answer cache owned by the instance, then the optional
// persistent cache, then the provider behind a rate limiter.
type GeoEnricher struct {
	geocoder ports.Geocoder
	store    ports.Cache
	metrics  ports.Metrics
	limiter  *rate.Limiter
	opts     GeoOptions

	answers map[string]lookupAnswer
}

// NewGeoEnricher builds an enricher. geocoder may be nil to disable lookups;
// store may be nil to keep answers only in memory.
func NewGeoEnricher(geocoder ports.Geocoder, store ports.Cache, metrics ports.Metrics, opts GeoOptions) *GeoEnricher {
	opts = opts.withDefaults()
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	limit := rate.Inf
	if opts.MinDelay > 0 {
		limit = rate.Every(opts.MinDelay)
	}
	return &GeoEnricher{
		geocoder: geocoder,
		store:    store,
		metrics:  metrics,
		limiter:  rate.NewLimiter(limit, 1),
		opts:     opts,
		answers:  map[string]lookupAnswer{},
	}
}

func (e *GeoEnricher) Enrich(ctx context.Context, payload event.Payload) Result[event.GeoData] {
	ctx = logging.WithComponent(ctx, "enrichment.geo")
	data := event.GeoData{
		AddressQuality: event.QualityUnknown,
		City:           e.opts.DefaultCity,
	}

	var failure *Failure
	if location, ok := payload.Value("location"); ok {
		if point, valid := event.Coordinates(location); valid {
			setPoint(&data, point)
			data.Geocoded = true
			data.AddressQuality = event.QualityFromSource
			if e.opts.Reverse {
				place, found, err := e.lookup(ctx, "reverse", reverseKey(point), func(ctx context.Context) (ports.Place, bool, error) {
					return e.geocoder.Reverse(ctx, point)
				})
				switch {
				case err != nil:
					failure = &Failure{Stage: stageGeo, Reason: "reverse lookup failed", Err: err}
				case found:
					data.Postcode = place.Postcode
					if place.City != "" {
						data.City = place.City
					}
				}
			}
			return e.finish(data, failure)
		}
	}

	query := e.addressQuery(payload.Object("address"))
	if query == "" {
		return e.finish(data, &Failure{Stage: stageGeo, Reason: "no address to geocode"})
	}

	place, found, err := e.lookup(ctx, "search", query, func(ctx context.Context) (ports.Place, bool, error) {
		return e.geocoder.Search(ctx, query)
	})
	switch {
	case err != nil:
		failure = &Failure{Stage: stageGeo, Reason: "address lookup failed", Err: err}
	case !found:
		failure = &Failure{Stage: stageGeo, Reason: "address not found"}
	default:
		setPoint(&data, place.Point)
		data.Geocoded = true
		data.AddressQuality = event.QualityGeocoded
		data.Postcode = place.Postcode
		if place.City != "" {
			data.City = place.City
		}
	}
	return e.finish(data, failure)
}

func (e *GeoEnricher) finish(data event.GeoData, failure *Failure) Result[event.GeoData] {
	if point, ok := data.Point(); ok {
		distance := event.DistanceKm(point, e.opts.Reference)
		data.DistanceCenter = &distance
		data.Arrondissement = event.DistrictLabel(data.Postcode, e.opts.Department)
	}
	return Result[event.GeoData]{Data: data, Failure: failure}
}

// addressQuery composes "street zipcode city"; the name stands in for a missing street.
// An address without street, name or zipcode is not worth a lookup.
func (e *GeoEnricher) addressQuery(address event.Payload) string {
	street := strings.TrimSpace(address.TextOr("street"))
	if street == "" {
		street = strings.TrimSpace(address.TextOr("name"))
	}
	zipcode := strings.TrimSpace(address.TextOr("zipcode"))
	if street == "" && zipcode == "" {
		return ""
	}
	city := strings.TrimSpace(address.TextOr("city"))
	if city == "" {
		city = e.opts.DefaultCity
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{street, zipcode, city} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func (e *GeoEnricher) lookup(
	ctx context.Context,
	kind string,
	query string,
	call func(ctx context.Context) (ports.Place, bool, error),
) (ports.Place, bool, error) {
	key := kind + ":" + query
	if answer, ok := e.answers[key]; ok {
		e.metrics.GeocoderCall(kind, "memory")
		return answer.Place, answer.Found, nil
	}
	if answer, ok := e.fromStore(ctx, key); ok {
		e.answers[key] = answer
		e.metrics.GeocoderCall(kind, "cache")
		return answer.Place, answer.Found, nil
	}
	if e.geocoder == nil {
		return ports.Place{}, false, errors.New("geocoder is disabled")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return ports.Place{}, false, errs.Wrap(err, "wait for geocoder slot")
	}
	place, found, err := call(ctx)
	if err != nil {
		e.metrics.GeocoderCall(kind, "error")
		logging.Warn(ctx, "geocoder lookup failed",
			slog.String("kind", kind),
			slog.String("query", query),
			slog.Any("err", errs.Loggable(err)),
		)
		return ports.Place{}, false, err
	}

	result := "miss"
	if found {
		result = "hit"
	}
	e.metrics.GeocoderCall(kind, result)

	answer := lookupAnswer{Place: place, Found: found}
	e.answers[key] = answer
	e.toStore(ctx, key, answer)
	return place, found, nil
}

func (e *GeoEnricher) fromStore(ctx context.Context, key string) (lookupAnswer, bool) {
	if e.store == nil {
		return lookupAnswer{}, false
	}
	raw, found, err := e.store.Get(ctx, "geocode:"+key)
	if err != nil {
		logging.Warn(ctx, "geocode cache read failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
		return lookupAnswer{}, false
	}
	if !found {
		return lookupAnswer{}, false
	}
	var answer lookupAnswer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		logging.Warn(ctx, "geocode cache entry unreadable", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
		return lookupAnswer{}, false
	}
	return answer, true
}

func (e *GeoEnricher) toStore(ctx context.Context, key string, answer lookupAnswer) {
	if e.store == nil {
		return
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, "geocode:"+key, string(raw), e.opts.CacheTTL); err != nil {
		logging.Warn(ctx, "geocode cache write failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func setPoint(data *event.GeoData, p event.Point) {
	lat, lon := p.Lat, p.Lon
	data.Latitude = &lat
	data.Longitude = &lon
}

func reverseKey(p event.Point) string {
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(p.Lat, 'f', 6, 64),
		strconv.FormatFloat(p.Lon, 'f', 6, 64),
	)
}

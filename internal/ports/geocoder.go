package ports

import (
	"context"

	"cultura/internal/domain/event"
)

// Place is the best match returned by a geocoding provider.
type Place struct {
	Point    event.Point `json:"point"`
	Postcode string      `json:"postcode,omitempty"`
	City     string      `json:"city,omitempty"`
}

// Geocoder resolves addresses and coordinates. found is false when the provider
// answered but had no match; err is reserved for transport and decoding failures.
type Geocoder interface {
	Search(ctx context.Context, query string) (place Place, found bool, err error)
	Reverse(ctx context.Context, at event.Point) (place Place, found bool, err error)
}

package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const DefaultBaseURL = "https://api-adresse.data.gouv.fr"

// AdresseClient talks to the French national address API (BAN).
type AdresseClient struct {
	baseURL string
	http    *http.Client
}

var _ ports.Geocoder = (*AdresseClient)(nil)

func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

func NewAdresseClient(baseURL string, client *http.Client) *AdresseClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(5 * time.Second)
	}
	return &AdresseClient{baseURL: baseURL, http: client}
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Postcode string `json:"postcode"`
			City     string `json:"city"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *AdresseClient) Search(ctx context.Context, query string) (ports.Place, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")
	return c.fetch(ctx, "/search/", params)
}

func (c *AdresseClient) Reverse(ctx context.Context, at event.Point) (ports.Place, bool, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	return c.fetch(ctx, "/reverse/", params)
}

func (c *AdresseClient) fetch(ctx context.Context, path string, params url.Values) (ports.Place, bool, error) {
	if ctx == nil {
		return ports.Place{}, false, errors.New("context is required")
	}

	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.Place{}, false, errs.Wrap(err, "build geocoder request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.Place{}, false, errs.Wrapf(err, "call geocoder %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.Place{}, false, fmt.Errorf("geocoder %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ports.Place{}, false, errs.Wrapf(err, "decode geocoder %s response", path)
	}
	if len(body.Features) == 0 {
		return ports.Place{}, false, nil
	}

	feature := body.Features[0]
	place := ports.Place{
		Postcode: feature.Properties.Postcode,
		City:     feature.Properties.City,
	}
	// GeoJSON order is [lon, lat].
	if coords := feature.Geometry.Coordinates; len(coords) >= 2 {
		place.Point = event.Point{Lat: coords[1], Lon: coords[0]}
	} else if path == "/search/" {
		return ports.Place{}, false, nil
	}
	return place, true, nil
}

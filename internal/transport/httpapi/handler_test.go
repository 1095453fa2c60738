package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cultura/internal/ports"
	"cultura/internal/usecase/catalog"
)

type stubCatalog struct {
	items  []ports.EventView
	total  int64
	err    error
	filter ports.EventFilter
	offset int
	limit  int
	query  string
}

func (s *stubCatalog) ListEvents(_ context.Context, filter ports.EventFilter, offset int, limit int) ([]ports.EventView, int64, error) {
	s.filter, s.offset, s.limit = filter, offset, limit
	return s.items, s.total, s.err
}

func (s *stubCatalog) GetEvent(_ context.Context, id uint64) (ports.EventView, error) {
	if s.err != nil {
		return ports.EventView{}, s.err
	}
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return ports.EventView{}, ports.ErrEventNotFound
}

func (s *stubCatalog) SearchEvents(_ context.Context, query string, limit int) ([]ports.EventView, error) {
	s.query, s.limit = query, limit
	return s.items, s.err
}

func (s *stubCatalog) ListCategories(context.Context) ([]ports.CategoryView, error) {
	return []ports.CategoryView{{ID: 1, Name: "Musique", EventCount: 2}}, s.err
}

func (s *stubCatalog) ListCities(context.Context) ([]ports.CityView, error) {
	return []ports.CityView{{ID: 1, Name: "Paris", EventCount: 2}}, s.err
}

func (s *stubCatalog) Stats(context.Context) (ports.CatalogStats, error) {
	return ports.CatalogStats{TotalEvents: s.total, BySeason: []ports.Bucket{{Label: "Hiver", Count: s.total}}}, s.err
}

func strPtr(s string) *string { return &s }

func newTestHandler(stub *stubCatalog, ready func(context.Context) error) http.Handler {
	svc := catalog.NewService(stub, catalog.Options{DefaultPageSize: 20, MaxPageSize: 100})
	return NewHandler(context.Background(), Deps{
		Catalog: svc,
		Ready:   ready,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("cultura_records_loaded_total 1\n"))
		}),
	})
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	return resp
}

func TestListEventsParsesFilter(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{
		items: []ports.EventView{{ID: 7, Title: strPtr("Concert")}},
		total: 41,
	}
	h := newTestHandler(stub, nil)

	resp := serve(t, h, "/events?page=3&page_size=10&city=Paris&is_free=true&season=Hiver&date_from=2026-01-01&date_to=2026-03-31")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", resp.Code, resp.Body.String())
	}
	if stub.offset != 20 || stub.limit != 10 {
		t.Fatalf("offset/limit = %d/%d, want 20/10", stub.offset, stub.limit)
	}
	if stub.filter.City != "Paris" || stub.filter.Season != "Hiver" || stub.filter.IsFree == nil || !*stub.filter.IsFree {
		t.Fatalf("filter = %+v", stub.filter)
	}
	if stub.filter.IsWeekend != nil {
		t.Fatalf("is_weekend = %v, want nil", *stub.filter.IsWeekend)
	}
	if stub.filter.DateFrom != "2026-01-01" || stub.filter.DateTo != "2026-03-31" {
		t.Fatalf("date range = %q..%q", stub.filter.DateFrom, stub.filter.DateTo)
	}

	var body struct {
		Events     []ports.EventView `json:"events"`
		Total      int64             `json:"total"`
		Page       int               `json:"page"`
		PageSize   int               `json:"page_size"`
		TotalPages int               `json:"total_pages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body error = %v", err)
	}
	if body.Total != 41 || body.Page != 3 || body.PageSize != 10 || body.TotalPages != 5 || len(body.Events) != 1 {
		t.Fatalf("body = %+v", body)
	}
}

func TestListEventsRejectsBadInput(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&stubCatalog{}, nil)
	for _, target := range []string{
		"/events?page=0",
		"/events?page=abc",
		"/events?page_size=-1",
		"/events?page=9223372036854775807&page_size=100",
		"/events?is_free=maybe",
		"/events?date_from=13/01/2026",
		"/events?date_from=2026-02-01&date_to=2026-01-01",
	} {
		if resp := serve(t, h, target); resp.Code != http.StatusBadRequest {
			t.Fatalf("GET %s status = %d, want 400", target, resp.Code)
		}
	}
}

func TestGetEvent(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&stubCatalog{items: []ports.EventView{{ID: 3, Title: strPtr("Expo")}}}, nil)

	resp := serve(t, h, "/events/3")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"title":"Expo"`) {
		t.Fatalf("GET /events/3 = %d %s", resp.Code, resp.Body.String())
	}
	if resp := serve(t, h, "/events/4"); resp.Code != http.StatusNotFound {
		t.Fatalf("GET /events/4 status = %d, want 404", resp.Code)
	}
	if resp := serve(t, h, "/events/x"); resp.Code != http.StatusBadRequest {
		t.Fatalf("GET /events/x status = %d, want 400", resp.Code)
	}
}

func TestSearchValidatesQuery(t *testing.T) {
	t.Parallel()

	stub := &stubCatalog{items: []ports.EventView{{ID: 1}}}
	h := newTestHandler(stub, nil)

	if resp := serve(t, h, "/search?q=a"); resp.Code != http.StatusBadRequest {
		t.Fatalf("short query status = %d, want 400", resp.Code)
	}
	resp := serve(t, h, "/search?q=jazz&limit=500")
	if resp.Code != http.StatusOK {
		t.Fatalf("search status = %d; body=%s", resp.Code, resp.Body.String())
	}
	if stub.query != "jazz" || stub.limit != 100 {
		t.Fatalf("query/limit = %q/%d, want jazz/100", stub.query, stub.limit)
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	t.Parallel()

	ok := newTestHandler(&stubCatalog{}, func(context.Context) error { return nil })
	if resp := serve(t, ok, "/health"); !strings.Contains(resp.Body.String(), `"status":"healthy"`) {
		t.Fatalf("healthy body = %s", resp.Body.String())
	}

	down := newTestHandler(&stubCatalog{}, func(context.Context) error { return errors.New("closed") })
	resp := serve(t, down, "/health")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"status":"degraded"`) {
		t.Fatalf("degraded health = %d %s", resp.Code, resp.Body.String())
	}
}

func TestStorageErrorsAreHidden(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&stubCatalog{err: errors.New("disk I/O error")}, nil)
	for _, target := range []string{"/events", "/categories", "/cities", "/stats"} {
		resp := serve(t, h, target)
		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("GET %s status = %d, want 500", target, resp.Code)
		}
		if strings.Contains(resp.Body.String(), "disk") {
			t.Fatalf("GET %s leaked error: %s", target, resp.Body.String())
		}
	}
}

func TestDimensionsStatsAndMetrics(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&stubCatalog{total: 4}, nil)
	if resp := serve(t, h, "/categories"); !strings.Contains(resp.Body.String(), `"name":"Musique"`) {
		t.Fatalf("categories body = %s", resp.Body.String())
	}
	if resp := serve(t, h, "/cities"); !strings.Contains(resp.Body.String(), `"event_count":2`) {
		t.Fatalf("cities body = %s", resp.Body.String())
	}
	if resp := serve(t, h, "/stats"); !strings.Contains(resp.Body.String(), `"by_season":[{"label":"Hiver","count":4}]`) {
		t.Fatalf("stats body = %s", resp.Body.String())
	}
	if resp := serve(t, h, "/metrics"); !strings.Contains(resp.Body.String(), "cultura_records_loaded_total") {
		t.Fatalf("metrics body = %s", resp.Body.String())
	}
}

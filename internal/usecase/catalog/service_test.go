package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"cultura/internal/ports"
)

type fakeCatalog struct {
	total  int64
	items  []ports.EventView
	err    error
	offset int
	limit  int
	filter ports.EventFilter
	query  string
}

func (f *fakeCatalog) ListEvents(_ context.Context, filter ports.EventFilter, offset int, limit int) ([]ports.EventView, int64, error) {
	f.filter, f.offset, f.limit = filter, offset, limit
	return f.items, f.total, f.err
}

func (f *fakeCatalog) GetEvent(_ context.Context, id uint64) (ports.EventView, error) {
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return ports.EventView{}, ports.ErrEventNotFound
}

func (f *fakeCatalog) SearchEvents(_ context.Context, query string, limit int) ([]ports.EventView, error) {
	f.query, f.limit = query, limit
	return f.items, f.err
}

func (f *fakeCatalog) ListCategories(context.Context) ([]ports.CategoryView, error) {
	return []ports.CategoryView{{ID: 1, Name: "Musique", EventCount: 2}}, f.err
}

func (f *fakeCatalog) ListCities(context.Context) ([]ports.CityView, error) {
	return []ports.CityView{{ID: 1, Name: "Paris", EventCount: 2}}, f.err
}

func (f *fakeCatalog) Stats(context.Context) (ports.CatalogStats, error) {
	return ports.CatalogStats{TotalEvents: f.total}, f.err
}

func TestTotalPages(t *testing.T) {
	testCases := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{total: 0, pageSize: 20, want: 0},
		{total: 1, pageSize: 20, want: 1},
		{total: 20, pageSize: 20, want: 1},
		{total: 21, pageSize: 20, want: 2},
		{total: 45, pageSize: 10, want: 5},
	}
	for _, testCase := range testCases {
		if got := TotalPages(testCase.total, testCase.pageSize); got != testCase.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", testCase.total, testCase.pageSize, got, testCase.want)
		}
	}
}

func TestListEventsPaginates(t *testing.T) {
	fake := &fakeCatalog{total: 45}
	svc := NewService(fake, Options{})
	ctx := context.Background()

	page, err := svc.ListEvents(ctx, ports.EventFilter{City: "  Paris "}, 3, 0)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if fake.offset != 40 || fake.limit != DefaultPageSize {
		t.Fatalf("catalog called with offset=%d limit=%d", fake.offset, fake.limit)
	}
	if fake.filter.City != "Paris" {
		t.Fatalf("filter city = %q, want trimmed", fake.filter.City)
	}
	if page.TotalPages != 3 || page.Page != 3 || page.PageSize != DefaultPageSize {
		t.Fatalf("ListEvents() page = %+v", page)
	}
	if page.Items == nil {
		t.Fatalf("ListEvents() items = nil, want empty slice")
	}

	page, err = svc.ListEvents(ctx, ports.EventFilter{}, 1, 500)
	if err != nil {
		t.Fatalf("ListEvents(page_size 500) error = %v", err)
	}
	if page.PageSize != MaxPageSize || fake.limit != MaxPageSize {
		t.Fatalf("page size = %d, want %d", page.PageSize, MaxPageSize)
	}

	if _, err := svc.ListEvents(ctx, ports.EventFilter{}, 0, 10); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("ListEvents(page 0) error = %v, want ErrInvalidQuery", err)
	}
}

func TestListEventsRejectsOffsetOverflow(t *testing.T) {
	fake := &fakeCatalog{offset: -1}
	svc := NewService(fake, Options{})
	ctx := context.Background()

	if _, err := svc.ListEvents(ctx, ports.EventFilter{}, math.MaxInt, 10); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("ListEvents(max page) error = %v, want ErrInvalidQuery", err)
	}
	if fake.offset != -1 {
		t.Fatalf("catalog called with offset=%d", fake.offset)
	}

	last := math.MaxInt/10 + 1
	if _, err := svc.ListEvents(ctx, ports.EventFilter{}, last, 10); err != nil {
		t.Fatalf("ListEvents(last page) error = %v", err)
	}
	if fake.offset != (last-1)*10 || fake.offset < 0 {
		t.Fatalf("catalog called with offset=%d", fake.offset)
	}
}

func TestSearchValidatesQuery(t *testing.T) {
	fake := &fakeCatalog{}
	svc := NewService(fake, Options{DefaultPageSize: 10, MaxPageSize: 50})
	ctx := context.Background()

	if _, err := svc.Search(ctx, " a ", 10); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("Search(short) error = %v, want ErrInvalidQuery", err)
	}

	items, err := svc.Search(ctx, " jazz ", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if items == nil || fake.query != "jazz" || fake.limit != DefaultSearchLimit {
		t.Fatalf("Search() forwarded query=%q limit=%d", fake.query, fake.limit)
	}

	if _, err := svc.Search(ctx, "jazz", 80); err != nil || fake.limit != 50 {
		t.Fatalf("Search(limit 80) limit = %d, err = %v", fake.limit, err)
	}
}

func TestServicePropagatesErrors(t *testing.T) {
	fake := &fakeCatalog{err: errors.New("database is locked")}
	svc := NewService(fake, Options{})
	ctx := context.Background()

	if _, err := svc.ListEvents(ctx, ports.EventFilter{}, 1, 10); err == nil {
		t.Fatalf("ListEvents() expected error")
	}
	if _, err := svc.Stats(ctx); err == nil {
		t.Fatalf("Stats() expected error")
	}
	if _, err := svc.GetEvent(ctx, 9); !errors.Is(err, ports.ErrEventNotFound) {
		t.Fatalf("GetEvent() error = %v, want ErrEventNotFound", err)
	}
}

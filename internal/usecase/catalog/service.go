package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"cultura/internal/errs"
	"cultura/internal/ports"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	MinQueryLength     = 2
	DefaultSearchLimit = 20
)

var ErrInvalidQuery = errors.New("invalid catalog query")

// Page is one page of events. Page numbers start at 1.
type Page struct {
	Items      []ports.EventView `json:"events"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service answers read queries over the loaded events.
type Service struct {
	catalog         ports.Catalog
	defaultPageSize int
	maxPageSize     int
}

func NewService(catalog ports.Catalog, opts Options) *Service {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return &Service{
		catalog:         catalog,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	}
}

// ListEvents returns page of the events matching filter. A page below 1 is
// rejected, as is a page whose offset overflows int; pageSize 0 means the
// default and larger sizes are capped.
func (s *Service) ListEvents(ctx context.Context, filter ports.EventFilter, page int, pageSize int) (Page, error) {
	if ctx == nil {
		return Page{}, errors.New("context is required")
	}
	if page < 1 {
		return Page{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if pageSize < 0 {
		return Page{}, fmt.Errorf("%w: page_size must be >= 1", ErrInvalidQuery)
	}
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	if page-1 > math.MaxInt/pageSize {
		return Page{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidQuery, page)
	}

	items, total, err := s.catalog.ListEvents(ctx, normalizeFilter(filter), (page-1)*pageSize, pageSize)
	if err != nil {
		return Page{}, errs.Wrap(err, "list events")
	}
	if items == nil {
		items = []ports.EventView{}
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}, nil
}

func (s *Service) GetEvent(ctx context.Context, id uint64) (ports.EventView, error) {
	if ctx == nil {
		return ports.EventView{}, errors.New("context is required")
	}
	return s.catalog.GetEvent(ctx, id)
}

// Search matches query words against titles and descriptions.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]ports.EventView, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, fmt.Errorf("%w: q needs at least %d characters", ErrInvalidQuery, MinQueryLength)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 1", ErrInvalidQuery)
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}

	items, err := s.catalog.SearchEvents(ctx, query, limit)
	if err != nil {
		return nil, errs.Wrap(err, "search events")
	}
	if items == nil {
		items = []ports.EventView{}
	}
	return items, nil
}

func (s *Service) Categories(ctx context.Context) ([]ports.CategoryView, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	items, err := s.catalog.ListCategories(ctx)
	return items, errs.Wrap(err, "list categories")
}

func (s *Service) Cities(ctx context.Context) ([]ports.CityView, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	items, err := s.catalog.ListCities(ctx)
	return items, errs.Wrap(err, "list cities")
}

func (s *Service) Stats(ctx context.Context) (ports.CatalogStats, error) {
	if ctx == nil {
		return ports.CatalogStats{}, errors.New("context is required")
	}
	stats, err := s.catalog.Stats(ctx)
	return stats, errs.Wrap(err, "catalog stats")
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

func normalizeFilter(filter ports.EventFilter) ports.EventFilter {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.City = strings.TrimSpace(filter.City)
	filter.Arrondissement = strings.TrimSpace(filter.Arrondissement)
	filter.Season = strings.TrimSpace(filter.Season)
	filter.DateFrom = strings.TrimSpace(filter.DateFrom)
	filter.DateTo = strings.TrimSpace(filter.DateTo)
	return filter
}

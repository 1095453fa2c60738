package ports

import (
	"context"
	"errors"
)

var ErrEventNotFound = errors.New("event not found")

// EventFilter narrows catalog listings. Empty strings and nil flags mean "any".
type EventFilter struct {
	Category       string
	City           string
	Arrondissement string
	Season         string
	IsFree         *bool
	IsWeekend      *bool
	DateFrom       string
	DateTo         string
}

// EventView is an event row joined with its city and primary category.
type EventView struct {
	ID             uint64   `json:"id"`
	RawID          string   `json:"raw_id"`
	Source         string   `json:"source"`
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	CityName       *string  `json:"city_name"`
	CategoryName   *string  `json:"category_name"`
	ParentCategory *string  `json:"parent_category"`
	AddressStreet  *string  `json:"address_street"`
	AddressName    *string  `json:"address_name"`
	Zipcode        *string  `json:"zipcode"`
	Arrondissement *string  `json:"arrondissement"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	DistanceCenter *float64 `json:"distance_center"`
	EventDate      *string  `json:"event_date"`
	EventDatetime  *string  `json:"event_datetime"`
	Year           *int     `json:"year"`
	Month          *int     `json:"month"`
	Day            *int     `json:"day"`
	DayOfWeek      *int     `json:"day_of_week"`
	DayOfWeekName  *string  `json:"day_of_week_name"`
	MonthName      *string  `json:"month_name"`
	Season         *string  `json:"season"`
	TimePeriod     *string  `json:"time_period"`
	IsWeekend      bool     `json:"is_weekend"`
	IsMultiDay     bool     `json:"is_multi_day"`
	DurationDays   *int     `json:"duration_days"`
	IsFree         bool     `json:"is_free"`
	PriceType      *string  `json:"price_type"`
	PriceDetail    *string  `json:"price_detail"`
	Accessibility  *float64 `json:"accessibility_score"`
	ContactURL     *string  `json:"contact_url"`
	ContactPhone   *string  `json:"contact_phone"`
	ContactEmail   *string  `json:"contact_email"`
}

type CategoryView struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	ParentCategory *string `json:"parent_category"`
	EventCount     int64   `json:"event_count"`
}

type CityView struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	EventCount int64  `json:"event_count"`
}

type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type CatalogStats struct {
	TotalEvents      int64    `json:"total_events"`
	TotalCategories  int64    `json:"total_categories"`
	TotalCities      int64    `json:"total_cities"`
	FreeEvents       int64    `json:"free_events"`
	WeekendEvents    int64    `json:"weekend_events"`
	ByCategory       []Bucket `json:"by_category"`
	ByArrondissement []Bucket `json:"by_arrondissement"`
	BySeason         []Bucket `json:"by_season"`
}

// Catalog is the read side of the relational store.
type Catalog interface {
	ListEvents(ctx context.Context, filter EventFilter, offset int, limit int) ([]EventView, int64, error)
	GetEvent(ctx context.Context, id uint64) (EventView, error)
	SearchEvents(ctx context.Context, query string, limit int) ([]EventView, error)
	ListCategories(ctx context.Context) ([]CategoryView, error)
	ListCities(ctx context.Context) ([]CityView, error)
	Stats(ctx context.Context) (CatalogStats, error)
}

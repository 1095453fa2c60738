package ports

import (
	"context"
	"errors"

	"cultura/internal/domain/event"
)

var ErrDimensionNotFound = errors.New("dimension row not found")

// Warehouse is the relational store written by the loader. Every method honours a
// transaction carried in ctx (see WithTxContext).
type Warehouse interface {
	FindCityID(ctx context.Context, name string) (uint64, error)
	// CreateCity inserts name unless it already exists; the existing row is not touched.
	CreateCity(ctx context.Context, name string) error
	FindCategoryID(ctx context.Context, name string) (uint64, error)
	CreateCategory(ctx context.Context, name string, parent string) error

	// InsertEvent inserts row for cityID. inserted is false when raw_id is already loaded.
	InsertEvent(ctx context.Context, row event.Row, cityID uint64) (id uint64, inserted bool, err error)
	LinkCategory(ctx context.Context, link CategoryLink) error
	IncrementCityCount(ctx context.Context, cityID uint64) error
	IncrementCategoryCount(ctx context.Context, categoryID uint64) error
}

type CategoryLink struct {
	EventID    uint64
	CategoryID uint64
	IsPrimary  bool
	Confidence float64
}

package etl

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const dimensionSavepoint = "dimension"

type dimensionKind string

const (
	dimensionCity     dimensionKind = "city"
	dimensionCategory dimensionKind = "category"
)

type dimensionKey struct {
	kind dimensionKind
	name string
}

// Run is one load run. It owns the dimension id caches, so a Run must not be
// shared between goroutines or reused across runs.
type Run struct {
	warehouse ports.Warehouse
	tx        ports.TxControl

	defaultCity     string
	defaultCategory string

	ids     map[dimensionKey]uint64
	journal []dimensionKey
}

// NewRun starts a run against warehouse. tx is the transaction the run writes
// in; with a nil tx, dimension retries happen without a savepoint.
func NewRun(warehouse ports.Warehouse, tx ports.TxControl, defaultCity string, defaultCategory string) *Run {
	return &Run{
		warehouse:       warehouse,
		tx:              tx,
		defaultCity:     firstNonEmpty(strings.TrimSpace(defaultCity), "Paris"),
		defaultCategory: firstNonEmpty(strings.TrimSpace(defaultCategory), "Autre"),
		ids:             map[dimensionKey]uint64{},
	}
}

func (r *Run) GetOrCreateCity(ctx context.Context, name string) (uint64, error) {
	return r.getOrCreate(ctx, dimensionCity, name, "")
}

// GetOrCreateCategory resolves name. parent is only written when the category
// is created.
func (r *Run) GetOrCreateCategory(ctx context.Context, name string, parent string) (uint64, error) {
	return r.getOrCreate(ctx, dimensionCategory, name, parent)
}

func (r *Run) getOrCreate(ctx context.Context, kind dimensionKind, name string, parent string) (uint64, error) {
	fallback := r.defaultCity
	if kind == dimensionCategory {
		fallback = r.defaultCategory
	}
	name = firstNonEmpty(strings.TrimSpace(name), fallback)

	id, err := r.resolve(ctx, kind, name, parent)
	if err == nil || name == fallback {
		return id, err
	}

	logging.Warn(ctx, "dimension resolution failed, retrying with default",
		slog.String("kind", string(kind)),
		slog.String("name", name),
		slog.String("default", fallback),
		slog.Any("err", errs.Loggable(err)),
	)
	return r.resolve(ctx, kind, fallback, "")
}

func (r *Run) resolve(ctx context.Context, kind dimensionKind, name string, parent string) (uint64, error) {
	key := dimensionKey{kind: kind, name: name}
	if id, ok := r.ids[key]; ok {
		return id, nil
	}

	if r.tx != nil {
		if err := r.tx.Savepoint(dimensionSavepoint); err != nil {
			return 0, err
		}
	}
	id, err := r.findOrInsert(ctx, kind, name, parent)
	if err != nil {
		if r.tx != nil {
			if rbErr := r.tx.RollbackTo(dimensionSavepoint); rbErr != nil {
				return 0, errors.Join(err, rbErr)
			}
			if relErr := r.tx.Release(dimensionSavepoint); relErr != nil {
				return 0, errors.Join(err, relErr)
			}
		}
		return 0, err
	}
	if r.tx != nil {
		if err := r.tx.Release(dimensionSavepoint); err != nil {
			return 0, err
		}
	}

	r.ids[key] = id
	r.journal = append(r.journal, key)
	return id, nil
}

func (r *Run) findOrInsert(ctx context.Context, kind dimensionKind, name string, parent string) (uint64, error) {
	find := r.warehouse.FindCityID
	create := func(ctx context.Context) error { return r.warehouse.CreateCity(ctx, name) }
	if kind == dimensionCategory {
		find = r.warehouse.FindCategoryID
		create = func(ctx context.Context) error { return r.warehouse.CreateCategory(ctx, name, parent) }
	}

	id, err := find(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ports.ErrDimensionNotFound) {
		return 0, err
	}
	if err := create(ctx); err != nil {
		return 0, err
	}
	// Insert-or-ignore then re-read, so a concurrent creator's row wins.
	return find(ctx, name)
}

// InsertEvent writes row with its city and category links. inserted is false
// when the raw id was already loaded; nothing else is written then.
func (r *Run) InsertEvent(ctx context.Context, row event.Row) (id uint64, inserted bool, err error) {
	if ctx == nil {
		return 0, false, errors.New("context is required")
	}
	if strings.TrimSpace(row.RawID) == "" {
		return 0, false, errors.New("raw id is required")
	}

	cityID, err := r.GetOrCreateCity(ctx, row.CityName)
	if err != nil {
		return 0, false, errs.Wrap(err, "resolve city")
	}

	id, inserted, err = r.warehouse.InsertEvent(ctx, row, cityID)
	if err != nil || !inserted {
		return 0, false, err
	}

	mainName := firstNonEmpty(strings.TrimSpace(row.MainCategory), r.defaultCategory)
	mainID, err := r.GetOrCreateCategory(ctx, mainName, "")
	if err != nil {
		return 0, false, errs.Wrap(err, "resolve main category")
	}
	if err := r.link(ctx, id, mainID, true, row.CategoryConfidence); err != nil {
		return 0, false, err
	}

	if sub := strings.TrimSpace(row.SubCategory); sub != "" {
		subID, err := r.GetOrCreateCategory(ctx, sub, mainName)
		if err != nil {
			return 0, false, errs.Wrap(err, "resolve sub category")
		}
		if subID != mainID {
			if err := r.link(ctx, id, subID, false, row.CategoryConfidence); err != nil {
				return 0, false, err
			}
		}
	}

	if err := r.warehouse.IncrementCityCount(ctx, cityID); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *Run) link(ctx context.Context, eventID uint64, categoryID uint64, primary bool, confidence float64) error {
	if err := r.warehouse.LinkCategory(ctx, ports.CategoryLink{
		EventID:    eventID,
		CategoryID: categoryID,
		IsPrimary:  primary,
		Confidence: confidence,
	}); err != nil {
		return err
	}
	return r.warehouse.IncrementCategoryCount(ctx, categoryID)
}

// mark returns the journal position to roll the cache back to.
func (r *Run) mark() int {
	return len(r.journal)
}

// forget evicts every id cached since mark; their rows were rolled back.
func (r *Run) forget(mark int) {
	if mark < 0 || mark >= len(r.journal) {
		return
	}
	for _, key := range r.journal[mark:] {
		delete(r.ids, key)
	}
	r.journal = r.journal[:mark]
}

// settle drops the journal once the cached ids are committed.
func (r *Run) settle() {
	r.journal = r.journal[:0]
}

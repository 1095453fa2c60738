package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cultura/internal/errs"
	"cultura/internal/infrastructure/persistence/sqlite/model"
	"cultura/internal/ports"
)

const eventViewColumns = `e.id, e.raw_id, e.source, e.title, e.description,
	ci.name AS city_name, c.name AS category_name, c.parent_category,
	e.address_street, e.address_name, e.zipcode, e.arrondissement,
	e.latitude, e.longitude, e.distance_center,
	e.event_date, e.event_datetime, e.year, e.month, e.day,
	e.day_of_week, e.day_of_week_name, e.month_name, e.season, e.time_period,
	e.is_weekend, e.is_multi_day, e.duration_days,
	e.is_free, e.price_type, e.price_detail, e.accessibility_score AS accessibility,
	e.contact_url, e.contact_phone, e.contact_email`

type CatalogRepository struct {
	db *gorm.DB
}

var _ ports.Catalog = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// baseQuery joins each event with its city and primary category.
func (r *CatalogRepository) baseQuery(db *gorm.DB) *gorm.DB {
	return db.Table("events AS e").
		Joins("LEFT JOIN cities ci ON ci.id = e.city_id").
		Joins("LEFT JOIN event_categories ec ON ec.event_id = e.id AND ec.is_primary = ?", true).
		Joins("LEFT JOIN categories c ON c.id = ec.category_id")
}

func (r *CatalogRepository) ListEvents(ctx context.Context, filter ports.EventFilter, offset int, limit int) ([]ports.EventView, int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}

	query := applyEventFilter(r.baseQuery(db), filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Wrap(err, "count events")
	}

	var items []ports.EventView
	if err := query.
		Select(eventViewColumns).
		Order("COALESCE(e.event_date, e.event_datetime), e.id").
		Offset(offset).
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, 0, errs.Wrap(err, "query events")
	}
	return items, total, nil
}

func applyEventFilter(query *gorm.DB, filter ports.EventFilter) *gorm.DB {
	if filter.Category != "" {
		query = query.Where("c.name = ?", filter.Category)
	}
	if filter.City != "" {
		query = query.Where("ci.name = ?", filter.City)
	}
	if filter.Arrondissement != "" {
		query = query.Where("e.arrondissement = ?", filter.Arrondissement)
	}
	if filter.IsFree != nil {
		query = query.Where("e.is_free = ?", *filter.IsFree)
	}
	if filter.IsWeekend != nil {
		query = query.Where("e.is_weekend = ?", *filter.IsWeekend)
	}
	if filter.Season != "" {
		query = query.Where("e.season = ?", filter.Season)
	}
	if filter.DateFrom != "" {
		query = query.Where("e.event_date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		query = query.Where("e.event_date <= ?", filter.DateTo)
	}
	return query
}

func (r *CatalogRepository) GetEvent(ctx context.Context, id uint64) (ports.EventView, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.EventView{}, err
	}

	var items []ports.EventView
	if err := r.baseQuery(db).
		Select(eventViewColumns).
		Where("e.id = ?", id).
		Limit(1).
		Scan(&items).Error; err != nil {
		return ports.EventView{}, errs.Wrapf(err, "query event %d", id)
	}
	if len(items) == 0 {
		return ports.EventView{}, ports.ErrEventNotFound
	}
	return items[0], nil
}

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchEvents matches the words of q against title and description; title hits rank first.
func (r *CatalogRepository) SearchEvents(ctx context.Context, q string, limit int) ([]ports.EventView, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(q))
	if len(terms) == 0 {
		return []ports.EventView{}, nil
	}

	query := r.baseQuery(db)
	escaped := make([]string, len(terms))
	for i, term := range terms {
		escaped[i] = likeEscaper.Replace(term)
		pattern := "%" + escaped[i] + "%"
		query = query.Where(`(LOWER(e.title) LIKE ? ESCAPE '\' OR LOWER(e.description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	titlePattern := "%" + strings.Join(escaped, "%") + "%"
	var items []ports.EventView
	if err := query.
		Select(eventViewColumns).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                `CASE WHEN LOWER(e.title) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, COALESCE(e.event_date, e.event_datetime), e.id`,
			Vars:               []any{titlePattern},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Scan(&items).Error; err != nil {
		return nil, errs.Wrap(err, "search events")
	}
	return items, nil
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]ports.CategoryView, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Category
	if err := db.Order("event_count DESC, name").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query categories")
	}
	items := make([]ports.CategoryView, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.CategoryView{
			ID:             row.ID,
			Name:           row.Name,
			ParentCategory: row.ParentCategory,
			EventCount:     row.EventCount,
		})
	}
	return items, nil
}

func (r *CatalogRepository) ListCities(ctx context.Context) ([]ports.CityView, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.City
	if err := db.Order("event_count DESC, name").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query cities")
	}
	items := make([]ports.CityView, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.CityView{ID: row.ID, Name: row.Name, EventCount: row.EventCount})
	}
	return items, nil
}

func (r *CatalogRepository) Stats(ctx context.Context) (ports.CatalogStats, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.CatalogStats{}, err
	}

	var stats ports.CatalogStats
	counts := []struct {
		target *int64
		query  *gorm.DB
		label  string
	}{
		{&stats.TotalEvents, db.Model(&model.Event{}), "events"},
		{&stats.TotalCategories, db.Model(&model.Category{}), "categories"},
		{&stats.TotalCities, db.Model(&model.City{}), "cities"},
		{&stats.FreeEvents, db.Model(&model.Event{}).Where("is_free = ?", true), "free events"},
		{&stats.WeekendEvents, db.Model(&model.Event{}).Where("is_weekend = ?", true), "weekend events"},
	}
	for _, c := range counts {
		if err := c.query.Count(c.target).Error; err != nil {
			return ports.CatalogStats{}, errs.Wrapf(err, "count %s", c.label)
		}
	}

	if err := db.Table("categories AS c").
		Select("c.name AS label, COUNT(ec.event_id) AS count").
		Joins("JOIN event_categories ec ON ec.category_id = c.id AND ec.is_primary = ?", true).
		Group("c.name").
		Order("count DESC, c.name").
		Limit(10).
		Scan(&stats.ByCategory).Error; err != nil {
		return ports.CatalogStats{}, errs.Wrap(err, "group events by category")
	}
	if stats.ByCategory == nil {
		stats.ByCategory = []ports.Bucket{}
	}
	if err := groupEvents(db, "arrondissement", &stats.ByArrondissement); err != nil {
		return ports.CatalogStats{}, err
	}
	if err := groupEvents(db, "season", &stats.BySeason); err != nil {
		return ports.CatalogStats{}, err
	}
	return stats, nil
}

func groupEvents(db *gorm.DB, column string, out *[]ports.Bucket) error {
	if err := db.Model(&model.Event{}).
		Select(column + " AS label, COUNT(*) AS count").
		Where(column + " IS NOT NULL").
		Group(column).
		Order("count DESC, " + column).
		Scan(out).Error; err != nil {
		return errs.Wrapf(err, "group events by %s", column)
	}
	if *out == nil {
		*out = []ports.Bucket{}
	}
	return nil
}

// Ready reports whether the underlying connection answers.
func (r *CatalogRepository) Ready(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}
	return errs.Wrap(sqlDB.PingContext(ctx), "ping database")
}

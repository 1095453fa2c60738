package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/infrastructure/persistence/sqlite/model"
	"cultura/internal/ports"
)

type WarehouseRepository struct {
	db *gorm.DB
}

var _ ports.Warehouse = (*WarehouseRepository)(nil)

func NewWarehouseRepository(db *gorm.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

func (r *WarehouseRepository) FindCityID(ctx context.Context, name string) (uint64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var row model.City
	if err := db.Select("id").Where("name = ?", name).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ports.ErrDimensionNotFound
		}
		return 0, errs.Wrapf(err, "query city %q", name)
	}
	return row.ID, nil
}

func (r *WarehouseRepository) CreateCity(ctx context.Context, name string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("city name is required")
	}

	row := model.City{Name: name}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return errs.Wrapf(err, "insert city %q", name)
	}
	return nil
}

func (r *WarehouseRepository) FindCategoryID(ctx context.Context, name string) (uint64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var row model.Category
	if err := db.Select("id").Where("name = ?", name).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ports.ErrDimensionNotFound
		}
		return 0, errs.Wrapf(err, "query category %q", name)
	}
	return row.ID, nil
}

func (r *WarehouseRepository) CreateCategory(ctx context.Context, name string, parent string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("category name is required")
	}

	row := model.Category{Name: name, ParentCategory: optionalString(parent)}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return errs.Wrapf(err, "insert category %q", name)
	}
	return nil
}

func (r *WarehouseRepository) InsertEvent(ctx context.Context, row event.Row, cityID uint64) (uint64, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, false, err
	}

	rec := eventModel(row, cityID)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "raw_id"}},
		DoNothing: true,
	}).Create(&rec)
	if result.Error != nil {
		return 0, false, errs.Wrapf(result.Error, "insert event raw_id=%s", row.RawID)
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return rec.ID, true, nil
}

func (r *WarehouseRepository) LinkCategory(ctx context.Context, link ports.CategoryLink) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := model.EventCategory{
		EventID:    link.EventID,
		CategoryID: link.CategoryID,
		IsPrimary:  link.IsPrimary,
		Confidence: link.Confidence,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return errs.Wrapf(err, "link event %d to category %d", link.EventID, link.CategoryID)
	}
	return nil
}

func (r *WarehouseRepository) IncrementCityCount(ctx context.Context, cityID uint64) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if err := db.Model(&model.City{}).
		Where("id = ?", cityID).
		UpdateColumn("event_count", gorm.Expr("event_count + ?", 1)).Error; err != nil {
		return errs.Wrapf(err, "increment city %d count", cityID)
	}
	return nil
}

func (r *WarehouseRepository) IncrementCategoryCount(ctx context.Context, categoryID uint64) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}
	if err := db.Model(&model.Category{}).
		Where("id = ?", categoryID).
		UpdateColumn("event_count", gorm.Expr("event_count + ?", 1)).Error; err != nil {
		return errs.Wrapf(err, "increment category %d count", categoryID)
	}
	return nil
}

func eventModel(row event.Row, cityID uint64) model.Event {
	return model.Event{
		RawID:       row.RawID,
		Source:      row.Source,
		Title:       optionalString(row.Title),
		Description: optionalString(row.Description),
		CityID:      cityID,

		AddressStreet:  optionalString(row.AddressStreet),
		AddressName:    optionalString(row.AddressName),
		Zipcode:        optionalString(row.Zipcode),
		Arrondissement: optionalString(row.Arrondissement),

		Latitude:       row.Latitude,
		Longitude:      row.Longitude,
		DistanceCenter: row.DistanceCenter,
		Geocoded:       row.Geocoded,

		EventDate:     optionalString(row.Date),
		EventDatetime: optionalString(row.DateTime),
		Year:          optionalInt(row.Year),
		Month:         optionalInt(row.Month),
		Day:           optionalInt(row.Day),
		DayOfWeek:     optionalInt(row.Weekday),
		DayOfWeekName: optionalString(row.WeekdayName),
		MonthName:     optionalString(row.MonthName),
		Season:        optionalString(row.Season),
		TimePeriod:    optionalString(row.TimeOfDay),
		IsWeekend:     row.IsWeekend,
		IsMultiDay:    row.IsMultiDay,
		DurationDays:  row.DurationDays,

		PriceType:          optionalString(row.PriceType),
		PriceDetail:        optionalString(row.PriceDetail),
		IsFree:             row.IsFree,
		AccessibilityScore: row.AccessibilityScore,

		ContactURL:   optionalString(row.ContactURL),
		ContactPhone: optionalString(row.ContactPhone),
		ContactEmail: optionalString(row.ContactEmail),

		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"cultura/internal/domain/event"
	"cultura/internal/infrastructure/persistence/sqlite/model"
	"cultura/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cultura.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func mustDimension(t *testing.T, create func() error, find func() (uint64, error)) uint64 {
	t.Helper()
	if err := create(); err != nil {
		t.Fatalf("create dimension: %v", err)
	}
	id, err := find()
	if err != nil {
		t.Fatalf("find dimension: %v", err)
	}
	return id
}

func seedEvent(t *testing.T, repo *WarehouseRepository, row event.Row, city string, category string) uint64 {
	t.Helper()
	ctx := context.Background()

	cityID := mustDimension(t,
		func() error { return repo.CreateCity(ctx, city) },
		func() (uint64, error) { return repo.FindCityID(ctx, city) },
	)
	categoryID := mustDimension(t,
		func() error { return repo.CreateCategory(ctx, category, "") },
		func() (uint64, error) { return repo.FindCategoryID(ctx, category) },
	)

	id, inserted, err := repo.InsertEvent(ctx, row, cityID)
	if err != nil || !inserted {
		t.Fatalf("InsertEvent(%s) = %d, %v, %v", row.RawID, id, inserted, err)
	}
	if err := repo.LinkCategory(ctx, ports.CategoryLink{EventID: id, CategoryID: categoryID, IsPrimary: true, Confidence: 1}); err != nil {
		t.Fatalf("LinkCategory() error = %v", err)
	}
	if err := repo.IncrementCityCount(ctx, cityID); err != nil {
		t.Fatalf("IncrementCityCount() error = %v", err)
	}
	if err := repo.IncrementCategoryCount(ctx, categoryID); err != nil {
		t.Fatalf("IncrementCategoryCount() error = %v", err)
	}
	return id
}

func sampleRow(rawID string, title string, date string, free bool, weekend bool) event.Row {
	b, err := event.BreakdownOf(date, nil)
	if err != nil {
		panic(err)
	}
	b.IsWeekend = weekend
	return event.Row{
		RawID:          rawID,
		Source:         "test",
		Title:          title,
		Description:    "Description de " + title,
		Arrondissement: "4e",
		Breakdown:      b,
		IsFree:         free,
	}
}

func TestWarehouseDimensionsAreUnique(t *testing.T) {
	repo := NewWarehouseRepository(setupDB(t))
	ctx := context.Background()

	if _, err := repo.FindCityID(ctx, "Paris"); !errors.Is(err, ports.ErrDimensionNotFound) {
		t.Fatalf("FindCityID(missing) error = %v, want ErrDimensionNotFound", err)
	}
	if err := repo.CreateCity(ctx, "Paris"); err != nil {
		t.Fatalf("CreateCity() error = %v", err)
	}
	first, _ := repo.FindCityID(ctx, "Paris")
	if err := repo.CreateCity(ctx, "Paris"); err != nil {
		t.Fatalf("CreateCity(again) error = %v", err)
	}
	second, _ := repo.FindCityID(ctx, "Paris")
	if first == 0 || first != second {
		t.Fatalf("city ids = %d, %d, want one stable id", first, second)
	}
	if err := repo.CreateCity(ctx, " "); err == nil {
		t.Fatalf("CreateCity(blank) expected error")
	}

	if err := repo.CreateCategory(ctx, "Jazz", "Musique"); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if err := repo.CreateCategory(ctx, "Jazz", "Autre"); err != nil {
		t.Fatalf("CreateCategory(again) error = %v", err)
	}
	var jazz model.Category
	if err := repo.db.Where("name = ?", "Jazz").Take(&jazz).Error; err != nil {
		t.Fatalf("query Jazz: %v", err)
	}
	if jazz.ParentCategory == nil || *jazz.ParentCategory != "Musique" {
		t.Fatalf("Jazz parent = %v, want the first writer's Musique", jazz.ParentCategory)
	}
}

func TestWarehouseInsertEventIgnoresDuplicateRawID(t *testing.T) {
	repo := NewWarehouseRepository(setupDB(t))
	ctx := context.Background()

	id := seedEvent(t, repo, sampleRow("r-1", "Concert", "2026-06-13T20:00:00", true, true), "Paris", "Musique")
	cityID, _ := repo.FindCityID(ctx, "Paris")

	again, inserted, err := repo.InsertEvent(ctx, sampleRow("r-1", "Autre titre", "2026-06-14", false, false), cityID)
	if err != nil {
		t.Fatalf("InsertEvent(duplicate) error = %v", err)
	}
	if inserted || again != 0 {
		t.Fatalf("InsertEvent(duplicate) = %d, %v, want not inserted", again, inserted)
	}

	var row model.Event
	if err := repo.db.Take(&row, id).Error; err != nil {
		t.Fatalf("query event: %v", err)
	}
	if row.Title == nil || *row.Title != "Concert" || row.Season == nil || *row.Season != event.SeasonSpring {
		t.Fatalf("stored event = %+v", row)
	}
	if row.Description == nil || row.Zipcode != nil {
		t.Fatalf("optional columns: description %v zipcode %v", row.Description, row.Zipcode)
	}
}

func TestCatalogListFiltersAndPages(t *testing.T) {
	db := setupDB(t)
	warehouse := NewWarehouseRepository(db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	seedEvent(t, warehouse, sampleRow("r-1", "Concert de Jazz", "2026-06-13T20:00:00", true, true), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-2", "Exposition Monet", "2026-07-01T10:00:00", false, false), "Paris", "Exposition")
	seedEvent(t, warehouse, sampleRow("r-3", "Jazz au parc", "2026-05-01T15:00:00", true, false), "Lyon", "Musique")

	items, total, err := catalog.ListEvents(ctx, ports.EventFilter{}, 0, 2)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("ListEvents() = %d items of %d", len(items), total)
	}
	if items[0].RawID != "r-3" || items[1].RawID != "r-1" {
		t.Fatalf("ListEvents() order = %s, %s, want by date", items[0].RawID, items[1].RawID)
	}
	if items[0].CityName == nil || *items[0].CityName != "Lyon" || items[0].CategoryName == nil || *items[0].CategoryName != "Musique" {
		t.Fatalf("ListEvents() joins = %+v", items[0])
	}

	free := true
	items, total, err = catalog.ListEvents(ctx, ports.EventFilter{Category: "Musique", City: "Paris", IsFree: &free}, 0, 10)
	if err != nil {
		t.Fatalf("ListEvents(filter) error = %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].RawID != "r-1" {
		t.Fatalf("ListEvents(filter) = %+v (total %d)", items, total)
	}

	items, total, err = catalog.ListEvents(ctx, ports.EventFilter{DateFrom: "2026-06-01", DateTo: "2026-06-30"}, 0, 10)
	if err != nil {
		t.Fatalf("ListEvents(date range) error = %v", err)
	}
	if total != 1 || items[0].RawID != "r-1" {
		t.Fatalf("ListEvents(date range) = %+v", items)
	}

	detail, err := catalog.GetEvent(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if detail.DayOfWeekName == nil || *detail.DayOfWeekName != "Samedi" || !detail.IsFree {
		t.Fatalf("GetEvent() = %+v", detail)
	}
	if _, err := catalog.GetEvent(ctx, 999); !errors.Is(err, ports.ErrEventNotFound) {
		t.Fatalf("GetEvent(999) error = %v, want ErrEventNotFound", err)
	}
}

func TestCatalogSearchRanksTitleMatches(t *testing.T) {
	db := setupDB(t)
	warehouse := NewWarehouseRepository(db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	other := sampleRow("r-1", "Soiree", "2026-05-01", false, false)
	other.Description = "avec un trio jazz"
	seedEvent(t, warehouse, other, "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-2", "Jazz Club", "2026-06-01", false, false), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-3", "Cinema", "2026-04-01", false, false), "Paris", "Cinéma")

	items, err := catalog.SearchEvents(ctx, "JAZZ", 10)
	if err != nil {
		t.Fatalf("SearchEvents() error = %v", err)
	}
	if len(items) != 2 || items[0].RawID != "r-2" || items[1].RawID != "r-1" {
		t.Fatalf("SearchEvents() = %+v, want title match first", items)
	}

	items, err = catalog.SearchEvents(ctx, "   ", 10)
	if err != nil || len(items) != 0 {
		t.Fatalf("SearchEvents(blank) = %+v, %v", items, err)
	}
}

func TestCatalogSearchMatchesWildcardsLiterally(t *testing.T) {
	db := setupDB(t)
	warehouse := NewWarehouseRepository(db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	seedEvent(t, warehouse, sampleRow("r-1", "Remise 100% jeunes", "2026-05-01", false, false), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-2", "Remise 1000 places", "2026-05-02", false, false), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-3", "Atelier a_b", "2026-05-03", false, false), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-4", "Atelier axb", "2026-05-04", false, false), "Paris", "Musique")

	for _, tc := range []struct {
		query string
		want  string
	}{
		{query: "100%", want: "r-1"},
		{query: "a_b", want: "r-3"},
	} {
		items, err := catalog.SearchEvents(ctx, tc.query, 10)
		if err != nil {
			t.Fatalf("SearchEvents(%q) error = %v", tc.query, err)
		}
		if len(items) != 1 || items[0].RawID != tc.want {
			t.Fatalf("SearchEvents(%q) = %+v, want only %s", tc.query, items, tc.want)
		}
	}

	items, err := catalog.SearchEvents(ctx, `a\b`, 10)
	if err != nil || len(items) != 0 {
		t.Fatalf("SearchEvents(backslash) = %+v, %v", items, err)
	}
}

func TestCatalogStatsAndDimensions(t *testing.T) {
	db := setupDB(t)
	warehouse := NewWarehouseRepository(db)
	catalog := NewCatalogRepository(db)
	ctx := context.Background()

	seedEvent(t, warehouse, sampleRow("r-1", "A", "2026-06-13", true, true), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-2", "B", "2026-07-01", false, false), "Paris", "Musique")
	seedEvent(t, warehouse, sampleRow("r-3", "C", "2026-12-25", true, false), "Lyon", "Exposition")

	stats, err := catalog.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalEvents != 3 || stats.TotalCategories != 2 || stats.TotalCities != 2 || stats.FreeEvents != 2 || stats.WeekendEvents != 1 {
		t.Fatalf("Stats() totals = %+v", stats)
	}
	if len(stats.ByCategory) != 2 || stats.ByCategory[0] != (ports.Bucket{Label: "Musique", Count: 2}) {
		t.Fatalf("Stats() by category = %+v", stats.ByCategory)
	}
	if len(stats.BySeason) != 3 {
		t.Fatalf("Stats() by season = %+v", stats.BySeason)
	}
	if len(stats.ByArrondissement) != 1 || stats.ByArrondissement[0].Count != 3 {
		t.Fatalf("Stats() by arrondissement = %+v", stats.ByArrondissement)
	}

	categories, err := catalog.ListCategories(ctx)
	if err != nil || len(categories) != 2 || categories[0].Name != "Musique" || categories[0].EventCount != 2 {
		t.Fatalf("ListCategories() = %+v, %v", categories, err)
	}
	cities, err := catalog.ListCities(ctx)
	if err != nil || len(cities) != 2 || cities[0].Name != "Paris" || cities[0].EventCount != 2 {
		t.Fatalf("ListCities() = %+v, %v", cities, err)
	}
	if err := catalog.Ready(ctx); err != nil {
		t.Fatalf("Ready() error = %v", err)
	}
}

func TestRunRepositoryKeepsRecentRuns(t *testing.T) {
	repo := NewRunRepository(setupDB(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, stage := range []string{"enrich", "load", "enrich"} {
		if err := repo.RecordRun(ctx, ports.RunReport{
			Stage:      stage,
			StartedAt:  started.Add(time.Duration(i) * time.Minute),
			FinishedAt: started.Add(time.Duration(i)*time.Minute + time.Second),
			Counters:   map[string]int{"processed": i},
		}); err != nil {
			t.Fatalf("RecordRun(%d) error = %v", i, err)
		}
	}

	runs, err := repo.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].Stage != "enrich" || runs[0].Counters["processed"] != 2 || runs[1].Stage != "load" {
		t.Fatalf("RecentRuns() = %+v", runs)
	}
}

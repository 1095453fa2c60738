package model

// All lists every table managed through AutoMigrate.
func All() []any {
	return []any{
		&City{},
		&Category{},
		&Event{},
		&EventCategory{},
		&CacheEntry{},
		&PipelineRun{},
	}
}

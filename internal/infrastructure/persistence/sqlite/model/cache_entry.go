package model

type CacheEntry struct {
	Key       string  `gorm:"column:key;type:varchar(512);primaryKey"`
	Value     string  `gorm:"column:value;type:text;not null"`
	UpdatedAt string  `gorm:"column:updated_at;type:varchar(40);not null"`
	ExpiresAt *string `gorm:"column:expires_at;type:varchar(40)"`
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}

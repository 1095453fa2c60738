package model

type Category struct {
	ID             uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string  `gorm:"column:name;type:varchar(255);not null;uniqueIndex"`
	ParentCategory *string `gorm:"column:parent_category;type:varchar(255)"`
	EventCount     int64   `gorm:"column:event_count;not null;default:0"`
}

func (Category) TableName() string {
	return "categories"
}

type EventCategory struct {
	EventID    uint64  `gorm:"column:event_id;primaryKey"`
	CategoryID uint64  `gorm:"column:category_id;primaryKey;index"`
	IsPrimary  bool    `gorm:"column:is_primary;not null;default:false"`
	Confidence float64 `gorm:"column:confidence;not null;default:0"`
}

func (EventCategory) TableName() string {
	return "event_categories"
}

package model

type City struct {
	ID         uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string `gorm:"column:name;type:varchar(255);not null;uniqueIndex"`
	EventCount int64  `gorm:"column:event_count;not null;default:0"`
}

func (City) TableName() string {
	return "cities"
}

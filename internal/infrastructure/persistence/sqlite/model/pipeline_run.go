package model

import "time"

type PipelineRun struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Stage        string    `gorm:"column:stage;type:varchar(32);not null;index"`
	StartedAt    time.Time `gorm:"column:started_at;not null"`
	FinishedAt   time.Time `gorm:"column:finished_at;not null"`
	CountersJSON string    `gorm:"column:counters_json;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

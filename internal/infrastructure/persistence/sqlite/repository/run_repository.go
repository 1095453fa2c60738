package repository

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"cultura/internal/errs"
	"cultura/internal/infrastructure/persistence/sqlite/model"
	"cultura/internal/ports"
)

// RunRepository keeps a history of batch run reports.
type RunRepository struct {
	db *gorm.DB
}

var _ ports.RunLog = (*RunRepository)(nil)

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) RecordRun(ctx context.Context, report ports.RunReport) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	counters, err := json.Marshal(report.Counters)
	if err != nil {
		return errs.Wrap(err, "encode run counters")
	}
	row := model.PipelineRun{
		Stage:        report.Stage,
		StartedAt:    report.StartedAt.UTC(),
		FinishedAt:   report.FinishedAt.UTC(),
		CountersJSON: string(counters),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert pipeline run")
	}
	return nil
}

func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]ports.RunReport, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.PipelineRun
	if err := db.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query pipeline runs")
	}

	reports := make([]ports.RunReport, 0, len(rows))
	for _, row := range rows {
		counters := map[string]int{}
		if err := json.Unmarshal([]byte(row.CountersJSON), &counters); err != nil {
			return nil, errs.Wrapf(err, "decode counters of run %d", row.ID)
		}
		reports = append(reports, ports.RunReport{
			Stage:      row.Stage,
			StartedAt:  row.StartedAt,
			FinishedAt: row.FinishedAt,
			Counters:   counters,
		})
	}
	return reports, nil
}

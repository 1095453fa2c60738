package ports

import (
	"context"
	"time"
)

// Metrics receives counters from the batch stages.
type Metrics interface {
	RecordsEnriched(status string)
	RecordsSkipped(stage string)
	GeocoderCall(kind string, result string)
	RecordsLoaded(result string)
	RunFinished(report RunReport)
}

// RunReport summarises one batch run for subscribers.
type RunReport struct {
	Stage      string         `json:"stage"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Counters   map[string]int `json:"counters"`
}

type Notifier interface {
	PublishRun(ctx context.Context, report RunReport) error
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordsEnriched(string)      {}
func (NopMetrics) RecordsSkipped(string)       {}
func (NopMetrics) GeocoderCall(string, string) {}
func (NopMetrics) RecordsLoaded(string)        {}
func (NopMetrics) RunFinished(RunReport)       {}

// NopNotifier drops run reports.
type NopNotifier struct{}

func (NopNotifier) PublishRun(context.Context, RunReport) error { return nil }

// RunLog persists run reports for later inspection.
type RunLog interface {
	RecordRun(ctx context.Context, report RunReport) error
	RecentRuns(ctx context.Context, limit int) ([]RunReport, error)
}

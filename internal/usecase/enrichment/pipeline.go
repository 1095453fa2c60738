package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const StageName = "enrich"

type dateSource interface {
	Enrich(ctx context.Context, payload event.Payload) Result[event.Breakdown]
}

type categorySource interface {
	Enrich(ctx context.Context, payload event.Payload) Result[event.CategoryData]
}

type geoSource interface {
	Enrich(ctx context.Context, payload event.Payload) Result[event.GeoData]
}

// Stats are the counters of one Process call. Processed is Success plus Failed.
type Stats struct {
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Summary describes every outcome currently stored.
type Summary struct {
	Total       int     `json:"total"`
	Success     int     `json:"success"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

type PipelineOptions struct {
	ProgressEvery int
}

// Pipeline enriches raw records one at a time and writes one outcome per record.
type Pipeline struct {
	raws     ports.RawRecordStore
	outcomes ports.OutcomeStore

	geo      geoSource
	category categorySource
	date     dateSource

	metrics  ports.Metrics
	notifier ports.Notifier
	runs     ports.RunLog

	progressEvery int
	now           func() time.Time
}

type PipelineDeps struct {
	Raws     ports.RawRecordStore
	Outcomes ports.OutcomeStore
	Geo      *GeoEnricher
	Category *CategoryEnricher
	Date     *DateEnricher
	Metrics  ports.Metrics
	Notifier ports.Notifier
	Runs     ports.RunLog
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	p := &Pipeline{
		raws:          deps.Raws,
		outcomes:      deps.Outcomes,
		metrics:       deps.Metrics,
		notifier:      deps.Notifier,
		runs:          deps.Runs,
		progressEvery: opts.ProgressEvery,
		now:           time.Now,
	}
	if deps.Geo != nil {
		p.geo = deps.Geo
	}
	if deps.Category != nil {
		p.category = deps.Category
	}
	if deps.Date != nil {
		p.date = deps.Date
	}
	if p.metrics == nil {
		p.metrics = ports.NopMetrics{}
	}
	if p.notifier == nil {
		p.notifier = ports.NopNotifier{}
	}
	if p.progressEvery <= 0 {
		p.progressEvery = 50
	}
	return p
}

// Process enriches up to limit raw records that have no outcome yet (all of
// them when limit <= 0). Records that already have an outcome are skipped. A failing record is stored
// as a failed outcome and the batch moves on. Cancellation is honoured between
// records; the counters gathered so far are returned with the error.
func (p *Pipeline) Process(ctx context.Context, limit int) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, errs.Wrap(err, "check context")
	}
	if p.raws == nil || p.outcomes == nil {
		return Stats{}, errors.New("document store is required")
	}
	if p.geo == nil || p.category == nil || p.date == nil {
		return Stats{}, errors.New("enrichers are required")
	}
	ctx = logging.WithComponent(ctx, "enrichment.pipeline")
	startedAt := p.now().UTC()

	records, enriched, err := p.raws.ListPendingRaw(ctx, limit)
	if err != nil {
		return Stats{}, errs.Wrap(err, "list pending raw records")
	}
	total := len(records)
	logging.Info(ctx, "enrichment started", slog.Int("records", total), slog.Int("already_enriched", enriched))

	stats := Stats{Skipped: enriched}
	for range enriched {
		p.metrics.RecordsSkipped(StageName)
	}
	var runErr error
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			runErr = errs.Wrap(err, "enrichment interrupted")
			break
		}
		p.processOne(ctx, raw, &stats)

		if n := i + 1; n%p.progressEvery == 0 {
			logging.Info(ctx, "enrichment progress",
				slog.Int("done", n),
				slog.Int("total", total),
				slog.String("percent", fmt.Sprintf("%.1f", float64(n)/float64(total)*100)),
			)
		}
	}

	logging.Info(ctx, "enrichment finished",
		slog.Int("processed", stats.Processed),
		slog.Int("success", stats.Success),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
	)
	p.report(context.WithoutCancel(ctx), ports.RunReport{
		Stage:      StageName,
		StartedAt:  startedAt,
		FinishedAt: p.now().UTC(),
		Counters: map[string]int{
			"processed": stats.Processed,
			"success":   stats.Success,
			"failed":    stats.Failed,
			"skipped":   stats.Skipped,
		},
	})
	return stats, runErr
}

func (p *Pipeline) processOne(ctx context.Context, raw event.RawRecord, stats *Stats) {
	ctx = logging.WithAttrs(ctx, slog.String("raw_id", raw.ID))

	_, exists, err := p.outcomes.GetOutcome(ctx, raw.ID)
	if err != nil {
		logging.Error(ctx, "outcome lookup failed", slog.Any("err", errs.Loggable(err)))
		stats.Failed++
		stats.Processed++
		p.metrics.RecordsEnriched(string(event.StatusFailed))
		return
	}
	if exists {
		stats.Skipped++
		p.metrics.RecordsSkipped(StageName)
		return
	}

	outcome := event.Outcome{
		RawID:      raw.ID,
		Status:     event.StatusSuccess,
		EnrichedAt: p.now().UTC(),
	}
	data, err := p.Enrich(ctx, raw)
	if err != nil {
		logging.Error(ctx, "record enrichment failed", slog.Any("err", errs.Loggable(err)))
		outcome.Status = event.StatusFailed
		outcome.Error = &event.OutcomeError{Message: err.Error()}
	} else {
		outcome.Data = data
	}

	if err := p.outcomes.InsertOutcome(ctx, outcome); err != nil {
		if errors.Is(err, ports.ErrOutcomeExists) {
			stats.Skipped++
			p.metrics.RecordsSkipped(StageName)
			return
		}
		logging.Error(ctx, "outcome write failed", slog.Any("err", errs.Loggable(err)))
		outcome.Status = event.StatusFailed
	}

	stats.Processed++
	if outcome.Status == event.StatusSuccess {
		stats.Success++
	} else {
		stats.Failed++
	}
	p.metrics.RecordsEnriched(string(outcome.Status))
}

// Enrich runs the three enrichers on raw and merges their sections with the
// derived flags. Panics raised while enriching come back as errors.
func (p *Pipeline) Enrich(ctx context.Context, raw event.RawRecord) (data event.EnrichedData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Recovered(r)
		}
	}()

	price := raw.Payload.Object("price")
	priceType, err := price.Text("type")
	if err != nil {
		return event.EnrichedData{}, errs.Wrap(err, "read price")
	}
	priceDetail, err := price.Text("detail")
	if err != nil {
		return event.EnrichedData{}, errs.Wrap(err, "read price")
	}

	geo := p.geo.Enrich(ctx, raw.Payload)
	category := p.category.Enrich(ctx, raw.Payload)
	date := p.date.Enrich(ctx, raw.Payload)

	data = event.EnrichedData{
		GeoData:      geo.Data,
		CategoryData: category.Data,
		Breakdown:    date.Data,
	}
	for _, failure := range []*Failure{geo.Failure, category.Failure, date.Failure} {
		if failure != nil {
			data.Notes = append(data.Notes, failure.Error())
		}
	}
	data.IsFree = IsFree(priceType, priceDetail)
	data.AccessibilityScore = AccessibilityScore(data.IsFree, data.GeoData, data.IsWeekend)
	return data, nil
}

// Summary counts the stored outcomes. SuccessRate is a percentage with 2 decimals.
func (p *Pipeline) Summary(ctx context.Context) (Summary, error) {
	if ctx == nil {
		return Summary{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, errs.Wrap(err, "check context")
	}

	total, err := p.outcomes.CountOutcomes(ctx, "")
	if err != nil {
		return Summary{}, errs.Wrap(err, "count outcomes")
	}
	success, err := p.outcomes.CountOutcomes(ctx, event.StatusSuccess)
	if err != nil {
		return Summary{}, errs.Wrap(err, "count successful outcomes")
	}
	failed, err := p.outcomes.CountOutcomes(ctx, event.StatusFailed)
	if err != nil {
		return Summary{}, errs.Wrap(err, "count failed outcomes")
	}

	out := Summary{Total: total, Success: success, Failed: failed}
	if total > 0 {
		out.SuccessRate = event.Round2(float64(success) / float64(total) * 100)
	}
	return out, nil
}

func (p *Pipeline) report(ctx context.Context, report ports.RunReport) {
	p.metrics.RunFinished(report)
	if p.runs != nil {
		if err := p.runs.RecordRun(ctx, report); err != nil {
			logging.Warn(ctx, "run log write failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	if err := p.notifier.PublishRun(ctx, report); err != nil {
		logging.Warn(ctx, "run report publish failed", slog.Any("err", errs.Loggable(err)))
	}
}

package etl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const (
	StageName = "load"

	recordSavepoint = "record"
	defaultCommit   = 50
)

const (
	resultInserted = "inserted"
	resultSkipped  = "skipped"
	resultError    = "error"

	resultRolledBack = "rolled_back"
)

// LoadStats are the counters of one LoadAll call. Processed is Inserted plus Skipped.
type LoadStats struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

type LoaderOptions struct {
	CommitEvery     int
	DefaultCity     string
	DefaultCategory string
}

type LoaderDeps struct {
	Raws        ports.RawRecordStore
	Outcomes    ports.OutcomeStore
	Warehouse   ports.Warehouse
	UnitOfWork  ports.UnitOfWork
	Transformer *Transformer
	Metrics     ports.Metrics
	Notifier    ports.Notifier
	Runs        ports.RunLog
}

// Loader copies successful enrichment outcomes into the relational store.
type Loader struct {
	raws        ports.RawRecordStore
	outcomes    ports.OutcomeStore
	warehouse   ports.Warehouse
	uow         ports.UnitOfWork
	transformer *Transformer

	metrics  ports.Metrics
	notifier ports.Notifier
	runs     ports.RunLog

	opts LoaderOptions
	now  func() time.Time
}

func NewLoader(deps LoaderDeps, opts LoaderOptions) *Loader {
	if opts.CommitEvery <= 0 {
		opts.CommitEvery = defaultCommit
	}
	l := &Loader{
		raws:        deps.Raws,
		outcomes:    deps.Outcomes,
		warehouse:   deps.Warehouse,
		uow:         deps.UnitOfWork,
		transformer: deps.Transformer,
		metrics:     deps.Metrics,
		notifier:    deps.Notifier,
		runs:        deps.Runs,
		opts:        opts,
		now:         time.Now,
	}
	if l.transformer == nil {
		l.transformer = NewTransformer(opts.DefaultCity, opts.DefaultCategory)
	}
	if l.metrics == nil {
		l.metrics = ports.NopMetrics{}
	}
	if l.notifier == nil {
		l.notifier = ports.NopNotifier{}
	}
	return l
}

// Transformer returns the transformer shared by every run of l.
func (l *Loader) Transformer() *Transformer {
	return l.transformer
}

// chunk is the open transaction of a LoadAll call. inserted counts the rows
// written since the last commit.
type chunk struct {
	ctx      context.Context
	tx       ports.TxControl
	pending  int
	inserted int
}

// LoadAll loads every successful outcome. Records are written inside a
// transaction committed every CommitEvery records; each record runs under its
// own savepoint so a failing record is rolled back alone and counted in Errors.
// Rows already present for a raw id count as Skipped. A failed commit or
// savepoint rollback aborts the run, and the rows of the lost chunk move from
// Inserted to Errors.
func (l *Loader) LoadAll(ctx context.Context) (LoadStats, error) {
	if ctx == nil {
		return LoadStats{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return LoadStats{}, errs.Wrap(err, "check context")
	}
	if l.raws == nil || l.outcomes == nil {
		return LoadStats{}, errors.New("document store is required")
	}
	if l.warehouse == nil || l.uow == nil {
		return LoadStats{}, errors.New("relational store is required")
	}
	ctx = logging.WithComponent(ctx, "etl.loader")
	startedAt := l.now().UTC()

	outcomes, err := l.outcomes.ListOutcomes(ctx, event.StatusSuccess, 0)
	if err != nil {
		return LoadStats{}, errs.Wrap(err, "list successful outcomes")
	}
	logging.Info(ctx, "load started", slog.Int("outcomes", len(outcomes)))

	var stats LoadStats
	run := NewRun(l.warehouse, nil, l.opts.DefaultCity, l.opts.DefaultCategory)
	c, err := l.begin(ctx, run)
	if err != nil {
		return LoadStats{}, err
	}

	var runErr error
	for _, outcome := range outcomes {
		if err := ctx.Err(); err != nil {
			runErr = errs.Wrap(err, "load interrupted")
			break
		}

		result, err := l.loadOne(c, run, outcome)
		if err != nil {
			l.count(&stats, resultError)
			runErr = err
			break
		}
		l.count(&stats, result)
		if result == resultInserted {
			c.inserted++
		}

		c.pending++
		if c.pending < l.opts.CommitEvery {
			continue
		}
		if err := l.commit(ctx, c, run); err != nil {
			l.discard(&stats, c)
			runErr = err
			c = nil
			break
		}
		if c, err = l.begin(ctx, run); err != nil {
			runErr = err
			break
		}
	}

	if c != nil {
		if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
			l.abort(ctx, c, run)
			l.discard(&stats, c)
		} else if err := l.commit(ctx, c, run); err != nil {
			l.discard(&stats, c)
			runErr = errors.Join(runErr, err)
		}
	}

	logging.Info(ctx, "load finished",
		slog.Int("processed", stats.Processed),
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", stats.Errors),
	)
	l.report(context.WithoutCancel(ctx), ports.RunReport{
		Stage:      StageName,
		StartedAt:  startedAt,
		FinishedAt: l.now().UTC(),
		Counters: map[string]int{
			"processed": stats.Processed,
			"inserted":  stats.Inserted,
			"skipped":   stats.Skipped,
			"errors":    stats.Errors,
		},
	})
	return stats, runErr
}

// loadOne writes one outcome under the record savepoint and returns its
// result. Only transaction control failures are returned as errors.
func (l *Loader) loadOne(c *chunk, run *Run, outcome event.Outcome) (string, error) {
	ctx := logging.WithAttrs(c.ctx, slog.String("raw_id", outcome.RawID))

	if err := c.tx.Savepoint(recordSavepoint); err != nil {
		return "", err
	}
	mark := run.mark()

	inserted, err := l.insert(ctx, run, outcome)
	if err == nil {
		if relErr := c.tx.Release(recordSavepoint); relErr != nil {
			return "", errs.Wrapf(relErr, "keep record %s", outcome.RawID)
		}
		if inserted {
			return resultInserted, nil
		}
		return resultSkipped, nil
	}

	logging.Error(ctx, "record load failed", slog.Any("err", errs.Loggable(err)))
	if rbErr := c.tx.RollbackTo(recordSavepoint); rbErr != nil {
		return "", errs.Wrapf(rbErr, "discard record %s", outcome.RawID)
	}
	if relErr := c.tx.Release(recordSavepoint); relErr != nil {
		return "", errs.Wrapf(relErr, "discard record %s", outcome.RawID)
	}
	run.forget(mark)
	return resultError, nil
}

func (l *Loader) insert(ctx context.Context, run *Run, outcome event.Outcome) (inserted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Recovered(r)
		}
	}()

	raw, err := l.raws.GetRaw(ctx, outcome.RawID)
	if err != nil {
		return false, errs.Wrap(err, "read raw record")
	}
	row, err := l.transformer.Transform(raw, outcome)
	if err != nil {
		return false, errs.Wrap(err, "transform record")
	}
	_, inserted, err = run.InsertEvent(ctx, row)
	if err != nil {
		return false, errs.Wrap(err, "insert event")
	}
	return inserted, nil
}

func (l *Loader) count(stats *LoadStats, result string) {
	switch result {
	case resultInserted:
		stats.Inserted++
		stats.Processed++
	case resultSkipped:
		stats.Skipped++
		stats.Processed++
		l.metrics.RecordsSkipped(StageName)
	default:
		stats.Errors++
	}
	l.metrics.RecordsLoaded(result)
}

// begin opens a chunk transaction. It is detached from ctx cancellation so an
// interrupted run can still commit the records it finished.
func (l *Loader) begin(ctx context.Context, run *Run) (*chunk, error) {
	txCtx, tx, err := l.uow.Begin(context.WithoutCancel(ctx))
	if err != nil {
		return nil, errs.Wrap(err, "begin load transaction")
	}
	run.tx = tx
	return &chunk{ctx: txCtx, tx: tx}, nil
}

func (l *Loader) commit(ctx context.Context, c *chunk, run *Run) error {
	if err := c.tx.Commit(); err != nil {
		run.forget(0)
		return errs.Wrap(err, "commit load chunk")
	}
	run.settle()
	logging.Debug(ctx, "load chunk committed", slog.Int("records", c.pending))
	return nil
}

func (l *Loader) abort(ctx context.Context, c *chunk, run *Run) {
	run.forget(0)
	if err := c.tx.Rollback(); err != nil {
		logging.Error(ctx, "load chunk rollback failed", slog.Any("err", errs.Loggable(err)))
	}
}

// discard moves the rows of a chunk that never committed from Inserted to
// Errors. Skipped rows were already stored and stay skipped.
func (l *Loader) discard(stats *LoadStats, c *chunk) {
	if c.inserted == 0 {
		return
	}
	stats.Inserted -= c.inserted
	stats.Processed -= c.inserted
	stats.Errors += c.inserted
	for range c.inserted {
		l.metrics.RecordsLoaded(resultRolledBack)
	}
	c.inserted = 0
}

func (l *Loader) report(ctx context.Context, report ports.RunReport) {
	l.metrics.RunFinished(report)
	if l.runs != nil {
		if err := l.runs.RecordRun(ctx, report); err != nil {
			logging.Warn(ctx, "run log write failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	if err := l.notifier.PublishRun(ctx, report); err != nil {
		logging.Warn(ctx, "run report publish failed", slog.Any("err", errs.Loggable(err)))
	}
}

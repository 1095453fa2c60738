package enrichment

import (
	"context"
	"errors"
	"log/slog"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	"cultura/internal/errs"
)

const stageDate = "date"

// DateEnricher decomposes payload.dates.start (and .end) into calendar fields.
type DateEnricher struct{}

func NewDateEnricher() *DateEnricher {
	return &DateEnricher{}
}

// Enrich never returns an unusable result: a missing or unreadable start yields
// the zero Breakdown with the reason recorded in Failure.
func (e *DateEnricher) Enrich(ctx context.Context, payload event.Payload) Result[event.Breakdown] {
	dates := payload.Object("dates")
	start, _ := dates.Value("start")
	end, _ := dates.Value("end")

	b, err := event.BreakdownOf(start, end)
	if err == nil {
		return ok(b)
	}

	reason := "unparseable start date"
	if errors.Is(err, event.ErrNoDate) {
		reason = "no start date"
	}
	if ctx != nil {
		logging.Debug(logging.WithComponent(ctx, "enrichment.date"), reason, slog.Any("err", errs.Loggable(err)))
	}
	return degraded(event.Breakdown{}, stageDate, reason, err)
}

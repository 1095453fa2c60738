package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cultura/internal/bootstrap"
	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
)

// pushMetrics hands the counters of a finished batch command to the
// Pushgateway when metrics.pushgateway_url is set. Failures are only logged.
func pushMetrics(cmd *cobra.Command, app *bootstrap.App) {
	cfg := app.Config.Metrics
	if strings.TrimSpace(cfg.PushgatewayURL) == "" || app.Metrics == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
	defer cancel()
	if err := app.Metrics.Push(ctx, cfg.PushgatewayURL, cfg.Job, cmd.Name()); err != nil {
		logging.Warn(ctx, "push metrics failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	logging.Info(ctx, "metrics pushed", slog.String("gateway", cfg.PushgatewayURL))
}

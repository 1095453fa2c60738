package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"cultura/internal/bootstrap/config"
	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
	"cultura/internal/infrastructure/docstore"
	"cultura/internal/infrastructure/metrics"
	"cultura/internal/infrastructure/persistence/sqlite/model"
	"cultura/internal/ports"
	"cultura/internal/usecase/catalog"
	"cultura/internal/usecase/enrichment"
	"cultura/internal/usecase/etl"
	"cultura/internal/usecase/ingest"
)

// App is the object graph handed to commands.
type App struct {
	Config config.Config
	DB     *gorm.DB
	Store  *docstore.Store

	Importer *ingest.Importer
	Pipeline *enrichment.Pipeline
	Loader   *etl.Loader
	Catalog  *catalog.Service
	Runs     ports.RunLog
	Metrics  *metrics.Prometheus

	ready func(ctx context.Context) error
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.app")
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed", slog.Int("tables", len(model.All())))
	return nil
}

// Ready reports whether the relational store answers.
func (a *App) Ready(ctx context.Context) error {
	if a.ready == nil {
		return errors.New("readiness probe is not configured")
	}
	return a.ready(ctx)
}

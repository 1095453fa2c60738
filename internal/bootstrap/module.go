package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"cultura/internal/bootstrap/config"
	"cultura/internal/bootstrap/database"
	"cultura/internal/bootstrap/logging"
	"cultura/internal/domain/event"
	cacheinfra "cultura/internal/infrastructure/cache"
	"cultura/internal/infrastructure/docstore"
	"cultura/internal/infrastructure/geocoding"
	"cultura/internal/infrastructure/metrics"
	"cultura/internal/infrastructure/notify"
	sqliterepo "cultura/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "cultura/internal/infrastructure/persistence/sqlite/uow"
	"cultura/internal/ports"
	"cultura/internal/usecase/catalog"
	"cultura/internal/usecase/enrichment"
	"cultura/internal/usecase/etl"
	"cultura/internal/usecase/ingest"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideDocStore),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewWarehouseRepository,
			fx.As(new(ports.Warehouse)),
		),
	),
	fx.Provide(sqliterepo.NewCatalogRepository),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewRunRepository,
			fx.As(new(ports.RunLog)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(metrics.NewPrometheus),
	fx.Provide(provideNotifier),
	fx.Provide(provideGeocoder),
	fx.Provide(provideTaxonomy),
	fx.Provide(provideImporter),
	fx.Provide(providePipeline),
	fx.Provide(provideLoader),
	fx.Provide(provideCatalog),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	return config.Load(logging.WithComponent(p.Ctx, "bootstrap.fx"), p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideDocStore(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*docstore.Store, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	backend, err := docstore.OpenBackend(logCtx, cfg.DocStore.Path, cfg.DocStore.InMemory)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return backend.Close()
		},
	})

	return docstore.NewStore(backend), nil
}

// provideNotifier connects to NATS when notify.nats_url is set.
func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Notifier, error) {
	if cfg.Notify.NATSURL == "" {
		return ports.NopNotifier{}, nil
	}

	notifier, err := notify.Connect(logging.WithComponent(ctx, "bootstrap.fx"), cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return notifier.Close()
		},
	})
	return notifier, nil
}

// provideGeocoder returns a nil interface when lookups are disabled.
func provideGeocoder(ctx context.Context, cfg config.Config) ports.Geocoder {
	if !cfg.Geocoder.Enabled {
		logging.Info(logging.WithComponent(ctx, "bootstrap.fx"), "geocoder disabled")
		return nil
	}
	return geocoding.NewAdresseClient(cfg.Geocoder.BaseURL, geocoding.NewHTTPClient(cfg.Geocoder.Timeout))
}

func provideTaxonomy(ctx context.Context, cfg config.Config) (*enrichment.Taxonomy, error) {
	taxonomy, err := enrichment.LoadTaxonomy(cfg.Enrichment.RulesFile)
	if err != nil {
		return nil, err
	}
	logging.Info(logging.WithComponent(ctx, "bootstrap.fx"), "taxonomy loaded",
		slog.String("rules_file", cfg.Enrichment.RulesFile),
		slog.Int("categories", len(taxonomy.Categories())),
	)
	return taxonomy, nil
}

func provideImporter(store *docstore.Store) *ingest.Importer {
	return ingest.NewImporter(store)
}

type pipelineParams struct {
	fx.In

	Config   config.Config
	Store    *docstore.Store
	Geocoder ports.Geocoder `optional:"true"`
	Cache    ports.Cache
	Taxonomy *enrichment.Taxonomy
	Metrics  *metrics.Prometheus
	Notifier ports.Notifier
	Runs     ports.RunLog
}

func providePipeline(p pipelineParams) *enrichment.Pipeline {
	geo := p.Config.Geocoder
	return enrichment.NewPipeline(enrichment.PipelineDeps{
		Raws:     p.Store,
		Outcomes: p.Store,
		Geo: enrichment.NewGeoEnricher(p.Geocoder, p.Cache, p.Metrics, enrichment.GeoOptions{
			DefaultCity: geo.DefaultCity,
			Department:  geo.Department,
			Reference:   event.Point{Lat: geo.RefLat, Lon: geo.RefLon},
			Reverse:     geo.Reverse,
			MinDelay:    geo.MinDelay,
			CacheTTL:    geo.CacheTTL,
		}),
		Category: enrichment.NewCategoryEnricher(p.Taxonomy),
		Date:     enrichment.NewDateEnricher(),
		Metrics:  p.Metrics,
		Notifier: p.Notifier,
		Runs:     p.Runs,
	}, enrichment.PipelineOptions{ProgressEvery: p.Config.Enrichment.ProgressEvery})
}

type loaderParams struct {
	fx.In

	Config     config.Config
	Store      *docstore.Store
	Warehouse  ports.Warehouse
	UnitOfWork ports.UnitOfWork
	Metrics    *metrics.Prometheus
	Notifier   ports.Notifier
	Runs       ports.RunLog
}

func provideLoader(p loaderParams) *etl.Loader {
	cfg := p.Config.Loader
	return etl.NewLoader(etl.LoaderDeps{
		Raws:        p.Store,
		Outcomes:    p.Store,
		Warehouse:   p.Warehouse,
		UnitOfWork:  p.UnitOfWork,
		Transformer: etl.NewTransformer(cfg.DefaultCity, cfg.DefaultCategory),
		Metrics:     p.Metrics,
		Notifier:    p.Notifier,
		Runs:        p.Runs,
	}, etl.LoaderOptions{
		CommitEvery:     cfg.CommitEvery,
		DefaultCity:     cfg.DefaultCity,
		DefaultCategory: cfg.DefaultCategory,
	})
}

func provideCatalog(cfg config.Config, repo *sqliterepo.CatalogRepository) *catalog.Service {
	return catalog.NewService(repo, catalog.Options{
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
	})
}

type appParams struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Store       *docstore.Store
	Importer    *ingest.Importer
	Pipeline    *enrichment.Pipeline
	Loader      *etl.Loader
	Catalog     *catalog.Service
	CatalogRepo *sqliterepo.CatalogRepository
	Runs        ports.RunLog
	Metrics     *metrics.Prometheus
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		DB:       p.DB,
		Store:    p.Store,
		Importer: p.Importer,
		Pipeline: p.Pipeline,
		Loader:   p.Loader,
		Catalog:  p.Catalog,
		Runs:     p.Runs,
		Metrics:  p.Metrics,
		ready:    p.CatalogRepo.Ready,
	}
}

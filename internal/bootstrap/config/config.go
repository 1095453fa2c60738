package config

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	DocStore   DocStoreConfig   `mapstructure:"docstore"`
	Geocoder   GeocoderConfig   `mapstructure:"geocoder"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Loader     LoaderConfig     `mapstructure:"loader"`
	API        APIConfig        `mapstructure:"api"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// DocStoreConfig points at the badger directory holding raw records and enrichment outcomes.
type DocStoreConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type GeocoderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	Reverse     bool          `mapstructure:"reverse"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	DefaultCity string        `mapstructure:"default_city"`
	Department  string        `mapstructure:"department"`
	RefLat      float64       `mapstructure:"ref_lat"`
	RefLon      float64       `mapstructure:"ref_lon"`
}

type EnrichmentConfig struct {
	RulesFile     string `mapstructure:"rules_file"`
	ProgressEvery int    `mapstructure:"progress_every"`
}

type LoaderConfig struct {
	CommitEvery     int    `mapstructure:"commit_every"`
	DefaultCity     string `mapstructure:"default_city"`
	DefaultCategory string `mapstructure:"default_category"`
}

type APIConfig struct {
	Addr            string `mapstructure:"addr"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
	MaxPageSize     int    `mapstructure:"max_page_size"`
}

// NotifyConfig enables run reports on a NATS subject. An empty URL disables publishing.
type NotifyConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// MetricsConfig points batch commands at a Pushgateway. An empty URL keeps the
// counters in process.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CULTURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (configFile != "" && isMissingFile(err)) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env", slog.String("path", configFile))
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("docstore_path", cfg.DocStore.Path),
		slog.Bool("geocoder_enabled", cfg.Geocoder.Enabled),
	)

	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.DocStore.Path == "" && !c.DocStore.InMemory {
		return errors.New("docstore.path is required unless docstore.in_memory is set")
	}
	if c.Loader.CommitEvery <= 0 {
		return errors.New("loader.commit_every must be positive")
	}
	if c.API.MaxPageSize <= 0 || c.API.DefaultPageSize <= 0 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return errors.New("api.default_page_size must be positive and not exceed api.max_page_size")
	}
	if c.Geocoder.MinDelay < 0 {
		return errors.New("geocoder.min_delay must not be negative")
	}
	return nil
}

// viper surfaces a missing explicit --config file as an *fs.PathError rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cultura")
	v.SetDefault("app.env", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/cultura.sqlite")

	v.SetDefault("docstore.path", "data/docstore")
	v.SetDefault("docstore.in_memory", false)

	v.SetDefault("geocoder.enabled", true)
	v.SetDefault("geocoder.base_url", "https://api-adresse.data.gouv.fr")
	v.SetDefault("geocoder.timeout", 5*time.Second)
	v.SetDefault("geocoder.min_delay", 100*time.Millisecond)
	v.SetDefault("geocoder.reverse", true)
	v.SetDefault("geocoder.cache_ttl", 30*24*time.Hour)
	v.SetDefault("geocoder.default_city", "Paris")
	v.SetDefault("geocoder.department", "75")
	v.SetDefault("geocoder.ref_lat", 48.8534)
	v.SetDefault("geocoder.ref_lon", 2.3488)

	v.SetDefault("enrichment.rules_file", "")
	v.SetDefault("enrichment.progress_every", 50)

	v.SetDefault("loader.commit_every", 50)
	v.SetDefault("loader.default_city", "Paris")
	v.SetDefault("loader.default_category", "Autre")

	v.SetDefault("api.addr", ":8000")
	v.SetDefault("api.default_page_size", 20)
	v.SetDefault("api.max_page_size", 100)

	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.subject", "cultura.runs")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "cultura")
}

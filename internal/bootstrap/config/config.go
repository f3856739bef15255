package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/errs"
)

const (
	BackendSQLite   = "sqlite"
	BackendAirtable = "airtable"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	RecordStore RecordStoreConfig `mapstructure:"record_store"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Server      ServerConfig      `mapstructure:"server"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RecordStoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	Airtable AirtableConfig `mapstructure:"airtable"`
}

type AirtableConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	BaseID  string        `mapstructure:"base_id"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AlertsConfig struct {
	SlackWebhookURL string        `mapstructure:"slack_webhook_url"`
	TeamsWebhookURL string        `mapstructure:"teams_webhook_url"`
	NATSURL         string        `mapstructure:"nats_url"`
	NATSSubject     string        `mapstructure:"nats_subject"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Parallel    int    `mapstructure:"parallel"`
	RulesFile   string `mapstructure:"rules_file"`
	HealthCheck bool   `mapstructure:"health_check"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	RunInterval time.Duration `mapstructure:"run_interval"`
}

// legacyEnv maps config keys to the environment names the operators already
// keep in their .env files.
var legacyEnv = map[string][]string{
	"record_store.airtable.token":   {"ADT_RECORD_STORE_AIRTABLE_TOKEN", "AIRTABLE_PAT"},
	"record_store.airtable.base_id": {"ADT_RECORD_STORE_AIRTABLE_BASE_ID", "AIRTABLE_BASE_ID"},
	"alerts.slack_webhook_url":      {"ADT_ALERTS_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
	"alerts.teams_webhook_url":      {"ADT_ALERTS_TEAMS_WEBHOOK_URL", "TEAMS_WEBHOOK_URL"},
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config")

	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, errs.Wrap(err, "load .env")
		}
	} else {
		logging.Info(logCtx, "loaded .env file")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ADT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, errs.Wrapf(err, "bind env for %s", key)
		}
	}

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
		switch {
		case errors.As(err, &notFound):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		case configFile != "" && errors.Is(err, os.ErrNotExist):
			logging.Warn(logCtx, "config file not found, fallback to defaults and env", slog.String("path", configFile))
		default:
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("record_store", cfg.RecordStore.Backend),
		slog.Int("parallel", cfg.Pipeline.Parallel),
	)

	return cfg, nil
}

// Validate checks the fields that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.Pipeline.Parallel < 1 {
		return fmt.Errorf("pipeline.parallel must be >= 1, got %d", c.Pipeline.Parallel)
	}

	switch strings.ToLower(strings.TrimSpace(c.RecordStore.Backend)) {
	case BackendSQLite:
	case BackendAirtable:
		if strings.TrimSpace(c.RecordStore.Airtable.Token) == "" {
			return errors.New("record_store.airtable.token is required for the airtable backend")
		}
		if strings.TrimSpace(c.RecordStore.Airtable.BaseID) == "" {
			return errors.New("record_store.airtable.base_id is required for the airtable backend")
		}
	default:
		return fmt.Errorf("unsupported record_store.backend %q", c.RecordStore.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "adtraffic")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".adtraffic/state.sqlite")
	v.SetDefault("record_store.backend", BackendSQLite)
	v.SetDefault("record_store.airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("record_store.airtable.timeout", "15s")
	v.SetDefault("alerts.nats_subject", "adtraffic.alerts")
	v.SetDefault("alerts.timeout", "5s")
	v.SetDefault("pipeline.parallel", 4)
	v.SetDefault("pipeline.health_check", true)
	v.SetDefault("server.addr", ":8088")
	v.SetDefault("server.run_interval", "0s")
}

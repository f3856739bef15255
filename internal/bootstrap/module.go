package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"adtraffic/internal/bootstrap/config"
	"adtraffic/internal/bootstrap/database"
	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/domain/qa"
	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/errs"
	"adtraffic/internal/infrastructure/airtable"
	"adtraffic/internal/infrastructure/alertsink"
	cacheinfra "adtraffic/internal/infrastructure/cache"
	sqliterepo "adtraffic/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "adtraffic/internal/infrastructure/persistence/sqlite/uow"
	"adtraffic/internal/infrastructure/rules"
	"adtraffic/internal/ports"
	"adtraffic/internal/usecase/alerting"
	"adtraffic/internal/usecase/trafficking"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(sqliterepo.NewRecordRepository),
	fx.Provide(provideRecordStore),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideAlertSink),
	fx.Provide(provideRules),
	fx.Provide(provideTraffickingEngine),
	fx.Provide(provideQAEngine),
	fx.Provide(alerting.NewPipeline),
	fx.Provide(trafficking.NewService),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithComponent(p.Ctx, "bootstrap.fx")
	return config.Load(ctx, p.ConfigFile)
}

// provideDatabase opens the local state database and migrates it. It backs
// the sqlite record store and the run cache for every backend.
func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(logCtx, db); err != nil {
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

type recordStoreResult struct {
	fx.Out

	Store   ports.RecordStore
	Browser ports.RecordBrowser
	UoW     ports.UnitOfWork
}

func provideRecordStore(ctx context.Context, cfg config.Config, db *gorm.DB, local *sqliterepo.RecordRepository) (recordStoreResult, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")
	backend := strings.ToLower(strings.TrimSpace(cfg.RecordStore.Backend))

	switch backend {
	case config.BackendAirtable:
		at := cfg.RecordStore.Airtable
		client, err := airtable.NewClient(at.BaseURL, at.BaseID, at.Token, at.Timeout)
		if err != nil {
			return recordStoreResult{}, errs.Wrap(err, "create airtable client")
		}
		store := airtable.NewStore(client)
		logging.Info(logCtx, "record store ready", slog.String("backend", backend), slog.String("base_id", at.BaseID))
		return recordStoreResult{Store: store, Browser: store, UoW: ports.Sequential{}}, nil
	default:
		logging.Info(logCtx, "record store ready", slog.String("backend", config.BackendSQLite))
		return recordStoreResult{Store: local, Browser: local, UoW: sqliteuow.NewUnitOfWork(db)}, nil
	}
}

func provideAlertSink(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.AlertSink, error) {
	sink, closeFn, err := alertsink.FromConfig(logging.WithComponent(ctx, "bootstrap.fx"), cfg.Alerts)
	if err != nil {
		return nil, errs.Wrap(err, "build alert sink")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			closeFn()
			return nil
		},
	})
	return sink, nil
}

func provideRules(ctx context.Context, cfg config.Config) (rules.Set, error) {
	set, err := rules.LoadFile(cfg.Pipeline.RulesFile)
	if err != nil {
		return rules.Set{}, errs.Wrap(err, "load rules")
	}
	logging.Info(logging.WithComponent(ctx, "bootstrap.fx"), "platform rules loaded",
		slog.String("rules_file", cfg.Pipeline.RulesFile),
		slog.Int("channels", len(set.Platforms)),
		slog.Int("platforms", len(set.Rules)),
	)
	return set, nil
}

func provideTraffickingEngine(set rules.Set) *domaintrafficking.Engine {
	return domaintrafficking.NewEngine(set.Platforms)
}

func provideQAEngine(set rules.Set) *qa.Engine {
	return qa.NewEngine(qa.DefaultChecks(set.Rules)...)
}

type appParams struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Local    *sqliterepo.RecordRepository
	Browser  ports.RecordBrowser
	Pipeline *trafficking.Service
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		DB:       p.DB,
		Local:    p.Local,
		Browser:  p.Browser,
		Pipeline: p.Pipeline,
	}
}

package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"adtraffic/internal/bootstrap/config"
	"adtraffic/internal/bootstrap/database"
	"adtraffic/internal/bootstrap/logging"
	"adtraffic/internal/errs"
	"adtraffic/internal/infrastructure/fixtures"
	sqliterepo "adtraffic/internal/infrastructure/persistence/sqlite/repository"
	"adtraffic/internal/ports"
	"adtraffic/internal/usecase/trafficking"
)

// App is what commands get once the container has started.
type App struct {
	Config config.Config
	DB     *gorm.DB
	// Local is the sqlite record store. It is the active store only for the
	// sqlite backend but is always available for seeding.
	Local    *sqliterepo.RecordRepository
	Browser  ports.RecordBrowser
	Pipeline *trafficking.Service
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

	if err := database.Migrate(logCtx, a.DB); err != nil {
		return err
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

// SeedFile loads a fixtures file into the local record store.
func (a *App) SeedFile(ctx context.Context, path string) (fixtures.Dataset, error) {
	if ctx == nil {
		return fixtures.Dataset{}, errors.New("context is required")
	}
	if a.Local == nil {
		return fixtures.Dataset{}, errors.New("local record store is not configured")
	}

	ds, err := fixtures.LoadFile(path)
	if err != nil {
		return fixtures.Dataset{}, errs.Wrap(err, "load fixtures")
	}
	if err := a.Local.Seed(ctx, ds); err != nil {
		return fixtures.Dataset{}, errs.Wrap(err, "seed record store")
	}

	logging.Info(logging.WithComponent(ctx, "bootstrap.app"), "record store seeded",
		slog.String("file", path),
		slog.Int("campaigns", len(ds.Campaigns)),
		slog.Int("tickets", len(ds.Tickets)),
	)
	return ds, nil
}

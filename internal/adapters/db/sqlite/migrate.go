package sqlite

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the control-graph schema up to date and logs
// each migration it applies.
func RunMigrations(ctx context.Context, db *gorm.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, dir)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		log.Info("migration applied", "source", res.Source.Path, "duration", res.Duration)
	}
	return nil
}

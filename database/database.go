package database

import (
	"context"

	"focus-billing/config"
	"focus-billing/internal/domain/entitlements"
	ierr "focus-billing/internal/errors"
	"focus-billing/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres. The handle is returned, never stored globally.
func Open(cfg *config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel(cfg.Logging.Level)),
		TranslateError: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to connect to database").
			WithHint("Check DB_URL").
			Mark(ierr.ErrDatabase)
	}
	log.Infow("connected to database")
	return db, nil
}

// entitlingIndex backs the one-entitling-row-per-tier rule independently of
// the per-user lock.
const entitlingIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_subscriptions_user_tier_entitling
ON subscriptions (user_id, tier) WHERE status IN ('active', 'trialing')`

// Migrate creates or updates the entitlement tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(
		&entitlements.Profile{},
		&entitlements.Subscription{},
		&entitlements.LifetimeGrant{},
		&entitlements.WebhookEvent{},
	); err != nil {
		return ierr.WithError(err).WithMessage("auto migrate").Mark(ierr.ErrDatabase)
	}
	if err := tx.Exec(entitlingIndex).Error; err != nil {
		return ierr.WithError(err).WithMessage("create entitling subscription index").Mark(ierr.ErrDatabase)
	}
	return nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

package cli

import (
	"context"

	"focus-billing/config"
	"focus-billing/database"
	"focus-billing/internal/domain/plans"
	"focus-billing/internal/infra/lock"
	"focus-billing/internal/infra/stripe"
	"focus-billing/internal/logger"
	"focus-billing/internal/repository/postgres"
	"focus-billing/internal/service/billing"

	"gorm.io/gorm"
)

// app holds the long-lived collaborators built once at startup.
type app struct {
	cfg        *config.Configuration
	log        *logger.Logger
	db         *gorm.DB
	store      *postgres.Store
	catalog    *plans.Catalog
	stripe     *stripe.Client
	locker     lock.Locker
	reconciler *billing.Reconciler
	guard      *billing.Guard
	closers    []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}

	catalog, err := plans.NewCatalog(
		plans.Plan{PriceID: cfg.Stripe.PriceMonthly, Tier: plans.TierMonthly},
		plans.Plan{PriceID: cfg.Stripe.PriceYearly, Tier: plans.TierYearly},
		plans.Plan{PriceID: cfg.Stripe.PriceLifetime, Tier: plans.TierLifetime},
	)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		store:   postgres.NewStore(db),
		catalog: catalog,
		stripe:  stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.Timeout, log),
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if cfg.Lock.RedisURL != "" {
		rl, err := lock.NewRedisLocker(cfg.Lock.RedisURL, 2*cfg.Lock.Timeout, cfg.Lock.Timeout, log)
		if err != nil {
			return nil, err
		}
		if err := rl.Ping(ctx); err != nil {
			log.Warnw("redis not reachable at startup", "error", err)
		}
		a.locker = rl
		a.closers = append(a.closers, rl.Close)
		log.Infow("using redis per-user lock")
	} else {
		a.locker = lock.NewKeyedMutex()
		log.Infow("using in-process per-user lock")
	}

	cascade := billing.NewCascade(a.stripe, a.store, log)
	a.reconciler = billing.NewReconciler(catalog, a.store, cascade, a.locker, log)
	a.guard = billing.NewGuard(catalog, a.store, a.stripe, billing.GuardConfig{
		SuccessURL: cfg.Server.AppURL + "/account?checkout=success",
		CancelURL:  cfg.Server.AppURL + "/pricing?checkout=canceled",
	}, log)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warnw("close failed", "error", err)
		}
	}
	_ = a.log.Sync()
}

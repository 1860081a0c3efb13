// Package app wires configuration into the stores, cache and services shared
// by the server, scheduler and bot binaries.
package app

import (
	"context"
	"fmt"

	"github.com/segyhp/fatura-engine/internal/billing"
	"github.com/segyhp/fatura-engine/internal/config"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/repository"
	"github.com/segyhp/fatura-engine/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type App struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Owners  repository.OwnerRepository
	Billing *service.BillingService
	Closer  *service.CycleCloser
	Opener  *service.CycleOpener
}

// New connects to the configured store, applies migrations and builds the
// services. DB stays nil for the in-memory store; Redis stays nil when no
// REDIS_HOST is set.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	cycle, err := billing.NewCalculator(cfg.Ledger.ClosingDay, cfg.Location())
	if err != nil {
		return nil, err
	}

	a := &App{}

	var (
		purchases repository.PurchaseRepository
		payments  repository.PaymentRepository
		recurring repository.RecurringPurchaseRepository
	)
	if cfg.UseMemoryStore() {
		store := repository.NewMemoryStore()
		purchases, payments, recurring, a.Owners = store.Purchases(), store.Payments(), store.Recurring(), store
		logger.Warn(ctx, "using in-memory ledger store, data is lost on exit")
	} else {
		a.DB, err = initDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		purchases = repository.NewPurchaseRepository(a.DB, cycle.Location())
		payments = repository.NewPaymentRepository(a.DB, cycle.Location())
		recurring = repository.NewRecurringPurchaseRepository(a.DB, cycle.Location())
		a.Owners = repository.NewOwnerRepository(a.DB)
	}

	opts := []service.Option{
		service.WithMaxInstallments(cfg.Ledger.MaxInstallments),
		service.WithRecurringRepository(recurring),
	}
	if cfg.RedisEnabled() {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unreachable, statements will be rebuilt until it recovers", "addr", cfg.RedisAddr(), "error", err)
		}
		opts = append(opts, service.WithStatementCache(service.NewRedisStatementCache(a.Redis, cfg.Redis.StatementCacheTTL)))
	}

	a.Billing = service.NewBillingService(purchases, payments, cycle, logger, opts...)
	a.Closer = service.NewCycleCloser(a.Owners, a.Billing, cycle, logger.With("component", "closer"))
	a.Opener = service.NewCycleOpener(recurring, a.Billing, cycle, logger.With("component", "opener"))

	logger.Info(ctx, "ledger ready",
		"closing_day", cycle.ClosingDay(),
		"timezone", cycle.Location().String(),
		"memory_store", cfg.UseMemoryStore(),
		"statement_cache", cfg.RedisEnabled(),
	)
	return a, nil
}

// Close releases the database and redis connections
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func initDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Package storage opens the directories selected by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/frbb/loan-engine/internal/config"
	"github.com/frbb/loan-engine/internal/repository"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the repositories and the connections behind them.
// DB and Redis are nil when the matching backend is not in use.
type Stores struct {
	Loans     repository.LoanRepository
	Customers repository.CustomerRepository
	Accounts  repository.AccountRepository
	DB        *sqlx.DB
	Redis     *redis.Client
}

// Open builds the stores for cfg.Storage.Driver, wrapping the loan
// directory in the Redis cache when Redis is enabled.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	if log == nil {
		log = zap.NewNop()
	}

	stores := &Stores{}

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		stores.Loans = repository.NewMemoryLoanRepository()
		stores.Customers = repository.NewMemoryCustomerRepository()
		stores.Accounts = repository.NewMemoryAccountRepository()
		log.Info("using in-memory storage")
	case config.StorageDriverPostgres:
		db, err := initDB(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		stores.DB = db
		stores.Loans = repository.NewLoanRepository(db)
		stores.Customers = repository.NewCustomerRepository(db)
		stores.Accounts = repository.NewAccountRepository(db)
		log.Info("connected to postgres", zap.String("host", cfg.Database.Host))
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Redis.Enabled {
		client := initRedis(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			// the cache is optional; keep serving from the store
			log.Warn("redis unavailable, loan cache disabled", zap.Error(err))
			_ = client.Close()
		} else {
			stores.Redis = client
			stores.Loans = repository.NewCachedLoanRepository(stores.Loans, client, cfg.GetCacheTTL(), log)
			log.Info("loan cache enabled", zap.String("addr", cfg.Redis.RedisAddr()), zap.Duration("ttl", cfg.GetCacheTTL()))
		}
	}

	return stores, nil
}

// Close releases the open connections
func (s *Stores) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}

// RedisCmdable returns the Redis client as an interface, nil when disabled
func (s *Stores) RedisCmdable() redis.Cmdable {
	if s.Redis == nil {
		return nil
	}
	return s.Redis
}

func initDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Package bootstrap assembles the process-level collaborators shared by the
// API server and the worker: the store, the queue and broker backends, and
// the email dispatchers.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/voucherverse/storefront-api/internal/config"
	"github.com/voucherverse/storefront-api/internal/mail"
	"github.com/voucherverse/storefront-api/internal/queue"
	"github.com/voucherverse/storefront-api/internal/realtime"
	"github.com/voucherverse/storefront-api/internal/repo"
	"github.com/voucherverse/storefront-api/internal/services"
)

const pingTimeout = 5 * time.Second

// ErrRedisRequired is returned when a process needs cross-process backends
// but REDIS_ADDR is empty.
var ErrRedisRequired = errors.New("REDIS_ADDR is required")

// OpenStore connects to the configured database, installs the tracing
// plugin when tracing is on, and migrates the schema.
func OpenStore(cfg config.Config) (*gorm.DB, error) {
	dsn := cfg.DB.Path
	if cfg.DB.Driver == "postgres" {
		dsn = cfg.DB.URL
	}
	db, err := repo.Open(cfg.DB.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.InstrumentTracing(db); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Backends are the job queue and the event broker. Redis is nil in memory
// mode.
type Backends struct {
	Queue  queue.Queue
	Broker realtime.Broker
	Redis  *redis.Client

	closers []func()
}

// Close releases the backends.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// OpenBackends selects Redis when REDIS_ADDR is set and in-process
// implementations otherwise. requireRedis rejects the memory mode.
func OpenBackends(ctx context.Context, cfg config.Config, requireRedis bool, log zerolog.Logger) (*Backends, error) {
	if !cfg.Redis.Enabled() {
		if requireRedis {
			return nil, ErrRedisRequired
		}
		q := queue.NewMemoryQueue(0, cfg.Email.MaxRetries)
		log.Info().Msg("using in-memory queue and broker")
		return &Backends{
			Queue:   q,
			Broker:  realtime.NewMemoryBroker(),
			closers: []func(){q.Close},
		}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	return &Backends{
		Queue:   queue.NewRedisQueue(rdb, cfg.Email.Queue, cfg.Email.MaxRetries, log),
		Broker:  realtime.NewRedisBroker(rdb, log),
		Redis:   rdb,
		closers: []func(){func() { _ = rdb.Close() }},
	}, nil
}

// StartDispatchers runs cfg.Email.Workers dispatchers until ctx ends. Wait
// on the returned group for them to drain.
func StartDispatchers(ctx context.Context, cfg config.Config, db *gorm.DB, b *Backends, mailer mail.Mailer, log zerolog.Logger) *errgroup.Group {
	n := cfg.Email.Workers
	if n < 1 {
		n = 1
	}
	deliveries := &services.DeliveryService{DB: db, Events: b.Broker}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		d := &mail.Dispatcher{
			Queue:      b.Queue,
			Mailer:     mailer,
			Deliveries: deliveries,
			Log:        log.With().Int("worker", i).Logger(),
		}
		g.Go(func() error {
			d.Run(gctx)
			return nil
		})
	}
	return g
}

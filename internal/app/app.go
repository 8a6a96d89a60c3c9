// Package app wires configuration into the services shared by the server,
// the worker and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/graphmail/internal/config"
	"github.com/ignite/graphmail/internal/pkg/distlock"
	"github.com/ignite/graphmail/internal/pkg/logger"
	"github.com/ignite/graphmail/internal/repository/postgres"
	"github.com/ignite/graphmail/internal/service/notification"
	"github.com/ignite/graphmail/internal/service/profile"
	"github.com/ignite/graphmail/internal/transport"
	"github.com/ignite/graphmail/internal/worker"
)

// App holds the process-wide dependencies.
type App struct {
	Config        *config.Config
	DB            *sql.DB
	Redis         *redis.Client // nil when queued delivery is disabled
	Queue         *worker.Queue // nil when Redis is not configured
	Profiles      *profile.Service
	Notifications *notification.Service
	Transports    *transport.Factory
}

// ConfigureLogging applies the logging section to the package logger.
func ConfigureLogging(cfg config.LoggingConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.RedactPII)
}

// New connects to Postgres and, if configured, Redis, and builds the
// services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	ConfigureLogging(cfg.Logging)

	db, err := OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			rdb.Close()
			db.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis")
	} else {
		logger.Warn("redis not configured, queued delivery disabled")
	}

	return build(cfg, db, rdb), nil
}

func build(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	lockFor := distlock.Factory(rdb, db, cfg.Worker.LockTTL())

	profiles := profile.NewService(
		postgres.NewProfileRepo(db),
		profile.WithLocks(func(key string) profile.Locker { return lockFor(key) }),
		profile.WithSeeds(cfg.Profiles),
	)
	transports := transport.NewFactory(cfg.Transport.Graph(), cfg.SES.Transport())

	opts := []notification.Option{
		notification.WithLocks(func(key string) notification.Lock { return lockFor(key) }, cfg.Worker.LockTTL()),
	}
	var queue *worker.Queue
	if rdb != nil {
		queue = worker.NewQueue(rdb, cfg.Redis.QueueKey)
		opts = append(opts, notification.WithQueue(queue))
	}
	notifications := notification.NewService(profiles, transports, postgres.NewDeliveryRepo(db), opts...)

	return &App{
		Config:        cfg,
		DB:            db,
		Redis:         rdb,
		Queue:         queue,
		Profiles:      profiles,
		Notifications: notifications,
		Transports:    transports,
	}
}

// OpenDB opens and pings the Postgres pool.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database")
	return db, nil
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}

// Command aegis-migrate applies the credential store schema and checks the
// session cache.
//
// Configuration is read from the environment:
//
//	AEGIS_DATABASE_DRIVER  postgres or sqlite (default postgres)
//	AEGIS_DATABASE_URL     store DSN (required)
//	AEGIS_REDIS_ADDR       cache address, skipped when empty
//	AEGIS_LOG_LEVEL        logrus level (default info)
//
// Run:
//
//	AEGIS_DATABASE_URL=postgres://localhost/aegis go run ./cmd/aegis-migrate
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/aegis/store"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type config struct {
	DatabaseDriver string        `env:"AEGIS_DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string        `env:"AEGIS_DATABASE_URL,required"`
	RedisAddr      string        `env:"AEGIS_REDIS_ADDR"`
	LogLevel       string        `env:"AEGIS_LOG_LEVEL" envDefault:"info"`
	Timeout        time.Duration `env:"AEGIS_MIGRATE_TIMEOUT" envDefault:"60s"`
}

func loadConfig(environ map[string]string) (config, error) {
	var cfg config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return config{}, fmt.Errorf("parse environment: %w", err)
	}
	switch cfg.DatabaseDriver {
	case store.DriverPostgres, store.DriverSQLite:
	default:
		return config{}, fmt.Errorf("unsupported AEGIS_DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	return cfg, nil
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger, nil
}

func main() {
	cfg, err := loadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "aegis-migrate:", err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "aegis-migrate: AEGIS_LOG_LEVEL:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("aegis-migrate failed")
		os.Exit(1)
	}
}

// run migrates the store, then pings the cache when one is configured.
func run(ctx context.Context, cfg config, logger logrus.FieldLogger) error {
	log := logger.WithField("driver", cfg.DatabaseDriver)

	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, store.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	applied, err := store.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	log.WithField("applied", applied).Info("store schema up to date")

	if cfg.RedisAddr == "" {
		log.Info("no session cache configured, skipping ping")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer client.Close()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping session cache %s: %w", cfg.RedisAddr, err)
	}
	log.WithFields(logrus.Fields{
		"redis_addr": cfg.RedisAddr,
		"latency":    time.Since(start).String(),
	}).Info("session cache reachable")
	return nil
}

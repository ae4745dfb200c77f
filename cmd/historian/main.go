// cmd/historian/main.go drains session action records from Redis and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/liarspoker/internal/cache"
	"github.com/jason-s-yu/liarspoker/internal/config"
	"github.com/jason-s-yu/liarspoker/internal/database"
	"github.com/jason-s-yu/liarspoker/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr == "" || cfg.PostgresDSN() == "" {
		logger.Fatal("historian needs REDIS_ADDR and PG_HOST")
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	store, err := database.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.WithError(err).Fatal("postgres unavailable")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	svc := historian.New(
		historian.RedisQueue{Client: rdb, Name: cfg.HistorianQueueName},
		store,
		historian.Config{
			BatchSize:     cfg.HistorianBatchSize,
			FlushInterval: cfg.HistorianFlush,
			Inactivity:    cfg.HistorianInactivity,
		},
		logger,
	)

	logger.WithField("queue", cfg.HistorianQueueName).Info("historian running")
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("historian stopped")
	}
	logger.Info("historian shut down")
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

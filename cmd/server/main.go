// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/liarspoker/internal/auth"
	"github.com/jason-s-yu/liarspoker/internal/cache"
	"github.com/jason-s-yu/liarspoker/internal/config"
	"github.com/jason-s-yu/liarspoker/internal/database"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/handlers"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/matchmaking"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// queueTick is how often the matchmaking queue is re-checked for players who
// have waited long enough for a short table.
const queueTick = 5 * time.Second

func main() {
	cfg := config.Load()

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer, err := newSigner(cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to set up token signing")
	}

	var publisher game.ActionPublisher
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("redis unavailable")
		}
		defer rdb.Close()
		publisher = cache.NewPublisher(rdb, cfg.HistorianQueueName)
		logger.WithField("queue", cfg.HistorianQueueName).Info("publishing session actions to redis")
	} else {
		logger.Warn("REDIS_ADDR not set, session actions are not persisted")
	}

	var users handlers.UserStore
	if dsn := cfg.PostgresDSN(); dsn != "" {
		store, err := database.Connect(ctx, dsn)
		if err != nil {
			logger.WithError(err).Fatal("postgres unavailable")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
		users = store
	} else {
		logger.Warn("PG_HOST not set, running with guest accounts only")
	}

	hub := handlers.NewHub(logger)
	rooms := lobby.NewRegistry(lobby.Options{
		Notifier:  hub,
		Publisher: publisher,
		Logger:    logger,
		LogLimit:  cfg.SessionLogLimit,
	})
	queue := matchmaking.New(rooms, matchmaking.Options{Notifier: hub, Logger: logger})
	go tickQueue(ctx, queue)

	srv := &handlers.Server{
		Rooms:          rooms,
		Queue:          queue,
		Hub:            hub,
		Signer:         signer,
		Users:          users,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}

func newSigner(cfg config.Config) (*auth.Signer, error) {
	ttl, err := auth.ParseTokenTTL(cfg.TokenExpireTime)
	if err != nil {
		return nil, err
	}
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" {
		return auth.NewSignerFromFiles(cfg.JWTPrivateKey, cfg.JWTPublicKey, ttl)
	}
	return auth.NewSigner(ttl)
}

func tickQueue(ctx context.Context, q *matchmaking.Queue) {
	t := time.NewTicker(queueTick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			q.Process()
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/multierr"

	"github.com/shifa-care/shifa_wallet/internal/config"
	"github.com/shifa-care/shifa_wallet/internal/infra"
	"github.com/shifa-care/shifa_wallet/internal/logging"
	"github.com/shifa-care/shifa_wallet/internal/migrations"
	"github.com/shifa-care/shifa_wallet/internal/notification"
	"github.com/shifa-care/shifa_wallet/internal/routes"
	"github.com/shifa-care/shifa_wallet/internal/server"
)

const notifyTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppName, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) (err error) {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		db    *pgxpool.Pool
		mc    *mongo.Client
		cache *redis.Client
	)
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	switch cfg.Backend {
	case config.BackendPostgres:
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, func() error { db.Close(); return nil })
		if cfg.AutoMigrate {
			if err := migrations.Up(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied")
		}
	case config.BackendMongo:
		mc, err = infra.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		closers = append(closers, func() error {
			dctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
			defer cancel()
			return mc.Disconnect(dctx)
		})
	}

	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, cache.Close)
	}

	fanout := notification.Multi{notification.NewLoggerNotifier(logger)}
	if cache != nil {
		fanout = append(fanout, notification.NewRedisNotifier(cache))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kn := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		fanout = append(fanout, kn)
		closers = append(closers, kn.Close)
	}
	notifier := notification.NewAsync(fanout, logger, notifyTimeout)

	srv, err := server.New(cfg, routes.Deps{
		DB:       db,
		Mongo:    mc,
		Cache:    cache,
		Logger:   logger,
		Registry: reg,
		Notifier: notifier,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()
	logger.Info("listening", "addr", cfg.Address(), "backend", cfg.Backend)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	// Let in-flight notifications drain before their sinks close.
	return notifier.Wait(shutdownCtx)
}

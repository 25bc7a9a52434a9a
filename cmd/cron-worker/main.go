package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packdrop-engine/api/controllers"
	"github.com/angelmondragon/packdrop-engine/api/routes"
	"github.com/angelmondragon/packdrop-engine/internal/cron"
	"github.com/angelmondragon/packdrop-engine/pkg/algod"
	"github.com/angelmondragon/packdrop-engine/pkg/config"
	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
	"github.com/angelmondragon/packdrop-engine/pkg/metrics"
	"github.com/angelmondragon/packdrop-engine/pkg/migrate"
	"github.com/angelmondragon/packdrop-engine/pkg/pubsub"
	"github.com/angelmondragon/packdrop-engine/pkg/redis"
	"github.com/angelmondragon/packdrop-engine/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	checks := map[string]controllers.Pinger{"db": dbClient}
	deps := workerDeps{cfg: cfg, logg: logg, db: dbClient}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		deps.redis = redisClient
		checks["redis"] = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, jobs are serialized per process only")
	}

	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		deps.pubsub = psClient
		checks["pubsub"] = psClient
	}

	ledgerClient, err := algod.NewClient(cfg.Ledger.AlgodURL, cfg.Ledger.AlgodToken, algod.WithTimeout(cfg.Ledger.RequestTimeout))
	if err != nil {
		logg.Error(context.Background(), "failed to create algod client", err)
		os.Exit(1)
	}
	deps.ledger = ledgerClient
	logFundingAccount(context.Background(), logg, ledgerClient, cfg.Ledger.FundingAddress)

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}
	deps.square = squareClient

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	registry := cron.NewRegistry()
	if err := registerJobs(registry, deps); err != nil {
		logg.Error(context.Background(), "failed to register jobs", err)
		os.Exit(1)
	}

	serviceParams := cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  metrics.NewSchedulerMetrics(promRegistry),
	}
	if deps.redis != nil {
		locks, err := cron.RedisLocks(deps.redis, cfg.Scheduler.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create job locks", err)
			os.Exit(1)
		}
		serviceParams.Locks = locks
	}

	service, err := cron.NewService(serviceParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.OpsPort,
		Handler:           routes.NewRouter(cfg, logg, promRegistry, checks, service),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "ops server failed", err)
			stop()
		}
	}()

	logg.Info(ctx, "starting cron worker")

	runErr := service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "ops server shutdown failed", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", runErr)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func logFundingAccount(ctx context.Context, logg *logger.Logger, client *algod.Client, address string) {
	if address == "" {
		return
	}
	ctx = logg.WithField(ctx, "address", address)
	info, err := client.GetAccountInfo(ctx, address)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "funding account lookup failed")
		return
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"amount":      info.Amount,
		"min_balance": info.MinBalance,
		"status":      info.Status,
		"round":       info.Round,
	}), "funding account ready")
}

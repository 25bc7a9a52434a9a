package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packdrop-engine/internal/collectibles"
	"github.com/angelmondragon/packdrop-engine/internal/cron"
	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/notifications"
	"github.com/angelmondragon/packdrop-engine/internal/packs"
	"github.com/angelmondragon/packdrop-engine/internal/payments"
	"github.com/angelmondragon/packdrop-engine/internal/transactions"
	"github.com/angelmondragon/packdrop-engine/pkg/algod"
	"github.com/angelmondragon/packdrop-engine/pkg/config"
	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
	"github.com/angelmondragon/packdrop-engine/pkg/pubsub"
	"github.com/angelmondragon/packdrop-engine/pkg/redis"
	"github.com/angelmondragon/packdrop-engine/pkg/square"
)

// workerDeps holds the clients main bootstrapped. redis and pubsub are nil
// when not configured.
type workerDeps struct {
	cfg    *config.Config
	logg   *logger.Logger
	db     *db.Client
	redis  *redis.Client
	pubsub *pubsub.Client
	ledger *algod.Client
	square *square.Client
}

func registerJobs(registry *cron.Registry, deps workerDeps) error {
	sched := deps.cfg.Scheduler
	conn := deps.db.DB()

	packRepo := packs.NewRepository(conn)
	eventRepo := events.NewRepository(conn)

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return fmt.Errorf("notification service: %w", err)
	}

	processor, err := payments.NewSquareProcessor(deps.square)
	if err != nil {
		return fmt.Errorf("square processor: %w", err)
	}

	ledgerJob, err := cron.NewLedgerTransactionJob(cron.LedgerTransactionJobParams{
		Logger:       deps.logg,
		DB:           deps.db,
		Transactions: transactions.NewRepository(conn),
		Collectibles: collectibles.NewRepository(conn),
		Events:       eventRepo,
		Ledger:       deps.ledger,
		Limit:        sched.LedgerLimit,
		CallTimeout:  sched.CallTimeout,
	})
	if err != nil {
		return err
	}
	if err := registry.Register(cron.LedgerTransactionJobName, sched.LedgerInterval, ledgerJob); err != nil {
		return err
	}

	completionJob, err := cron.NewAuctionCompletionJob(cron.AuctionCompletionJobParams{
		Logger:        deps.logg,
		DB:            deps.db,
		Packs:         packRepo,
		Events:        eventRepo,
		Notifications: notificationService,
		Limit:         sched.AuctionLimit,
	})
	if err != nil {
		return err
	}
	if err := registry.Register(cron.AuctionCompletionJobName, sched.CompletionInterval, completionJob); err != nil {
		return err
	}

	expirationJob, err := cron.NewAuctionExpirationJob(cron.AuctionExpirationJobParams{
		Logger: deps.logg,
		DB:     deps.db,
		Packs:  packRepo,
		Events: eventRepo,
		Limit:  sched.AuctionLimit,
	})
	if err != nil {
		return err
	}
	if err := registry.Register(cron.AuctionExpirationJobName, sched.ExpirationInterval, expirationJob); err != nil {
		return err
	}

	paymentJob, err := cron.NewPaymentStatusJob(cron.PaymentStatusJobParams{
		Logger:      deps.logg,
		DB:          deps.db,
		Payments:    payments.NewRepository(conn),
		Packs:       packRepo,
		Events:      eventRepo,
		Processor:   processor,
		Limit:       sched.PaymentLimit,
		CallTimeout: sched.CallTimeout,
	})
	if err != nil {
		return err
	}
	if err := registry.Register(cron.PaymentStatusJobName, sched.PaymentInterval, paymentJob); err != nil {
		return err
	}

	if deps.redis == nil || deps.pubsub == nil {
		deps.logg.Warn(context.Background(), "event fan-out disabled, requires redis and pubsub")
		return nil
	}

	fanoutJob, err := cron.NewEventFanoutJob(cron.EventFanoutJobParams{
		Logger:       deps.logg,
		Events:       eventRepo,
		Publisher:    cron.NewPubSubPublisher(deps.pubsub.EventsPublisher()),
		Cursor:       deps.redis,
		BatchSize:    sched.FanoutBatchSize,
		Settle:       sched.FanoutSettle,
		GapRetention: sched.FanoutGapRetention,
	})
	if err != nil {
		return err
	}
	return registry.Register(cron.EventFanoutJobName, sched.FanoutInterval, fanoutJob)
}

package cron

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/internal/collectibles"
	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/transactions"
	"github.com/angelmondragon/packdrop-engine/pkg/algod"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

const (
	LedgerTransactionJobName = "ledger-transactions"

	defaultLedgerLimit = 100
	defaultCallTimeout = 10 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerStatusClient interface {
	GetTransactionStatus(ctx context.Context, txID string) (algod.TransactionStatus, error)
}

// LedgerTransactionJobParams configures the ledger reconciler.
type LedgerTransactionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Transactions transactions.Repository
	Collectibles collectibles.Repository
	Events       events.Repository
	Ledger       ledgerStatusClient
	Limit        int
	CallTimeout  time.Duration
}

// LedgerReconcileSummary counts the outcome of one reconcile pass.
type LedgerReconcileSummary struct {
	Confirmed int
	Failed    int
	Pending   int
}

func (s LedgerReconcileSummary) toSummary() Summary {
	return Summary{
		"confirmed": s.Confirmed,
		"failed":    s.Failed,
		"pending":   s.Pending,
	}
}

// LedgerTransactionJob settles pending ledger transactions against algod.
type LedgerTransactionJob struct {
	logg         *logger.Logger
	db           txRunner
	transactions transactions.Repository
	collectibles collectibles.Repository
	events       events.Repository
	ledger       ledgerStatusClient
	limit        int
	callTimeout  time.Duration
}

// NewLedgerTransactionJob builds the ledger reconciler.
func NewLedgerTransactionJob(params LedgerTransactionJobParams) (*LedgerTransactionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Collectibles == nil {
		return nil, fmt.Errorf("collectibles repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	timeout := params.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &LedgerTransactionJob{
		logg:         params.Logger,
		db:           params.DB,
		transactions: params.Transactions,
		collectibles: params.Collectibles,
		events:       params.Events,
		ledger:       params.Ledger,
		limit:        limit,
		callTimeout:  timeout,
	}, nil
}

func (j *LedgerTransactionJob) Run(ctx context.Context) (Summary, error) {
	summary, err := j.Reconcile(ctx, j.limit)
	return summary.toSummary(), err
}

// Reconcile walks up to limit pending transactions, oldest first. Rows the
// ledger has not settled, or that could not be checked, stay pending.
func (j *LedgerTransactionJob) Reconcile(ctx context.Context, limit int) (LedgerReconcileSummary, error) {
	var summary LedgerReconcileSummary
	if limit <= 0 {
		limit = j.limit
	}
	pending, err := j.transactions.ListPending(ctx, limit)
	if err != nil {
		return summary, fmt.Errorf("list pending ledger transactions: %w", err)
	}

	var errs error
	for i := range pending {
		outcome, err := j.reconcileOne(ctx, &pending[i])
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		switch outcome {
		case enums.LedgerTransactionStatusConfirmed:
			summary.Confirmed++
		case enums.LedgerTransactionStatusFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}
	return summary, errs
}

func (j *LedgerTransactionJob) reconcileOne(ctx context.Context, txn *models.LedgerTransaction) (enums.LedgerTransactionStatus, error) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"ledger_transaction_id": txn.ID.String(),
		"ledger_tx":             txn.Address,
	})

	callCtx, cancel := context.WithTimeout(ctx, j.callTimeout)
	status, err := j.ledger.GetTransactionStatus(callCtx, txn.Address)
	cancel()
	if err != nil {
		// a network or node error says nothing about the transaction
		j.logg.Warn(j.logg.WithField(logCtx, "error", err.Error()), "ledger status unavailable; leaving pending")
		return enums.LedgerTransactionStatusPending, nil
	}

	switch {
	case status.Confirmed():
		return j.confirm(logCtx, txn, status)
	case status.Rejected():
		return j.fail(logCtx, txn, status.PoolError)
	default:
		return enums.LedgerTransactionStatusPending, nil
	}
}

func (j *LedgerTransactionJob) confirm(ctx context.Context, txn *models.LedgerTransaction, status algod.TransactionStatus) (enums.LedgerTransactionStatus, error) {
	outcome := enums.LedgerTransactionStatusPending
	if status.AssetIndex > math.MaxInt64 {
		return outcome, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("ledger transaction %s: asset index %d does not fit a collectible address", txn.ID, status.AssetIndex))
	}
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := j.transactions.WithTx(tx)
		locked, err := txRepo.LockPending(ctx, txn.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return nil
		}
		updated, err := txRepo.MarkConfirmed(ctx, txn.ID)
		if err != nil || !updated {
			return err
		}
		eventsRepo := j.events.WithTx(tx)
		if _, err := eventsRepo.Record(ctx, events.Entry{
			Action:     enums.EventActionUpdate,
			EntityType: enums.EventEntityLedgerTransaction,
			EntityID:   txn.ID,
		}); err != nil {
			return err
		}
		if status.AssetIndex > 0 {
			collectible, err := j.collectibles.WithTx(tx).AssignAddress(ctx, txn.ID, int64(status.AssetIndex))
			if err != nil {
				return err
			}
			if collectible != nil {
				if _, err := eventsRepo.Record(ctx, events.Entry{
					Action:        enums.EventActionUpdate,
					EntityType:    enums.EventEntityCollectible,
					EntityID:      collectible.ID,
					UserAccountID: collectible.OwnerID,
				}); err != nil {
					return err
				}
			}
		}
		outcome = enums.LedgerTransactionStatusConfirmed
		return nil
	})
	if err != nil {
		return enums.LedgerTransactionStatusPending, fmt.Errorf("confirm ledger transaction %s: %w", txn.ID, err)
	}
	if outcome == enums.LedgerTransactionStatusConfirmed {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"confirmed_round": status.ConfirmedRound,
			"asset_index":     status.AssetIndex,
		}), "ledger transaction confirmed")
	}
	return outcome, nil
}

func (j *LedgerTransactionJob) fail(ctx context.Context, txn *models.LedgerTransaction, reason string) (enums.LedgerTransactionStatus, error) {
	outcome := enums.LedgerTransactionStatusPending
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := j.transactions.WithTx(tx)
		locked, err := txRepo.LockPending(ctx, txn.ID)
		if err != nil || locked == nil {
			return err
		}
		updated, err := txRepo.MarkFailed(ctx, txn.ID, reason)
		if err != nil || !updated {
			return err
		}
		if _, err := j.events.WithTx(tx).Record(ctx, events.Entry{
			Action:     enums.EventActionUpdate,
			EntityType: enums.EventEntityLedgerTransaction,
			EntityID:   txn.ID,
		}); err != nil {
			return err
		}
		outcome = enums.LedgerTransactionStatusFailed
		return nil
	})
	if err != nil {
		return enums.LedgerTransactionStatusPending, fmt.Errorf("fail ledger transaction %s: %w", txn.ID, err)
	}
	if outcome == enums.LedgerTransactionStatusFailed {
		j.logg.Warn(j.logg.WithField(ctx, "pool_error", reason), "ledger transaction rejected")
	}
	return outcome, nil
}

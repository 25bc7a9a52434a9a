package cron

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-engine/internal/collectibles"
	"github.com/angelmondragon/packdrop-engine/internal/events"
	"github.com/angelmondragon/packdrop-engine/internal/transactions"
	"github.com/angelmondragon/packdrop-engine/pkg/algod"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

func newLedgerJob(t *testing.T, s *store, ledger *fakeLedger) *LedgerTransactionJob {
	t.Helper()
	conn := s.client.DB()
	job, err := NewLedgerTransactionJob(LedgerTransactionJobParams{
		Logger:       testLogger(),
		DB:           s.client,
		Transactions: transactions.NewRepository(conn),
		Collectibles: collectibles.NewRepository(conn),
		Events:       events.NewRepository(conn),
		Ledger:       ledger,
		CallTimeout:  time.Second,
	})
	require.NoError(t, err)
	return job
}

func (s *store) ledgerTx(address string, createdAt time.Time) models.LedgerTransaction {
	s.t.Helper()
	txn := models.LedgerTransaction{Address: address, Status: enums.LedgerTransactionStatusPending, CreatedAt: createdAt}
	require.NoError(s.t, s.client.DB().Create(&txn).Error)
	return txn
}

func (s *store) collectibleFor(txn models.LedgerTransaction) models.Collectible {
	s.t.Helper()
	collectible := models.Collectible{TemplateID: uuid.New(), CreationTransactionID: &txn.ID}
	require.NoError(s.t, s.client.DB().Create(&collectible).Error)
	return collectible
}

func (s *store) ledgerStatus(id uuid.UUID) models.LedgerTransaction {
	s.t.Helper()
	var txn models.LedgerTransaction
	require.NoError(s.t, s.client.DB().First(&txn, "id = ?", id).Error)
	return txn
}

func TestNewLedgerTransactionJobRequiresDependencies(t *testing.T) {
	_, err := NewLedgerTransactionJob(LedgerTransactionJobParams{})
	assert.Error(t, err)
}

func TestLedgerReconcile_ConfirmedWithAssetCascadesOnce(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	txn := s.ledgerTx("TXCONFIRMED", jobNow)
	collectible := s.collectibleFor(txn)
	ledger.statuses["TXCONFIRMED"] = algod.TransactionStatus{ConfirmedRound: 5, AssetIndex: 42}

	summary, err := job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, LedgerReconcileSummary{Confirmed: 1}, summary)

	assert.Equal(t, enums.LedgerTransactionStatusConfirmed, s.ledgerStatus(txn.ID).Status)
	var reloaded models.Collectible
	require.NoError(t, s.client.DB().First(&reloaded, "id = ?", collectible.ID).Error)
	require.NotNil(t, reloaded.Address)
	assert.Equal(t, int64(42), *reloaded.Address)
	assert.Equal(t, int64(2), s.count(&models.Event{}, ""))
	assert.Equal(t, int64(1), s.count(&models.Event{}, "entity_type = ? AND entity_id = ?", enums.EventEntityCollectible, collectible.ID))
	assert.Equal(t, 0, ledger.unbounded)

	// a second pass no longer selects the confirmed row
	summary, err = job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, LedgerReconcileSummary{}, summary)
	assert.Equal(t, int64(2), s.count(&models.Event{}, ""))
	assert.Len(t, ledger.calls, 1)
}

func TestLedgerReconcile_ConfirmedWithoutAssetWritesOneEvent(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	txn := s.ledgerTx("TXTRANSFER", jobNow)
	ledger.statuses["TXTRANSFER"] = algod.TransactionStatus{ConfirmedRound: 9}

	summary, err := job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, enums.LedgerTransactionStatusConfirmed, s.ledgerStatus(txn.ID).Status)
	assert.Equal(t, int64(1), s.count(&models.Event{}, "entity_type = ?", enums.EventEntityLedgerTransaction))
	assert.Equal(t, int64(0), s.count(&models.Event{}, "entity_type = ?", enums.EventEntityCollectible))
}

func TestLedgerReconcile_PoolErrorMarksFailedWithoutCascade(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	txn := s.ledgerTx("TXREJECTED", jobNow)
	collectible := s.collectibleFor(txn)
	ledger.statuses["TXREJECTED"] = algod.TransactionStatus{PoolError: "overspend"}

	summary, err := job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, LedgerReconcileSummary{Failed: 1}, summary)

	stored := s.ledgerStatus(txn.ID)
	assert.Equal(t, enums.LedgerTransactionStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, "overspend", *stored.Error)
	assert.Equal(t, int64(1), s.count(&models.Event{}, ""))

	var reloaded models.Collectible
	require.NoError(t, s.client.DB().First(&reloaded, "id = ?", collectible.ID).Error)
	assert.Nil(t, reloaded.Address)
}

func TestLedgerReconcile_InFlightAndUnreachableStayPending(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	inFlight := s.ledgerTx("TXINFLIGHT", jobNow)
	unreachable := s.ledgerTx("TXTIMEOUT", jobNow.Add(time.Second))
	ledger.errs["TXTIMEOUT"] = pkgerrors.Wrap(pkgerrors.CodeTimeout, context.DeadlineExceeded, "algod request timed out")

	summary, err := job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, LedgerReconcileSummary{Pending: 2}, summary)
	assert.Equal(t, enums.LedgerTransactionStatusPending, s.ledgerStatus(inFlight.ID).Status)
	assert.Equal(t, enums.LedgerTransactionStatusPending, s.ledgerStatus(unreachable.ID).Status)
	assert.Equal(t, int64(0), s.count(&models.Event{}, ""))
}

func TestLedgerReconcile_OldestFirstWithinLimit(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	s.ledgerTx("TXNEW", jobNow)
	s.ledgerTx("TXOLD", jobNow.Add(-time.Hour))
	ledger.statuses["TXOLD"] = algod.TransactionStatus{ConfirmedRound: 1}
	ledger.statuses["TXNEW"] = algod.TransactionStatus{ConfirmedRound: 1}

	summary, err := job.Reconcile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, []string{"TXOLD"}, ledger.calls)
}

func TestLedgerJobRunReportsSummary(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	s.ledgerTx("TXA", jobNow)
	s.ledgerTx("TXB", jobNow)
	ledger.statuses["TXA"] = algod.TransactionStatus{ConfirmedRound: 3}
	ledger.errs["TXB"] = errors.New("connection refused")

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{"confirmed": 1, "failed": 0, "pending": 1}, summary)
}

func TestLedgerReconcile_SettledElsewhereWritesNothing(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	txn := s.ledgerTx("TXRACE", jobNow)
	collectible := s.collectibleFor(txn)
	ledger.statuses["TXRACE"] = algod.TransactionStatus{ConfirmedRound: 4, AssetIndex: 77}
	// another worker confirms the row while this one waits on the ledger
	ledger.onCall = func(string) {
		require.NoError(t, s.client.DB().Model(&models.LedgerTransaction{}).
			Where("id = ?", txn.ID).
			Update("status", enums.LedgerTransactionStatusConfirmed).Error)
	}

	summary, err := job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, LedgerReconcileSummary{Pending: 1}, summary)
	assert.Equal(t, int64(0), s.count(&models.Event{}, ""))

	var reloaded models.Collectible
	require.NoError(t, s.client.DB().First(&reloaded, "id = ?", collectible.ID).Error)
	assert.Nil(t, reloaded.Address)
}

func TestLedgerReconcile_FailedElsewhereIsNotOverwritten(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	txn := s.ledgerTx("TXRACEFAIL", jobNow)
	ledger.statuses["TXRACEFAIL"] = algod.TransactionStatus{PoolError: "overspend"}
	ledger.onCall = func(string) {
		require.NoError(t, s.client.DB().Model(&models.LedgerTransaction{}).
			Where("id = ?", txn.ID).
			Update("status", enums.LedgerTransactionStatusConfirmed).Error)
	}

	summary, err := job.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, LedgerReconcileSummary{Pending: 1}, summary)
	assert.Equal(t, enums.LedgerTransactionStatusConfirmed, s.ledgerStatus(txn.ID).Status)
	assert.Equal(t, int64(0), s.count(&models.Event{}, ""))
}

func TestLedgerReconcile_OversizedAssetIndexStaysPending(t *testing.T) {
	s := newStore(t)
	ledger := newFakeLedger()
	job := newLedgerJob(t, s, ledger)
	txn := s.ledgerTx("TXHUGE", jobNow)
	collectible := s.collectibleFor(txn)
	ledger.statuses["TXHUGE"] = algod.TransactionStatus{ConfirmedRound: 2, AssetIndex: math.MaxInt64 + 1}

	summary, err := job.Reconcile(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Equal(t, LedgerReconcileSummary{Pending: 1}, summary)
	assert.Equal(t, enums.LedgerTransactionStatusPending, s.ledgerStatus(txn.ID).Status)
	assert.Equal(t, int64(0), s.count(&models.Event{}, ""))

	var reloaded models.Collectible
	require.NoError(t, s.client.DB().First(&reloaded, "id = ?", collectible.ID).Error)
	assert.Nil(t, reloaded.Address)
}

package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-engine/pkg/algod"
	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/db/dbtest"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

var jobNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type store struct {
	t      *testing.T
	client *db.Client
}

func newStore(t *testing.T) *store {
	t.Helper()
	return &store{t: t, client: dbtest.Open(t)}
}

func (s *store) user(name string) models.UserAccount {
	s.t.Helper()
	user := models.UserAccount{ExternalID: "auth0|" + name, Username: name, Email: name + "@example.com"}
	require.NoError(s.t, s.client.DB().Create(&user).Error)
	return user
}

func (s *store) template(packType enums.PackType, until *time.Time) models.PackTemplate {
	s.t.Helper()
	released := jobNow.Add(-72 * time.Hour)
	template := models.PackTemplate{
		Slug:         "drop-" + uuid.NewString()[:8],
		Title:        "Genesis Drop",
		Type:         packType,
		ReleasedAt:   &released,
		AuctionUntil: until,
	}
	require.NoError(s.t, s.client.DB().Create(&template).Error)
	return template
}

func (s *store) auction(until time.Time) models.Pack {
	s.t.Helper()
	template := s.template(enums.PackTypeAuction, &until)
	pack := models.Pack{TemplateID: template.ID, AuctionStatus: enums.AuctionStatusOpen}
	require.NoError(s.t, s.client.DB().Create(&pack).Error)
	return pack
}

func (s *store) purchasePack() models.Pack {
	s.t.Helper()
	template := s.template(enums.PackTypePurchase, nil)
	pack := models.Pack{TemplateID: template.ID, AuctionStatus: enums.AuctionStatusOpen}
	require.NoError(s.t, s.client.DB().Create(&pack).Error)
	return pack
}

// bid inserts a bid and makes it the pack's active bid.
func (s *store) bid(pack models.Pack, user models.UserAccount, cents int64) models.Bid {
	s.t.Helper()
	bid := models.Bid{PackID: pack.ID, UserAccountID: user.ID, AmountCents: cents}
	require.NoError(s.t, s.client.DB().Create(&bid).Error)
	require.NoError(s.t, s.client.DB().Model(&models.Pack{}).Where("id = ?", pack.ID).Update("active_bid_id", bid.ID).Error)
	return bid
}

func (s *store) pack(id uuid.UUID) models.Pack {
	s.t.Helper()
	var pack models.Pack
	require.NoError(s.t, s.client.DB().First(&pack, "id = ?", id).Error)
	return pack
}

func (s *store) count(model any, where string, args ...any) int64 {
	s.t.Helper()
	var n int64
	query := s.client.DB().Model(model)
	if where != "" {
		query = query.Where(where, args...)
	}
	require.NoError(s.t, query.Count(&n).Error)
	return n
}

type fakeLedger struct {
	mu        sync.Mutex
	statuses  map[string]algod.TransactionStatus
	errs      map[string]error
	calls     []string
	unbounded int
	onCall    func(txID string)
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{statuses: map[string]algod.TransactionStatus{}, errs: map[string]error{}}
}

func (f *fakeLedger) GetTransactionStatus(ctx context.Context, txID string) (algod.TransactionStatus, error) {
	if f.onCall != nil {
		f.onCall(txID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, txID)
	if _, ok := ctx.Deadline(); !ok {
		f.unbounded++
	}
	if err := f.errs[txID]; err != nil {
		return algod.TransactionStatus{}, err
	}
	return f.statuses[txID], nil
}

type fakeProcessor struct {
	mu       sync.Mutex
	statuses map[string]enums.PaymentStatus
	errs     map[string]error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{statuses: map[string]enums.PaymentStatus{}, errs: map[string]error{}}
}

func (f *fakeProcessor) GetTransferStatus(_ context.Context, _ enums.PaymentKind, externalID string) (enums.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[externalID]; err != nil {
		return "", err
	}
	return f.statuses[externalID], nil
}

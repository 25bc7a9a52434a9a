package packs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/db/dbtest"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

var repoNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seedAuction(t *testing.T, client *db.Client, until time.Time) models.Pack {
	t.Helper()
	template := models.PackTemplate{
		Slug:         "drop-" + uuid.NewString()[:8],
		Title:        "Drop",
		Type:         enums.PackTypeAuction,
		AuctionUntil: &until,
	}
	require.NoError(t, client.DB().Create(&template).Error)
	pack := models.Pack{TemplateID: template.ID, AuctionStatus: enums.AuctionStatusOpen}
	require.NoError(t, client.DB().Create(&pack).Error)
	return pack
}

func seedBid(t *testing.T, client *db.Client, pack models.Pack, cents int64) models.Bid {
	t.Helper()
	user := models.UserAccount{ExternalID: "auth0|" + uuid.NewString(), Username: "bidder", Email: "bidder@example.com"}
	require.NoError(t, client.DB().Create(&user).Error)
	bid := models.Bid{PackID: pack.ID, UserAccountID: user.ID, AmountCents: cents}
	require.NoError(t, client.DB().Create(&bid).Error)
	return bid
}

func loadPack(t *testing.T, client *db.Client, id uuid.UUID) models.Pack {
	t.Helper()
	var pack models.Pack
	require.NoError(t, client.DB().First(&pack, "id = ?", id).Error)
	return pack
}

func TestSetActiveBid_StalePreviousLoses(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(time.Hour))
	first := seedBid(t, client, pack, 100)
	second := seedBid(t, client, pack, 200)

	ok, err := repo.SetActiveBid(ctx, pack.ID, nil, first.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// A second writer that still believes there is no active bid.
	ok, err = repo.SetActiveBid(ctx, pack.ID, nil, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stale := uuid.New()
	ok, err = repo.SetActiveBid(ctx, pack.ID, &stale, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, first.ID, *loadPack(t, client, pack.ID).ActiveBidID)

	ok, err = repo.SetActiveBid(ctx, pack.ID, &first.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, second.ID, *loadPack(t, client, pack.ID).ActiveBidID)
}

func TestSetActiveBid_ClosedAuctionLoses(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(-time.Hour))
	bid := seedBid(t, client, pack, 100)
	require.NoError(t, client.DB().Model(&models.Pack{}).Where("id = ?", pack.ID).
		Update("auction_status", enums.AuctionStatusExpired).Error)

	ok, err := repo.SetActiveBid(ctx, pack.ID, nil, bid.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loadPack(t, client, pack.ID).ActiveBidID)
}

func TestResolve_SecondSettleLoses(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(-time.Minute))
	bid := seedBid(t, client, pack, 100)
	ok, err := repo.SetActiveBid(ctx, pack.ID, nil, bid.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Resolve(ctx, pack.ID, bid.UserAccountID, repoNow)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Resolve(ctx, pack.ID, uuid.New(), repoNow.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	settled := loadPack(t, client, pack.ID)
	assert.Equal(t, enums.AuctionStatusResolved, settled.AuctionStatus)
	assert.Equal(t, bid.UserAccountID, *settled.OwnerID)

	ok, err = repo.Expire(ctx, pack.ID, repoNow)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolve_RequiresActiveBid(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(-time.Minute))

	ok, err := repo.Resolve(ctx, pack.ID, uuid.New(), repoNow)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loadPack(t, client, pack.ID).OwnerID)
}

func TestExpire_BidAfterListingLoses(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(-time.Minute))

	due, err := repo.ListAuctionsToExpire(ctx, repoNow, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	seedBid(t, client, pack, 100)

	ok, err := repo.Expire(ctx, due[0].ID, repoNow)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, enums.AuctionStatusOpen, loadPack(t, client, pack.ID).AuctionStatus)
}

func TestExpire_SecondSettleLoses(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(-time.Minute))

	ok, err := repo.Expire(ctx, pack.ID, repoNow)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Expire(ctx, pack.ID, repoNow.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	settled := loadPack(t, client, pack.ID)
	assert.Equal(t, enums.AuctionStatusExpired, settled.AuctionStatus)
	require.NotNil(t, settled.ResolvedAt)
	assert.True(t, settled.ResolvedAt.Equal(repoNow))
}

func TestListAuctions_SplitsByBids(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	withBid := seedAuction(t, client, repoNow.Add(-2*time.Minute))
	bid := seedBid(t, client, withBid, 100)
	_, err := repo.SetActiveBid(ctx, withBid.ID, nil, bid.ID)
	require.NoError(t, err)
	empty := seedAuction(t, client, repoNow.Add(-time.Minute))
	seedAuction(t, client, repoNow.Add(time.Hour))

	resolve, err := repo.ListAuctionsToResolve(ctx, repoNow, 10)
	require.NoError(t, err)
	require.Len(t, resolve, 1)
	assert.Equal(t, withBid.ID, resolve[0].ID)
	require.NotNil(t, resolve[0].ActiveBid)
	assert.Equal(t, int64(100), resolve[0].ActiveBid.AmountCents)

	expire, err := repo.ListAuctionsToExpire(ctx, repoNow, 10)
	require.NoError(t, err)
	require.Len(t, expire, 1)
	assert.Equal(t, empty.ID, expire[0].ID)
}

func TestAssignOwner_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	pack := seedAuction(t, client, repoNow.Add(time.Hour))
	first, second := uuid.New(), uuid.New()

	ok, err := repo.AssignOwner(ctx, pack.ID, first)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.AssignOwner(ctx, pack.ID, second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, first, *loadPack(t, client, pack.ID).OwnerID)
}

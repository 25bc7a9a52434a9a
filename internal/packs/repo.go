package packs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Repository persists packs and the auction state stored on them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Pack, error)
	SetActiveBid(ctx context.Context, packID uuid.UUID, previousBidID *uuid.UUID, bidID uuid.UUID) (bool, error)
	ListAuctionsToResolve(ctx context.Context, now time.Time, limit int) ([]models.Pack, error)
	ListAuctionsToExpire(ctx context.Context, now time.Time, limit int) ([]models.Pack, error)
	Resolve(ctx context.Context, packID, ownerID uuid.UUID, at time.Time) (bool, error)
	Expire(ctx context.Context, packID uuid.UUID, at time.Time) (bool, error)
	AssignOwner(ctx context.Context, packID, ownerID uuid.UUID) (bool, error)
	ListBidders(ctx context.Context, packID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a packs repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindForUpdate locks the pack row and loads its template and active bid.
// It returns nil when the pack does not exist.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Pack, error) {
	var pack models.Pack
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Template").
		Preload("ActiveBid").
		Where("id = ?", id).
		First(&pack).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

// SetActiveBid swaps the active bid only while it still equals previousBidID
// and the auction is open.
func (r *repository) SetActiveBid(ctx context.Context, packID uuid.UUID, previousBidID *uuid.UUID, bidID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Pack{}).
		Where("id = ? AND auction_status = ?", packID, enums.AuctionStatusOpen)
	if previousBidID == nil {
		query = query.Where("active_bid_id IS NULL")
	} else {
		query = query.Where("active_bid_id = ?", *previousBidID)
	}
	res := query.Update("active_bid_id", bidID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) dueAuctions(ctx context.Context, now time.Time, limit int) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Pack{}).
		Select("packs.*").
		Joins("JOIN pack_templates ON pack_templates.id = packs.template_id").
		Where("pack_templates.type = ?", enums.PackTypeAuction).
		Where("pack_templates.auction_until IS NOT NULL AND pack_templates.auction_until <= ?", now).
		Where("packs.auction_status = ?", enums.AuctionStatusOpen).
		Order("pack_templates.auction_until ASC, packs.id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return query
}

// ListAuctionsToResolve returns ended open auctions that hold a winning bid.
func (r *repository) ListAuctionsToResolve(ctx context.Context, now time.Time, limit int) ([]models.Pack, error) {
	var rows []models.Pack
	err := r.dueAuctions(ctx, now, limit).
		Where("packs.active_bid_id IS NOT NULL").
		Preload("Template").
		Preload("ActiveBid").
		Find(&rows).Error
	return rows, err
}

// ListAuctionsToExpire returns ended open auctions nobody bid on.
func (r *repository) ListAuctionsToExpire(ctx context.Context, now time.Time, limit int) ([]models.Pack, error) {
	var rows []models.Pack
	err := r.dueAuctions(ctx, now, limit).
		Where("packs.active_bid_id IS NULL").
		Where("NOT EXISTS (SELECT 1 FROM bids WHERE bids.pack_id = packs.id)").
		Preload("Template").
		Find(&rows).Error
	return rows, err
}

// Resolve hands the pack to the winning bidder; false means another worker
// already settled it.
func (r *repository) Resolve(ctx context.Context, packID, ownerID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Pack{}).
		Where("id = ? AND auction_status = ? AND active_bid_id IS NOT NULL", packID, enums.AuctionStatusOpen).
		Updates(map[string]any{
			"owner_id":       ownerID,
			"auction_status": enums.AuctionStatusResolved,
			"resolved_at":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Expire closes an auction that received no bids.
func (r *repository) Expire(ctx context.Context, packID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Pack{}).
		Where("id = ? AND auction_status = ? AND active_bid_id IS NULL", packID, enums.AuctionStatusOpen).
		Where("NOT EXISTS (SELECT 1 FROM bids WHERE bids.pack_id = packs.id)").
		Updates(map[string]any{
			"auction_status": enums.AuctionStatusExpired,
			"resolved_at":    at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AssignOwner sets the owner of an unowned pack.
func (r *repository) AssignOwner(ctx context.Context, packID, ownerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Pack{}).
		Where("id = ? AND owner_id IS NULL", packID).
		Update("owner_id", ownerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListBidders returns the distinct accounts that bid on the pack.
func (r *repository) ListBidders(ctx context.Context, packID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("pack_id = ?", packID).
		Distinct().
		Order("user_account_id").
		Pluck("user_account_id", &ids).Error
	return ids, err
}

package auctions

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
)

// BidRepository persists bids. Bids are inserted once and never updated.
type BidRepository interface {
	WithTx(tx *gorm.DB) BidRepository
	Create(ctx context.Context, bid *models.Bid) error
}

type bidRepository struct {
	db *gorm.DB
}

// NewBidRepository returns a bid repository bound to db.
func NewBidRepository(db *gorm.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) WithTx(tx *gorm.DB) BidRepository {
	if tx == nil {
		return r
	}
	return &bidRepository{db: tx}
}

func (r *bidRepository) Create(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

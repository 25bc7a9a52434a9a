package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Pack is a sellable bundle of collectibles.
type Pack struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TemplateID    uuid.UUID           `gorm:"column:template_id;type:uuid;not null;index"`
	Template      *PackTemplate       `gorm:"foreignKey:TemplateID"`
	OwnerID       *uuid.UUID          `gorm:"column:owner_id;type:uuid"`
	ActiveBidID   *uuid.UUID          `gorm:"column:active_bid_id;type:uuid"`
	ActiveBid     *Bid                `gorm:"foreignKey:ActiveBidID"`
	AuctionStatus enums.AuctionStatus `gorm:"column:auction_status;type:text;not null;default:'open'"`
	ResolvedAt    *time.Time          `gorm:"column:resolved_at"`
	ClaimedAt     *time.Time          `gorm:"column:claimed_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

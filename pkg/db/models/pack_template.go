package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// PackTemplate caches the CMS fields the engine needs to time a drop.
type PackTemplate struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Slug         string         `gorm:"column:slug;not null;uniqueIndex"`
	Title        string         `gorm:"column:title;not null"`
	Type         enums.PackType `gorm:"column:type;type:text;not null"`
	ReleasedAt   *time.Time     `gorm:"column:released_at"`
	AuctionUntil *time.Time     `gorm:"column:auction_until;index"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}

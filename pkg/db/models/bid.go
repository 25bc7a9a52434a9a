package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is an immutable auction offer; a higher bid supersedes it.
type Bid struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PackID        uuid.UUID `gorm:"column:pack_id;type:uuid;not null;index"`
	UserAccountID uuid.UUID `gorm:"column:user_account_id;type:uuid;not null"`
	AmountCents   int64     `gorm:"column:amount_cents;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

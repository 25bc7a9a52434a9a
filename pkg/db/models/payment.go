package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Payment tracks a purchase or payout attempt against the processor.
type Payment struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Kind         enums.PaymentKind   `gorm:"column:kind;type:text;not null"`
	PackID       *uuid.UUID          `gorm:"column:pack_id;type:uuid;index"`
	PayerID      *uuid.UUID          `gorm:"column:payer_id;type:uuid"`
	PayoutTarget *string             `gorm:"column:payout_target"`
	AmountCents  int64               `gorm:"column:amount_cents;not null"`
	Status       enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	ExternalID   string              `gorm:"column:external_id;not null"`
	Error        *string             `gorm:"column:error"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

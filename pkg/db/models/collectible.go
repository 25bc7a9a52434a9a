package models

import (
	"time"

	"github.com/google/uuid"
)

// Collectible is a unit minted (or waiting to be minted) on the ledger.
type Collectible struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TemplateID            uuid.UUID  `gorm:"column:template_id;type:uuid;not null"`
	PackID                *uuid.UUID `gorm:"column:pack_id;type:uuid;index"`
	OwnerID               *uuid.UUID `gorm:"column:owner_id;type:uuid"`
	Address               *int64     `gorm:"column:address;uniqueIndex"`
	CreationTransactionID *uuid.UUID `gorm:"column:creation_transaction_id;type:uuid;index"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

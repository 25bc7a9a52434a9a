package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// LedgerTransaction tracks one operation submitted to the ledger until it settles.
type LedgerTransaction struct {
	ID        uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	Address   string                        `gorm:"column:address;not null;uniqueIndex"`
	Status    enums.LedgerTransactionStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Error     *string                       `gorm:"column:error"`
	CreatedAt time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

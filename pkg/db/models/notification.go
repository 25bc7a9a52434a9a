package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Notification is queued for the external dispatcher, which sets DispatchedAt.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null"`
	UserAccountID uuid.UUID              `gorm:"column:user_account_id;type:uuid;not null;index"`
	Variables     Variables              `gorm:"column:variables;type:jsonb;not null"`
	DispatchedAt  *time.Time             `gorm:"column:dispatched_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

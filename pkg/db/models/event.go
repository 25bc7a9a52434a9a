package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Event is an append-only audit row describing one domain mutation.
type Event struct {
	ID            int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	Action        enums.EventAction     `gorm:"column:action;type:text;not null"`
	EntityType    enums.EventEntityType `gorm:"column:entity_type;type:text;not null"`
	EntityID      uuid.UUID             `gorm:"column:entity_id;type:uuid;not null;index"`
	UserAccountID *uuid.UUID            `gorm:"column:user_account_id;type:uuid"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}

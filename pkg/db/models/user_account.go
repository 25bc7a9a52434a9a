package models

import (
	"time"

	"github.com/google/uuid"
)

// UserAccount links an authenticated user to their marketplace identity.
type UserAccount struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID string    `gorm:"column:external_id;not null;uniqueIndex"`
	Username   string    `gorm:"column:username;not null"`
	Email      string    `gorm:"column:email;not null"`
	Address    *string   `gorm:"column:address"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

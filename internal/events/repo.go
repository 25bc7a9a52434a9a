package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

// Entry describes one observable mutation to append to the event log.
type Entry struct {
	Action        enums.EventAction
	EntityType    enums.EventEntityType
	EntityID      uuid.UUID
	UserAccountID *uuid.UUID
}

// Repository appends to and reads from the event log. Rows are never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Record(ctx context.Context, entry Entry) (*models.Event, error)
	ListAfter(ctx context.Context, afterID int64, createdBefore time.Time, limit int) ([]models.Event, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Event, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Record(ctx context.Context, entry Entry) (*models.Event, error) {
	if !entry.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid event action")
	}
	if !entry.EntityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid event entity type")
	}
	if entry.EntityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event entity id required")
	}
	event := &models.Event{
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		UserAccountID: entry.UserAccountID,
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// ListAfter returns events with id greater than afterID created before the
// cutoff, in id order.
func (r *repositoryImpl) ListAfter(ctx context.Context, afterID int64, createdBefore time.Time, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("id > ? AND created_at < ?", afterID, createdBefore).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListByIDs returns whichever of ids exist, in id order.
func (r *repositoryImpl) ListByIDs(ctx context.Context, ids []int64) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

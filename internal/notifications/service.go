package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

// Input is a notification to queue for the dispatcher.
type Input struct {
	Type          enums.NotificationType
	UserAccountID uuid.UUID
	Variables     models.Variables
}

// Service queues notification rows. Dispatch happens outside the engine.
type Service interface {
	Enqueue(ctx context.Context, tx *gorm.DB, input Input) (*models.Notification, error)
}

type service struct {
	repo Repository
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

// Enqueue inserts the notification using tx when provided so it commits with
// the state change it describes.
func (s *service) Enqueue(ctx context.Context, tx *gorm.DB, input Input) (*models.Notification, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	if input.UserAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	vars := input.Variables
	if vars == nil {
		vars = models.Variables{}
	}
	row := &models.Notification{
		Type:          input.Type,
		UserAccountID: input.UserAccountID,
		Variables:     vars,
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue notification")
	}
	return row, nil
}

package collectibles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-engine/pkg/db"
	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

// ErrAddressTaken means another collectible already holds the ledger asset id.
var ErrAddressTaken = pkgerrors.New(pkgerrors.CodeStateConflict, "ledger asset already assigned to another collectible")

// Repository persists collectibles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AssignAddress(ctx context.Context, creationTxID uuid.UUID, address int64) (*models.Collectible, error)
	FindByCreationTransaction(ctx context.Context, creationTxID uuid.UUID) (*models.Collectible, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a collectibles repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AssignAddress sets the ledger asset id on the collectible minted by
// creationTxID. It returns nil when no collectible is waiting on that
// transaction or its address was already set.
func (r *repository) AssignAddress(ctx context.Context, creationTxID uuid.UUID, address int64) (*models.Collectible, error) {
	collectible, err := r.FindByCreationTransaction(ctx, creationTxID)
	if err != nil || collectible == nil || collectible.Address != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).
		Model(&models.Collectible{}).
		Where("id = ? AND address IS NULL", collectible.ID).
		Update("address", address)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, res.Error, ErrAddressTaken.Message())
		}
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, nil
	}
	collectible.Address = &address
	return collectible, nil
}

func (r *repository) FindByCreationTransaction(ctx context.Context, creationTxID uuid.UUID) (*models.Collectible, error) {
	var collectible models.Collectible
	err := r.db.WithContext(ctx).
		Where("creation_transaction_id = ?", creationTxID).
		First(&collectible).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &collectible, nil
}

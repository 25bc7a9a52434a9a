package transactions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Repository persists ledger transactions. Only pending rows are ever mutated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPending(ctx context.Context, limit int) ([]models.LedgerTransaction, error)
	LockPending(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger transaction repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ListPending returns pending rows, oldest first.
func (r *repository) ListPending(ctx context.Context, limit int) ([]models.LedgerTransaction, error) {
	var rows []models.LedgerTransaction
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.LedgerTransactionStatusPending).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// LockPending re-reads the row under FOR UPDATE and returns nil when another
// worker already settled it.
func (r *repository) LockPending(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error) {
	var row models.LedgerTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", id, enums.LedgerTransactionStatusPending).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx, id, map[string]any{
		"status": enums.LedgerTransactionStatusConfirmed,
	})
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(ctx, id, map[string]any{
		"status": enums.LedgerTransactionStatusFailed,
		"error":  reason,
	})
}

func (r *repository) transition(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("id = ? AND status = ?", id, enums.LedgerTransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

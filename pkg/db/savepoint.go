package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// WithSavepoint runs fn inside a savepoint of tx. When fn fails, only the work
// done since the savepoint is rolled back and the enclosing transaction stays
// usable; the error is returned for the caller to decide.
func WithSavepoint(tx *gorm.DB, name string, fn func(tx *gorm.DB) error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if err := tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to %s: %w", name, rbErr))
		}
		return err
	}
	return nil
}

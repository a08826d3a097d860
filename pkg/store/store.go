// Package store implements the collaborator stores of the payroll engine
// on top of gorm.
package store

import (
	"errors"
	"fmt"

	"github.com/paycycle/backend/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads and writes all records of the payroll engine.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// forUpdate locks the selected rows until the end of the transaction on
// databases that support row locks. SQLite serializes writers anyway.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// wrap marks errors that are not domain errors as store errors.
func wrap(err error) error {
	if err == nil {
		return nil
	}

	for _, known := range []error{
		models.ErrStore,
		models.ErrResourceNotFound,
		models.ErrPeriodState,
		models.ErrNoActiveContract,
		models.ErrDeductionOverdrawn,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	return fmt.Errorf("%w: %w", models.ErrStore, err)
}

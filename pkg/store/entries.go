package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"gorm.io/gorm"
)

// UpsertEntry replaces the payroll entry of the employee for the period.
func (s *Store) UpsertEntry(ctx context.Context, entry *models.PayrollEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("employee_id = ? AND period_id = ?", entry.EmployeeID, entry.PeriodID).
			Delete(&models.PayrollEntry{}).Error
		if err != nil {
			return err
		}

		entry.ID = uuid.Nil
		return tx.Create(entry).Error
	})

	return wrap(err)
}

// Entries returns all payroll entries of the period.
func (s *Store) Entries(ctx context.Context, periodID uuid.UUID) ([]models.PayrollEntry, error) {
	var entries []models.PayrollEntry
	err := s.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Order("employee_id").
		Find(&entries).Error

	return entries, wrap(err)
}

// PruneEntries deletes the entries of the period that do not belong to one
// of the employees to keep.
func (s *Store) PruneEntries(ctx context.Context, periodID uuid.UUID, keep []uuid.UUID) error {
	query := s.db.WithContext(ctx).Where("period_id = ?", periodID)
	if len(keep) > 0 {
		query = query.Where("employee_id NOT IN ?", keep)
	}

	return wrap(query.Delete(&models.PayrollEntry{}).Error)
}

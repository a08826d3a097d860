package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"gorm.io/gorm"
)

// ListDeductions returns all deductions of the employee.
func (s *Store) ListDeductions(ctx context.Context, employeeID uuid.UUID) ([]models.Deduction, error) {
	var deductions []models.Deduction
	err := s.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("start_date, id").
		Find(&deductions).Error

	return deductions, wrap(err)
}

// PeriodSettlements returns the settlements of the employee's deductions for the period.
func (s *Store) PeriodSettlements(ctx context.Context, employeeID, periodID uuid.UUID) ([]models.Settlement, error) {
	var settlements []models.Settlement
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND period_id = ?", employeeID, periodID).
		Find(&settlements).Error

	return settlements, wrap(err)
}

// Settle records the amount withheld for a deduction in a period,
// replacing any earlier settlement of the same deduction and period.
func (s *Store) Settle(ctx context.Context, settlement models.Settlement) error {
	return wrap(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return settle(tx, settlement)
	}))
}

// Release reverts the settlements of the period for all employees not in keep.
func (s *Store) Release(ctx context.Context, periodID uuid.UUID, keep []uuid.UUID) error {
	return wrap(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return release(tx, periodID, keep)
	}))
}

func release(tx *gorm.DB, periodID uuid.UUID, keep []uuid.UUID) error {
	query := tx.Where("period_id = ?", periodID)
	if len(keep) > 0 {
		query = query.Where("employee_id NOT IN ?", keep)
	}

	var settlements []models.Settlement
	if err := query.Find(&settlements).Error; err != nil {
		return err
	}

	for _, s := range settlements {
		err := settle(tx, models.Settlement{
			DeductionID: s.DeductionID,
			PeriodID:    s.PeriodID,
			EmployeeID:  s.EmployeeID,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// settle applies a settlement inside a transaction. The withheld amount of
// the deduction only changes by the difference to the previous settlement
// of the same period, so settling a period again is safe.
//
// A deduction that is inactive because it was exhausted is reactivated as
// soon as its withheld amount drops below the total again. The settlement
// that exhausts a deduction is flagged, only the latest one keeps the flag.
func settle(tx *gorm.DB, settlement models.Settlement) error {
	var deduction models.Deduction
	if err := forUpdate(tx).Where("id = ?", settlement.DeductionID).First(&deduction).Error; err != nil {
		return err
	}

	var prior []models.Settlement
	err := tx.
		Where("deduction_id = ? AND period_id = ?", settlement.DeductionID, settlement.PeriodID).
		Limit(1).
		Find(&prior).Error
	if err != nil {
		return err
	}

	withheld := deduction.Withheld
	if len(prior) == 1 {
		withheld = withheld.Sub(prior[0].Amount)
	}
	withheld = withheld.Add(settlement.Amount)

	// Deductions deactivated by hand stay inactive
	live := deduction.Active || deduction.Exhausted()
	active := live
	deactivated := false
	if deduction.Bounded() {
		if withheld.GreaterThan(deduction.TotalAmount.Decimal) {
			return models.ErrDeductionOverdrawn
		}

		if live && withheld.Equal(deduction.TotalAmount.Decimal) {
			active = false
			deactivated = !settlement.Amount.IsZero()
		}
	}

	err = tx.Model(&deduction).Updates(map[string]any{
		"withheld": withheld,
		"active":   active,
	}).Error
	if err != nil {
		return err
	}

	if active || deactivated {
		err = tx.Model(&models.Settlement{}).
			Where("deduction_id = ? AND deactivated = ?", deduction.ID, true).
			Update("deactivated", false).Error
		if err != nil {
			return err
		}
	}

	switch {
	case len(prior) == 1 && settlement.Amount.IsZero():
		return tx.Delete(&prior[0]).Error
	case len(prior) == 1:
		return tx.Model(&prior[0]).Updates(map[string]any{
			"amount":      settlement.Amount,
			"deactivated": deactivated,
		}).Error
	case settlement.Amount.IsZero():
		return nil
	default:
		settlement.Deactivated = deactivated
		return tx.Create(&settlement).Error
	}
}

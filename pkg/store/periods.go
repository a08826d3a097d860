package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/paycycle/backend/internal/types"
	"github.com/paycycle/backend/pkg/models"
	"gorm.io/gorm"
)

// CreatePeriod saves a new period. Start and end date are derived from
// year and month.
func (s *Store) CreatePeriod(ctx context.Context, period *models.Period) error {
	return wrap(s.db.WithContext(ctx).Create(period).Error)
}

// Period returns the period with the ID.
func (s *Store) Period(ctx context.Context, id uuid.UUID) (models.Period, error) {
	var period models.Period
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&period).Error
	return period, wrap(err)
}

// PeriodByMonth returns the period for the calendar month.
func (s *Store) PeriodByMonth(ctx context.Context, month types.Month) (models.Period, error) {
	var period models.Period
	err := s.db.WithContext(ctx).Where("year = ? AND month = ?", month.Year(), int(month.Month())).First(&period).Error
	return period, wrap(err)
}

// Periods returns all periods, latest first.
func (s *Store) Periods(ctx context.Context) ([]models.Period, error) {
	var periods []models.Period
	err := s.db.WithContext(ctx).Order("year DESC, month DESC").Find(&periods).Error
	return periods, wrap(err)
}

// AcquireRun marks the period as being processed by the run if it is idle
// and still has the expected status. It fails with models.ErrPeriodBusy
// when another run holds the period.
func (s *Store) AcquireRun(ctx context.Context, id uuid.UUID, expected models.PeriodStatus, runID string) error {
	tx := s.db.WithContext(ctx).
		Model(&models.Period{}).
		Where("id = ? AND status = ? AND run_id = ?", id, expected, "").
		Updates(map[string]any{
			"status": models.PeriodProcessing,
			"run_id": runID,
		})
	if tx.Error != nil {
		return wrap(tx.Error)
	}

	if tx.RowsAffected == 1 {
		return nil
	}

	return s.conflict(ctx, id)
}

// FinishRun writes the outcome of the run to the period and releases it.
func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, runID string, run models.PeriodRun) error {
	tx := s.db.WithContext(ctx).
		Model(&models.Period{}).
		Where("id = ? AND run_id = ?", id, runID).
		Updates(map[string]any{
			"status":                       run.Status,
			"gross_total":                  run.Totals.GrossTotal,
			"employer_contributions_total": run.Totals.EmployerContributionsTotal,
			"employee_contributions_total": run.Totals.EmployeeContributionsTotal,
			"net_total":                    run.Totals.NetTotal,
			"employees_processed":          run.Processed,
			"employees_failed":             run.Failed,
			"processed_by":                 run.Actor,
			"processed_at":                 run.At,
			"run_id":                       "",
			"last_run_id":                  runID,
		})
	if tx.Error != nil {
		return wrap(tx.Error)
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: run %s no longer holds period %s", models.ErrPeriodBusy, runID, id)
	}
	return nil
}

// AbortRun releases the period without recording an outcome and restores
// the status it had before the run.
func (s *Store) AbortRun(ctx context.Context, id uuid.UUID, runID string, status models.PeriodStatus) error {
	err := s.db.WithContext(ctx).
		Model(&models.Period{}).
		Where("id = ? AND run_id = ?", id, runID).
		Updates(map[string]any{
			"status": status,
			"run_id": "",
		}).Error

	return wrap(err)
}

// Transition moves an idle period from one status to another and sets
// the additional columns.
func (s *Store) Transition(ctx context.Context, id uuid.UUID, from, to models.PeriodStatus, columns map[string]any) error {
	updates := map[string]any{"status": to}
	for k, v := range columns {
		updates[k] = v
	}

	tx := s.db.WithContext(ctx).
		Model(&models.Period{}).
		Where("id = ? AND status = ? AND run_id = ?", id, from, "").
		Updates(updates)
	if tx.Error != nil {
		return wrap(tx.Error)
	}

	if tx.RowsAffected == 1 {
		return nil
	}

	return s.conflict(ctx, id)
}

// DeletePeriod deletes the period with its payroll entries and reverts
// the deduction settlements of the period.
func (s *Store) DeletePeriod(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period models.Period
		if err := forUpdate(tx).Where("id = ?", id).First(&period).Error; err != nil {
			return err
		}

		if period.Running() {
			return models.ErrPeriodBusy
		}

		if period.Status == models.PeriodApproved {
			return models.ErrPeriodApproved
		}

		if period.Status == models.PeriodFinalized {
			return fmt.Errorf("%w: the period is finalized", models.ErrPeriodState)
		}

		if err := tx.Where("period_id = ?", id).Delete(&models.PayrollEntry{}).Error; err != nil {
			return err
		}

		if err := release(tx, id, nil); err != nil {
			return err
		}

		return tx.Delete(&period).Error
	})

	return wrap(err)
}

// conflict explains why a conditional update of the period did not match.
func (s *Store) conflict(ctx context.Context, id uuid.UUID) error {
	period, err := s.Period(ctx, id)
	if err != nil {
		return err
	}

	if period.Running() {
		return models.ErrPeriodBusy
	}

	if period.Status == models.PeriodApproved {
		return models.ErrPeriodApproved
	}

	return fmt.Errorf("%w: period %s is %s", models.ErrPeriodState, period.Key(), period.Status)
}

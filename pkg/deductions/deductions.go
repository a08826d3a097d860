// Package deductions selects the deductions withheld from an employee's
// pay and settles their balances.
package deductions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"github.com/shopspring/decimal"
)

// Store reads and writes deductions and their settlements.
type Store interface {
	// ListDeductions returns all deductions of the employee, active or not.
	ListDeductions(ctx context.Context, employeeID uuid.UUID) ([]models.Deduction, error)

	// PeriodSettlements returns the settlements of the employee's deductions for the period.
	PeriodSettlements(ctx context.Context, employeeID, periodID uuid.UUID) ([]models.Settlement, error)

	// Settle records the settlement of a deduction for a period. A previous
	// settlement of the same deduction and period is replaced: the withheld
	// amount of the deduction changes by the difference only. A zero amount
	// removes the settlement.
	Settle(ctx context.Context, settlement models.Settlement) error

	// Release reverts all settlements of the period except the ones of the
	// employees in keep.
	Release(ctx context.Context, periodID uuid.UUID, keep []uuid.UUID) error
}

// Manager selects and settles deductions.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// ActiveDeductions returns the deductions of the employee that apply at the
// reference date.
//
// Balances are evaluated as they were before the period was settled: if the
// period has been processed before, its settlements are credited back in the
// returned values. Exhausted deductions with a balance after the credit are
// returned as active. Pass uuid.Nil as periodID to evaluate the stored
// balances.
func (m *Manager) ActiveDeductions(ctx context.Context, employeeID, periodID uuid.UUID, reference time.Time) ([]models.Deduction, error) {
	all, err := m.store.ListDeductions(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("listing deductions of employee %s: %w", employeeID, err)
	}

	settled := map[uuid.UUID]models.Settlement{}
	if periodID != uuid.Nil {
		settlements, err := m.store.PeriodSettlements(ctx, employeeID, periodID)
		if err != nil {
			return nil, fmt.Errorf("listing settlements of employee %s: %w", employeeID, err)
		}

		for _, s := range settlements {
			settled[s.DeductionID] = s
		}
	}

	day := truncateDay(reference)
	active := make([]models.Deduction, 0, len(all))
	for _, d := range all {
		// An exhausted deduction is applied as long as crediting back the
		// period's settlement leaves a balance, no matter which period's
		// settlement exhausted it
		if d.Exhausted() {
			d.Active = true
		}

		if s, ok := settled[d.ID]; ok {
			d.Withheld = d.Withheld.Sub(s.Amount)
		}

		if !d.Active || truncateDay(d.StartDate).After(day) {
			continue
		}

		if d.EndDate != nil && truncateDay(*d.EndDate).Before(day) {
			continue
		}

		if d.Bounded() && !d.Remaining().IsPositive() {
			continue
		}

		active = append(active, d)
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].StartDate.Equal(active[j].StartDate) {
			return active[i].StartDate.Before(active[j].StartDate)
		}
		return active[i].ID.String() < active[j].ID.String()
	})

	return active, nil
}

// ApplyOne returns the amount to withhold for the deduction this period.
func ApplyOne(d models.Deduction) decimal.Decimal {
	if !d.MonthlyAmount.IsPositive() {
		return decimal.Zero
	}

	if !d.Bounded() {
		return d.MonthlyAmount
	}

	remaining := d.Remaining()
	if !remaining.IsPositive() {
		return decimal.Zero
	}

	return decimal.Min(d.MonthlyAmount, remaining)
}

// Plan returns the deductions to withhold from the employee's pay for the
// period with their amounts. Deductions with nothing left to withhold are
// omitted.
func (m *Manager) Plan(ctx context.Context, employeeID, periodID uuid.UUID, reference time.Time) ([]models.AppliedDeduction, error) {
	active, err := m.ActiveDeductions(ctx, employeeID, periodID, reference)
	if err != nil {
		return nil, err
	}

	applied := make([]models.AppliedDeduction, 0, len(active))
	for _, d := range active {
		amount := ApplyOne(d)
		if amount.IsZero() {
			continue
		}

		applied = append(applied, models.AppliedDeduction{
			DeductionID: d.ID,
			Kind:        d.Kind,
			Amount:      amount,
		})
	}

	return applied, nil
}

// SettleBalance records that amount was withheld for the deduction in the
// period. Settling the same deduction and period again replaces the
// previous amount instead of adding to it.
func (m *Manager) SettleBalance(ctx context.Context, employeeID, deductionID, periodID uuid.UUID, amount decimal.Decimal) error {
	err := m.store.Settle(ctx, models.Settlement{
		DeductionID: deductionID,
		PeriodID:    periodID,
		EmployeeID:  employeeID,
		Amount:      amount,
	})
	if err != nil {
		return fmt.Errorf("settling deduction %s: %w", deductionID, err)
	}

	return nil
}

// Settle settles all deductions applied to the employee's entry for the
// period. Deductions settled by an earlier run of the period that are no
// longer applied are reverted.
func (m *Manager) Settle(ctx context.Context, employeeID, periodID uuid.UUID, applied []models.AppliedDeduction) error {
	previous, err := m.store.PeriodSettlements(ctx, employeeID, periodID)
	if err != nil {
		return fmt.Errorf("listing settlements of employee %s: %w", employeeID, err)
	}

	seen := make(map[uuid.UUID]bool, len(applied))
	for _, a := range applied {
		seen[a.DeductionID] = true

		if err := m.SettleBalance(ctx, employeeID, a.DeductionID, periodID, a.Amount); err != nil {
			return err
		}
	}

	for _, s := range previous {
		if seen[s.DeductionID] {
			continue
		}

		if err := m.SettleBalance(ctx, employeeID, s.DeductionID, periodID, decimal.Zero); err != nil {
			return err
		}
	}

	return nil
}

// Release reverts the settlements of the period for every employee not in keep.
func (m *Manager) Release(ctx context.Context, periodID uuid.UUID, keep []uuid.UUID) error {
	if err := m.store.Release(ctx, periodID, keep); err != nil {
		return fmt.Errorf("releasing settlements of period %s: %w", periodID, err)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

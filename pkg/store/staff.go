package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
)

// ActiveEmployees returns the profiles of all active employees.
func (s *Store) ActiveEmployees(ctx context.Context) ([]models.EmployeeProfile, error) {
	var employees []models.Employee
	err := s.db.WithContext(ctx).
		Where("status = ?", models.EmployeeActive).
		Order("name, id").
		Find(&employees).Error
	if err != nil {
		return nil, wrap(err)
	}

	profiles := make([]models.EmployeeProfile, 0, len(employees))
	for _, e := range employees {
		profiles = append(profiles, e.Profile())
	}

	return profiles, nil
}

// ActiveContract returns the active contract of the employee that covers
// the reference date. If several do, the one that started last wins.
func (s *Store) ActiveContract(ctx context.Context, employeeID uuid.UUID, reference time.Time) (*models.ContractSnapshot, error) {
	var contracts []models.Contract
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND status = ?", employeeID, models.ContractActive).
		Order("valid_from DESC").
		Find(&contracts).Error
	if err != nil {
		return nil, wrap(err)
	}

	for _, c := range contracts {
		snapshot := c.Snapshot()
		if snapshot.ActiveOn(reference) {
			return &snapshot, nil
		}
	}

	return nil, fmt.Errorf("%w for employee %s at %s", models.ErrNoActiveContract, employeeID, reference.Format(time.DateOnly))
}

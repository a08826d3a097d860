package test

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Contract returns an active, open ended contract starting 2020-01-01 with
// the given base salary and no allowances or insurance percentages.
func Contract(employeeID uuid.UUID, base string) models.Contract {
	return models.Contract{
		EmployeeID: employeeID,
		BaseSalary: decimal.RequireFromString(base),
		Currency:   "XOF",
		Status:     models.ContractActive,
		ValidFrom:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// CreateEmployee saves an active employee with a generated name.
func CreateEmployee(t *testing.T, db *gorm.DB, children int) models.Employee {
	employee := models.Employee{
		Name:     gofakeit.Name(),
		Status:   models.EmployeeActive,
		Children: children,
	}
	require.Nil(t, db.Create(&employee).Error, "Employee could not be saved")

	return employee
}

// CreateContract saves the contract.
func CreateContract(t *testing.T, db *gorm.DB, contract models.Contract) models.Contract {
	require.Nil(t, db.Create(&contract).Error, "Contract could not be saved")
	return contract
}

// CreateDeduction saves the deduction.
func CreateDeduction(t *testing.T, db *gorm.DB, deduction models.Deduction) models.Deduction {
	require.Nil(t, db.Create(&deduction).Error, "Deduction could not be saved")
	return deduction
}

// CreateStaff saves n active employees, each with an active contract.
func CreateStaff(t *testing.T, db *gorm.DB, n int, base string) []models.Employee {
	employees := make([]models.Employee, 0, n)
	for i := 0; i < n; i++ {
		employee := CreateEmployee(t, db, i%5)
		CreateContract(t, db, Contract(employee.ID, base))
		employees = append(employees, employee)
	}

	return employees
}

package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "active"
	EmployeeInactive   EmployeeStatus = "inactive"
	EmployeeTerminated EmployeeStatus = "terminated"
)

// Employee is the part of the personnel record the payroll engine reads.
type Employee struct {
	DefaultModel
	Name     string         `json:"name"`
	Status   EmployeeStatus `json:"status" gorm:"index"`
	Children int            `json:"children"` // Number of dependent children
}

func (e Employee) Self() string {
	return "Employee"
}

func (e *Employee) BeforeSave(_ *gorm.DB) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Status == "" {
		e.Status = EmployeeActive
	}
	return nil
}

// Profile returns the read-only view of the employee used by the calculator.
func (e Employee) Profile() EmployeeProfile {
	return EmployeeProfile{
		EmployeeID: e.ID,
		Name:       e.Name,
		Status:     e.Status,
		Children:   e.Children,
	}
}

// EmployeeProfile is a read-only snapshot of an employee.
type EmployeeProfile struct {
	EmployeeID uuid.UUID      `json:"employeeId"`
	Name       string         `json:"name"`
	Status     EmployeeStatus `json:"status"`
	Children   int            `json:"children"`
}

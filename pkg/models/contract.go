package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractSuspended  ContractStatus = "suspended"
	ContractTerminated ContractStatus = "terminated"
)

// Contract is an employment contract. Percentages are whole-number
// percents, 25 means 25%.
type Contract struct {
	DefaultModel
	EmployeeID           uuid.UUID       `json:"employeeId" gorm:"index"`
	BaseSalary           decimal.Decimal `json:"baseSalary" gorm:"type:DECIMAL(20,8)"`
	Currency             string          `json:"currency"`
	HousingPct           decimal.Decimal `json:"housingPct" gorm:"type:DECIMAL(20,8)"`
	TransportPct         decimal.Decimal `json:"transportPct" gorm:"type:DECIMAL(20,8)"`
	FunctionPct          decimal.Decimal `json:"functionPct" gorm:"type:DECIMAL(20,8)"`
	OtherBenefits        decimal.Decimal `json:"otherBenefits" gorm:"type:DECIMAL(20,8)"` // Flat amount
	EmployerInsurancePct decimal.Decimal `json:"employerInsurancePct" gorm:"type:DECIMAL(20,8)"`
	EmployeeInsurancePct decimal.Decimal `json:"employeeInsurancePct" gorm:"type:DECIMAL(20,8)"`
	EmployerFundPct      decimal.Decimal `json:"employerFundPct" gorm:"type:DECIMAL(20,8)"`
	EmployeeFundPct      decimal.Decimal `json:"employeeFundPct" gorm:"type:DECIMAL(20,8)"`
	Status               ContractStatus  `json:"status" gorm:"index"`
	ValidFrom            time.Time       `json:"validFrom"`
	ValidTo              *time.Time      `json:"validTo"` // nil means open ended
}

func (c Contract) Self() string {
	return "Contract"
}

func (c *Contract) BeforeSave(_ *gorm.DB) error {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	c.ValidFrom = c.ValidFrom.In(time.UTC)
	if c.ValidTo != nil {
		to := c.ValidTo.In(time.UTC)
		c.ValidTo = &to
	}
	return nil
}

// Snapshot returns the read-only view of the contract.
func (c Contract) Snapshot() ContractSnapshot {
	return ContractSnapshot{
		ContractID:           c.ID,
		EmployeeID:           c.EmployeeID,
		BaseSalary:           c.BaseSalary,
		Currency:             c.Currency,
		HousingPct:           c.HousingPct,
		TransportPct:         c.TransportPct,
		FunctionPct:          c.FunctionPct,
		OtherBenefits:        c.OtherBenefits,
		EmployerInsurancePct: c.EmployerInsurancePct,
		EmployeeInsurancePct: c.EmployeeInsurancePct,
		EmployerFundPct:      c.EmployerFundPct,
		EmployeeFundPct:      c.EmployeeFundPct,
		Status:               c.Status,
		ValidFrom:            c.ValidFrom,
		ValidTo:              c.ValidTo,
	}
}

// ContractSnapshot is the read-only input of a salary calculation.
type ContractSnapshot struct {
	ContractID           uuid.UUID
	EmployeeID           uuid.UUID
	BaseSalary           decimal.Decimal
	Currency             string
	HousingPct           decimal.Decimal
	TransportPct         decimal.Decimal
	FunctionPct          decimal.Decimal
	OtherBenefits        decimal.Decimal
	EmployerInsurancePct decimal.Decimal
	EmployeeInsurancePct decimal.Decimal
	EmployerFundPct      decimal.Decimal
	EmployeeFundPct      decimal.Decimal
	Status               ContractStatus
	ValidFrom            time.Time
	ValidTo              *time.Time
}

// Covers reports whether the validity window contains the date. Both
// bounds are inclusive and compared by calendar day.
func (c ContractSnapshot) Covers(date time.Time) bool {
	day := truncateDay(date)
	if truncateDay(c.ValidFrom).After(day) {
		return false
	}
	return c.ValidTo == nil || !truncateDay(*c.ValidTo).Before(day)
}

// ActiveOn reports whether the contract is eligible for a period with
// the given reference date.
func (c ContractSnapshot) ActiveOn(date time.Time) bool {
	return c.Status == ContractActive && c.Covers(date)
}

func truncateDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

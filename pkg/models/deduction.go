package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DeductionKind string

const (
	DeductionLoan    DeductionKind = "loan"
	DeductionAdvance DeductionKind = "advance"
	DeductionFine    DeductionKind = "fine"
	DeductionOther   DeductionKind = "other"
)

// Deduction is a withholding from net pay. A deduction with a total amount
// is deactivated once the withheld amount reaches the total, deductions
// without one are open ended.
type Deduction struct {
	DefaultModel
	EmployeeID    uuid.UUID           `json:"employeeId" gorm:"index"`
	Kind          DeductionKind       `json:"kind"`
	Note          string              `json:"note"`
	MonthlyAmount decimal.Decimal     `json:"monthlyAmount" gorm:"type:DECIMAL(20,8)"`
	TotalAmount   decimal.NullDecimal `json:"totalAmount" gorm:"type:DECIMAL(20,8)"`
	Withheld      decimal.Decimal     `json:"withheld" gorm:"type:DECIMAL(20,8)"` // Amount already withheld over all settled periods
	StartDate     time.Time           `json:"startDate"`
	EndDate       *time.Time          `json:"endDate"`
	Active        bool                `json:"active"`
	Recurring     bool                `json:"recurring"`
}

func (d Deduction) Self() string {
	return "Deduction"
}

func (d *Deduction) BeforeSave(_ *gorm.DB) error {
	d.Note = strings.TrimSpace(d.Note)
	if d.Kind == "" {
		d.Kind = DeductionOther
	}

	if d.TotalAmount.Valid && d.Withheld.GreaterThan(d.TotalAmount.Decimal) {
		return ErrDeductionOverdrawn
	}
	return nil
}

// Bounded reports whether the deduction has a total amount.
func (d Deduction) Bounded() bool {
	return d.TotalAmount.Valid
}

// Remaining returns the balance left to withhold. It is only meaningful
// for bounded deductions.
func (d Deduction) Remaining() decimal.Decimal {
	if !d.TotalAmount.Valid {
		return decimal.Zero
	}
	return d.TotalAmount.Decimal.Sub(d.Withheld)
}

// Exhausted reports whether the deduction is inactive because its total
// amount has been withheld. Such a deduction is applied again when a
// settlement is reverted and a balance remains.
func (d Deduction) Exhausted() bool {
	return d.Bounded() && !d.Active && !d.Withheld.LessThan(d.TotalAmount.Decimal)
}

// Settlement records the amount withheld for a deduction in one period.
// There is at most one settlement per deduction and period.
type Settlement struct {
	DefaultModel
	DeductionID uuid.UUID       `json:"deductionId" gorm:"uniqueIndex:settlement_deduction_period"`
	PeriodID    uuid.UUID       `json:"periodId" gorm:"uniqueIndex:settlement_deduction_period;index"`
	EmployeeID  uuid.UUID       `json:"employeeId" gorm:"index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,8)"`
	Deactivated bool            `json:"deactivated"` // The settlement exhausted the deduction. Only the latest one is flagged
}

func (s Settlement) Self() string {
	return "Settlement"
}

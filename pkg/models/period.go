package models

import (
	"time"

	"github.com/paycycle/backend/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PeriodStatus string

const (
	PeriodDraft      PeriodStatus = "DRAFT"
	PeriodProcessing PeriodStatus = "PROCESSING"
	PeriodCompleted  PeriodStatus = "COMPLETED"
	PeriodFinalized  PeriodStatus = "FINALIZED"
	PeriodApproved   PeriodStatus = "APPROVED"
)

// Period is the payroll run for one calendar month.
type Period struct {
	DefaultModel
	Year      int          `json:"year" gorm:"uniqueIndex:period_year_month"`
	Month     time.Month   `json:"month" gorm:"uniqueIndex:period_year_month"`
	Status    PeriodStatus `json:"status"`
	StartDate time.Time    `json:"startDate"` // Always the first day of the month, derived on save
	EndDate   time.Time    `json:"endDate"`   // Always the last day of the month, derived on save
	PeriodTotals

	EmployeesProcessed int        `json:"employeesProcessed"`
	EmployeesFailed    int        `json:"employeesFailed"`
	ProcessedBy        string     `json:"processedBy"`
	ProcessedAt        *time.Time `json:"processedAt"`
	FinalizedBy        string     `json:"finalizedBy"`
	FinalizedAt        *time.Time `json:"finalizedAt"`
	ApprovedBy         string     `json:"approvedBy"`
	ApprovedAt         *time.Time `json:"approvedAt"`
	RunID              string     `json:"-" gorm:"index"` // Lock token of the run in progress, empty when idle
	LastRunID          string     `json:"lastRunId"`
}

// PeriodTotals are the aggregates over all payroll entries of a period.
type PeriodTotals struct {
	GrossTotal                 decimal.Decimal `json:"grossTotal" gorm:"type:DECIMAL(20,8)"`
	EmployerContributionsTotal decimal.Decimal `json:"employerContributionsTotal" gorm:"type:DECIMAL(20,8)"`
	EmployeeContributionsTotal decimal.Decimal `json:"employeeContributionsTotal" gorm:"type:DECIMAL(20,8)"`
	NetTotal                   decimal.Decimal `json:"netTotal" gorm:"type:DECIMAL(20,8)"`
}

// Add folds a payroll entry into the totals.
func (t PeriodTotals) Add(e PayrollEntry) PeriodTotals {
	return PeriodTotals{
		GrossTotal:                 t.GrossTotal.Add(e.Gross),
		EmployerContributionsTotal: t.EmployerContributionsTotal.Add(e.Employer.Total),
		EmployeeContributionsTotal: t.EmployeeContributionsTotal.Add(e.Employee.Total),
		NetTotal:                   t.NetTotal.Add(e.NetPay),
	}
}

func (p Period) Self() string {
	return "Period"
}

// Key returns the calendar month of the period.
func (p Period) Key() types.Month {
	return types.NewMonth(p.Year, p.Month)
}

// ReferenceDate is the date contracts and deductions are evaluated at.
func (p Period) ReferenceDate() time.Time {
	return p.Key().LastDay()
}

// Running reports whether a processing run holds the period.
func (p Period) Running() bool {
	return p.RunID != ""
}

// BeforeSave derives the period boundaries from year and month and
// defaults the status.
func (p *Period) BeforeSave(_ *gorm.DB) error {
	if p.Year == 0 {
		return nil
	}

	p.StartDate = p.Key().FirstDay()
	p.EndDate = p.Key().LastDay()

	if p.Status == "" {
		p.Status = PeriodDraft
	}

	return nil
}

// BeforeDelete refuses to delete approved periods.
func (p *Period) BeforeDelete(_ *gorm.DB) error {
	if p.Status == PeriodApproved {
		return ErrPeriodApproved
	}
	return nil
}

// PeriodRun is the outcome of a processing run written back to the period.
type PeriodRun struct {
	Status    PeriodStatus
	Totals    PeriodTotals
	Processed int
	Failed    int
	Actor     string
	At        time.Time
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// EmployerContributions are the statutory charges paid by the employer.
type EmployerContributions struct {
	Pension     decimal.Decimal `json:"pension" gorm:"type:DECIMAL(20,8)"`
	Risk        decimal.Decimal `json:"risk" gorm:"type:DECIMAL(20,8)"`
	Insurance   decimal.Decimal `json:"insurance" gorm:"type:DECIMAL(20,8)"`
	PensionFund decimal.Decimal `json:"pensionFund" gorm:"type:DECIMAL(20,8)"`
	Total       decimal.Decimal `json:"total" gorm:"type:DECIMAL(20,8)"`
}

// Sum returns the sum of all components.
func (c EmployerContributions) Sum() decimal.Decimal {
	return decimal.Sum(c.Pension, c.Risk, c.Insurance, c.PensionFund)
}

// EmployeeContributions are the statutory contributions withheld from the employee.
type EmployeeContributions struct {
	Pension     decimal.Decimal `json:"pension" gorm:"type:DECIMAL(20,8)"`
	Insurance   decimal.Decimal `json:"insurance" gorm:"type:DECIMAL(20,8)"`
	PensionFund decimal.Decimal `json:"pensionFund" gorm:"type:DECIMAL(20,8)"`
	Total       decimal.Decimal `json:"total" gorm:"type:DECIMAL(20,8)"`
}

// Sum returns the sum of all components.
func (c EmployeeContributions) Sum() decimal.Decimal {
	return decimal.Sum(c.Pension, c.Insurance, c.PensionFund)
}

// AppliedDeduction is the amount withheld for one deduction in an entry.
type AppliedDeduction struct {
	DeductionID uuid.UUID       `json:"deductionId"`
	Kind        DeductionKind   `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayrollEntry is the computed salary of one employee for one period.
type PayrollEntry struct {
	DefaultModel
	EmployeeID uuid.UUID `json:"employeeId" gorm:"uniqueIndex:entry_employee_period"`
	PeriodID   uuid.UUID `json:"periodId" gorm:"uniqueIndex:entry_employee_period;index"`
	ContractID uuid.UUID `json:"contractId"`
	Currency   string    `json:"currency"`

	BaseSalary         decimal.Decimal `json:"baseSalary" gorm:"type:DECIMAL(20,8)"`
	HousingAllowance   decimal.Decimal `json:"housingAllowance" gorm:"type:DECIMAL(20,8)"`
	TransportAllowance decimal.Decimal `json:"transportAllowance" gorm:"type:DECIMAL(20,8)"`
	FunctionAllowance  decimal.Decimal `json:"functionAllowance" gorm:"type:DECIMAL(20,8)"`
	FamilyAllowance    decimal.Decimal `json:"familyAllowance" gorm:"type:DECIMAL(20,8)"`
	OtherBenefits      decimal.Decimal `json:"otherBenefits" gorm:"type:DECIMAL(20,8)"`
	Gross              decimal.Decimal `json:"gross" gorm:"type:DECIMAL(20,8)"`

	Employer EmployerContributions `json:"employerContributions" gorm:"embedded;embeddedPrefix:employer_"`
	Employee EmployeeContributions `json:"employeeContributions" gorm:"embedded;embeddedPrefix:employee_"`

	TaxableBase         decimal.Decimal    `json:"taxableBase" gorm:"type:DECIMAL(20,8)"`
	IncomeTax           decimal.Decimal    `json:"incomeTax" gorm:"type:DECIMAL(20,8)"`
	Deductions          []AppliedDeduction `json:"deductions" gorm:"serializer:json"`
	DeductionsTotal     decimal.Decimal    `json:"deductionsTotal" gorm:"type:DECIMAL(20,8)"`
	TotalEmployerCharge decimal.Decimal    `json:"totalEmployerCharge" gorm:"type:DECIMAL(20,8)"` // Gross plus employer contributions
	NetPay              decimal.Decimal    `json:"netPay" gorm:"type:DECIMAL(20,8)"`

	ComputedAt       time.Time         `json:"computedAt"`
	ComputedBy       string            `json:"computedBy"`
	ValidationErrors []ComplianceIssue `json:"validationErrors" gorm:"serializer:json"`
}

func (e PayrollEntry) Self() string {
	return "Payroll Entry"
}

// Round materializes the entry: every monetary field is rounded to the
// given number of places (deductions toward zero, everything else half away
// from zero), then gross, the totals and the net pay are
// derived from the rounded parts so that
// net = gross - employee contributions - income tax - deductions holds exactly.
func (e PayrollEntry) Round(places int32) PayrollEntry {
	e.BaseSalary = e.BaseSalary.Round(places)
	e.HousingAllowance = e.HousingAllowance.Round(places)
	e.TransportAllowance = e.TransportAllowance.Round(places)
	e.FunctionAllowance = e.FunctionAllowance.Round(places)
	e.FamilyAllowance = e.FamilyAllowance.Round(places)
	e.OtherBenefits = e.OtherBenefits.Round(places)
	e.Gross = decimal.Sum(e.BaseSalary, e.HousingAllowance, e.TransportAllowance, e.FunctionAllowance, e.FamilyAllowance, e.OtherBenefits)

	e.Employer.Pension = e.Employer.Pension.Round(places)
	e.Employer.Risk = e.Employer.Risk.Round(places)
	e.Employer.Insurance = e.Employer.Insurance.Round(places)
	e.Employer.PensionFund = e.Employer.PensionFund.Round(places)
	e.Employer.Total = e.Employer.Sum()

	e.Employee.Pension = e.Employee.Pension.Round(places)
	e.Employee.Insurance = e.Employee.Insurance.Round(places)
	e.Employee.PensionFund = e.Employee.PensionFund.Round(places)
	e.Employee.Total = e.Employee.Sum()

	e.TaxableBase = e.TaxableBase.Round(places)
	e.IncomeTax = e.IncomeTax.Round(places)

	// Withheld amounts are rounded toward zero, they must not exceed the
	// remaining balance of the deduction
	deductions := make([]AppliedDeduction, 0, len(e.Deductions))
	e.DeductionsTotal = decimal.Zero
	for _, d := range e.Deductions {
		d.Amount = d.Amount.RoundDown(places)
		if d.Amount.IsZero() {
			continue
		}
		e.DeductionsTotal = e.DeductionsTotal.Add(d.Amount)
		deductions = append(deductions, d)
	}
	e.Deductions = deductions

	e.TotalEmployerCharge = e.Gross.Add(e.Employer.Total)
	e.NetPay = e.Gross.Sub(e.Employee.Total).Sub(e.IncomeTax).Sub(e.DeductionsTotal)

	return e
}

// HasIssue reports whether the entry carries a compliance issue of at least the severity.
func (e PayrollEntry) HasIssue(severity Severity) bool {
	return slices.ContainsFunc(e.ValidationErrors, func(i ComplianceIssue) bool {
		return i.Severity.AtLeast(severity)
	})
}

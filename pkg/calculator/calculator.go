// Package calculator computes the salary breakdown of one employee for one period.
package calculator

import (
	"fmt"
	"time"

	"github.com/paycycle/backend/pkg/models"
	"github.com/paycycle/backend/pkg/tables"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Places is the number of fractional digits monetary values are materialized with.
const Places int32 = 2

// Calculator computes payroll entries from contract snapshots.
type Calculator struct {
	cfg tables.Config
}

// New returns a Calculator for the configuration. The configuration is
// copied, later changes to cfg do not affect the Calculator.
func New(cfg tables.Config) *Calculator {
	return &Calculator{cfg: cfg.Clone()}
}

// Config returns the configuration the Calculator evaluates.
func (c *Calculator) Config() tables.Config {
	return c.cfg.Clone()
}

// Compute calculates the payroll entry for the employee at the reference
// date. The deductions are withheld from the net pay as they are, the
// caller decides on their amounts.
//
// All arithmetic is exact, the entry is rounded once at the end.
func (c *Calculator) Compute(contract *models.ContractSnapshot, profile models.EmployeeProfile, reference time.Time, deductions ...models.AppliedDeduction) (models.PayrollEntry, error) {
	if contract == nil || !contract.ActiveOn(reference) {
		return models.PayrollEntry{}, fmt.Errorf("%w for employee %s at %s", models.ErrNoActiveContract, profile.EmployeeID, reference.Format(time.DateOnly))
	}

	if err := checkContract(contract, profile); err != nil {
		return models.PayrollEntry{}, err
	}

	base := contract.BaseSalary
	entry := models.PayrollEntry{
		EmployeeID:         profile.EmployeeID,
		ContractID:         contract.ContractID,
		Currency:           contract.Currency,
		BaseSalary:         base,
		HousingAllowance:   tables.Percent(base, contract.HousingPct),
		TransportAllowance: tables.Percent(base, contract.TransportPct),
		FunctionAllowance:  tables.Percent(base, contract.FunctionPct),
		FamilyAllowance:    c.cfg.FamilyAllowance(profile.Children),
		OtherBenefits:      contract.OtherBenefits,
	}

	entry.Gross = decimal.Sum(
		entry.BaseSalary,
		entry.HousingAllowance,
		entry.TransportAllowance,
		entry.FunctionAllowance,
		entry.FamilyAllowance,
		entry.OtherBenefits,
	)

	entry.Employer = models.EmployerContributions{
		Pension:     c.cfg.EmployerPension(entry.Gross),
		Risk:        c.cfg.EmployerRisk(entry.Gross),
		Insurance:   tables.Percent(entry.Gross, contract.EmployerInsurancePct),
		PensionFund: tables.Percent(entry.Gross, contract.EmployerFundPct),
	}
	entry.Employer.Total = entry.Employer.Sum()

	entry.Employee = models.EmployeeContributions{
		Pension:     c.cfg.EmployeePension(entry.Gross),
		Insurance:   tables.Percent(entry.Gross, contract.EmployeeInsurancePct),
		PensionFund: tables.Percent(entry.Gross, contract.EmployeeFundPct),
	}
	entry.Employee.Total = entry.Employee.Sum()

	// Housing, transport and function allowances are not taxed
	entry.TaxableBase = entry.Gross.
		Sub(entry.HousingAllowance).
		Sub(entry.TransportAllowance).
		Sub(entry.FunctionAllowance).
		Sub(entry.Employee.Total)
	entry.IncomeTax = c.cfg.IncomeTax(entry.TaxableBase)

	entry.Deductions = make([]models.AppliedDeduction, 0, len(deductions))
	entry.DeductionsTotal = decimal.Zero
	for _, d := range deductions {
		entry.Deductions = append(entry.Deductions, d)
		entry.DeductionsTotal = entry.DeductionsTotal.Add(d.Amount)
	}

	entry.TotalEmployerCharge = entry.Gross.Add(entry.Employer.Total)

	// Net pay is not floored, a negative value is reported by validation
	entry.NetPay = entry.Gross.Sub(entry.Employee.Total).Sub(entry.IncomeTax).Sub(entry.DeductionsTotal)

	return entry.Round(Places), nil
}

func checkContract(contract *models.ContractSnapshot, profile models.EmployeeProfile) error {
	if !contract.BaseSalary.IsPositive() {
		return fmt.Errorf("%w: base salary must be positive, is %s", models.ErrInvalidContractData, contract.BaseSalary)
	}

	if _, err := currency.ParseISO(contract.Currency); err != nil {
		return fmt.Errorf("%w: currency '%s' is not an ISO 4217 code", models.ErrInvalidContractData, contract.Currency)
	}

	if contract.EmployeeID != profile.EmployeeID {
		return fmt.Errorf("%w: contract %s belongs to employee %s, not %s", models.ErrInvalidContractData, contract.ContractID, contract.EmployeeID, profile.EmployeeID)
	}

	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"housing percentage", contract.HousingPct},
		{"transport percentage", contract.TransportPct},
		{"function percentage", contract.FunctionPct},
		{"other benefits", contract.OtherBenefits},
		{"employer insurance percentage", contract.EmployerInsurancePct},
		{"employee insurance percentage", contract.EmployeeInsurancePct},
		{"employer pension fund percentage", contract.EmployerFundPct},
		{"employee pension fund percentage", contract.EmployeeFundPct},
	}

	for _, a := range amounts {
		if a.value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative, is %s", models.ErrInvalidContractData, a.name, a.value)
		}
	}

	return nil
}

package models_test

import (
	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestPayrollEntryRoundKeepsNetIdentity() {
	entry := models.PayrollEntry{
		BaseSalary:         decimal.RequireFromString("100000.005"),
		HousingAllowance:   decimal.RequireFromString("12500.0049"),
		TransportAllowance: decimal.RequireFromString("3333.3333"),
		FamilyAllowance:    decimal.NewFromInt(5000),
		Employer: models.EmployerContributions{
			Pension: decimal.RequireFromString("7249.9999"),
			Risk:    decimal.NewFromInt(2400),
		},
		Employee: models.EmployeeContributions{
			Pension:   decimal.RequireFromString("4833.3333"),
			Insurance: decimal.RequireFromString("1208.3366"),
		},
		TaxableBase: decimal.RequireFromString("98958.3367"),
		IncomeTax:   decimal.Zero,
		Deductions: []models.AppliedDeduction{
			{DeductionID: uuid.New(), Amount: decimal.RequireFromString("333.335")},
		},
	}

	rounded := entry.Round(2)

	assert.Equal(suite.T(), "120833.34", rounded.Gross.StringFixed(2))
	assert.Equal(suite.T(), "9650.00", rounded.Employer.Total.StringFixed(2))
	assert.Equal(suite.T(), "6041.67", rounded.Employee.Total.StringFixed(2))
	assert.Equal(suite.T(), "333.33", rounded.DeductionsTotal.StringFixed(2))

	net := rounded.Gross.Sub(rounded.Employee.Total).Sub(rounded.IncomeTax).Sub(rounded.DeductionsTotal)
	assert.True(suite.T(), net.Equal(rounded.NetPay))
	assert.True(suite.T(), rounded.TotalEmployerCharge.Equal(rounded.Gross.Add(rounded.Employer.Total)))
}

func (suite *TestSuiteStandard) TestPayrollEntryRoundNeverRaisesDeductions() {
	entry := models.PayrollEntry{
		BaseSalary: decimal.NewFromInt(1000),
		Deductions: []models.AppliedDeduction{
			{DeductionID: uuid.New(), Amount: decimal.RequireFromString("10.005")},
			{DeductionID: uuid.New(), Amount: decimal.RequireFromString("0.009")},
		},
	}

	rounded := entry.Round(2)

	suite.Require().Len(rounded.Deductions, 1)
	assert.Equal(suite.T(), "10.00", rounded.Deductions[0].Amount.StringFixed(2))
	assert.Equal(suite.T(), "10.00", rounded.DeductionsTotal.StringFixed(2))
	assert.Equal(suite.T(), "990.00", rounded.NetPay.StringFixed(2))
}

func (suite *TestSuiteStandard) TestPayrollEntryHasIssue() {
	entry := models.PayrollEntry{
		ValidationErrors: []models.ComplianceIssue{{Code: "cap_exceeded", Severity: models.SeverityHigh}},
	}

	assert.True(suite.T(), entry.HasIssue(models.SeverityHigh))
	assert.True(suite.T(), entry.HasIssue(models.SeverityMedium))
	assert.False(suite.T(), entry.HasIssue(models.SeverityCritical))
	assert.False(suite.T(), models.PayrollEntry{}.HasIssue(models.SeverityLow))
}

func (suite *TestSuiteStandard) TestPayrollEntryPersistsStructuredFields() {
	entry := models.PayrollEntry{
		EmployeeID: uuid.New(),
		PeriodID:   uuid.New(),
		Gross:      decimal.NewFromInt(1000),
		Employer:   models.EmployerContributions{Pension: decimal.NewFromInt(60), Total: decimal.NewFromInt(60)},
		Deductions: []models.AppliedDeduction{{DeductionID: uuid.New(), Kind: models.DeductionLoan, Amount: decimal.NewFromInt(10)}},
		ValidationErrors: []models.ComplianceIssue{
			{Code: "net_zero", Severity: models.SeverityMedium, Limit: decimal.Zero, Actual: decimal.Zero},
		},
	}
	suite.Require().Nil(suite.db.Create(&entry).Error)

	var found models.PayrollEntry
	suite.Require().Nil(suite.db.Where("id = ?", entry.ID).First(&found).Error)

	assert.True(suite.T(), found.Employer.Pension.Equal(decimal.NewFromInt(60)))
	suite.Require().Len(found.Deductions, 1)
	assert.Equal(suite.T(), models.DeductionLoan, found.Deductions[0].Kind)
	assert.True(suite.T(), found.Deductions[0].Amount.Equal(decimal.NewFromInt(10)))
	suite.Require().Len(found.ValidationErrors, 1)
	assert.Equal(suite.T(), "net_zero", found.ValidationErrors[0].Code)
}

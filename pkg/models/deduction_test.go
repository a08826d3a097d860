package models_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func (suite *TestSuiteStandard) TestDeductionRemaining() {
	tests := []struct {
		total     decimal.NullDecimal
		withheld  decimal.Decimal
		remaining decimal.Decimal
		bounded   bool
	}{
		{decimal.NewNullDecimal(decimal.NewFromInt(90000)), decimal.NewFromInt(30000), decimal.NewFromInt(60000), true},
		{decimal.NewNullDecimal(decimal.NewFromInt(90000)), decimal.NewFromInt(90000), decimal.Zero, true},
		{decimal.NullDecimal{}, decimal.NewFromInt(500), decimal.Zero, false},
	}

	for _, tt := range tests {
		d := models.Deduction{TotalAmount: tt.total, Withheld: tt.withheld}
		assert.Equal(suite.T(), tt.bounded, d.Bounded())
		assert.True(suite.T(), tt.remaining.Equal(d.Remaining()), "expected %s, got %s", tt.remaining, d.Remaining())
	}
}

func (suite *TestSuiteStandard) TestDeductionOverdrawnRejected() {
	d := models.Deduction{
		EmployeeID:    uuid.New(),
		MonthlyAmount: decimal.NewFromInt(100),
		TotalAmount:   decimal.NewNullDecimal(decimal.NewFromInt(200)),
		Withheld:      decimal.NewFromInt(300),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	}

	err := suite.db.Create(&d).Error
	assert.ErrorIs(suite.T(), err, models.ErrDeductionOverdrawn)
}

func (suite *TestSuiteStandard) TestDeductionRoundTrip() {
	d := models.Deduction{
		EmployeeID:    uuid.New(),
		MonthlyAmount: decimal.NewFromInt(30000),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
		Note:          "  salary advance  ",
	}
	suite.Require().Nil(suite.db.Create(&d).Error)

	var found models.Deduction
	suite.Require().Nil(suite.db.Where("id = ?", d.ID).First(&found).Error)

	assert.False(suite.T(), found.TotalAmount.Valid)
	assert.Equal(suite.T(), models.DeductionOther, found.Kind)
	assert.Equal(suite.T(), "salary advance", found.Note)
	assert.True(suite.T(), found.MonthlyAmount.Equal(decimal.NewFromInt(30000)))
}

func (suite *TestSuiteStandard) TestDeductionExhausted() {
	total := decimal.NewNullDecimal(decimal.NewFromInt(90000))

	tests := []struct {
		name      string
		deduction models.Deduction
		exhausted bool
	}{
		{"paid off", models.Deduction{TotalAmount: total, Withheld: decimal.NewFromInt(90000)}, true},
		{"deactivated by hand", models.Deduction{TotalAmount: total, Withheld: decimal.NewFromInt(30000)}, false},
		{"active", models.Deduction{TotalAmount: total, Withheld: decimal.NewFromInt(90000), Active: true}, false},
		{"open ended", models.Deduction{Withheld: decimal.NewFromInt(90000)}, false},
	}

	for _, tt := range tests {
		assert.Equal(suite.T(), tt.exhausted, tt.deduction.Exhausted(), tt.name)
	}
}

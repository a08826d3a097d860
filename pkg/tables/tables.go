// Package tables holds the statutory rates, caps and scales of the payroll
// engine and the pure functions evaluating them.
package tables

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

var ErrInvalidConfig = errors.New("invalid payroll configuration")

// Bracket is one income tax bracket. Rate applies to the part of the
// taxable base above Threshold, up to the threshold of the next bracket.
type Bracket struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
}

// Config is the payroll configuration. It is built once at startup and
// must not be modified afterwards, components copy it on construction.
//
// Rates are fractions, 0.06 means 6%.
type Config struct {
	PensionRate          decimal.Decimal
	PensionCap           decimal.Decimal
	RiskRate             decimal.Decimal
	RiskCap              decimal.Decimal
	EmployeePensionRate  decimal.Decimal
	EmployeePensionCap   decimal.Decimal
	TaxBrackets          []Bracket
	FamilyScale          []decimal.Decimal // Allowance for 1, 2, … children
	FamilyAllowanceExtra decimal.Decimal   // Per child beyond the scale
}

// DefaultConfig returns the default statutory configuration.
func DefaultConfig() Config {
	return Config{
		PensionRate:         decimal.RequireFromString("0.06"),
		PensionCap:          decimal.NewFromInt(27000),
		RiskRate:            decimal.RequireFromString("0.06"),
		RiskCap:             decimal.NewFromInt(2400),
		EmployeePensionRate: decimal.RequireFromString("0.04"),
		EmployeePensionCap:  decimal.NewFromInt(18000),
		TaxBrackets: []Bracket{
			{Threshold: decimal.Zero, Rate: decimal.Zero},
			{Threshold: decimal.NewFromInt(150000), Rate: decimal.RequireFromString("0.20")},
			{Threshold: decimal.NewFromInt(300000), Rate: decimal.RequireFromString("0.30")},
		},
		FamilyScale: []decimal.Decimal{
			decimal.NewFromInt(5000),
			decimal.NewFromInt(10000),
			decimal.NewFromInt(15000),
		},
		FamilyAllowanceExtra: decimal.NewFromInt(3000),
	}
}

// Clone returns a deep copy of the configuration.
func (c Config) Clone() Config {
	c.TaxBrackets = slices.Clone(c.TaxBrackets)
	c.FamilyScale = slices.Clone(c.FamilyScale)
	return c
}

// Validate checks that the configuration can be evaluated.
func (c Config) Validate() error {
	values := map[string]decimal.Decimal{
		"pension rate":           c.PensionRate,
		"pension cap":            c.PensionCap,
		"risk rate":              c.RiskRate,
		"risk cap":               c.RiskCap,
		"employee pension rate":  c.EmployeePensionRate,
		"employee pension cap":   c.EmployeePensionCap,
		"family allowance extra": c.FamilyAllowanceExtra,
	}
	for name, v := range values {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative, is %s", ErrInvalidConfig, name, v)
		}
	}

	if len(c.TaxBrackets) == 0 {
		return fmt.Errorf("%w: no income tax brackets", ErrInvalidConfig)
	}

	for i, b := range c.TaxBrackets {
		if b.Threshold.IsNegative() || b.Rate.IsNegative() {
			return fmt.Errorf("%w: tax bracket %d has a negative threshold or rate", ErrInvalidConfig, i)
		}

		if i > 0 && !b.Threshold.GreaterThan(c.TaxBrackets[i-1].Threshold) {
			return fmt.Errorf("%w: tax bracket thresholds must be strictly increasing", ErrInvalidConfig)
		}
	}

	if len(c.FamilyScale) == 0 {
		return fmt.Errorf("%w: the family allowance scale is empty", ErrInvalidConfig)
	}

	for i, v := range c.FamilyScale {
		if v.IsNegative() {
			return fmt.Errorf("%w: family allowance for %d children is negative", ErrInvalidConfig, i+1)
		}

		if i > 0 && v.LessThan(c.FamilyScale[i-1]) {
			return fmt.Errorf("%w: the family allowance scale must not decrease", ErrInvalidConfig)
		}
	}

	return nil
}

// FamilyAllowance returns the allowance for the number of dependent
// children. Negative counts are treated as zero.
func (c Config) FamilyAllowance(children int) decimal.Decimal {
	if children <= 0 {
		return decimal.Zero
	}

	if children <= len(c.FamilyScale) {
		return c.FamilyScale[children-1]
	}

	beyond := decimal.NewFromInt(int64(children - len(c.FamilyScale)))
	return c.FamilyScale[len(c.FamilyScale)-1].Add(c.FamilyAllowanceExtra.Mul(beyond))
}

// IncomeTax computes the progressive income tax for a taxable base. Every
// bracket taxes only the part of the base that falls within it.
func (c Config) IncomeTax(base decimal.Decimal) decimal.Decimal {
	tax := decimal.Zero
	if !base.IsPositive() {
		return tax
	}

	for i, b := range c.TaxBrackets {
		if !base.GreaterThan(b.Threshold) {
			break
		}

		upper := base
		if i+1 < len(c.TaxBrackets) {
			upper = decimal.Min(base, c.TaxBrackets[i+1].Threshold)
		}

		tax = tax.Add(upper.Sub(b.Threshold).Mul(b.Rate))
	}

	return tax
}

// EmployerPension returns the capped employer pension contribution.
func (c Config) EmployerPension(gross decimal.Decimal) decimal.Decimal {
	return Capped(gross, c.PensionRate, c.PensionCap)
}

// EmployerRisk returns the capped occupational risk contribution.
func (c Config) EmployerRisk(gross decimal.Decimal) decimal.Decimal {
	return Capped(gross, c.RiskRate, c.RiskCap)
}

// EmployeePension returns the capped employee pension contribution.
func (c Config) EmployeePension(gross decimal.Decimal) decimal.Decimal {
	return Capped(gross, c.EmployeePensionRate, c.EmployeePensionCap)
}

// Capped returns amount·rate, at most limit.
func Capped(amount, rate, limit decimal.Decimal) decimal.Decimal {
	return decimal.Min(amount.Mul(rate), limit)
}

// Percent returns pct percent of amount. 25 means 25%.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Shift(-2)
}

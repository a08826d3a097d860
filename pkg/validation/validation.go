// Package validation checks computed payroll entries against the
// statutory caps and the invariants of net pay.
package validation

import (
	"context"
	"fmt"

	"github.com/paycycle/backend/pkg/metrics"
	"github.com/paycycle/backend/pkg/models"
	"github.com/paycycle/backend/pkg/tables"
	"github.com/shopspring/decimal"
)

// Issue codes.
const (
	CodeCapExceeded             = "cap_exceeded"
	CodeNetNegative             = "net_negative"
	CodeNetExceedsGross         = "net_exceeds_gross"
	CodeNetZero                 = "net_zero"
	CodeTaxableBaseNegative     = "taxable_base_negative"
	CodeIncomeTaxNegative       = "income_tax_negative"
	CodeFamilyAllowanceNegative = "family_allowance_negative"
	CodeIncomeTaxExceedsBase    = "income_tax_exceeds_base"
)

// AlertKindCompliance is the kind of alerts emitted for compliance issues.
const AlertKindCompliance = "payroll.compliance"

// AlertSink receives alerts. Delivery is up to the implementation.
type AlertSink interface {
	Emit(ctx context.Context, kind string, severity models.Severity, message string, fields map[string]any)
}

// Service validates payroll entries.
type Service struct {
	cfg       tables.Config
	sink      AlertSink
	threshold models.Severity
}

// NewService returns a Service checking against the caps of cfg. Issues of
// HIGH severity or more are sent to sink, which may be nil.
func NewService(cfg tables.Config, sink AlertSink) *Service {
	return &Service{
		cfg:       cfg.Clone(),
		sink:      sink,
		threshold: models.SeverityHigh,
	}
}

// Validate returns the compliance issues of the entry. It never modifies the entry.
func (s *Service) Validate(entry models.PayrollEntry) []models.ComplianceIssue {
	issues := []models.ComplianceIssue{}

	caps := []struct {
		field string
		value decimal.Decimal
		limit decimal.Decimal
	}{
		{"employerContributions.pension", entry.Employer.Pension, s.cfg.PensionCap},
		{"employerContributions.risk", entry.Employer.Risk, s.cfg.RiskCap},
		{"employeeContributions.pension", entry.Employee.Pension, s.cfg.EmployeePensionCap},
	}

	for _, c := range caps {
		if c.value.GreaterThan(c.limit) {
			issues = append(issues, models.ComplianceIssue{
				Code:     CodeCapExceeded,
				Field:    c.field,
				Severity: models.SeverityHigh,
				Message:  fmt.Sprintf("%s of %s exceeds the cap of %s", c.field, c.value, c.limit),
				Limit:    c.limit,
				Actual:   c.value,
			})
		}
	}

	switch {
	case entry.NetPay.IsNegative():
		issues = append(issues, issue(CodeNetNegative, "netPay", models.SeverityCritical, "net pay is negative", decimal.Zero, entry.NetPay))
	case entry.NetPay.IsZero():
		issues = append(issues, issue(CodeNetZero, "netPay", models.SeverityMedium, "net pay is zero", decimal.Zero, entry.NetPay))
	case entry.NetPay.GreaterThan(entry.Gross):
		issues = append(issues, issue(CodeNetExceedsGross, "netPay", models.SeverityCritical, "net pay exceeds gross pay", entry.Gross, entry.NetPay))
	}

	if entry.TaxableBase.IsNegative() {
		issues = append(issues, issue(CodeTaxableBaseNegative, "taxableBase", models.SeverityHigh, "taxable base is negative", decimal.Zero, entry.TaxableBase))
	}

	if entry.IncomeTax.IsNegative() {
		issues = append(issues, issue(CodeIncomeTaxNegative, "incomeTax", models.SeverityHigh, "income tax is negative", decimal.Zero, entry.IncomeTax))
	}

	if entry.FamilyAllowance.IsNegative() {
		issues = append(issues, issue(CodeFamilyAllowanceNegative, "familyAllowance", models.SeverityHigh, "family allowance is negative", decimal.Zero, entry.FamilyAllowance))
	}

	if entry.IncomeTax.IsPositive() && entry.IncomeTax.GreaterThan(entry.TaxableBase) {
		issues = append(issues, issue(CodeIncomeTaxExceedsBase, "incomeTax", models.SeverityHigh, "income tax exceeds the taxable base", entry.TaxableBase, entry.IncomeTax))
	}

	return issues
}

// Check validates the entry, attaches the issues to it and alerts on the
// severe ones.
func (s *Service) Check(ctx context.Context, entry *models.PayrollEntry) []models.ComplianceIssue {
	issues := s.Validate(*entry)
	entry.ValidationErrors = issues

	for _, i := range issues {
		metrics.ComplianceIssuesTotal.WithLabelValues(i.Code, string(i.Severity)).Inc()

		if s.sink == nil || !i.Severity.AtLeast(s.threshold) {
			continue
		}

		s.sink.Emit(ctx, AlertKindCompliance, i.Severity, i.Message, map[string]any{
			"code":        i.Code,
			"field":       i.Field,
			"employee_id": entry.EmployeeID.String(),
			"period_id":   entry.PeriodID.String(),
			"limit":       i.Limit.String(),
			"actual":      i.Actual.String(),
		})
	}

	return issues
}

func issue(code, field string, severity models.Severity, message string, limit, actual decimal.Decimal) models.ComplianceIssue {
	return models.ComplianceIssue{
		Code:     code,
		Field:    field,
		Severity: severity,
		Message:  message,
		Limit:    limit,
		Actual:   actual,
	}
}

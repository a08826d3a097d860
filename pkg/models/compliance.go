package models

import "github.com/shopspring/decimal"

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// AtLeast reports whether s is as severe as o or more.
func (s Severity) AtLeast(o Severity) bool {
	return severityRank[s] >= severityRank[o]
}

// ComplianceIssue is a finding of the validation of a payroll entry. Issues
// are recorded on the entry, they never abort a calculation.
type ComplianceIssue struct {
	Code     string          `json:"code"`
	Field    string          `json:"field"`
	Severity Severity        `json:"severity"`
	Message  string          `json:"message"`
	Limit    decimal.Decimal `json:"limit"`
	Actual   decimal.Decimal `json:"actual"`
}

package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
)

// MinYear is the earliest year a period can be created for.
const MinYear = 1900

// CreatePeriod creates the period for the calendar month in status DRAFT.
func (p *Processor) CreatePeriod(ctx context.Context, year int, month time.Month) (models.Period, error) {
	if month < time.January || month > time.December {
		return models.Period{}, fmt.Errorf("%w: month must be between 1 and 12, is %d", ErrInvalidPeriod, month)
	}

	if year < MinYear {
		return models.Period{}, fmt.Errorf("%w: year must not be before %d, is %d", ErrInvalidPeriod, MinYear, year)
	}

	period := models.Period{
		Year:   year,
		Month:  month,
		Status: models.PeriodDraft,
	}

	if err := p.periods.CreatePeriod(ctx, &period); err != nil {
		return models.Period{}, err
	}

	p.logger.Info().Str("period", period.Key().String()).Str("id", period.ID.String()).Msg("period created")
	return period, nil
}

// Validate returns the reasons that keep the period from being finalized.
// An empty list means the period can be finalized.
func (p *Processor) Validate(ctx context.Context, periodID uuid.UUID) ([]string, error) {
	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return nil, err
	}

	return p.blockers(ctx, period)
}

func (p *Processor) blockers(ctx context.Context, period models.Period) ([]string, error) {
	if period.Running() {
		return []string{"the period is being processed"}, nil
	}

	switch period.Status {
	case models.PeriodDraft:
		return []string{"the period has not been processed"}, nil
	case models.PeriodFinalized, models.PeriodApproved:
		return []string{"the period is already finalized"}, nil
	}

	blockers := []string{}
	switch {
	case period.EmployeesFailed > 0:
		blockers = append(blockers, fmt.Sprintf("%d employees failed in the last run", period.EmployeesFailed))
	case period.Status == models.PeriodProcessing:
		// Runs finish in PROCESSING only with failed employees, the period
		// was unlocked after an interrupted run
		blockers = append(blockers, "the last run was interrupted, the period must be processed again")
	}

	entries, err := p.entries.Entries(ctx, period.ID)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		blockers = append(blockers, "the period has no payroll entries")
	}

	for _, e := range entries {
		if !e.HasIssue(models.SeverityCritical) {
			continue
		}

		codes := []string{}
		for _, i := range e.ValidationErrors {
			if i.Severity.AtLeast(models.SeverityCritical) {
				codes = append(codes, i.Code)
			}
		}

		blockers = append(blockers, fmt.Sprintf("the entry of employee %s has critical issues: %s", e.EmployeeID, strings.Join(codes, ", ")))
	}

	return blockers, nil
}

// Finalize freezes a processed period. It fails unless Validate reports no
// blocking errors.
func (p *Processor) Finalize(ctx context.Context, periodID uuid.UUID, actor string) (models.Period, error) {
	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return models.Period{}, err
	}

	if period.Status == models.PeriodApproved {
		return models.Period{}, models.ErrPeriodApproved
	}

	blockers, err := p.blockers(ctx, period)
	if err != nil {
		return models.Period{}, err
	}

	if len(blockers) > 0 {
		return models.Period{}, fmt.Errorf("%w: %s", models.ErrPeriodNotFinalizable, strings.Join(blockers, "; "))
	}

	err = p.periods.Transition(ctx, period.ID, period.Status, models.PeriodFinalized, map[string]any{
		"finalized_by": actor,
		"finalized_at": p.now(),
	})
	if err != nil {
		return models.Period{}, err
	}

	p.logger.Info().Str("period", period.Key().String()).Str("actor", actor).Msg("period finalized")
	return p.periods.Period(ctx, period.ID)
}

// Approve approves a finalized period. Approved periods cannot be changed
// anymore.
func (p *Processor) Approve(ctx context.Context, periodID uuid.UUID, approver string) (models.Period, error) {
	if strings.TrimSpace(approver) == "" {
		return models.Period{}, ErrApproverRequired
	}

	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return models.Period{}, err
	}

	switch {
	case period.Status == models.PeriodApproved:
		return models.Period{}, models.ErrPeriodApproved
	case period.Status != models.PeriodFinalized:
		return models.Period{}, fmt.Errorf("%w: period %s is %s", models.ErrPeriodNotFinalized, period.Key(), period.Status)
	}

	err = p.periods.Transition(ctx, period.ID, models.PeriodFinalized, models.PeriodApproved, map[string]any{
		"approved_by": approver,
		"approved_at": p.now(),
	})
	if err != nil {
		return models.Period{}, err
	}

	p.logger.Info().Str("period", period.Key().String()).Str("approver", approver).Msg("period approved")
	return p.periods.Period(ctx, period.ID)
}

// Delete deletes a period that has not been finalized, together with its
// entries. Deduction balances settled by the period are restored.
func (p *Processor) Delete(ctx context.Context, periodID uuid.UUID) error {
	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return err
	}

	switch {
	case period.Status == models.PeriodApproved:
		return models.ErrPeriodApproved
	case period.Status == models.PeriodFinalized:
		return fmt.Errorf("%w: period %s is finalized", models.ErrPeriodState, period.Key())
	case period.Running():
		return models.ErrPeriodBusy
	}

	if err := p.periods.DeletePeriod(ctx, period.ID); err != nil {
		return err
	}

	p.logger.Info().Str("period", period.Key().String()).Msg("period deleted")
	return nil
}

// Unlock releases a period held by a run that will not finish, e.g. because
// the process running it crashed. The period is left in PROCESSING and
// must be processed again with Force before it can be finalized.
func (p *Processor) Unlock(ctx context.Context, periodID uuid.UUID) (models.Period, error) {
	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return models.Period{}, err
	}

	if !period.Running() {
		return models.Period{}, fmt.Errorf("%w: period %s is %s", models.ErrPeriodNotRunning, period.Key(), period.Status)
	}

	if err := p.periods.AbortRun(ctx, period.ID, period.RunID, models.PeriodProcessing); err != nil {
		return models.Period{}, err
	}

	p.logger.Warn().Str("period", period.Key().String()).Str("run_id", period.RunID).Msg("stale run released")
	return p.periods.Period(ctx, period.ID)
}

// Summary returns the totals of the last run of the period.
func (p *Processor) Summary(ctx context.Context, periodID uuid.UUID) (Summary, error) {
	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		PeriodID:           period.ID,
		RunID:              period.LastRunID,
		Status:             period.Status,
		EmployeesProcessed: period.EmployeesProcessed,
		EmployeesFailed:    period.EmployeesFailed,
		Totals:             period.PeriodTotals,
		Failures:           []EmployeeFailure{},
	}, nil
}

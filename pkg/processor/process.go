package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/paycycle/backend/pkg/metrics"
	"github.com/paycycle/backend/pkg/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AlertKindBatch is the kind of alerts emitted for runs with failed employees.
const AlertKindBatch = "payroll.batch"

// ProcessOptions control a processing run.
type ProcessOptions struct {
	// Actor is recorded as the author of the run and its entries.
	Actor string

	// Force allows processing a period that has been processed before.
	// Entries are replaced and deduction settlements of the earlier run
	// are corrected, never applied twice.
	Force bool
}

// EmployeeFailure is the error of one employee in a run.
type EmployeeFailure struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	Name       string    `json:"name"`
	Error      string    `json:"error"`
	Err        error     `json:"-"`
}

// Summary is the state of a period after a run.
type Summary struct {
	PeriodID           uuid.UUID           `json:"periodId"`
	RunID              string              `json:"runId"`
	Status             models.PeriodStatus `json:"status"`
	EmployeesProcessed int                 `json:"employeesProcessed"`
	EmployeesFailed    int                 `json:"employeesFailed"`
	Totals             models.PeriodTotals `json:"totals"`
	Failures           []EmployeeFailure   `json:"failures"`
}

type result struct {
	profile models.EmployeeProfile
	entry   models.PayrollEntry
	err     error
}

// Process computes the payroll entries of all eligible employees for the
// period.
//
// A failing employee never stops the run, it is reported in the summary
// and the period stays in PROCESSING. The returned error is only set if
// the run could not be carried out or if every employee failed because of
// store errors; the summary is returned in the latter case as well.
//
// Cancelling ctx stops the dispatch of employees. Employees already being
// computed are finished, the others are reported as failed.
func (p *Processor) Process(ctx context.Context, periodID uuid.UUID, opts ProcessOptions) (Summary, error) {
	period, err := p.periods.Period(ctx, periodID)
	if err != nil {
		return Summary{}, err
	}

	if err := processable(period, opts.Force); err != nil {
		return Summary{}, err
	}

	runID := ulid.Make().String()
	if err := p.periods.AcquireRun(ctx, period.ID, period.Status, runID); err != nil {
		return Summary{}, err
	}

	start := time.Now()
	logger := p.logger.With().
		Str("period", period.Key().String()).
		Str("run_id", runID).
		Logger()

	logger.Info().Str("actor", opts.Actor).Bool("force", opts.Force).Str("previous_status", string(period.Status)).Msg("processing period")

	// The run must be concluded even if the caller gives up on it. Store
	// queries of the run are logged with its fields
	detached := logger.WithContext(context.WithoutCancel(ctx))

	employees, err := p.employees.ActiveEmployees(ctx)
	if err != nil {
		p.abort(detached, logger, period, runID)
		return Summary{}, fmt.Errorf("listing employees: %w", err)
	}

	summary := Summary{
		PeriodID: period.ID,
		RunID:    runID,
		Failures: []EmployeeFailure{},
	}

	succeeded := make([]uuid.UUID, 0, len(employees))
	storeFailures := 0
	for r := range p.dispatch(ctx, detached, period, opts.Actor, employees) {
		if r.err != nil {
			logger.Error().Err(r.err).Str("employee", r.profile.EmployeeID.String()).Msg("employee failed")

			summary.Failures = append(summary.Failures, EmployeeFailure{
				EmployeeID: r.profile.EmployeeID,
				Name:       r.profile.Name,
				Error:      r.err.Error(),
				Err:        r.err,
			})

			if errors.Is(r.err, models.ErrStore) {
				storeFailures++
			}
			continue
		}

		succeeded = append(succeeded, r.profile.EmployeeID)
		summary.Totals = summary.Totals.Add(r.entry)
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].EmployeeID.String() < summary.Failures[j].EmployeeID.String()
	})

	summary.EmployeesProcessed = len(succeeded)
	summary.EmployeesFailed = len(summary.Failures)
	summary.Status = models.PeriodCompleted
	if summary.EmployeesFailed > 0 {
		summary.Status = models.PeriodProcessing
	}

	// Entries and settlements left from an earlier run for employees that
	// did not succeed in this one are removed, the period reflects this run only
	if err := p.entries.PruneEntries(detached, period.ID, succeeded); err != nil {
		p.abort(detached, logger, period, runID)
		return Summary{}, fmt.Errorf("removing stale entries: %w", err)
	}

	if err := p.deductions.Release(detached, period.ID, succeeded); err != nil {
		p.abort(detached, logger, period, runID)
		return Summary{}, err
	}

	err = p.periods.FinishRun(detached, period.ID, runID, models.PeriodRun{
		Status:    summary.Status,
		Totals:    summary.Totals,
		Processed: summary.EmployeesProcessed,
		Failed:    summary.EmployeesFailed,
		Actor:     opts.Actor,
		At:        p.now(),
	})
	if err != nil {
		p.abort(detached, logger, period, runID)
		return Summary{}, fmt.Errorf("recording run: %w", err)
	}

	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.EmployeesTotal.WithLabelValues("processed").Add(float64(summary.EmployeesProcessed))
	metrics.EmployeesTotal.WithLabelValues("failed").Add(float64(summary.EmployeesFailed))

	logger.Info().
		Str("status", string(summary.Status)).
		Int("processed", summary.EmployeesProcessed).
		Int("failed", summary.EmployeesFailed).
		Str("gross_total", summary.Totals.GrossTotal.String()).
		Str("net_total", summary.Totals.NetTotal.String()).
		Dur("duration", time.Since(start)).
		Msg("period processed")

	if summary.EmployeesFailed == 0 {
		metrics.RunsTotal.WithLabelValues("completed").Inc()
		return summary, nil
	}

	allFailed := summary.EmployeesProcessed == 0
	p.alertFailures(detached, period, summary, allFailed)

	if allFailed && storeFailures == summary.EmployeesFailed {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("all %d employees failed: %w", summary.EmployeesFailed, summary.Failures[0].Err)
	}

	metrics.RunsTotal.WithLabelValues("partial").Inc()
	return summary, nil
}

// dispatch computes the employees on a bounded number of workers. The
// results are sent on the returned channel, which is closed when all
// employees are done.
func (p *Processor) dispatch(ctx, detached context.Context, period models.Period, actor string, employees []models.EmployeeProfile) <-chan result {
	results := make(chan result, p.workers)

	go func() {
		g := errgroup.Group{}
		g.SetLimit(p.workers)

		for _, profile := range employees {
			if err := ctx.Err(); err != nil {
				results <- result{profile: profile, err: fmt.Errorf("not processed: %w", err)}
				continue
			}

			profile := profile
			g.Go(func() error {
				entry, err := p.processEmployee(detached, period, actor, profile)
				results <- result{profile: profile, entry: entry, err: err}
				return nil
			})
		}

		_ = g.Wait()
		close(results)
	}()

	return results
}

// processEmployee computes, stores and settles the entry of one employee.
func (p *Processor) processEmployee(ctx context.Context, period models.Period, actor string, profile models.EmployeeProfile) (models.PayrollEntry, error) {
	reference := period.ReferenceDate()

	contract, err := p.contracts.ActiveContract(ctx, profile.EmployeeID, reference)
	if err != nil {
		return models.PayrollEntry{}, err
	}

	plan, err := p.deductions.Plan(ctx, profile.EmployeeID, period.ID, reference)
	if err != nil {
		return models.PayrollEntry{}, err
	}

	entry, err := p.calculator.Compute(contract, profile, reference, plan...)
	if err != nil {
		return models.PayrollEntry{}, err
	}

	entry.PeriodID = period.ID
	entry.ComputedAt = p.now()
	entry.ComputedBy = actor
	p.validator.Check(ctx, &entry)

	if err := p.entries.UpsertEntry(ctx, &entry); err != nil {
		return models.PayrollEntry{}, fmt.Errorf("saving entry: %w", err)
	}

	if err := p.deductions.Settle(ctx, profile.EmployeeID, period.ID, entry.Deductions); err != nil {
		return models.PayrollEntry{}, err
	}

	return entry, nil
}

// abort releases the period after a run that could not be concluded.
func (p *Processor) abort(ctx context.Context, logger zerolog.Logger, period models.Period, runID string) {
	metrics.RunsTotal.WithLabelValues("aborted").Inc()

	if err := p.periods.AbortRun(ctx, period.ID, runID, period.Status); err != nil {
		logger.Error().Err(err).Msg("releasing the period failed")
		return
	}

	logger.Warn().Msg("run aborted")
}

func (p *Processor) alertFailures(ctx context.Context, period models.Period, summary Summary, allFailed bool) {
	if p.alerts == nil {
		return
	}

	severity := models.SeverityHigh
	if allFailed {
		severity = models.SeverityCritical
	}

	p.alerts.Emit(ctx, AlertKindBatch, severity,
		fmt.Sprintf("%d of %d employees failed in period %s", summary.EmployeesFailed, summary.EmployeesFailed+summary.EmployeesProcessed, period.Key()),
		map[string]any{
			"period_id": period.ID.String(),
			"run_id":    summary.RunID,
			"processed": summary.EmployeesProcessed,
			"failed":    summary.EmployeesFailed,
		})
}

// processable checks that a run may start on the period.
func processable(period models.Period, force bool) error {
	if period.Running() {
		return models.ErrPeriodBusy
	}

	switch period.Status {
	case models.PeriodDraft:
		return nil
	case models.PeriodProcessing, models.PeriodCompleted:
		if force {
			return nil
		}
		return fmt.Errorf("%w: period %s is %s, reprocessing must be forced", models.ErrPeriodNotProcessable, period.Key(), period.Status)
	case models.PeriodApproved:
		return models.ErrPeriodApproved
	default:
		return fmt.Errorf("%w: period %s is %s", models.ErrPeriodNotProcessable, period.Key(), period.Status)
	}
}

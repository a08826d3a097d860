// Package processor runs the payroll of a period: it computes the entries of
// all eligible employees, aggregates the totals and drives the state
// machine of the period.
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/calculator"
	"github.com/paycycle/backend/pkg/deductions"
	"github.com/paycycle/backend/pkg/models"
	"github.com/paycycle/backend/pkg/tables"
	"github.com/paycycle/backend/pkg/validation"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultWorkers is the number of employees computed concurrently.
const DefaultWorkers = 4

var (
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrMissingCollaborator = errors.New("missing collaborator")
	ErrApproverRequired    = errors.New("an approver is required")
)

type PeriodStore interface {
	CreatePeriod(ctx context.Context, period *models.Period) error
	Period(ctx context.Context, id uuid.UUID) (models.Period, error)
	AcquireRun(ctx context.Context, id uuid.UUID, expected models.PeriodStatus, runID string) error
	FinishRun(ctx context.Context, id uuid.UUID, runID string, run models.PeriodRun) error
	AbortRun(ctx context.Context, id uuid.UUID, runID string, status models.PeriodStatus) error
	Transition(ctx context.Context, id uuid.UUID, from, to models.PeriodStatus, columns map[string]any) error
	DeletePeriod(ctx context.Context, id uuid.UUID) error
}

type EmployeeStore interface {
	ActiveEmployees(ctx context.Context) ([]models.EmployeeProfile, error)
}

type ContractStore interface {
	ActiveContract(ctx context.Context, employeeID uuid.UUID, reference time.Time) (*models.ContractSnapshot, error)
}

type EntryStore interface {
	UpsertEntry(ctx context.Context, entry *models.PayrollEntry) error
	Entries(ctx context.Context, periodID uuid.UUID) ([]models.PayrollEntry, error)
	PruneEntries(ctx context.Context, periodID uuid.UUID, keep []uuid.UUID) error
}

// Collaborators are the stores and sinks the Processor works with. Alerts
// is optional.
type Collaborators struct {
	Periods    PeriodStore
	Employees  EmployeeStore
	Contracts  ContractStore
	Entries    EntryStore
	Deductions deductions.Store
	Alerts     validation.AlertSink
}

// Processor processes payroll periods.
type Processor struct {
	periods    PeriodStore
	employees  EmployeeStore
	contracts  ContractStore
	entries    EntryStore
	alerts     validation.AlertSink
	calculator *calculator.Calculator
	deductions *deductions.Manager
	validator  *validation.Service

	workers int
	logger  zerolog.Logger
	now     func() time.Time
}

type Option func(*Processor)

// WithWorkers sets the number of employees computed concurrently.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithClock sets the function used for computation and status timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// New returns a Processor evaluating the configuration.
func New(cfg tables.Config, c Collaborators, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if c.Periods == nil || c.Employees == nil || c.Contracts == nil || c.Entries == nil || c.Deductions == nil {
		return nil, ErrMissingCollaborator
	}

	p := &Processor{
		periods:    c.Periods,
		employees:  c.Employees,
		contracts:  c.Contracts,
		entries:    c.Entries,
		alerts:     c.Alerts,
		calculator: calculator.New(cfg),
		deductions: deductions.NewManager(c.Deductions),
		validator:  validation.NewService(cfg, c.Alerts),
		workers:    DefaultWorkers,
		logger:     log.Logger,
		now: func() time.Time {
			return time.Now().In(time.UTC)
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

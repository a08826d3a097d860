package models

import (
	"errors"
	"fmt"
)

var (
	ErrGeneral          = errors.New("an error occurred in the payroll store")
	ErrResourceNotFound = errors.New("there is no")

	// ErrStore marks failures of a collaborator store.
	ErrStore = errors.New("store error")

	ErrNoActiveContract    = errors.New("no active contract")
	ErrInvalidContractData = errors.New("invalid contract data")
	ErrDeductionOverdrawn  = errors.New("withheld amount exceeds the deduction total")

	// ErrPeriodState is wrapped by every error caused by an operation that is
	// not allowed in the current state of a period.
	ErrPeriodState          = errors.New("invalid period state")
	ErrPeriodExists         = fmt.Errorf("%w: a period for this year and month already exists", ErrPeriodState)
	ErrPeriodApproved       = fmt.Errorf("%w: the period is approved and cannot be modified", ErrPeriodState)
	ErrPeriodBusy           = fmt.Errorf("%w: the period is being processed", ErrPeriodState)
	ErrPeriodNotRunning     = fmt.Errorf("%w: no run holds the period", ErrPeriodState)
	ErrPeriodNotProcessable = fmt.Errorf("%w: the period cannot be processed in its current status", ErrPeriodState)
	ErrPeriodNotFinalizable = fmt.Errorf("%w: the period cannot be finalized", ErrPeriodState)
	ErrPeriodNotFinalized   = fmt.Errorf("%w: the period must be finalized before approval", ErrPeriodState)
)

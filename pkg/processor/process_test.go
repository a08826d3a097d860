package processor_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
	"github.com/paycycle/backend/pkg/processor"
	"github.com/paycycle/backend/test"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestProcessCompleted() {
	employees := test.CreateStaff(suite.T(), suite.db, 5, "250000")
	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	summary, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)

	suite.Assert().Equal(models.PeriodCompleted, summary.Status)
	suite.Assert().Equal(5, summary.EmployeesProcessed)
	suite.Assert().Equal(0, summary.EmployeesFailed)
	suite.Assert().Empty(summary.Failures)
	suite.Assert().NotEmpty(summary.RunID)

	entries := suite.entries(period.ID)
	suite.Require().Len(entries, len(employees))

	totals := models.PeriodTotals{}
	for _, e := range entries {
		totals = totals.Add(e)
		suite.Assert().Equal("hr", e.ComputedBy)

		net := e.Gross.Sub(e.Employee.Total).Sub(e.IncomeTax).Sub(e.DeductionsTotal)
		suite.Assert().True(net.Equal(e.NetPay))
	}

	reloaded := suite.reloadPeriod(period.ID)
	suite.Assert().Equal(models.PeriodCompleted, reloaded.Status)
	suite.Assert().False(reloaded.Running())
	suite.Assert().Equal(summary.RunID, reloaded.LastRunID)
	suite.Assert().Equal("hr", reloaded.ProcessedBy)
	suite.Assert().True(totals.GrossTotal.Equal(reloaded.GrossTotal))
	suite.Assert().True(totals.NetTotal.Equal(reloaded.NetTotal))
	suite.Assert().True(totals.EmployerContributionsTotal.Equal(reloaded.EmployerContributionsTotal))
	suite.Assert().True(totals.EmployeeContributionsTotal.Equal(reloaded.EmployeeContributionsTotal))
	suite.Assert().True(totals.GrossTotal.Equal(summary.Totals.GrossTotal))

	suite.Assert().Empty(suite.alerts.ofKind(processor.AlertKindBatch))
}

func (suite *TestSuiteStandard) TestProcessPartialFailure() {
	_ = test.CreateStaff(suite.T(), suite.db, 9, "250000")

	// No contract
	missing := test.CreateEmployee(suite.T(), suite.db, 1)

	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	summary, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)

	suite.Assert().Equal(models.PeriodProcessing, summary.Status)
	suite.Assert().Equal(9, summary.EmployeesProcessed)
	suite.Assert().Equal(1, summary.EmployeesFailed)
	suite.Require().Len(summary.Failures, 1)
	suite.Assert().Equal(missing.ID, summary.Failures[0].EmployeeID)
	suite.Assert().ErrorIs(summary.Failures[0].Err, models.ErrNoActiveContract)

	suite.Assert().Len(suite.entries(period.ID), 9)

	reloaded := suite.reloadPeriod(period.ID)
	suite.Assert().Equal(models.PeriodProcessing, reloaded.Status)
	suite.Assert().Equal(1, reloaded.EmployeesFailed)

	alerts := suite.alerts.ofKind(processor.AlertKindBatch)
	suite.Require().Len(alerts, 1)
	suite.Assert().Equal(models.SeverityHigh, alerts[0].severity)
}

func (suite *TestSuiteStandard) TestProcessRequiresForce() {
	_ = test.CreateStaff(suite.T(), suite.db, 2, "250000")
	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	_, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)

	_, err = p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Assert().ErrorIs(err, models.ErrPeriodNotProcessable)
	suite.Assert().ErrorIs(err, models.ErrPeriodState)
}

func (suite *TestSuiteStandard) TestReprocessReplacesEntries() {
	employees := test.CreateStaff(suite.T(), suite.db, 4, "250000")
	loan := test.CreateDeduction(suite.T(), suite.db, models.Deduction{
		EmployeeID:    employees[0].ID,
		Kind:          models.DeductionLoan,
		MonthlyAmount: d("30000"),
		TotalAmount:   decimal.NewNullDecimal(d("90000")),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
		Recurring:     true,
	})

	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	first, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)

	// Raise the salary of the second employee before the rerun
	err = suite.db.Model(&models.Contract{}).Where("employee_id = ?", employees[1].ID).Update("base_salary", d("300000")).Error
	suite.Require().Nil(err)

	second, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "payroll-admin", Force: true})
	suite.Require().Nil(err)
	suite.Assert().NotEqual(first.RunID, second.RunID)

	entries := suite.entries(period.ID)
	suite.Require().Len(entries, 4)

	for _, e := range entries {
		suite.Assert().Equal("payroll-admin", e.ComputedBy)
		if e.EmployeeID == employees[1].ID {
			suite.Assert().True(e.BaseSalary.Equal(d("300000")))
		}
	}
	suite.Assert().True(second.Totals.GrossTotal.Sub(first.Totals.GrossTotal).Equal(d("50000")))

	// The loan was settled once for the period
	deductions, err := suite.store.ListDeductions(suite.ctx, loan.EmployeeID)
	suite.Require().Nil(err)
	suite.Assert().True(deductions[0].Withheld.Equal(d("30000")), deductions[0].Withheld.String())
}

func (suite *TestSuiteStandard) TestReprocessDropsEntriesOfFailedEmployees() {
	employees := test.CreateStaff(suite.T(), suite.db, 3, "250000")
	loan := test.CreateDeduction(suite.T(), suite.db, models.Deduction{
		EmployeeID:    employees[2].ID,
		MonthlyAmount: d("10000"),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	})

	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	_, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)
	suite.Require().Len(suite.entries(period.ID), 3)

	err = suite.db.Model(&models.Contract{}).Where("employee_id = ?", employees[2].ID).Update("status", models.ContractSuspended).Error
	suite.Require().Nil(err)

	summary, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr", Force: true})
	suite.Require().Nil(err)
	suite.Assert().Equal(models.PeriodProcessing, summary.Status)

	entries := suite.entries(period.ID)
	suite.Require().Len(entries, 2)
	for _, e := range entries {
		suite.Assert().NotEqual(employees[2].ID, e.EmployeeID)
	}

	deductions, err := suite.store.ListDeductions(suite.ctx, loan.EmployeeID)
	suite.Require().Nil(err)
	suite.Assert().True(deductions[0].Withheld.IsZero())
}

func (suite *TestSuiteStandard) TestDeductionExhaustionAcrossPeriods() {
	employees := test.CreateStaff(suite.T(), suite.db, 1, "400000")
	loan := test.CreateDeduction(suite.T(), suite.db, models.Deduction{
		EmployeeID:    employees[0].ID,
		Kind:          models.DeductionLoan,
		MonthlyAmount: d("30000"),
		TotalAmount:   decimal.NewNullDecimal(d("90000")),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
		Recurring:     true,
	})

	p := suite.processor(suite.collaborators())

	for month := time.January; month <= time.April; month++ {
		period := suite.createPeriod(p, 2024, month)
		_, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
		suite.Require().Nil(err)

		entries := suite.entries(period.ID)
		suite.Require().Len(entries, 1)

		if month <= time.March {
			suite.Require().Len(entries[0].Deductions, 1, month.String())
			suite.Assert().True(entries[0].DeductionsTotal.Equal(d("30000")), month.String())
		} else {
			suite.Assert().Empty(entries[0].Deductions, month.String())
		}
	}

	deductions, err := suite.store.ListDeductions(suite.ctx, loan.EmployeeID)
	suite.Require().Nil(err)
	suite.Assert().False(deductions[0].Active)
	suite.Assert().True(deductions[0].Withheld.Equal(d("90000")))
}

func (suite *TestSuiteStandard) TestReprocessEarlierPeriodAfterExhaustion() {
	employees := test.CreateStaff(suite.T(), suite.db, 1, "400000")
	loan := test.CreateDeduction(suite.T(), suite.db, models.Deduction{
		EmployeeID:    employees[0].ID,
		Kind:          models.DeductionLoan,
		MonthlyAmount: d("30000"),
		TotalAmount:   decimal.NewNullDecimal(d("90000")),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
		Recurring:     true,
	})

	p := suite.processor(suite.collaborators())

	periods := make([]models.Period, 0, 3)
	for month := time.January; month <= time.March; month++ {
		period := suite.createPeriod(p, 2024, month)
		_, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
		suite.Require().Nil(err)
		periods = append(periods, period)
	}

	summary, err := p.Process(suite.ctx, periods[0].ID, processor.ProcessOptions{Actor: "hr", Force: true})
	suite.Require().Nil(err)
	suite.Assert().Equal(models.PeriodCompleted, summary.Status)

	entries := suite.entries(periods[0].ID)
	suite.Require().Len(entries, 1)
	suite.Require().Len(entries[0].Deductions, 1)
	suite.Assert().True(entries[0].DeductionsTotal.Equal(d("30000")))

	deductions, err := suite.store.ListDeductions(suite.ctx, loan.EmployeeID)
	suite.Require().Nil(err)
	suite.Assert().False(deductions[0].Active)
	suite.Assert().True(deductions[0].Withheld.Equal(d("90000")), deductions[0].Withheld.String())
}

func (suite *TestSuiteStandard) TestSubCentBalanceIsNotOverdrawn() {
	employees := test.CreateStaff(suite.T(), suite.db, 1, "250000")
	loan := test.CreateDeduction(suite.T(), suite.db, models.Deduction{
		EmployeeID:    employees[0].ID,
		Kind:          models.DeductionAdvance,
		MonthlyAmount: d("30000"),
		TotalAmount:   decimal.NewNullDecimal(d("10.005")),
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	})

	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	summary, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)
	suite.Require().Empty(summary.Failures)

	entries := suite.entries(period.ID)
	suite.Require().Len(entries, 1)
	suite.Assert().True(entries[0].DeductionsTotal.Equal(d("10")), entries[0].DeductionsTotal.String())

	deductions, err := suite.store.ListDeductions(suite.ctx, loan.EmployeeID)
	suite.Require().Nil(err)
	suite.Assert().True(deductions[0].Withheld.Equal(d("10")))
}

func (suite *TestSuiteStandard) TestProcessBusy() {
	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	suite.Require().Nil(suite.store.AcquireRun(suite.ctx, period.ID, models.PeriodDraft, "other-run"))

	_, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr", Force: true})
	suite.Assert().ErrorIs(err, models.ErrPeriodBusy)
}

func (suite *TestSuiteStandard) TestConcurrentProcessDoesNotInterleave() {
	_ = test.CreateStaff(suite.T(), suite.db, 6, "250000")
	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: fmt.Sprintf("actor-%d", i)})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		suite.Assert().ErrorIs(err, models.ErrPeriodState)
	}

	suite.Assert().Equal(1, succeeded)
	suite.Assert().Len(suite.entries(period.ID), 6)
	suite.Assert().Equal(models.PeriodCompleted, suite.reloadPeriod(period.ID).Status)
}

func (suite *TestSuiteStandard) TestProcessCancelled() {
	_ = test.CreateStaff(suite.T(), suite.db, 3, "250000")

	ctx, cancel := context.WithCancel(suite.ctx)
	defer cancel()

	c := suite.collaborators()
	c.Employees = cancellingEmployees{EmployeeStore: suite.store, cancel: cancel}
	p := suite.processor(c)
	period := suite.createPeriod(p, 2024, time.March)

	summary, err := p.Process(ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)

	suite.Assert().Equal(models.PeriodProcessing, summary.Status)
	suite.Assert().Equal(3, summary.EmployeesFailed)
	for _, f := range summary.Failures {
		suite.Assert().ErrorIs(f.Err, context.Canceled)
	}

	// The period is released and can be processed again
	reloaded := suite.reloadPeriod(period.ID)
	suite.Assert().False(reloaded.Running())
	suite.Assert().Equal(models.PeriodProcessing, reloaded.Status)
	suite.Assert().Empty(suite.entries(period.ID))

	summary, err = suite.processor(suite.collaborators()).Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr", Force: true})
	suite.Require().Nil(err)
	suite.Assert().Equal(models.PeriodCompleted, summary.Status)
}

func (suite *TestSuiteStandard) TestProcessStoreOutage() {
	_ = test.CreateStaff(suite.T(), suite.db, 3, "250000")

	c := suite.collaborators()
	c.Contracts = failingContracts{all: fmt.Errorf("%w: connection refused", models.ErrStore)}
	p := suite.processor(c)
	period := suite.createPeriod(p, 2024, time.March)

	summary, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Assert().ErrorIs(err, models.ErrStore)
	suite.Assert().Equal(3, summary.EmployeesFailed)
	suite.Assert().Equal(models.PeriodProcessing, summary.Status)

	alerts := suite.alerts.ofKind(processor.AlertKindBatch)
	suite.Require().Len(alerts, 1)
	suite.Assert().Equal(models.SeverityCritical, alerts[0].severity)

	suite.Assert().False(suite.reloadPeriod(period.ID).Running())
}

func (suite *TestSuiteStandard) TestProcessUnknownPeriod() {
	p := suite.processor(suite.collaborators())

	_, err := p.Process(suite.ctx, uuid.New(), processor.ProcessOptions{Actor: "hr"})
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}

func (suite *TestSuiteStandard) TestSummary() {
	_ = test.CreateStaff(suite.T(), suite.db, 2, "250000")
	p := suite.processor(suite.collaborators())
	period := suite.createPeriod(p, 2024, time.March)

	processed, err := p.Process(suite.ctx, period.ID, processor.ProcessOptions{Actor: "hr"})
	suite.Require().Nil(err)

	summary, err := p.Summary(suite.ctx, period.ID)
	suite.Require().Nil(err)
	suite.Assert().Equal(processed.RunID, summary.RunID)
	suite.Assert().Equal(models.PeriodCompleted, summary.Status)
	suite.Assert().Equal(2, summary.EmployeesProcessed)
	suite.Assert().True(processed.Totals.NetTotal.Equal(summary.Totals.NetTotal))
}

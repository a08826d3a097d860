package store_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/paycycle/backend/pkg/models"
)

func (suite *TestSuiteStandard) TestUpsertEntryReplaces() {
	period := suite.createPeriod(2024, time.March)
	employee := uuid.New()

	suite.Require().Nil(suite.store.UpsertEntry(suite.ctx, &models.PayrollEntry{EmployeeID: employee, PeriodID: period.ID, NetPay: d("100")}))
	suite.Require().Nil(suite.store.UpsertEntry(suite.ctx, &models.PayrollEntry{EmployeeID: employee, PeriodID: period.ID, NetPay: d("200")}))

	entries, err := suite.store.Entries(suite.ctx, period.ID)
	suite.Require().Nil(err)
	suite.Require().Len(entries, 1)
	suite.Assert().True(entries[0].NetPay.Equal(d("200")))
}

func (suite *TestSuiteStandard) TestPruneEntries() {
	period := suite.createPeriod(2024, time.March)
	other := suite.createPeriod(2024, time.April)
	kept, pruned := uuid.New(), uuid.New()

	for _, employee := range []uuid.UUID{kept, pruned} {
		suite.Require().Nil(suite.store.UpsertEntry(suite.ctx, &models.PayrollEntry{EmployeeID: employee, PeriodID: period.ID}))
		suite.Require().Nil(suite.store.UpsertEntry(suite.ctx, &models.PayrollEntry{EmployeeID: employee, PeriodID: other.ID}))
	}

	suite.Require().Nil(suite.store.PruneEntries(suite.ctx, period.ID, []uuid.UUID{kept}))

	entries, err := suite.store.Entries(suite.ctx, period.ID)
	suite.Require().Nil(err)
	suite.Require().Len(entries, 1)
	suite.Assert().Equal(kept, entries[0].EmployeeID)

	// Other periods are untouched
	entries, err = suite.store.Entries(suite.ctx, other.ID)
	suite.Require().Nil(err)
	suite.Assert().Len(entries, 2)

	// Keeping nobody removes all entries of the period
	suite.Require().Nil(suite.store.PruneEntries(suite.ctx, period.ID, nil))
	entries, err = suite.store.Entries(suite.ctx, period.ID)
	suite.Require().Nil(err)
	suite.Assert().Empty(entries)
}

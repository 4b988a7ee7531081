package report

import (
	"errors"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesQuery_Resolve(t *testing.T) {
	today := time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

	t.Run("default is last 30 days", func(t *testing.T) {
		r, err := SalesQuery{}.Resolve(today, 365)
		require.NoError(t, err)
		assert.Equal(t, "2024-04-15 - 2024-05-15", r.String())
	})

	t.Run("custom range clipped to today", func(t *testing.T) {
		q := SalesQuery{PeriodType: PeriodCustom, Start: d(2024, time.May, 1), End: d(2024, time.June, 30)}
		r, err := q.Resolve(today, 365)
		require.NoError(t, err)
		assert.Equal(t, "2024-05-01 - 2024-05-15", r.String())
	})

	t.Run("custom start after end", func(t *testing.T) {
		q := SalesQuery{PeriodType: PeriodCustom, Start: d(2024, time.May, 10), End: d(2024, time.May, 1)}
		_, err := q.Resolve(today, 365)
		assert.True(t, errors.Is(err, shared.ErrInvalidPeriod))
	})

	t.Run("custom range longer than a year", func(t *testing.T) {
		q := SalesQuery{PeriodType: PeriodCustom, Start: d(2022, time.January, 1), End: d(2023, time.March, 1)}
		_, err := q.Resolve(today, 365)
		assert.True(t, errors.Is(err, shared.ErrInvalidPeriod))
	})

	t.Run("month", func(t *testing.T) {
		r, err := SalesQuery{PeriodType: PeriodMonth, Year: 2024, Month: 2}.Resolve(today, 365)
		require.NoError(t, err)
		assert.Equal(t, "2024-02-01 - 2024-02-29", r.String())
	})

	t.Run("current year is clipped", func(t *testing.T) {
		r, err := SalesQuery{PeriodType: PeriodYear, Year: 2024}.Resolve(today, 365)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01 - 2024-05-15", r.String())
	})

	t.Run("quarter", func(t *testing.T) {
		r, err := SalesQuery{PeriodType: PeriodQuarter, Year: 2023, Quarter: 4}.Resolve(today, 365)
		require.NoError(t, err)
		assert.Equal(t, "2023-10-01 - 2023-12-31", r.String())
	})

	t.Run("month out of range", func(t *testing.T) {
		_, err := SalesQuery{PeriodType: PeriodMonth, Year: 2024, Month: 13}.Resolve(today, 365)
		assert.True(t, errors.Is(err, shared.ErrInvalidPeriod))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := SalesQuery{PeriodType: "decade"}.Resolve(today, 365)
		assert.True(t, errors.Is(err, shared.ErrInvalidPeriod))
	})
}

func TestComputeSummary(t *testing.T) {
	base := CostBase{
		Revenue:     decimal.NewFromInt(5000000),
		CostOfGoods: decimal.NewFromInt(1000000),
		Salaries:    decimal.NewFromInt(800000),
		Rent:        decimal.NewFromInt(300000),
		Orders:      120,
	}
	s := ComputeSummary(base)

	// 5 000 000 - 1 000 000 VAT - 2 100 000 operating - 930 000 fixed = 970 000 taxable
	assert.Equal(t, "1000000", s.VAT.String())
	assert.Equal(t, "145500", s.ProfitTax.String())
	assert.Equal(t, "824500", s.NetProfit.String())
	assert.True(t, s.Revenue.Sub(s.TotalExpenses).Equal(s.NetProfit))
	assert.Equal(t, int64(120), s.Orders)
}

func TestNewARPU(t *testing.T) {
	assert.True(t, NewARPU(decimal.NewFromInt(100), 0).Value.IsZero())
	assert.Equal(t, "25", NewARPU(decimal.NewFromInt(100), 4).Value.String())
}

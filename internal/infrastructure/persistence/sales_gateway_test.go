package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var january = period.Range{
	Start: period.Date(2024, time.January, 1),
	End:   period.Date(2024, time.January, 31),
}

func TestUpperBound(t *testing.T) {
	end := upperBound(january)

	assert.Equal(t, period.Date(2024, time.January, 31), period.Date(end.Year(), end.Month(), end.Day()))
	assert.True(t, end.After(time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, end.Before(period.Date(2024, time.February, 1)))
}

func TestSalesGateway_RunSeries_TimeSeries(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)

	mock.ExpectQuery(regexp.QuoteMeta(`DATE_TRUNC('day', o."Date_order") AS day`)).
		WithArgs(january.Start, upperBound(january)).
		WillReturnRows(sqlmock.NewRows([]string{"day", "value"}).
			AddRow(time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local), "1500.50").
			AddRow(time.Date(2024, 1, 3, 0, 0, 0, 0, time.Local), "300"))

	series, err := gw.RunSeries(context.Background(), report.SalesDynamics, january, report.Filter{})
	require.NoError(t, err)

	assert.Equal(t, report.SalesDynamics, series.Name)
	assert.Equal(t, january, series.Period)
	require.Len(t, series.Points, 2)
	assert.Equal(t, period.Date(2024, time.January, 2), series.Points[0].Date)
	assert.Equal(t, "1500.5", series.Points[0].Value.String())
	assert.Equal(t, []string{"02.01.2024", "03.01.2024"}, series.Labels())
	assert.Equal(t, report.ColumnDate, series.Columns[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesGateway_RunSeries_Categorical(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT 10`)).
		WillReturnRows(sqlmock.NewRows([]string{"label", "value", "secondary"}).
			AddRow("Молоко", "40", "3200").
			AddRow(nil, "12", "900"))

	series, err := gw.RunSeries(context.Background(), report.TopGoods, january, report.Filter{})
	require.NoError(t, err)

	require.Len(t, series.Points, 2)
	assert.Equal(t, "Молоко", series.Points[0].Label)
	assert.Equal(t, "3200", series.Points[0].Secondary.String())
	assert.Equal(t, report.UnknownValue, series.Points[1].Label)
	assert.Len(t, series.Columns, 3)
}

func TestSalesGateway_RunSeries_CategoryFilter(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE fcg."Category" = $3`)).
		WithArgs(january.Start, upperBound(january), "Молочная продукция").
		WillReturnRows(sqlmock.NewRows([]string{"label", "value"}).AddRow("Москва", "1000"))

	series, err := gw.RunSeries(context.Background(), report.CityRevenue, january, report.Filter{Category: "Молочная продукция"})
	require.NoError(t, err)
	assert.Len(t, series.Points, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalesGateway_RunSeries_EmptyIsNotAnError(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)

	mock.ExpectQuery(regexp.QuoteMeta(`p."Method_payment" AS label`)).
		WillReturnRows(sqlmock.NewRows([]string{"label", "value"}))

	series, err := gw.RunSeries(context.Background(), report.PaymentMethods, january, report.Filter{})
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.True(t, series.Empty())
	assert.NotNil(t, series.Points)
}

func TestSalesGateway_RunSeries_UnknownQuery(t *testing.T) {
	db, _, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)

	_, err := gw.RunSeries(context.Background(), "profit_forecast", january, report.Filter{})
	assert.True(t, errors.Is(err, shared.ErrDataUnavailable))
}

func TestSalesGateway_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind report.FailureKind
	}{
		{"bad connection", driver.ErrBadConn, report.ConnectionFailed},
		{"dial failure", errors.New("failed to connect to `host=db user=bot`: dial error"), report.ConnectionFailed},
		{"syntax error", errors.New(`ERROR: column "Brend" does not exist`), report.QueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := newMockDatabase(t)
			gw := NewSalesGateway(db.DB)

			mock.ExpectQuery(`SELECT`).WillReturnError(tt.err)

			_, err := gw.Totals(context.Background(), january)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrDataUnavailable))

			var unavailable *report.DataUnavailableError
			require.True(t, errors.As(err, &unavailable))
			assert.Equal(t, "totals", unavailable.Query)
			assert.Equal(t, tt.kind, unavailable.Kind)
			assert.Equal(t, january, unavailable.Period)
		})
	}
}

func TestSalesGateway_Totals(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)

	mock.ExpectQuery(regexp.QuoteMeta(`COUNT(DISTINCT o."OrderID") AS orders`)).
		WithArgs(january.Start, upperBound(january), "Завершен").
		WillReturnRows(sqlmock.NewRows([]string{"revenue", "orders"}).AddRow("125000.75", 42))

	totals, err := gw.Totals(context.Background(), january)
	require.NoError(t, err)
	assert.Equal(t, "125000.75", totals.Revenue.String())
	assert.Equal(t, int64(42), totals.Orders)
}

func TestSalesGateway_NarrativeQueries(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	gw := NewSalesGateway(db.DB)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`c."Registration_date" BETWEEN $1 AND $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"new_customers"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY quantity DESC`)).
		WithArgs(january.Start, upperBound(january), "Завершен", 5).
		WillReturnRows(sqlmock.NewRows([]string{"name", "quantity", "revenue"}).
			AddRow("Кефир", "30", "2400").
			AddRow(nil, "4", "100"))
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY o."Buying_method"`)).
		WillReturnRows(sqlmock.NewRows([]string{"channel", "orders", "revenue"}).
			AddRow("Онлайн", 3, "900").
			AddRow("Офлайн", 2, "500"))
	mock.ExpectQuery(regexp.QuoteMeta(`o."Date_order"::date AS sale_date`)).
		WillReturnRows(sqlmock.NewRows([]string{"sale_date", "revenue", "orders"}).
			AddRow(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "1400", 5))
	mock.ExpectQuery(regexp.QuoteMeta(`d."DeliveryID" IS NOT NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"shipped_orders"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`STRING_AGG(DISTINCT a."City", ', ')`)).
		WillReturnRows(sqlmock.NewRows([]string{"main_regions"}).AddRow(nil))

	customers, err := gw.NewCustomers(ctx, january)
	require.NoError(t, err)
	assert.Equal(t, int64(7), customers)

	products, err := gw.TopProducts(ctx, january, 5)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Кефир", products[0].Name)
	assert.Equal(t, report.UnknownValue, products[1].Name)

	channels, err := gw.Channels(ctx, january)
	require.NoError(t, err)
	assert.Len(t, channels, 2)
	assert.Equal(t, int64(3), channels[0].Orders)

	daily, err := gw.DailyTotals(ctx, january)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, period.Date(2024, time.January, 5), daily[0].Date)

	shipped, err := gw.ShippedOrders(ctx, january)
	require.NoError(t, err)
	assert.Equal(t, int64(3), shipped)

	regions, err := gw.DeliveryRegions(ctx, january)
	require.NoError(t, err)
	assert.Empty(t, regions)

	assert.NoError(t, mock.ExpectationsWereMet())
}

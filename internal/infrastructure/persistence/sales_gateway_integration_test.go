//go:build integration

package persistence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// salesSchema is the subset of the sales database read by SalesGateway.
const salesSchema = `
CREATE TABLE "Category_goods" ("Category_goodsID" INT PRIMARY KEY, "Category" TEXT);
CREATE TABLE "Goods" ("GoodID" INT PRIMARY KEY, "Goods" TEXT, "Brend" TEXT, "Category_goodsID" INT);
CREATE TABLE "Customer" ("CustomerID" INT PRIMARY KEY, "Gender" TEXT, "Registration_date" TIMESTAMP);
CREATE TABLE "Payment" ("PaymentID" INT PRIMARY KEY, "Method_payment" TEXT);
CREATE TABLE "Address" ("AddressID" INT PRIMARY KEY, "City" TEXT);
CREATE TABLE "Delivery" ("DeliveryID" INT PRIMARY KEY, "AdressID" INT);
CREATE TABLE "Store" ("StoreID" INT PRIMARY KEY, "City" TEXT);
CREATE TABLE "Realization" ("RealizationID" INT PRIMARY KEY, "StoreID" INT);
CREATE TABLE "Order" (
	"OrderID" INT PRIMARY KEY,
	"Date_order" TIMESTAMP NOT NULL,
	"Order status" TEXT,
	"Buying_method" TEXT,
	"DeliveriID" INT,
	"RealizationID" INT,
	"PaymentID" INT,
	"CustomerID" INT
);
CREATE TABLE "Order_goods" ("OrderID" INT, "GoodID" INT, "Quantity_goods" NUMERIC, "Sum_and_discont_og" NUMERIC);
`

const salesSeed = `
INSERT INTO "Category_goods" VALUES (1, 'Выпечка');
INSERT INTO "Goods" VALUES (10, 'Батон', 'Хлебозавод', 1), (11, 'Сырок', 'Простоквашино', NULL);
INSERT INTO "Customer" VALUES (100, 'Ж', '2024-01-05 10:00'), (101, NULL, '2024-01-31 18:00');
INSERT INTO "Payment" VALUES (1, 'Карта');
INSERT INTO "Address" VALUES (1, 'Казань');
INSERT INTO "Delivery" VALUES (0, 0), (1, 1);
INSERT INTO "Store" VALUES (1, 'Москва');
INSERT INTO "Realization" VALUES (1, 1);
INSERT INTO "Order" VALUES
	(1, '2024-01-10 09:15', 'Завершен', 'Офлайн', 0, 1, 1, 100),
	(2, '2024-01-31 15:30', 'Завершен', 'Онлайн', 1, 1, 1, 101),
	(3, '2024-02-01 00:00', 'Завершен', 'Офлайн', 0, 1, 1, 100);
INSERT INTO "Order_goods" VALUES
	(1, 10, 2, 150.00),
	(2, 11, 1, 89.90),
	(3, 10, 5, 375.00);
`

var (
	sharedDB     *gorm.DB
	sharedDBErr  error
	sharedDBOnce sync.Once
)

// salesDatabase starts one PostgreSQL container per package run and seeds it.
func salesDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = startSalesDatabase(context.Background())
	})
	require.NoError(t, sharedDBErr, "Failed to start sales database")
	return sharedDB
}

func startSalesDatabase(ctx context.Context) (*gorm.DB, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sales_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("sales123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(&config.DatabaseConfig{
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "sales123",
		DBName:       "sales_test",
		SSLMode:      "disable",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		LogLevel:     "silent",
	}, zap.NewNop())
	if err != nil {
		return nil, err
	}
	for _, stmt := range strings.Split(salesSchema+salesSeed, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		// prepared statements take one command at a time
		if err := db.DB.Exec(stmt).Error; err != nil {
			return nil, err
		}
	}
	return db.DB, nil
}

var january2024 = period.NewRange(period.Date(2024, time.January, 1), period.Date(2024, time.January, 31))

func TestSalesGateway_Postgres_EmptyPeriod(t *testing.T) {
	gw := NewSalesGateway(salesDatabase(t))
	december := period.NewRange(period.Date(2023, time.December, 1), period.Date(2023, time.December, 31))

	for _, name := range []report.QueryName{report.SalesDynamics, report.CategorySales, report.PaymentMethods} {
		t.Run(string(name), func(t *testing.T) {
			series, err := gw.RunSeries(context.Background(), name, december, report.Filter{})
			require.NoError(t, err)
			require.NotNil(t, series)
			assert.True(t, series.Empty())
			assert.NotNil(t, series.Points)
		})
	}
}

func TestSalesGateway_Postgres_LastDayIncluded(t *testing.T) {
	gw := NewSalesGateway(salesDatabase(t))
	ctx := context.Background()

	orders, err := gw.RunSeries(ctx, report.OrderDynamics, january2024, report.Filter{})
	require.NoError(t, err)
	require.Len(t, orders.Points, 2)
	assert.Equal(t, period.Date(2024, time.January, 31), orders.Points[1].Date)

	totals, err := gw.Totals(ctx, january2024)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Orders, "the order of Feb 1 00:00 stays outside")
	assert.True(t, decimal.RequireFromString("239.90").Equal(totals.Revenue), "revenue %s", totals.Revenue)

	daily, err := gw.DailyTotals(ctx, january2024)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, period.Date(2024, time.January, 31), daily[1].Date)

	customers, err := gw.NewCustomers(ctx, january2024)
	require.NoError(t, err)
	assert.Equal(t, int64(2), customers)
}

func TestSalesGateway_Postgres_NullLabels(t *testing.T) {
	gw := NewSalesGateway(salesDatabase(t))
	ctx := context.Background()

	genders, err := gw.RunSeries(ctx, report.GenderStats, january2024, report.Filter{})
	require.NoError(t, err)
	labels := make([]string, 0, len(genders.Points))
	for _, p := range genders.Points {
		labels = append(labels, p.Label)
	}
	assert.ElementsMatch(t, []string{"Ж", report.UnknownValue}, labels)

	categories, err := gw.RunSeries(ctx, report.CategorySales, january2024, report.Filter{})
	require.NoError(t, err)
	require.Len(t, categories.Points, 2)
	assert.Equal(t, "Выпечка", categories.Points[0].Label)
	assert.Equal(t, "Без категории", categories.Points[1].Label)

	cities, err := gw.RunSeries(ctx, report.CityRevenue, january2024, report.Filter{})
	require.NoError(t, err)
	require.Len(t, cities.Points, 2)
	assert.Equal(t, "Москва", cities.Points[0].Label)
	assert.Equal(t, "Казань", cities.Points[1].Label)

	regions, err := gw.DeliveryRegions(ctx, january2024)
	require.NoError(t, err)
	assert.Equal(t, "Казань", regions)
}

func TestSalesGateway_Postgres_CategoryFilter(t *testing.T) {
	gw := NewSalesGateway(salesDatabase(t))

	series, err := gw.RunSeries(context.Background(), report.SalesDynamics, january2024, report.Filter{Category: "Выпечка"})
	require.NoError(t, err)
	require.Len(t, series.Points, 1)
	assert.Equal(t, period.Date(2024, time.January, 10), series.Points[0].Date)
}

func TestSalesGateway_Postgres_MissingTable(t *testing.T) {
	tx := salesDatabase(t).Begin()
	require.NoError(t, tx.Error)
	t.Cleanup(func() { tx.Rollback() })
	require.NoError(t, tx.Exec(`DROP TABLE "Payment"`).Error)

	_, err := NewSalesGateway(tx).RunSeries(context.Background(), report.PaymentMethods, january2024, report.Filter{})

	var unavailable *report.DataUnavailableError
	require.True(t, errors.As(err, &unavailable), "got %v", err)
	assert.Equal(t, report.QueryFailed, unavailable.Kind)
	assert.Equal(t, string(report.PaymentMethods), unavailable.Query)
}

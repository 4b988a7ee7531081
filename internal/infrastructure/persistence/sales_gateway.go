package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// completedStatus is the order status counted by reports and dashboards
const completedStatus = "Завершен"

// filterSlot is replaced by the optional category condition
const filterSlot = "/*filter*/"

const categoryFilter = ` AND o."OrderID" IN (
	SELECT fog."OrderID" FROM public."Order_goods" fog
	JOIN public."Goods" fg ON fog."GoodID" = fg."GoodID"
	JOIN public."Category_goods" fcg ON fg."Category_goodsID" = fcg."Category_goodsID"
	WHERE fcg."Category" = ?)`

type seriesQuery struct {
	sql     string
	columns []report.Column
	// timeSeries rows carry a day instead of a label
	timeSeries bool
}

var seriesQueries = map[report.QueryName]seriesQuery{
	report.SalesDynamics: {
		sql: `SELECT DATE_TRUNC('day', o."Date_order") AS day,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS value
		FROM "Order" o
		LEFT JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY DATE_TRUNC('day', o."Date_order")
		ORDER BY day ASC`,
		columns:    []report.Column{{Name: "День", Type: report.ColumnDate}, {Name: "Общая выручка", Type: report.ColumnNumeric}},
		timeSeries: true,
	},
	report.CategorySales: {
		sql: `SELECT COALESCE(cg."Category", 'Без категории') AS label,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS value
		FROM public."Order_goods" og
		LEFT JOIN public."Goods" g ON og."GoodID" = g."GoodID"
		LEFT JOIN public."Category_goods" cg ON g."Category_goodsID" = cg."Category_goodsID"
		LEFT JOIN public."Order" o ON og."OrderID" = o."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY cg."Category"
		ORDER BY value DESC`,
		columns: []report.Column{{Name: "Категория товара", Type: report.ColumnText}, {Name: "Выручка по категории", Type: report.ColumnNumeric}},
	},
	report.CityRevenue: {
		sql: `SELECT COALESCE(
				CASE
					WHEN o."Buying_method" = 'Онлайн' AND o."DeliveriID" != 0 AND d."AdressID" != 0 THEN a."City"
					ELSE s."City"
				END,
				'Не указан') AS label,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS value
		FROM public."Order" o
		LEFT JOIN public."Realization" r ON o."RealizationID" = r."RealizationID"
		LEFT JOIN public."Store" s ON r."StoreID" = s."StoreID"
		LEFT JOIN public."Delivery" d ON o."DeliveriID" = d."DeliveryID"
		LEFT JOIN public."Address" a ON d."AdressID" = a."AddressID"
		LEFT JOIN public."Order_goods" og ON o."OrderID" = og."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY
			CASE
				WHEN o."Buying_method" = 'Онлайн' AND o."DeliveriID" != 0 AND d."AdressID" != 0 THEN a."City"
				ELSE s."City"
			END
		ORDER BY value DESC
		LIMIT 19`,
		columns: []report.Column{{Name: "Город", Type: report.ColumnText}, {Name: "Выручка", Type: report.ColumnNumeric}},
	},
	report.PaymentMethods: {
		sql: `SELECT p."Method_payment" AS label,
			COUNT(DISTINCT o."OrderID") AS value
		FROM "Order" o
		JOIN "Payment" p ON o."PaymentID" = p."PaymentID"
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY p."Method_payment"
		ORDER BY value DESC`,
		columns: []report.Column{{Name: "Метод оплаты", Type: report.ColumnText}, {Name: "Количество заказов", Type: report.ColumnInteger}},
	},
	report.GenderStats: {
		sql: `SELECT COALESCE(c."Gender", 'Не указан') AS label,
			COUNT(c."CustomerID") AS value
		FROM public."Customer" c
		JOIN public."Order" o ON c."CustomerID" = o."CustomerID"
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY c."Gender"
		ORDER BY value DESC`,
		columns: []report.Column{{Name: "Пол", Type: report.ColumnText}, {Name: "Количество покупателей", Type: report.ColumnInteger}},
	},
	report.TopGoods: {
		sql: `SELECT g."Goods" AS label,
			COALESCE(SUM(og."Quantity_goods"), 0) AS value,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS secondary
		FROM public."Goods" g
		JOIN public."Order_goods" og ON g."GoodID" = og."GoodID"
		JOIN public."Order" o ON og."OrderID" = o."OrderID" AND o."Order status" = 'Завершен'
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY g."Goods"
		ORDER BY value DESC, secondary DESC
		LIMIT 10`,
		columns: []report.Column{
			{Name: "Название товара", Type: report.ColumnText},
			{Name: "Количество проданных единиц", Type: report.ColumnNumeric},
			{Name: "Общая выручка", Type: report.ColumnNumeric},
		},
	},
	report.OrderDynamics: {
		sql: `SELECT DATE_TRUNC('day', o."Date_order") AS day,
			COUNT(o."OrderID") AS value
		FROM "Order" o
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY DATE_TRUNC('day', o."Date_order")
		ORDER BY day ASC`,
		columns:    []report.Column{{Name: "День", Type: report.ColumnDate}, {Name: "Количество заказов", Type: report.ColumnInteger}},
		timeSeries: true,
	},
	report.TopBrands: {
		sql: `SELECT g."Brend" AS label,
			COALESCE(SUM(og."Quantity_goods"), 0) AS value,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS secondary
		FROM public."Goods" g
		JOIN public."Order_goods" og ON g."GoodID" = og."GoodID"
		JOIN public."Order" o ON og."OrderID" = o."OrderID" AND o."Order status" = 'Завершен'
		WHERE o."Date_order" BETWEEN ? AND ?` + filterSlot + `
		GROUP BY g."Brend"
		ORDER BY value DESC, secondary DESC
		LIMIT 15`,
		columns: []report.Column{
			{Name: "Бренд", Type: report.ColumnText},
			{Name: "Количество проданных единиц", Type: report.ColumnNumeric},
			{Name: "Общая выручка", Type: report.ColumnNumeric},
		},
	},
}

// SalesGateway implements report.Gateway with raw aggregation SQL over GORM
type SalesGateway struct {
	db *gorm.DB
}

// NewSalesGateway creates a new SalesGateway
func NewSalesGateway(db *gorm.DB) *SalesGateway {
	return &SalesGateway{db: db}
}

var _ report.Gateway = (*SalesGateway)(nil)

type seriesRow struct {
	Day       time.Time
	Label     sql.NullString
	Value     decimal.Decimal
	Secondary decimal.Decimal
}

// RunSeries executes one named chart aggregation
func (g *SalesGateway) RunSeries(ctx context.Context, name report.QueryName, r period.Range, filter report.Filter) (*report.Series, error) {
	q, ok := seriesQueries[name]
	if !ok {
		return nil, report.NewDataUnavailable(string(name), r, report.QueryFailed, errors.New("unknown query"))
	}

	stmt := q.sql
	args := []any{r.Start, upperBound(r)}
	if filter.Category != "" {
		stmt = strings.Replace(stmt, filterSlot, categoryFilter, 1)
		args = append(args, filter.Category)
	} else {
		stmt = strings.Replace(stmt, filterSlot, "", 1)
	}

	var rows []seriesRow
	if err := rawQuery(ctx, g.db, string(name), stmt, args...).Scan(&rows).Error; err != nil {
		return nil, unavailable(string(name), r, err)
	}

	series := &report.Series{
		Name:    name,
		Period:  r,
		Columns: q.columns,
		Points:  make([]report.Point, 0, len(rows)),
	}
	for _, row := range rows {
		p := report.Point{Value: row.Value, Secondary: row.Secondary}
		if q.timeSeries {
			p.Date = period.Date(row.Day.Year(), row.Day.Month(), row.Day.Day())
		} else {
			p.Label = row.Label.String
			if !row.Label.Valid {
				p.Label = report.UnknownValue
			}
		}
		series.Points = append(series.Points, p)
	}
	return series, nil
}

// Totals returns revenue and distinct order count of completed orders
func (g *SalesGateway) Totals(ctx context.Context, r period.Range) (report.Totals, error) {
	var row struct {
		Revenue decimal.Decimal
		Orders  int64
	}
	err := rawQuery(ctx, g.db, "totals", `SELECT COALESCE(SUM(og."Sum_and_discont_og"), 0) AS revenue,
			COUNT(DISTINCT o."OrderID") AS orders
		FROM public."Order" o
		LEFT JOIN public."Order_goods" og ON o."OrderID" = og."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ? AND o."Order status" = ?`,
		r.Start, upperBound(r), completedStatus).Scan(&row).Error
	if err != nil {
		return report.Totals{}, unavailable("totals", r, err)
	}
	return report.Totals{Revenue: row.Revenue, Orders: row.Orders}, nil
}

// NewCustomers counts customers registered within the period
func (g *SalesGateway) NewCustomers(ctx context.Context, r period.Range) (int64, error) {
	var count int64
	err := rawQuery(ctx, g.db, "new_customers", `SELECT COUNT(*) AS new_customers
		FROM public."Customer" c
		WHERE c."Registration_date" BETWEEN ? AND ?`, r.Start, upperBound(r)).Scan(&count).Error
	if err != nil {
		return 0, unavailable("new_customers", r, err)
	}
	return count, nil
}

// TopProducts ranks completed-order goods by quantity sold
func (g *SalesGateway) TopProducts(ctx context.Context, r period.Range, limit int) ([]report.ProductSales, error) {
	var rows []struct {
		Name     sql.NullString
		Quantity decimal.Decimal
		Revenue  decimal.Decimal
	}
	err := rawQuery(ctx, g.db, "top_products", `SELECT g."Goods" AS name,
			COALESCE(SUM(og."Quantity_goods"), 0) AS quantity,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS revenue
		FROM public."Order" o
		LEFT JOIN public."Order_goods" og ON o."OrderID" = og."OrderID"
		LEFT JOIN public."Goods" g ON og."GoodID" = g."GoodID"
		WHERE o."Date_order" BETWEEN ? AND ? AND o."Order status" = ?
		GROUP BY g."Goods"
		ORDER BY quantity DESC
		LIMIT ?`, r.Start, upperBound(r), completedStatus, limit).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("top_products", r, err)
	}

	out := make([]report.ProductSales, 0, len(rows))
	for _, row := range rows {
		name := row.Name.String
		if !row.Name.Valid {
			name = report.UnknownValue
		}
		out = append(out, report.ProductSales{Name: name, Quantity: row.Quantity, Revenue: row.Revenue})
	}
	return out, nil
}

// Channels splits completed orders by buying method
func (g *SalesGateway) Channels(ctx context.Context, r period.Range) ([]report.ChannelRow, error) {
	var rows []struct {
		Channel sql.NullString
		Orders  int64
		Revenue decimal.Decimal
	}
	err := rawQuery(ctx, g.db, "channels", `SELECT o."Buying_method" AS channel,
			COUNT(DISTINCT o."OrderID") AS orders,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS revenue
		FROM public."Order" o
		LEFT JOIN public."Order_goods" og ON o."OrderID" = og."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ? AND o."Order status" = ?
		GROUP BY o."Buying_method"`, r.Start, upperBound(r), completedStatus).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("channels", r, err)
	}

	out := make([]report.ChannelRow, 0, len(rows))
	for _, row := range rows {
		channel := row.Channel.String
		if !row.Channel.Valid {
			channel = report.UnknownValue
		}
		out = append(out, report.ChannelRow{Channel: channel, Orders: row.Orders, Revenue: row.Revenue})
	}
	return out, nil
}

// DailyTotals returns revenue and order count per day with sales
func (g *SalesGateway) DailyTotals(ctx context.Context, r period.Range) ([]report.DailyTotal, error) {
	var rows []struct {
		SaleDate time.Time
		Revenue  decimal.Decimal
		Orders   int64
	}
	err := rawQuery(ctx, g.db, "daily_totals", `SELECT o."Date_order"::date AS sale_date,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS revenue,
			COUNT(DISTINCT o."OrderID") AS orders
		FROM public."Order" o
		LEFT JOIN public."Order_goods" og ON o."OrderID" = og."OrderID"
		WHERE o."Date_order" BETWEEN ? AND ? AND o."Order status" = ?
		GROUP BY o."Date_order"::date
		ORDER BY sale_date`, r.Start, upperBound(r), completedStatus).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("daily_totals", r, err)
	}

	out := make([]report.DailyTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, report.DailyTotal{
			Date:    period.Date(row.SaleDate.Year(), row.SaleDate.Month(), row.SaleDate.Day()),
			Revenue: row.Revenue,
			Orders:  row.Orders,
		})
	}
	return out, nil
}

// ShippedOrders counts completed orders with a delivery
func (g *SalesGateway) ShippedOrders(ctx context.Context, r period.Range) (int64, error) {
	var count int64
	err := rawQuery(ctx, g.db, "shipped_orders", `SELECT COUNT(DISTINCT o."OrderID") AS shipped_orders
		FROM public."Order" o
		LEFT JOIN public."Delivery" d ON o."DeliveriID" = d."DeliveryID"
		WHERE o."Date_order" BETWEEN ? AND ? AND o."Order status" = ? AND d."DeliveryID" IS NOT NULL`,
		r.Start, upperBound(r), completedStatus).Scan(&count).Error
	if err != nil {
		return 0, unavailable("shipped_orders", r, err)
	}
	return count, nil
}

// DeliveryRegions returns the distinct delivery cities of completed orders
func (g *SalesGateway) DeliveryRegions(ctx context.Context, r period.Range) (string, error) {
	var regions sql.NullString
	err := rawQuery(ctx, g.db, "delivery_regions", `SELECT STRING_AGG(DISTINCT a."City", ', ') AS main_regions
		FROM public."Order" o
		LEFT JOIN public."Delivery" d ON o."DeliveriID" = d."DeliveryID"
		LEFT JOIN public."Address" a ON d."AdressID" = a."AddressID"
		WHERE o."Date_order" BETWEEN ? AND ? AND o."Order status" = ? AND a."City" IS NOT NULL`,
		r.Start, upperBound(r), completedStatus).Scan(&regions).Error
	if err != nil {
		return "", unavailable("delivery_regions", r, err)
	}
	return regions.String, nil
}

// rawQuery runs stmt tagged with the query name used in SQL logs and latency metrics.
func rawQuery(ctx context.Context, db *gorm.DB, query, stmt string, args ...any) *gorm.DB {
	return db.WithContext(logger.WithQuery(ctx, query)).Raw(stmt, args...)
}

// upperBound is the last instant of the range's final day. Order dates are
// timestamps, so BETWEEN against the bare end date would drop that day.
func upperBound(r period.Range) time.Time {
	return r.End.AddDate(0, 0, 1).Add(-time.Microsecond)
}

func unavailable(query string, r period.Range, err error) error {
	return report.NewDataUnavailable(query, r, classifyFailure(err), err)
}

// classifyFailure separates an unreachable database from a failing statement.
func classifyFailure(err error) report.FailureKind {
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		strings.Contains(err.Error(), "failed to connect"):
		return report.ConnectionFailed
	}
	return report.QueryFailed
}

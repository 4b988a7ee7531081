package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// earliestSupply joins the first supply of a good delivered on or before the order date
const earliestSupply = `LEFT JOIN "Supply" s ON og."GoodID" = s."GoodsID"
			AND s."Date_supply" = (
				SELECT MIN(s2."Date_supply")
				FROM "Supply" s2
				WHERE s2."GoodsID" = s."GoodsID"
				AND s2."Date_supply" <= o."Date_order"
			)`

// GormSalesOverviewRepository reads the sales dashboard aggregates
type GormSalesOverviewRepository struct {
	db *gorm.DB
}

// NewGormSalesOverviewRepository creates a new GormSalesOverviewRepository
func NewGormSalesOverviewRepository(db *gorm.DB) *GormSalesOverviewRepository {
	return &GormSalesOverviewRepository{db: db}
}

var _ report.SalesOverviewRepository = (*GormSalesOverviewRepository)(nil)

type labeledRow struct {
	Label sql.NullString
	Value decimal.Decimal
}

type dailyRow struct {
	Day   time.Time
	Value decimal.Decimal
}

// Categories lists every goods category for the filter dropdown
func (r *GormSalesOverviewRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := rawQuery(ctx, r.db, "categories", `SELECT DISTINCT cg."Category"
		FROM "Category_goods" cg
		WHERE cg."Category" IS NOT NULL
		ORDER BY cg."Category"`).Scan(&categories).Error
	if err != nil {
		return nil, unavailable("categories", period.Range{}, err)
	}
	return categories, nil
}

// CostBase reads revenue, cost of goods sold and the fixed monthly costs
func (r *GormSalesOverviewRepository) CostBase(ctx context.Context, rg period.Range) (report.CostBase, error) {
	var row struct {
		Revenue     decimal.Decimal
		CostOfGoods decimal.Decimal
		Salaries    decimal.Decimal
		Rent        decimal.Decimal
		Orders      int64
	}
	err := rawQuery(ctx, r.db, "cost_base", `WITH
		revenue AS (
			SELECT COALESCE(SUM(og."Sum_and_discont_og"), 0) AS total
			FROM "Order" o
			JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
			WHERE o."Date_order" BETWEEN @start AND @end
		),
		cogs AS (
			SELECT COALESCE(SUM(s."Price_supply" * og."Quantity_goods"), 0) AS total
			FROM "Order" o
			JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
			`+earliestSupply+`
			WHERE o."Date_order" BETWEEN @start AND @end
		)
		SELECT
			(SELECT total FROM revenue) AS revenue,
			(SELECT total FROM cogs) AS cost_of_goods,
			(SELECT COALESCE(SUM("Salary"), 0) FROM "Staff") AS salaries,
			(SELECT COALESCE(SUM("Rental_price_month"), 0) FROM "Store") AS rent,
			(SELECT COUNT(DISTINCT o."OrderID") FROM "Order" o WHERE o."Date_order" BETWEEN @start AND @end) AS orders`,
		rangeArgs(rg)).Scan(&row).Error
	if err != nil {
		return report.CostBase{}, unavailable("cost_base", rg, err)
	}
	return report.CostBase{
		Revenue:     row.Revenue,
		CostOfGoods: row.CostOfGoods,
		Salaries:    row.Salaries,
		Rent:        row.Rent,
		Orders:      row.Orders,
	}, nil
}

// GrossProfitByDay returns revenue, purchase cost and their difference per day
func (r *GormSalesOverviewRepository) GrossProfitByDay(ctx context.Context, rg period.Range) ([]report.DailyProfit, error) {
	var rows []struct {
		Day         time.Time
		Revenue     decimal.Decimal
		Cost        decimal.Decimal
		GrossProfit decimal.Decimal
	}
	err := rawQuery(ctx, r.db, "gross_profit", `WITH
		revenue AS (
			SELECT DATE_TRUNC('day', o."Date_order") AS day,
				COALESCE(SUM(og."Sum_and_discont_og"), 0) AS total
			FROM "Order" o
			JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
			WHERE o."Date_order" BETWEEN @start AND @end
			GROUP BY DATE_TRUNC('day', o."Date_order")
		),
		cogs AS (
			SELECT DATE_TRUNC('day', o."Date_order") AS day,
				COALESCE(SUM(s."Price_supply" * og."Quantity_goods"), 0) AS total
			FROM "Order" o
			JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
			`+earliestSupply+`
			WHERE o."Date_order" BETWEEN @start AND @end
			GROUP BY DATE_TRUNC('day', o."Date_order")
		)
		SELECT rv.day,
			rv.total AS revenue,
			COALESCE(c.total, 0) AS cost,
			rv.total - COALESCE(c.total, 0) AS gross_profit
		FROM revenue rv
		LEFT JOIN cogs c ON rv.day = c.day
		ORDER BY rv.day`, rangeArgs(rg)).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("gross_profit", rg, err)
	}

	out := make([]report.DailyProfit, 0, len(rows))
	for _, row := range rows {
		out = append(out, report.DailyProfit{
			Date:        calendarDay(row.Day),
			Revenue:     row.Revenue,
			Cost:        row.Cost,
			GrossProfit: row.GrossProfit,
		})
	}
	return out, nil
}

// OrdersByDay counts distinct orders per day
func (r *GormSalesOverviewRepository) OrdersByDay(ctx context.Context, rg period.Range) ([]report.DailyValue, error) {
	return r.daily(ctx, "orders_by_day", rg, `SELECT DATE_TRUNC('day', o."Date_order") AS day,
			COUNT(DISTINCT o."OrderID") AS value
		FROM "Order" o
		JOIN "Realization" r ON o."RealizationID" = r."RealizationID"
		JOIN "Store" s ON r."StoreID" = s."StoreID"
		WHERE o."Date_order" BETWEEN @start AND @end
		GROUP BY DATE_TRUNC('day', o."Date_order")
		ORDER BY day`)
}

// AvgOrderByDay averages the order line sum per day
func (r *GormSalesOverviewRepository) AvgOrderByDay(ctx context.Context, rg period.Range) ([]report.DailyValue, error) {
	return r.daily(ctx, "avg_order_by_day", rg, `SELECT DATE_TRUNC('day', o."Date_order") AS day,
			COALESCE(AVG(og."Sum_og"), 0) AS value
		FROM "Order" o
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		JOIN "Realization" r ON o."RealizationID" = r."RealizationID"
		JOIN "Store" s ON r."StoreID" = s."StoreID"
		WHERE o."Date_order" BETWEEN @start AND @end
		GROUP BY DATE_TRUNC('day', o."Date_order")
		ORDER BY day`)
}

// RevenueByStore sums order line revenue per store; store 0 is the web shop
func (r *GormSalesOverviewRepository) RevenueByStore(ctx context.Context, rg period.Range, category string) ([]report.LabeledValue, error) {
	return r.byStore(ctx, "revenue_by_store", rg, category, `SUM(og."Sum_og")`)
}

// OrdersByStore counts distinct orders per store
func (r *GormSalesOverviewRepository) OrdersByStore(ctx context.Context, rg period.Range, category string) ([]report.LabeledValue, error) {
	return r.byStore(ctx, "orders_by_store", rg, category, `COUNT(DISTINCT o."OrderID")`)
}

func (r *GormSalesOverviewRepository) byStore(ctx context.Context, query string, rg period.Range, category, aggregate string) ([]report.LabeledValue, error) {
	args := rangeArgs(rg)
	filter := ""
	if category != "" {
		filter = ` AND cg."Category" = @category`
		args["category"] = category
	}
	return r.labeled(ctx, query, rg, `SELECT CASE WHEN s."StoreID" = 0 THEN 'Сайт' ELSE s."Name" END AS label,
			COALESCE(`+aggregate+`, 0) AS value
		FROM "Order" o
		JOIN "Realization" r ON o."RealizationID" = r."RealizationID"
		JOIN "Store" s ON r."StoreID" = s."StoreID"
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		JOIN "Goods" g ON og."GoodID" = g."GoodID"
		JOIN "Category_goods" cg ON g."Category_goodsID" = cg."Category_goodsID"
		WHERE o."Date_order" BETWEEN @start AND @end`+filter+`
		GROUP BY s."StoreID", s."Name"
		ORDER BY value DESC`, args)
}

// TopBrands ranks brands by discounted revenue
func (r *GormSalesOverviewRepository) TopBrands(ctx context.Context, rg period.Range, limit int) ([]report.LabeledValue, error) {
	args := rangeArgs(rg)
	args["limit"] = limit
	return r.labeled(ctx, "top_brands_overview", rg, `SELECT g."Brend" AS label,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS value
		FROM "Order" o
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		JOIN "Goods" g ON og."GoodID" = g."GoodID"
		JOIN "Realization" r ON o."RealizationID" = r."RealizationID"
		JOIN "Store" s ON r."StoreID" = s."StoreID"
		WHERE o."Date_order" BETWEEN @start AND @end
		GROUP BY g."Brend"
		ORDER BY value DESC
		LIMIT @limit`, args)
}

// TopCategories ranks categories by discounted revenue
func (r *GormSalesOverviewRepository) TopCategories(ctx context.Context, rg period.Range, limit int) ([]report.LabeledValue, error) {
	args := rangeArgs(rg)
	args["limit"] = limit
	return r.labeled(ctx, "top_categories", rg, `SELECT cg."Category" AS label,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS value
		FROM "Order" o
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		JOIN "Goods" g ON og."GoodID" = g."GoodID"
		JOIN "Category_goods" cg ON g."Category_goodsID" = cg."Category_goodsID"
		JOIN "Realization" r ON o."RealizationID" = r."RealizationID"
		JOIN "Store" s ON r."StoreID" = s."StoreID"
		WHERE o."Date_order" BETWEEN @start AND @end
		GROUP BY cg."Category"
		ORDER BY value DESC
		LIMIT @limit`, args)
}

// SalesByManager sums revenue per staff member who realized the order
func (r *GormSalesOverviewRepository) SalesByManager(ctx context.Context, rg period.Range) ([]report.LabeledValue, error) {
	return r.labeled(ctx, "sales_by_manager", rg, `SELECT m."Last_name" || ' ' || m."First_name" AS label,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS value
		FROM "Order" o
		JOIN "Realization" r ON o."RealizationID" = r."RealizationID"
		JOIN "Staff" m ON r."StaffID" = m."StaffID"
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		JOIN "Store" s ON r."StoreID" = s."StoreID"
		WHERE o."Date_order" BETWEEN @start AND @end
		GROUP BY m."Last_name", m."First_name"
		ORDER BY value DESC`, rangeArgs(rg))
}

// ARPU reads revenue and unique customers; the division happens in the domain
func (r *GormSalesOverviewRepository) ARPU(ctx context.Context, rg period.Range) (report.ARPU, error) {
	var row struct {
		Revenue   decimal.Decimal
		Customers int64
	}
	err := rawQuery(ctx, r.db, "arpu", `SELECT
			(SELECT COALESCE(SUM(og."Sum_and_discont_og"), 0)
				FROM "Order_goods" og
				JOIN "Order" o ON og."OrderID" = o."OrderID"
				WHERE o."Date_order" BETWEEN @start AND @end) AS revenue,
			(SELECT COUNT(DISTINCT o."CustomerID")
				FROM "Order" o
				WHERE o."Date_order" BETWEEN @start AND @end) AS customers`,
		rangeArgs(rg)).Scan(&row).Error
	if err != nil {
		return report.ARPU{}, unavailable("arpu", rg, err)
	}
	return report.NewARPU(row.Revenue, row.Customers), nil
}

// CategoryStats returns revenue, purchase cost and margin per category,
// ordered by margin
func (r *GormSalesOverviewRepository) CategoryStats(ctx context.Context, rg period.Range, category string) ([]report.CategoryStat, error) {
	args := rangeArgs(rg)
	filter := ""
	if category != "" {
		filter = ` AND cg."Category" = @category`
		args["category"] = category
	}

	var rows []struct {
		Category      sql.NullString
		Revenue       decimal.Decimal
		CostPrice     decimal.Decimal
		GrossProfit   decimal.Decimal
		MarginPercent decimal.Decimal
		Orders        int64
		ItemsSold     decimal.Decimal
	}
	err := rawQuery(ctx, r.db, "category_stats", `SELECT cg."Category" AS category,
			SUM(COALESCE(og."Sum_and_discont_og", 0)) AS revenue,
			SUM(COALESCE(s."Price_supply", 0) * og."Quantity_goods") AS cost_price,
			SUM(COALESCE(og."Sum_and_discont_og", 0)) - SUM(COALESCE(s."Price_supply", 0) * og."Quantity_goods") AS gross_profit,
			COALESCE(ROUND(
				((SUM(COALESCE(og."Sum_and_discont_og", 0)) - SUM(COALESCE(s."Price_supply", 0) * og."Quantity_goods"))::numeric
				/ NULLIF(SUM(COALESCE(og."Sum_and_discont_og", 0)), 0)) * 100, 2
			), 0) AS margin_percent,
			COUNT(DISTINCT o."OrderID") AS orders,
			COALESCE(SUM(og."Quantity_goods"), 0) AS items_sold
		FROM "Order" o
		JOIN "Order_goods" og ON o."OrderID" = og."OrderID"
		JOIN "Goods" g ON og."GoodID" = g."GoodID"
		JOIN "Category_goods" cg ON g."Category_goodsID" = cg."Category_goodsID"
		LEFT JOIN "Supply" s ON g."GoodID" = s."GoodsID"
			AND s."Date_supply" = (SELECT MIN("Date_supply") FROM "Supply" WHERE "GoodsID" = g."GoodID")
		WHERE o."Date_order" BETWEEN @start AND @end`+filter+`
		GROUP BY cg."Category"
		ORDER BY margin_percent DESC`, args).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("category_stats", rg, err)
	}

	out := make([]report.CategoryStat, 0, len(rows))
	for _, row := range rows {
		name := row.Category.String
		if !row.Category.Valid {
			name = report.UnknownValue
		}
		out = append(out, report.CategoryStat{
			Category:      name,
			Revenue:       row.Revenue,
			CostPrice:     row.CostPrice,
			GrossProfit:   row.GrossProfit,
			MarginPercent: row.MarginPercent,
			Orders:        row.Orders,
			ItemsSold:     row.ItemsSold,
		})
	}
	return out, nil
}

func (r *GormSalesOverviewRepository) daily(ctx context.Context, query string, rg period.Range, stmt string) ([]report.DailyValue, error) {
	var rows []dailyRow
	if err := rawQuery(ctx, r.db, query, stmt, rangeArgs(rg)).Scan(&rows).Error; err != nil {
		return nil, unavailable(query, rg, err)
	}
	out := make([]report.DailyValue, 0, len(rows))
	for _, row := range rows {
		out = append(out, report.DailyValue{Date: calendarDay(row.Day), Value: row.Value})
	}
	return out, nil
}

func (r *GormSalesOverviewRepository) labeled(ctx context.Context, query string, rg period.Range, stmt string, args map[string]any) ([]report.LabeledValue, error) {
	var rows []labeledRow
	if err := rawQuery(ctx, r.db, query, stmt, args).Scan(&rows).Error; err != nil {
		return nil, unavailable(query, rg, err)
	}
	out := make([]report.LabeledValue, 0, len(rows))
	for _, row := range rows {
		label := row.Label.String
		if !row.Label.Valid {
			label = report.UnknownValue
		}
		out = append(out, report.LabeledValue{Label: label, Value: row.Value})
	}
	return out, nil
}

// rangeArgs returns the named arguments shared by every dashboard query
func rangeArgs(r period.Range) map[string]any {
	return map[string]any{"start": r.Start, "end": upperBound(r)}
}

func calendarDay(t time.Time) time.Time {
	return period.Date(t.Year(), t.Month(), t.Day())
}

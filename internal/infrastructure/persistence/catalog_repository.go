package persistence

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/bimate/backend/internal/domain/catalog"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCatalogRepository reads the product analysis aggregates
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

var _ catalog.ProductAnalyticsRepository = (*GormCatalogRepository)(nil)

const goodsNameMatch = ` AND REGEXP_REPLACE(g."Goods", '[^а-яА-Яa-zA-Z0-9 ]', '', 'g') ILIKE ?`

// Countries lists the countries of origin for the search form
func (r *GormCatalogRepository) Countries(ctx context.Context) ([]string, error) {
	var countries []string
	err := rawQuery(ctx, r.db, "countries", `SELECT DISTINCT "Country_name"
		FROM public."Country"
		WHERE "Country_name" IS NOT NULL
		ORDER BY "Country_name"`).Scan(&countries).Error
	if err != nil {
		return nil, unavailable("countries", period.Range{}, err)
	}
	return countries, nil
}

// Categories lists the goods categories for the search form
func (r *GormCatalogRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := rawQuery(ctx, r.db, "goods_categories", `SELECT DISTINCT "Category"
		FROM public."Category_goods"
		WHERE "Category" IS NOT NULL
		ORDER BY "Category"`).Scan(&categories).Error
	if err != nil {
		return nil, unavailable("goods_categories", period.Range{}, err)
	}
	return categories, nil
}

// SearchGoods finds goods by the filter. A filter without any usable field
// returns the whole catalog, ordered by name.
func (r *GormCatalogRepository) SearchGoods(ctx context.Context, filter catalog.GoodsFilter) ([]catalog.GoodRef, error) {
	var b strings.Builder
	b.WriteString(`SELECT g."GoodID" AS id, g."Goods" AS name
		FROM public."Goods" g
		JOIN public."Category_goods" cg ON g."Category_goodsID" = cg."Category_goodsID"
		JOIN public."Country" co ON g."CountryID" = co."CountryID"
		WHERE 1=1`)
	var args []any

	switch filter.Type {
	case catalog.FilterByName:
		if filter.Name != "" {
			b.WriteString(goodsNameMatch)
			args = append(args, catalog.NamePattern(filter.Name))
		}
	case catalog.FilterByID:
		if filter.ID > 0 {
			b.WriteString(` AND g."GoodID" = ?`)
			args = append(args, filter.ID)
		}
	case catalog.FilterByCategoryCountry:
		if filter.Category != "" {
			b.WriteString(` AND cg."Category" = ?`)
			args = append(args, filter.Category)
		}
		if filter.Country != "" {
			b.WriteString(` AND co."Country_name" = ?`)
			args = append(args, filter.Country)
		}
	case catalog.FilterByNameCountry:
		if filter.Name != "" {
			b.WriteString(goodsNameMatch)
			args = append(args, catalog.NamePattern(filter.Name))
		}
		if filter.Country != "" {
			b.WriteString(` AND co."Country_name" = ?`)
			args = append(args, filter.Country)
		}
	}
	b.WriteString(` ORDER BY g."Goods" ASC`)

	var rows []catalog.GoodRef
	if err := rawQuery(ctx, r.db, "search_goods", b.String(), args...).Scan(&rows).Error; err != nil {
		return nil, unavailable("search_goods", period.Range{}, err)
	}
	if rows == nil {
		rows = []catalog.GoodRef{}
	}
	return rows, nil
}

// ProductInfo returns the product card, or nil when the good does not exist
func (r *GormCatalogRepository) ProductInfo(ctx context.Context, goodID int64) (*catalog.ProductInfo, error) {
	var rows []struct {
		ID          int64
		Name        sql.NullString
		Brand       sql.NullString
		Type        sql.NullString
		Category    sql.NullString
		Country     sql.NullString
		Price       decimal.Decimal
		Discount    decimal.Decimal
		StorageLife sql.NullString
	}
	err := rawQuery(ctx, r.db, "product_info", `SELECT g."GoodID" AS id,
			g."Goods" AS name,
			g."Brend" AS brand,
			g."Type_good" AS type,
			cg."Category" AS category,
			co."Country_name" AS country,
			COALESCE(pg."Goods_price", 0) AS price,
			COALESCE(d."Discount_amount", 0) AS discount,
			g."Storage_life"::text AS storage_life
		FROM public."Goods" g
		JOIN public."Category_goods" cg ON g."Category_goodsID" = cg."Category_goodsID"
		JOIN public."Country" co ON g."CountryID" = co."CountryID"
		JOIN public."Price_goods" pg ON g."PriceID" = pg."PriceID"
		JOIN public."Discount" d ON g."DiscountID" = d."DiscountID"
		WHERE g."GoodID" = ?
		LIMIT 1`, goodID).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_info", period.Range{}, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &catalog.ProductInfo{
		ID:              row.ID,
		Name:            row.Name.String,
		Brand:           row.Brand.String,
		Type:            row.Type.String,
		Category:        row.Category.String,
		Country:         row.Country.String,
		Price:           row.Price,
		Discount:        row.Discount,
		StorageLife:     row.StorageLife.String,
		DiscountedPrice: catalog.DiscountedPrice(row.Price, row.Discount),
	}, nil
}

// Popularity returns weekly order lines and units sold since the given date
func (r *GormCatalogRepository) Popularity(ctx context.Context, goodID int64, since time.Time) ([]catalog.WeeklyPopularity, error) {
	var rows []struct {
		WeekStart time.Time
		Orders    int64
		Quantity  decimal.Decimal
	}
	err := rawQuery(ctx, r.db, "product_popularity", `SELECT DATE_TRUNC('week', o."Date_order")::date AS week_start,
			COUNT(og."Order_goodsID") AS orders,
			COALESCE(SUM(og."Quantity_goods"), 0) AS quantity
		FROM public."Goods" g
		JOIN public."Order_goods" og ON g."GoodID" = og."GoodID"
		JOIN public."Order" o ON og."OrderID" = o."OrderID"
		WHERE g."GoodID" = ? AND o."Date_order" >= ?
		GROUP BY week_start
		ORDER BY week_start`, goodID, since).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_popularity", period.Range{Start: since}, err)
	}

	out := make([]catalog.WeeklyPopularity, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.WeeklyPopularity{
			WeekStart: calendarDay(row.WeekStart),
			Orders:    row.Orders,
			Quantity:  row.Quantity,
		})
	}
	return out, nil
}

// Availability returns stock per store, largest first
func (r *GormCatalogRepository) Availability(ctx context.Context, goodID int64) ([]catalog.StockLevel, error) {
	var rows []struct {
		City     sql.NullString
		Street   sql.NullString
		Building sql.NullString
		Store    sql.NullString
		Quantity sql.NullInt64
	}
	err := rawQuery(ctx, r.db, "product_availability", `SELECT s."City" AS city,
			s."Street" AS street,
			s."Building"::text AS building,
			s."Name" AS store,
			ss."Goods_quantity" AS quantity
		FROM public."Goods" g
		JOIN public."Store_stock" ss ON g."GoodID" = ss."GoodID"
		LEFT JOIN public."Store" s ON ss."StoreID" = s."StoreID"
		WHERE g."GoodID" = ?
		ORDER BY ss."Goods_quantity" DESC`, goodID).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_availability", period.Range{}, err)
	}

	out := make([]catalog.StockLevel, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.StockLevel{
			City:     row.City.String,
			Street:   row.Street.String,
			Building: row.Building.String,
			Store:    row.Store.String,
			Quantity: row.Quantity.Int64,
		})
	}
	return out, nil
}

// Suppliers returns every supply of the good with its supplier contacts
func (r *GormCatalogRepository) Suppliers(ctx context.Context, goodID int64) ([]catalog.SupplyRecord, error) {
	var rows []struct {
		Supplier      sql.NullString
		ContactPerson sql.NullString
		Phone         sql.NullString
		SuppliedAt    sql.NullTime
		Price         decimal.NullDecimal
	}
	err := rawQuery(ctx, r.db, "product_suppliers", `SELECT s."Name_suppliers" AS supplier,
			s."Contact_person" AS contact_person,
			s."Number_phone_suppliers"::text AS phone,
			sp."Date_supply" AS supplied_at,
			sp."Price_supply" AS price
		FROM public."Goods" g
		JOIN public."Supply" sp ON g."GoodID" = sp."GoodsID"
		LEFT JOIN public."Suppliers" s ON sp."SuppliersID" = s."SuppliersID"
		WHERE g."GoodID" = ?
		ORDER BY sp."Date_supply" DESC`, goodID).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_suppliers", period.Range{}, err)
	}

	out := make([]catalog.SupplyRecord, 0, len(rows))
	for _, row := range rows {
		rec := catalog.SupplyRecord{
			Supplier:      row.Supplier.String,
			ContactPerson: row.ContactPerson.String,
			Phone:         row.Phone.String,
			Price:         row.Price.Decimal,
		}
		if row.SuppliedAt.Valid {
			at := calendarDay(row.SuppliedAt.Time)
			rec.SuppliedAt = &at
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ratings returns the average rating and the count per star value
func (r *GormCatalogRepository) Ratings(ctx context.Context, goodID int64) (catalog.RatingSummary, error) {
	var buckets []catalog.RatingBucket
	err := rawQuery(ctx, r.db, "product_ratings", `SELECT r."Rating" AS rating,
			COUNT(r."Rating") AS count
		FROM public."Rating_goods" r
		WHERE r."GoodID" = ?
		GROUP BY r."Rating"
		ORDER BY r."Rating"`, goodID).Scan(&buckets).Error
	if err != nil {
		return catalog.RatingSummary{}, unavailable("product_ratings", period.Range{}, err)
	}
	return summarizeRatings(buckets), nil
}

// summarizeRatings derives the average, rounded to two places, from the distribution
func summarizeRatings(buckets []catalog.RatingBucket) catalog.RatingSummary {
	summary := catalog.RatingSummary{Distribution: buckets}
	if summary.Distribution == nil {
		summary.Distribution = []catalog.RatingBucket{}
	}

	weighted := decimal.Zero
	for _, b := range buckets {
		summary.Count += b.Count
		weighted = weighted.Add(decimal.NewFromInt(int64(b.Rating) * b.Count))
	}
	if summary.Count > 0 {
		avg := weighted.Div(decimal.NewFromInt(summary.Count)).Round(2)
		summary.Average = &avg
	}
	return summary
}

// SalesDynamics returns units and revenue of the good per day in the range
func (r *GormCatalogRepository) SalesDynamics(ctx context.Context, goodID int64, rg period.Range) ([]catalog.DailySales, error) {
	var rows []struct {
		Day      time.Time
		Quantity decimal.Decimal
		Revenue  decimal.Decimal
	}
	err := rawQuery(ctx, r.db, "product_sales", `SELECT DATE_TRUNC('day', o."Date_order")::date AS day,
			COALESCE(SUM(og."Quantity_goods"), 0) AS quantity,
			COALESCE(SUM(og."Sum_and_discont_og"), 0) AS revenue
		FROM public."Goods" g
		JOIN public."Order_goods" og ON g."GoodID" = og."GoodID"
		JOIN public."Order" o ON og."OrderID" = o."OrderID"
		WHERE g."GoodID" = ? AND o."Date_order" BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day`, goodID, rg.Start, upperBound(rg)).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_sales", rg, err)
	}

	out := make([]catalog.DailySales, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.DailySales{Date: calendarDay(row.Day), Quantity: row.Quantity, Revenue: row.Revenue})
	}
	return out, nil
}

// GenderDistribution counts purchases of the good per buyer gender
func (r *GormCatalogRepository) GenderDistribution(ctx context.Context, goodID int64) ([]catalog.Share, error) {
	var rows []struct {
		Label sql.NullString
		Count int64
	}
	err := rawQuery(ctx, r.db, "product_gender", `SELECT c."Gender" AS label,
			COUNT(*) AS count
		FROM public."Goods" g
		JOIN public."Order_goods" og ON g."GoodID" = og."GoodID"
		JOIN public."Order" o ON og."OrderID" = o."OrderID"
		JOIN public."Customer" c ON o."CustomerID" = c."CustomerID"
		WHERE g."GoodID" = ?
		GROUP BY c."Gender"
		ORDER BY count DESC`, goodID).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_gender", period.Range{}, err)
	}

	out := make([]catalog.Share, 0, len(rows))
	for _, row := range rows {
		label := row.Label.String
		if !row.Label.Valid {
			label = "Не указан"
		}
		out = append(out, catalog.Share{Label: label, Count: row.Count})
	}
	return out, nil
}

// HolidaySeasonality buckets purchases of the good by holiday. Rows are grouped
// by calendar day and birthday in SQL and classified with catalog.ClassifyHoliday.
func (r *GormCatalogRepository) HolidaySeasonality(ctx context.Context, goodID int64) ([]catalog.Share, error) {
	var rows []struct {
		OrderDay time.Time
		Birthday sql.NullTime
		Count    int64
	}
	err := rawQuery(ctx, r.db, "product_seasonality", `SELECT o."Date_order"::date AS order_day,
			c."Date_birthday"::date AS birthday,
			COUNT(*) AS count
		FROM public."Goods" g
		JOIN public."Order_goods" og ON g."GoodID" = og."GoodID"
		JOIN public."Order" o ON og."OrderID" = o."OrderID"
		JOIN public."Customer" c ON o."CustomerID" = c."CustomerID"
		WHERE g."GoodID" = ?
		GROUP BY order_day, birthday`, goodID).Scan(&rows).Error
	if err != nil {
		return nil, unavailable("product_seasonality", period.Range{}, err)
	}

	counts := make(map[string]int64)
	for _, row := range rows {
		var birthday *time.Time
		if row.Birthday.Valid {
			birthday = &row.Birthday.Time
		}
		counts[catalog.ClassifyHoliday(row.OrderDay, birthday)] += row.Count
	}

	out := make([]catalog.Share, 0, len(counts))
	for label, n := range counts {
		out = append(out, catalog.Share{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}


// Package catalog holds the read models of the product analysis dashboard.
package catalog

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Analysis windows of the product dashboard
const (
	PopularityWindowDays = 60
	SalesWindowDays      = 180
)

// FilterType selects how goods are searched
type FilterType string

const (
	FilterByName            FilterType = "name"
	FilterByID              FilterType = "id"
	FilterByCategoryCountry FilterType = "category_country"
	FilterByNameCountry     FilterType = "name_country"
)

// GoodsFilter is the goods search input. Only the fields relevant to Type are used.
type GoodsFilter struct {
	Type     FilterType
	Name     string
	ID       int64
	Country  string
	Category string
}

// NamePattern returns the ILIKE pattern for a free-text name: punctuation is
// stripped and spaces become wildcards.
func NamePattern(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), " ", "%")
	return "%" + cleaned + "%"
}

// GoodRef is a search hit
type GoodRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductInfo is the product card
type ProductInfo struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Brand           string          `json:"brand"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Country         string          `json:"country"`
	Price           decimal.Decimal `json:"price"`
	Discount        decimal.Decimal `json:"discount"`
	StorageLife     string          `json:"storage_life"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

// DiscountedPrice applies a percentage discount, rounded to kopecks.
func DiscountedPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(decimal.NewFromInt(100)))
	return price.Mul(factor).Round(2)
}

// WeeklyPopularity is order and unit counts for one week
type WeeklyPopularity struct {
	WeekStart time.Time       `json:"week_start"`
	Orders    int64           `json:"orders"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// StockLevel is the quantity held by one store
type StockLevel struct {
	City     string `json:"city"`
	Street   string `json:"street"`
	Building string `json:"building"`
	Store    string `json:"store"`
	Quantity int64  `json:"quantity"`
}

// SupplyRecord is one supplier delivery of the product
type SupplyRecord struct {
	Supplier      string          `json:"supplier"`
	ContactPerson string          `json:"contact_person"`
	Phone         string          `json:"phone"`
	SuppliedAt    *time.Time      `json:"supplied_at,omitempty"`
	Price         decimal.Decimal `json:"price"`
}

// RatingBucket is the count of one star value
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// RatingSummary is the average rating and its distribution
type RatingSummary struct {
	Average      *decimal.Decimal `json:"average,omitempty"`
	Count        int64            `json:"count"`
	Distribution []RatingBucket   `json:"distribution"`
}

// DailySales is product units and revenue per day
type DailySales struct {
	Date     time.Time       `json:"date"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Share is a label with a purchase count, used for gender and holiday splits
type Share struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Holiday labels of the seasonality breakdown
const (
	HolidayNewYear       = "Новый Год"
	HolidayPreNewYear    = "Предновогодняя неделя"
	HolidayValentines    = "День Влюбленных"
	HolidayDefenders     = "23 Февраля"
	HolidayWomens        = "8 Марта"
	HolidayPreWomens     = "Перед 8 Марта"
	HolidayPreValentines = "Перед 14 Февраля"
	HolidayBirthday      = "День Рождения"
	HolidayRegular       = "Обычный день"
)

// ClassifyHoliday maps an order date to its seasonality bucket. The birthday
// bucket applies when the order falls on the customer's birthday.
func ClassifyHoliday(order time.Time, birthday *time.Time) string {
	m, d := order.Month(), order.Day()
	switch {
	case (m == time.December && d == 31) || (m == time.January && d == 1):
		return HolidayNewYear
	case m == time.December && d >= 25 && d <= 30:
		return HolidayPreNewYear
	case m == time.February && d == 14:
		return HolidayValentines
	case m == time.February && d == 23:
		return HolidayDefenders
	case m == time.March && d == 8:
		return HolidayWomens
	case m == time.March && d >= 1 && d <= 7:
		return HolidayPreWomens
	case m == time.February && d >= 7 && d <= 13:
		return HolidayPreValentines
	case birthday != nil && birthday.Month() == m && birthday.Day() == d:
		return HolidayBirthday
	}
	return HolidayRegular
}

// ProductAnalysis is the full product dashboard payload
type ProductAnalysis struct {
	Info         *ProductInfo       `json:"info"`
	Popularity   []WeeklyPopularity `json:"popularity"`
	Sales        []DailySales       `json:"sales"`
	SalesPeriod  period.Range       `json:"-"`
	Gender       []Share            `json:"gender"`
	Seasonality  []Share            `json:"seasonality"`
	Availability []StockLevel       `json:"availability"`
	Suppliers    []SupplyRecord     `json:"suppliers"`
	Ratings      RatingSummary      `json:"ratings"`
}

// ProductAnalyticsRepository reads product level aggregates
type ProductAnalyticsRepository interface {
	Countries(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
	SearchGoods(ctx context.Context, filter GoodsFilter) ([]GoodRef, error)
	ProductInfo(ctx context.Context, goodID int64) (*ProductInfo, error)
	Popularity(ctx context.Context, goodID int64, since time.Time) ([]WeeklyPopularity, error)
	Availability(ctx context.Context, goodID int64) ([]StockLevel, error)
	Suppliers(ctx context.Context, goodID int64) ([]SupplyRecord, error)
	Ratings(ctx context.Context, goodID int64) (RatingSummary, error)
	SalesDynamics(ctx context.Context, goodID int64, r period.Range) ([]DailySales, error)
	GenderDistribution(ctx context.Context, goodID int64) ([]Share, error)
	HolidaySeasonality(ctx context.Context, goodID int64) ([]Share, error)
}

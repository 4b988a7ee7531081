package report

import (
	"context"
	"fmt"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PeriodType is the period selector of the sales dashboard
type PeriodType string

const (
	PeriodCustom  PeriodType = "custom"
	PeriodMonth   PeriodType = "month"
	PeriodYear    PeriodType = "year"
	PeriodQuarter PeriodType = "quarter"
)

// DefaultLookbackDays is the dashboard range when no period is given
const DefaultLookbackDays = 30

// SalesQuery is the filter set of the sales dashboard
type SalesQuery struct {
	PeriodType PeriodType
	Start      time.Time
	End        time.Time
	Year       int
	Month      int
	Quarter    int
	Category   string
}

// Resolve turns the query into a range. Custom ranges must be ordered and at most
// maxDays long; every end date is clipped to today. A custom query without dates
// falls back to the last DefaultLookbackDays days.
func (q SalesQuery) Resolve(today time.Time, maxDays int) (period.Range, error) {
	t := period.Date(today.Year(), today.Month(), today.Day())
	fallback := period.Range{Start: t.AddDate(0, 0, -DefaultLookbackDays), End: t}

	switch q.PeriodType {
	case "", PeriodCustom:
		if q.Start.IsZero() || q.End.IsZero() {
			return fallback, nil
		}
		r := period.NewRange(q.Start, q.End)
		if r.Start.After(r.End) {
			return fallback, fmt.Errorf("%w: начальная дата не может быть позже конечной", shared.ErrInvalidPeriod)
		}
		r = period.ClipToToday(r, t)
		if maxDays > 0 && r.Days()-1 > maxDays {
			return fallback, fmt.Errorf("%w: диапазон дат не должен превышать %d дней", shared.ErrInvalidPeriod, maxDays)
		}
		return r, nil

	case PeriodMonth:
		r, err := period.Resolve(period.Request{Granularity: period.Month, Year: q.Year, Month: q.Month})
		if err != nil {
			return fallback, err
		}
		return period.ClipToToday(r, t), nil

	case PeriodYear:
		r, err := period.Resolve(period.Request{Granularity: period.Year, Year: q.Year})
		if err != nil {
			return fallback, err
		}
		return period.ClipToToday(r, t), nil

	case PeriodQuarter:
		r, err := period.Resolve(period.Request{Granularity: period.Quarter, Year: q.Year, Index: q.Quarter})
		if err != nil {
			return fallback, err
		}
		return period.ClipToToday(r, t), nil
	}

	return fallback, fmt.Errorf("%w: неизвестный тип периода %q", shared.ErrInvalidPeriod, q.PeriodType)
}

// Fixed monthly expenses and tax rates of the profitability model
var (
	MarketingExpense    = decimal.NewFromInt(200000)
	LogisticsExpense    = decimal.NewFromInt(470000)
	UtilitiesExpense    = decimal.NewFromInt(175000)
	MobileExpense       = decimal.NewFromInt(25000)
	DepreciationExpense = decimal.NewFromInt(60000)
	VATRate             = decimal.NewFromFloat(0.20)
	ProfitTaxRate       = decimal.NewFromFloat(0.15)
)

// CostBase is the raw cost data read from the database
type CostBase struct {
	Revenue     decimal.Decimal `json:"revenue"`
	CostOfGoods decimal.Decimal `json:"cost_of_goods"`
	Salaries    decimal.Decimal `json:"salaries"`
	Rent        decimal.Decimal `json:"rent"`
	Orders      int64           `json:"orders"`
}

// SummaryStats is the profitability headline of the sales dashboard
type SummaryStats struct {
	CostBase
	Marketing     decimal.Decimal `json:"marketing"`
	Logistics     decimal.Decimal `json:"logistics"`
	Utilities     decimal.Decimal `json:"utilities"`
	Mobile        decimal.Decimal `json:"mobile"`
	Depreciation  decimal.Decimal `json:"depreciation"`
	VAT           decimal.Decimal `json:"vat"`
	ProfitTax     decimal.Decimal `json:"profit_tax"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
}

// ComputeSummary applies VAT, fixed expenses and profit tax to the cost base.
func ComputeSummary(base CostBase) SummaryStats {
	s := SummaryStats{
		CostBase:     base,
		Marketing:    MarketingExpense,
		Logistics:    LogisticsExpense,
		Utilities:    UtilitiesExpense,
		Mobile:       MobileExpense,
		Depreciation: DepreciationExpense,
	}
	s.VAT = base.Revenue.Mul(VATRate)

	operating := base.CostOfGoods.Add(base.Salaries).Add(base.Rent).
		Add(s.Marketing).Add(s.Logistics).Add(s.Utilities).Add(s.Mobile).Add(s.Depreciation)
	taxable := base.Revenue.Sub(s.VAT).Sub(operating)

	s.ProfitTax = taxable.Mul(ProfitTaxRate)
	s.NetProfit = taxable.Sub(s.ProfitTax)
	s.TotalExpenses = operating.Add(s.VAT).Add(s.ProfitTax)
	return s
}

// LabeledValue is one bar of a categorical dashboard chart
type LabeledValue struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// DailyProfit is revenue, purchase cost and gross profit for one day
type DailyProfit struct {
	Date        time.Time       `json:"date"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

// DailyValue is a single metric per day
type DailyValue struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// CategoryStat is the per-category margin row
type CategoryStat struct {
	Category      string          `json:"category"`
	Revenue       decimal.Decimal `json:"revenue"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
	Orders        int64           `json:"orders"`
	ItemsSold     decimal.Decimal `json:"items_sold"`
}

// ARPU is revenue per unique customer
type ARPU struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Customers int64           `json:"customers"`
	Value     decimal.Decimal `json:"value"`
}

// NewARPU divides revenue by customers with a zero guard.
func NewARPU(revenue decimal.Decimal, customers int64) ARPU {
	return ARPU{Revenue: revenue, Customers: customers, Value: AverageCheck(revenue, customers)}
}

// SalesOverview is the complete data set of the sales dashboard page
type SalesOverview struct {
	Period         period.Range   `json:"-"`
	Category       string         `json:"category,omitempty"`
	Categories     []string       `json:"categories"`
	Summary        SummaryStats   `json:"summary"`
	GrossProfit    []DailyProfit  `json:"gross_profit"`
	OrdersByDay    []DailyValue   `json:"orders_by_day"`
	AvgOrderByDay  []DailyValue   `json:"avg_order_by_day"`
	RevenueByStore []LabeledValue `json:"revenue_by_store"`
	OrdersByStore  []LabeledValue `json:"orders_by_store"`
	TopBrands      []LabeledValue `json:"top_brands"`
	TopCategories  []LabeledValue `json:"top_categories"`
	SalesByManager []LabeledValue `json:"sales_by_manager"`
	ARPU           ARPU           `json:"arpu"`
	CategoryStats  []CategoryStat `json:"category_stats"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// SalesOverviewRepository reads the sales dashboard aggregates
type SalesOverviewRepository interface {
	Categories(ctx context.Context) ([]string, error)
	CostBase(ctx context.Context, r period.Range) (CostBase, error)
	GrossProfitByDay(ctx context.Context, r period.Range) ([]DailyProfit, error)
	OrdersByDay(ctx context.Context, r period.Range) ([]DailyValue, error)
	AvgOrderByDay(ctx context.Context, r period.Range) ([]DailyValue, error)
	RevenueByStore(ctx context.Context, r period.Range, category string) ([]LabeledValue, error)
	OrdersByStore(ctx context.Context, r period.Range, category string) ([]LabeledValue, error)
	TopBrands(ctx context.Context, r period.Range, limit int) ([]LabeledValue, error)
	TopCategories(ctx context.Context, r period.Range, limit int) ([]LabeledValue, error)
	SalesByManager(ctx context.Context, r period.Range) ([]LabeledValue, error)
	ARPU(ctx context.Context, r period.Range) (ARPU, error)
	CategoryStats(ctx context.Context, r period.Range, category string) ([]CategoryStat, error)
}

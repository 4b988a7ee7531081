package report

import (
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Cadence is the narrative report rhythm
type Cadence string

const (
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

// Offset returns the previous-period shift in days used for deltas.
func (c Cadence) Offset() int {
	if c == Monthly {
		return period.MonthlyOffset
	}
	return period.WeeklyOffset
}

// Placeholders used by the delivery section
const (
	TotalChannel            = "Итог"
	UnknownValue            = "Не указан"
	DefaultDeliveryRegions  = "Москва, Санкт-Петербург, Казань"
	DeliveryTimePlaceholder = "2 дня"
)

// Totals is revenue and distinct completed-order count over a period
type Totals struct {
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

// AverageCheck returns Revenue / Orders, or zero when there are no orders.
func (t Totals) AverageCheck() decimal.Decimal {
	return AverageCheck(t.Revenue, t.Orders)
}

// AverageCheck divides revenue by order count with a zero-order guard.
func AverageCheck(revenue decimal.Decimal, orders int64) decimal.Decimal {
	if orders <= 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(orders))
}

// DeltaMetric is a current-vs-previous comparison
type DeltaMetric struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Percent  decimal.Decimal `json:"percent"`
}

// NewDelta computes (current-previous)/previous*100. The percent is zero whenever
// previous is not positive.
func NewDelta(current, previous decimal.Decimal) DeltaMetric {
	d := DeltaMetric{Current: current, Previous: previous, Percent: decimal.Zero}
	if previous.IsPositive() {
		d.Percent = current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	}
	return d
}

// CountDelta is NewDelta over order counts.
func CountDelta(current, previous int64) DeltaMetric {
	return NewDelta(decimal.NewFromInt(current), decimal.NewFromInt(previous))
}

// ProductSales is one row of the top products ranking
type ProductSales struct {
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// ChannelRow is one sales channel line including the synthesized total
type ChannelRow struct {
	Channel string          `json:"channel"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DailyTotal is the gateway result for one calendar day
type DailyTotal struct {
	Date    time.Time       `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

// PeriodRow is one line of the temporal breakdown table
type PeriodRow struct {
	Label        string          `json:"label"`
	Date         time.Time       `json:"date"`
	Revenue      decimal.Decimal `json:"revenue"`
	Orders       int64           `json:"orders"`
	AverageCheck decimal.Decimal `json:"average_check"`
	Change       decimal.Decimal `json:"change"`
}

// ReportData is everything a narrative report shows
type ReportData struct {
	Cadence         Cadence        `json:"cadence"`
	Period          period.Range   `json:"-"`
	Totals          Totals         `json:"totals"`
	PreviousTotals  Totals         `json:"previous_totals"`
	Dynamics        DeltaMetric    `json:"dynamics"`
	NewCustomers    int64          `json:"new_customers"`
	TopProducts     []ProductSales `json:"top_products"`
	Channels        []ChannelRow   `json:"channels"`
	Rows            []PeriodRow    `json:"rows"`
	ShippedOrders   int64          `json:"shipped_orders"`
	DeliveryTime    string         `json:"delivery_time"`
	DeliveryRegions string         `json:"delivery_regions"`
	Degraded        bool           `json:"degraded"`
}

// AverageCheck of the report period.
func (d *ReportData) AverageCheck() decimal.Decimal {
	return d.Totals.AverageCheck()
}

// BestProduct returns the top product, or a placeholder row when there are none.
func (d *ReportData) BestProduct() ProductSales {
	if len(d.TopProducts) == 0 {
		return ProductSales{Name: UnknownValue}
	}
	return d.TopProducts[0]
}

// ZeroReportData is the fail-soft fallback: every metric zero, channels empty and
// the temporal table still listing every day (weekly) or both months (monthly).
func ZeroReportData(cadence Cadence, r period.Range) *ReportData {
	data := &ReportData{
		Cadence:         cadence,
		Period:          r,
		TopProducts:     []ProductSales{},
		Channels:        []ChannelRow{},
		DeliveryTime:    "0",
		DeliveryRegions: UnknownValue,
		Degraded:        true,
	}
	if cadence == Monthly {
		data.Rows = MonthlyRows(r, Totals{}, Totals{})
	} else {
		data.Rows = DailyRows(r, nil, nil)
	}
	return data
}

// WithTotalChannel appends the synthesized total line to channel rows.
func WithTotalChannel(rows []ChannelRow, totals Totals) []ChannelRow {
	out := make([]ChannelRow, 0, len(rows)+1)
	out = append(out, rows...)
	return append(out, ChannelRow{Channel: TotalChannel, Orders: totals.Orders, Revenue: totals.Revenue})
}

// DailyRows lists every day of r. Days missing from current are zero-filled.
// Each row's change compares its order count with the same weekday in previous.
func DailyRows(r period.Range, current, previous []DailyTotal) []PeriodRow {
	byDay := make(map[string]DailyTotal, len(current))
	for _, d := range current {
		byDay[dayKey(d.Date)] = d
	}
	prevByDay := make(map[string]int64, len(previous))
	for _, d := range previous {
		prevByDay[dayKey(d.Date)] = d.Orders
	}

	rows := make([]PeriodRow, 0, r.Days())
	for _, day := range r.EachDay() {
		row := PeriodRow{Label: day.Format("02.01.2006"), Date: day}
		if d, ok := byDay[dayKey(day)]; ok {
			row.Revenue = d.Revenue
			row.Orders = d.Orders
			row.AverageCheck = AverageCheck(d.Revenue, d.Orders)
			prev := prevByDay[dayKey(day.AddDate(0, 0, -period.WeeklyOffset))]
			row.Change = CountDelta(d.Orders, prev).Percent
		}
		rows = append(rows, row)
	}
	return rows
}

// MonthlyRows builds the two-line previous/current month comparison.
func MonthlyRows(r period.Range, current, previous Totals) []PeriodRow {
	prevStart := period.Previous(r, period.MonthlyOffset).Start
	return []PeriodRow{
		{
			Label:        "Прошлый месяц " + prevStart.Format("02.01.2006"),
			Date:         prevStart,
			Revenue:      previous.Revenue,
			Orders:       previous.Orders,
			AverageCheck: previous.AverageCheck(),
			Change:       decimal.Zero,
		},
		{
			Label:        "Нынешний месяц " + r.Start.Format("02.01.2006"),
			Date:         r.Start,
			Revenue:      current.Revenue,
			Orders:       current.Orders,
			AverageCheck: current.AverageCheck(),
			Change:       CountDelta(current.Orders, previous.Orders).Percent,
		},
	}
}

func dayKey(t time.Time) string {
	return t.Format(period.DateLayout)
}
